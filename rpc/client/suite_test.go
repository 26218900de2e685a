package client

import (
	"fmt"
	"github.com/ValentinKolb/dGrid/lib/store"
	storetesting "github.com/ValentinKolb/dGrid/lib/store/testing"
	"github.com/ValentinKolb/dGrid/rpc/serializer"
	"sync/atomic"
	"testing"
)

// TestRPCMapSuite runs the map test suite against a member. Every map of the
// suite gets its own name on the same member.
func TestRPCMapSuite(t *testing.T) {
	for name, newSerializer := range serializers {
		t.Run(name, func(t *testing.T) {
			s := newSerializer()
			grid := newStore(t, startMember(t, s), s)

			var maps atomic.Int64
			storetesting.RunIMapTests(t, "RPCMap", func() store.IMap {
				return grid.GetMap(fmt.Sprintf("suite-%d", maps.Add(1)))
			})
		})
	}
}

func BenchmarkRPCMap(b *testing.B) {
	s := serializer.NewBinarySerializer()
	grid := newStore(b, startMember(b, s), s)

	var maps atomic.Int64
	storetesting.RunIMapBenchmarks(b, "RPCMap", func() store.IMap {
		return grid.GetMap(fmt.Sprintf("bench-%d", maps.Add(1)))
	})
}
