package testing

import (
	"fmt"
	"github.com/ValentinKolb/dGrid/lib/store"
	"math/rand"
	"testing"
	"time"
)

// RunIMapBenchmarks runs the benchmarks of a store.IMap implementation
func RunIMapBenchmarks(b *testing.B, name string, factory MapFactory) {
	b.Run(name, func(b *testing.B) {
		b.Run("Put", func(b *testing.B) {
			benchmarkPut(b, factory(), []byte("test"), 0)
		})

		b.Run("PutLargeValue", func(b *testing.B) {
			benchmarkPut(b, factory(), make([]byte, 100*1024), 0)
		})

		b.Run("PutWithTTL", func(b *testing.B) {
			benchmarkPut(b, factory(), []byte("test"), time.Minute)
		})

		b.Run("Get", func(b *testing.B) {
			benchmarkGet(b, factory())
		})

		b.Run("ContainsKey(not)", func(b *testing.B) {
			benchmarkContainsKeyNot(b, factory())
		})

		b.Run("MixedUsage", func(b *testing.B) {
			benchmarkMixedUsage(b, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

const benchmarkKeys = 1000

func benchmarkKey(i int) string {
	return fmt.Sprintf("bench-key-%d", i%benchmarkKeys)
}

func benchmarkPut(b *testing.B, m store.IMap, value []byte, ttl time.Duration) {
	b.ReportAllocs()
	b.SetBytes(int64(len(value)))
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			var err error
			if ttl > 0 {
				err = m.PutTTL(benchmarkKey(i), value, ttl)
			} else {
				err = m.Put(benchmarkKey(i), value)
			}
			if err != nil {
				b.Errorf("Put failed: %v", err)
				return
			}
			i++
		}
	})
}

func benchmarkGet(b *testing.B, m store.IMap) {
	for i := 0; i < benchmarkKeys; i++ {
		_ = m.Put(benchmarkKey(i), []byte("test"))
	}

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if _, ok, err := m.Get(benchmarkKey(i)); err != nil || !ok {
				b.Errorf("Get returned %v, %v", ok, err)
				return
			}
			i++
		}
	})
}

func benchmarkContainsKeyNot(b *testing.B, m store.IMap) {
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if _, err := m.ContainsKey(benchmarkKey(i)); err != nil {
				b.Errorf("ContainsKey failed: %v", err)
				return
			}
			i++
		}
	})
}

func benchmarkMixedUsage(b *testing.B, m store.IMap) {
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(time.Now().UnixNano()))
		for pb.Next() {
			key := benchmarkKey(r.Intn(benchmarkKeys))
			var err error
			switch r.Intn(4) {
			case 0:
				err = m.Put(key, []byte("test"))
			case 1:
				_, _, err = m.Get(key)
			case 2:
				_, err = m.Remove(key)
			case 3:
				_, err = m.ContainsKey(key)
			}
			if err != nil {
				b.Errorf("Operation failed: %v", err)
				return
			}
		}
	})
}
