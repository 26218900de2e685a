package serve

import (
	"github.com/ValentinKolb/dGrid/rpc/common"
	"reflect"
	"testing"
)

func TestParseShards(t *testing.T) {
	shards, err := parseShards("100=map, 200 = lock")
	if err != nil {
		t.Fatalf("parseShards failed: %v", err)
	}
	want := []common.ServerShard{
		{ShardID: 100, Type: common.ShardTypeMap},
		{ShardID: 200, Type: common.ShardTypeLock},
	}
	if !reflect.DeepEqual(shards, want) {
		t.Fatalf("Expected %v, got %v", want, shards)
	}

	for _, bad := range []string{"100", "x=map", "100=queue", "100=map=lock"} {
		if _, err := parseShards(bad); err == nil {
			t.Errorf("Expected an error for %q", bad)
		}
	}
}
