// Package testing provides the standard tests and benchmarks of store.IMap
// implementations. The local store runs them directly, the rpc client runs
// them against a member.
//
// Example usage:
//
//	factory := func() store.IMap {
//		return lstore.NewLocalStore().GetMap(uuid.NewString())
//	}
//
//	storetesting.RunIMapTests(t, "LocalStore", factory)
//	storetesting.RunIMapBenchmarks(b, "LocalStore", factory)
package testing
