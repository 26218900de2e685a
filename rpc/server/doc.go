// Package server implements a dGrid member that serves named maps and lock
// groups from memory. It is used by the serve command and as the counterpart
// of the client in tests.
//
// Key Components:
//
//   - IRPCServerAdapter: Translates a request into calls on the store of a
//     shard. Errors are reported inside the response message.
//
//   - NewIMapServerAdapter: Adapter for map shards, serving every map
//     operation on store.IStore.GetMap(name).
//
//   - NewILockServerAdapter: Adapter for lock shards. Each lock group is a
//     lockmgr.ILock kept in the map of the same name.
//
//   - NewRPCServer: Creates a member with the given transport and serializer.
//     Every shard of the configuration gets its own local store.
//
// Usage Example:
//
//	config := common.ServerConfig{
//		Shards: []common.ServerShard{
//			{ShardID: 100, Type: common.ShardTypeMap},
//			{ShardID: 200, Type: common.ShardTypeLock},
//		},
//		TimeoutSecond: 5,
//		Transport:     common.ServerTransportConfig{Endpoint: "0.0.0.0:8080"},
//	}
//
//	s := server.NewRPCServer(config, tcp.NewTCPServerTransport(), serializer.NewBinarySerializer())
//	if err := s.Serve(); err != nil {
//		log.Fatalf("Server error: %v", err)
//	}
//
// Requests and responses must use the same serializer on both sides.
package server
