// Package client implements the dGrid client API on top of the RPC
// transports. It provides implementations of the store.IStore and
// lockmgr.ILock interfaces that forward every operation to a grid member.
//
// Key Components:
//
//   - NewRPCStore: Connects a transport and returns a store.IStore. Every map
//     returned by GetMap sends its requests to the configured shard.
//
//   - NewRPCLock: Connects a transport and returns a lockmgr.ILock for one
//     named group of locks.
//
// Errors reported by the member are returned wrapped in ErrRemote, responses
// that do not match the request in ErrUnexpectedResponse. Transport errors are
// returned as they are, after the retries of the transport are used up.
//
// Usage Example:
//
//	config := common.ClientConfig{
//		TimeoutSecond: 5,
//		Transport: common.ClientTransportConfig{
//			Endpoints:  []string{"localhost:8080"},
//			RetryCount: 3,
//		},
//	}
//
//	grid, _ := client.NewRPCStore(100, config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer())
//	sessions := grid.GetMap("sessions")
//	_ = sessions.PutTTL("alice", []byte("token"), time.Minute)
//	value, found, _ := sessions.Get("alice")
//
//	locks, _ := client.NewRPCLock(200, "jobs", config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer())
//	if ok, owner, _ := locks.Lock("nightly", time.Minute); ok {
//		defer locks.Unlock("nightly", owner)
//	}
//
// All clients are safe for concurrent use.
package client
