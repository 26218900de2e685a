// Package store defines the map abstraction of dGrid.
//
// Key Components:
//
//   - IMap: Operations on one named map (Put, PutTTL, PutIfAbsent, Get,
//     ContainsKey, Remove, Size, Clear). It is implemented by the in-memory
//     maps of a member (lstore) and by the rpc client, so application code
//     does not care whether a map is local or remote.
//
//   - IStore: Hands out maps by name.
//
//   - Error: Typed error with a RetCode, returned for invalid requests.
//
// Implementations:
//
//	- Local Store (lstore): In-memory maps with per entry ttl, used by the
//	  members. Available in "github.com/ValentinKolb/dGrid/lib/store/lstore".
//
//	- RPC client: Maps of a remote member. Available in
//	  "github.com/ValentinKolb/dGrid/rpc/client".
package store
