// Package transport defines the interfaces for RPC communication between dGrid
// clients and members. It provides a common contract that all transport
// implementations must fulfill, so the client and server code is independent
// of the medium.
//
// Key Components:
//
//   - IRPCClientTransport: Client side, sends a request to a shard and waits
//     for the response.
//
//   - IRPCServerTransport: Member side, receives requests and passes them to
//     the registered ServerHandleFunc.
//
// Implementations live in the sub packages: base (medium independent framing
// and correlation on top of conn), tcp, unix and ws.
package transport
