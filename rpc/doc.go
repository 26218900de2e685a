// Package rpc provides the remote procedure calls of dGrid. It is the
// communication layer between clients and the members of the grid.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures used across the RPC system, including the
//     Message protocol, configuration structures and logging.
//
//   - transport: Multiplexed framed connections (conn), the shared client and
//     server logic (base) and the media they run on (tcp, unix, ws).
//
//   - serializer: Message serialization with multiple format options (Binary,
//     JSON, GOB, CBOR) for converting between Message objects and byte arrays.
//
//   - client: Client implementations of the map and lock interfaces.
//
//   - server: A member serving maps and locks from memory.
package rpc
