// Package unix implements the transport of dGrid over Unix domain sockets,
// for clients running on the same machine as the member.
//
// This package extends the base transport layer with Unix socket-specific connectors
// while inheriting all core functionality like connection pooling, request routing,
// and error handling from the base package.
//
// Key Components:
//
//   - clientConnector: Establishes connections using Unix domain sockets
//
//   - serverConnector: Creates Unix socket listeners (removing a stale socket
//     file first) and accepts connections
//
// Both connectors apply the socket buffer sizes of SocketConf.
package unix
