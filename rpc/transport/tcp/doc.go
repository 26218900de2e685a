// Package tcp implements the TCP transport of dGrid. It provides the TCP
// specific connectors for the base package, everything else (framing,
// correlation, retries, worker pools) is inherited from there.
//
// Key Components:
//
//   - clientConnector: Dials the endpoint and applies TCPConf and SocketConf
//
//   - serverConnector: Listens on the endpoint and applies the same options to
//     accepted connections
//
// A TCPLingerSec of 0 keeps the OS default. Setting it to 0 explicitly would
// reset the connection on close and drop the close sentinel.
package tcp
