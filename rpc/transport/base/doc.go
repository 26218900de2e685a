// Package base implements the medium independent part of the socket based
// transports (tcp, unix, ws). Connectors provide the net.Conn, everything
// above the byte stream happens here on top of the framed connections of the
// conn package.
//
// Protocol:
//
//	A client writes the 4 byte preamble ('D' 'G' 'R' version) once after
//	connecting, then both sides exchange frames of the form
//	[4B length][8B shard id][8B request id][payload]. The length covers the two
//	ids and the payload. A length of 0 is the close sentinel a connection
//	writes when it is closed gracefully.
//
// Key Components:
//
//   - IClientConnector/IServerConnector: Interfaces for protocol-specific operations
//     that allow extending the base transport with different network protocols.
//
//   - frameDecoder: The conn.MessageHandler of both sides. It decodes one frame
//     per call, rejects frames shorter than their header or larger than
//     ConnConf.MaxFrameSize, and cancels the connection on the close sentinel.
//
//   - clientTransport: Keeps ConnectionsPerEndpoint connections per endpoint
//     and picks one round robin per request. Responses are matched to requests
//     by request id. Failed requests are retried with exponential backoff
//     (cenkalti/backoff), and a dead connection is replaced the next time it
//     is picked.
//
//   - serverTransport: Accepts connections, validates the preamble and runs
//     requests on a bounded worker pool per connection. While all workers of a
//     connection are busy, no further frames are read from it.
//
// Metrics:
//
//	The server counts requests and their duration with VictoriaMetrics/metrics
//	(dgrid_rpc_*), the client times requests with a go-metrics timer
//	(dgrid.rpc.send) in the default go-metrics registry.
//
// Thread Safety:
//
//	All public methods are thread-safe. Responses of a connection may be
//	written in a different order than the requests arrived.
package base
