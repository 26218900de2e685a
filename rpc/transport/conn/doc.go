// Package conn implements the duplex framed connection that every dGrid transport
// is built on. It turns a raw byte transport (a TCP or Unix socket, a WebSocket
// stream, ...) into an ordered stream of application frames and owns the
// lifecycle of the goroutines that move those bytes.
//
// The package focuses on:
//   - Decoupling transport reads from frame processing through an internal pipe
//   - Handling arbitrary fragmentation of the byte stream
//   - Delivering a fixed-length prefix frame exactly once before any message frame
//   - Running the termination sequence exactly once, no matter who triggers it
//
// Key Components:
//
//   - Connection: The façade. It is configured with a Config (or the Set* methods),
//     activated with an already-open Transport and then used to Send bytes and
//     eventually Close.
//
//   - Ingest loop: Reads from the transport into the pipe until the peer closes
//     the stream, a read fails or the connection is cancelled.
//
//   - Dispatch loop: Drains the pipe and hands the visible bytes to the frame
//     processor. The pipe is only advanced past bytes a handler actually consumed.
//
//   - Frame processor: Calls the PrefixHandler once with exactly PrefixLength bytes
//     and then calls the MessageHandler while it reports that more complete frames
//     may be available.
//
//   - Shutdown: The first loop to end (or Close, or a failed Send) stops the
//     connection. Both loops are awaited, the transport is closed once and the
//     ShutdownHandler is called once. A failed Send is reported as a failure,
//     Close and Cancel as cancellation. Close gives up on a peer that stopped
//     reading after Config.CloseTimeout.
//
// Backpressure:
//
//	The pipe never blocks the ingest loop. If the application is slow, bytes
//	accumulate in the pipe and the pipe grows. Config.MaxPipeBytes caps that
//	growth; exceeding the cap is a fatal error for the connection.
//
// Thread Safety:
//
//	Send, Close, Cancel and all observers are safe for concurrent use. Handlers
//	are always called from the dispatch goroutine of their connection.
package conn
