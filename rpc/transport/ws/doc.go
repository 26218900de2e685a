// Package ws implements the transport of dGrid over websockets
// (gorilla/websocket), for clients that can only reach the members through
// http infrastructure such as reverse proxies.
//
// The websocket only replaces the byte stream: wsConn turns a websocket into
// a net.Conn by sending every write as one binary message and reading the
// binary messages back as a continuous stream. Framing, correlation and
// retries are inherited from the base package, so frames may span several
// websocket messages and one message may carry several frames.
//
// Key Components:
//
//   - clientConnector: Dials ws://<endpoint>/dgrid (or the given ws:// or
//     wss:// url)
//
//   - serverConnector: Serves http on the endpoint and upgrades requests on
//     /dgrid. Its listener hands the upgraded connections to the accept loop
//     of the base server.
//
// The tcp options of the configuration are applied to the connection below
// the websocket.
package ws
