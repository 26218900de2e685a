package transport

import (
	"github.com/ValentinKolb/dGrid/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc answers one request frame addressed to shardId. It runs on
// a worker of the connection the request arrived on, so it is called
// concurrently, and it owns req. The returned payload is sent back with the
// request id of req.
type ServerHandleFunc func(shardId uint64, req []byte) (resp []byte)

// IRPCServerTransport accepts client connections for a grid member and
// passes every request frame to the registered handler.
type IRPCServerTransport interface {
	// RegisterHandler sets the handler of all shards. It must be called before Listen.
	RegisterHandler(handler ServerHandleFunc)
	// Listen serves config.Transport.Endpoint. It blocks until Close is called
	// or the listener fails.
	Listen(config common.ServerConfig) error
	// Close stops accepting, closes the open connections and waits for them
	Close() error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport multiplexes the requests of a client over a pool of
// connections to the members in config.Transport.Endpoints.
type IRPCClientTransport interface {
	// Connect dials the endpoints. It fails if no connection could be established.
	Connect(config common.ClientConfig) error
	// Send sends req to shardId and waits for the response, retrying on
	// another connection up to RetryCount times. A request above the frame
	// limit fails at once without touching the connection.
	Send(shardId uint64, req []byte) (resp []byte, err error)
	// Close fails all pending requests and closes the connections
	Close() error
}
