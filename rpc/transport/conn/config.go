package conn

import (
	"net"
	"time"
)

const (
	// DefaultMinReadSize is the smallest region the ingest loop asks the pipe for
	// before every transport read.
	DefaultMinReadSize = 512

	// DefaultCloseTimeout bounds how long Close waits to hand the close
	// sentinel to the transport.
	DefaultCloseTimeout = time.Second
)

// CloseSentinel is the reserved zero-length frame written by Close as a best
// effort "I am closing" notice. The core never interprets it, the peer's
// message codec is expected to.
var CloseSentinel = []byte{0, 0, 0, 0}

// --------------------------------------------------------------------------
// External collaborators
// --------------------------------------------------------------------------

// Transport is the already-negotiated byte stream a Connection runs on.
// net.Conn satisfies this interface.
type Transport interface {
	// Read reads up to len(p) bytes. A read of zero bytes means the peer closed the stream.
	Read(p []byte) (n int, err error)
	// Write writes len(p) bytes or returns an error.
	Write(p []byte) (n int, err error)
	// Close releases the transport. It is called exactly once by the connection.
	Close() error
	// LocalAddr returns the local endpoint.
	LocalAddr() net.Addr
	// RemoteAddr returns the remote endpoint.
	RemoteAddr() net.Addr
}

// readDeadliner is implemented by transports whose pending Read can be
// interrupted by moving the read deadline (net.Conn does this).
type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// writeDeadliner is implemented by transports whose pending Write can be
// interrupted by moving the write deadline.
type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// --------------------------------------------------------------------------
// Handlers
// --------------------------------------------------------------------------

// PrefixHandler consumes the fixed-length prefix frame of a connection.
type PrefixHandler interface {
	// HandlePrefix is called once with exactly Config.PrefixLength bytes.
	// Returning an error is fatal for the connection.
	HandlePrefix(c *Connection, prefix []byte) error
}

// MessageHandler consumes self-delimited frames from the front of a Range.
type MessageHandler interface {
	// HandleMessages consumes zero or more complete frames from the front of r
	// (via r.Consume) and never a partial one. It returns true if more complete
	// frames may be processable right now and false if it needs more bytes.
	// Returning an error is fatal for the connection.
	HandleMessages(c *Connection, r *Range) (more bool, err error)
}

// ShutdownHandler is notified once when the connection has terminated.
type ShutdownHandler interface {
	// OnShutdown is called exactly once after both loops ended and the transport
	// was closed. Connection.Reason tells why the connection ended.
	OnShutdown(c *Connection)
}

// PrefixHandlerFunc adapts a function to the PrefixHandler interface.
type PrefixHandlerFunc func(c *Connection, prefix []byte) error

func (f PrefixHandlerFunc) HandlePrefix(c *Connection, prefix []byte) error { return f(c, prefix) }

// MessageHandlerFunc adapts a function to the MessageHandler interface.
type MessageHandlerFunc func(c *Connection, r *Range) (bool, error)

func (f MessageHandlerFunc) HandleMessages(c *Connection, r *Range) (bool, error) { return f(c, r) }

// ShutdownHandlerFunc adapts a function to the ShutdownHandler interface.
type ShutdownHandlerFunc func(c *Connection)

func (f ShutdownHandlerFunc) OnShutdown(c *Connection) { f(c) }

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// Config holds everything a Connection needs before it can be activated.
// It is copied by New and becomes immutable once the connection is active.
type Config struct {
	// PrefixLength is the length of the prefix frame. 0 means no prefix frame is expected.
	PrefixLength int
	// PrefixHandler is required when PrefixLength > 0
	PrefixHandler PrefixHandler
	// MessageHandler is required
	MessageHandler MessageHandler
	// ShutdownHandler is optional
	ShutdownHandler ShutdownHandler

	// MinReadSize is the minimum free space requested from the pipe before every
	// transport read (DefaultMinReadSize if <= 0)
	MinReadSize int
	// MaxPipeBytes caps the bytes buffered between ingest and dispatch.
	// 0 leaves the pipe unbounded.
	MaxPipeBytes int
	// CloseTimeout bounds the sentinel write of Close and its wait for a
	// pending Send (DefaultCloseTimeout if <= 0)
	CloseTimeout time.Duration
}

func (c Config) minReadSize() int {
	if c.MinReadSize <= 0 {
		return DefaultMinReadSize
	}
	return c.MinReadSize
}

func (c Config) closeTimeout() time.Duration {
	if c.CloseTimeout <= 0 {
		return DefaultCloseTimeout
	}
	return c.CloseTimeout
}
