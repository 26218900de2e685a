package base

import (
	"bytes"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dGrid/rpc/common"
	"github.com/ValentinKolb/dGrid/rpc/transport"
	"github.com/ValentinKolb/dGrid/rpc/transport/conn"
	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

var (
	requestsServed  = metrics.NewCounter("dgrid_rpc_requests_total")
	requestDuration = metrics.NewHistogram("dgrid_rpc_request_duration_seconds")
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an accepted connection
	UpgradeConnection(conn net.Conn, config common.ServerConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport implements the core server transport functionality
type serverTransport struct {
	connector IServerConnector
	handler   transport.ServerHandleFunc
	config    common.ServerConfig

	listenerMu sync.Mutex
	listener   net.Listener
	closed     atomic.Bool
	ready      chan struct{}

	conns *xsync.MapOf[string, *conn.Connection]
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport with per-connection worker pool
func NewBaseServerTransport(connector IServerConnector) transport.IRPCServerTransport {
	return newServerTransport(connector)
}

func newServerTransport(connector IServerConnector) *serverTransport {
	return &serverTransport{
		connector: connector,
		ready:     make(chan struct{}),
		conns:     xsync.NewMapOf[string, *conn.Connection](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *serverTransport) Listen(config common.ServerConfig) error {
	if t.handler == nil {
		return fmt.Errorf("no handler registered")
	}
	t.config = config

	// Create listener using the connector
	listener, err := t.connector.Listen(config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %v", err)
	}

	t.listenerMu.Lock()
	if t.closed.Load() {
		t.listenerMu.Unlock()
		return listener.Close()
	}
	t.listener = listener
	t.listenerMu.Unlock()
	close(t.ready)

	Logger.Infof("Starting %s server on %s with %d workers per connection",
		t.connector.GetName(), listener.Addr(), t.workersPerConn())

	// Accept connections
	for {
		nc, err := listener.Accept()
		if err != nil {
			if t.closed.Load() || errors.Is(err, net.ErrClosed) {
				Logger.Infof("Stopped %s server on %s", t.connector.GetName(), listener.Addr())
				return nil
			}
			Logger.Errorf("Accept error: %v", err)
			continue
		}

		go t.serveConnection(nc)
	}
}

func (t *serverTransport) Close() error {
	t.closed.Store(true)

	t.listenerMu.Lock()
	listener := t.listener
	t.listenerMu.Unlock()

	var err error
	if listener != nil {
		err = listener.Close()
	}

	// Close writes the close sentinel and waits for the in-flight requests
	t.conns.Range(func(_ string, c *conn.Connection) bool {
		_ = c.Close()
		return true
	})
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// addr returns the address of the listener once Listen was called
func (t *serverTransport) addr() net.Addr {
	<-t.ready
	return t.listener.Addr()
}

func (t *serverTransport) workersPerConn() int {
	return max(1, t.config.Transport.WorkersPerConn)
}

// serveConnection wraps an accepted net.Conn in a framed connection
func (t *serverTransport) serveConnection(nc net.Conn) {
	if err := t.connector.UpgradeConnection(nc, t.config); err != nil {
		Logger.Errorf("Failed to upgrade connection from %s: %v", nc.RemoteAddr(), err)
		_ = nc.Close()
		return
	}

	// The buffered channel acts as a counting semaphore for the workers
	workers := make(chan struct{}, t.workersPerConn())
	var wg sync.WaitGroup

	handleRequest := func(c *conn.Connection, shardID, requestID uint64, payload []byte) {
		// the payload is only valid until the decoder returns
		req := bytes.Clone(payload)
		if req == nil {
			req = []byte{}
		}

		// blocks the dispatch loop (and with it reading) while all workers are busy
		workers <- struct{}{}
		wg.Add(1)

		go func() {
			defer func() {
				if r := recover(); r != nil {
					Logger.Errorf("Connection %s: handler panicked for shard %d: %v", c.ID(), shardID, r)
					c.Cancel()
				}
				<-workers
				wg.Done()
			}()

			start := time.Now()
			resp := t.handler(shardID, req)
			requestsServed.Inc()
			requestDuration.UpdateDuration(start)
			Logger.Debugf("Processed request for shard %d with requestID %d took %s", shardID, requestID, time.Since(start))

			header, err := frameHeader(shardID, requestID, len(resp), t.config.Transport.Conn.MaxFrameSize)
			if err != nil {
				Logger.Errorf("Connection %s: dropped response %d for shard %d: %v", c.ID(), requestID, shardID, err)
				return
			}
			if !c.SendBuffers(header, resp) {
				Logger.Debugf("Connection %s: dropped response %d, connection is closed", c.ID(), requestID)
			}
		}()
	}

	c := conn.New(uuid.NewString(), conn.Config{
		PrefixLength:   PreambleLength,
		PrefixHandler:  conn.PrefixHandlerFunc(checkPreamble),
		MessageHandler: newFrameDecoder(t.config.Transport.Conn.MaxFrameSize, handleRequest),
		ShutdownHandler: conn.ShutdownHandlerFunc(func(c *conn.Connection) {
			// Wait for all workers so no response is computed for a dead connection afterward
			wg.Wait()
			t.conns.Delete(c.ID())
			Logger.Infof("Connection %s from %v closed (%s)", c.ID(), c.RemoteAddr(), c.Reason())
		}),
		MinReadSize:  t.config.Transport.Conn.MinReadSize,
		MaxPipeBytes: t.config.Transport.Conn.MaxPipeBytes,
	})

	// tracked before activation, so Close sees every connection that can serve requests
	t.conns.Store(c.ID(), c)

	timeout := time.Duration(t.config.TimeoutSecond) * time.Second
	if err := c.Activate(withWriteTimeout(nc, timeout)); err != nil {
		Logger.Errorf("Failed to activate connection from %s: %v", nc.RemoteAddr(), err)
		t.conns.Delete(c.ID())
		_ = nc.Close()
		return
	}
	Logger.Debugf("Accepted connection %s from %v", c.ID(), nc.RemoteAddr())

	// Close may have run between Store and Activate
	if t.closed.Load() {
		_ = c.Close()
	}
}
