package base

import (
	"bytes"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dGrid/rpc/common"
	"github.com/ValentinKolb/dGrid/rpc/transport"
	"github.com/ValentinKolb/dGrid/rpc/transport/conn"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	gometrics "github.com/rcrowley/go-metrics"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

var Logger = logger.GetLogger("transport/rpc")

// Client request metrics, registered in the default go-metrics registry
var (
	sendTimer  = gometrics.GetOrRegisterTimer("dgrid.rpc.send", nil)
	sendErrors = gometrics.GetOrRegisterCounter("dgrid.rpc.send.errors", nil)
)

var errTransportClosed = errors.New("transport is closed")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the endpoint
	Connect(endpoint string) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// responseResult contains the result of a request
type responseResult struct {
	data []byte
	err  error
}

// liveConn is one established framed connection and the requests waiting on it
type liveConn struct {
	c            *conn.Connection
	pending      *xsync.MapOf[uint64, chan responseResult]
	maxFrameSize int
}

// clientConnection is a slot for a connection to one endpoint. A dead connection
// is replaced on the next request that picks the slot.
type clientConnection struct {
	endpoint string
	parent   *clientTransport

	mu   sync.Mutex // Protects live
	live *liveConn
}

// clientTransport implements the core client transport functionality
// independent of the specific transport medium (unix, tcp, etc.)
type clientTransport struct {
	connector     IClientConnector
	config        common.ClientConfig
	connections   []*clientConnection
	connectionsMu sync.RWMutex
	nextConnIndex atomic.Uint64 // Counter for Round Robin
	nextRequestID atomic.Uint64 // Counter for unique request IDs
	stopping      atomic.Bool   // Signals shutdown
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{
		connector: connector,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if len(config.Transport.Endpoints) == 0 {
		return fmt.Errorf("no endpoints provided")
	}

	// Close all existing connections
	t.closeConnections()

	t.config = config
	t.stopping.Store(false)

	connectionsPerEP := max(1, config.Transport.ConnectionsPerEndpoint)
	connections := make([]*clientConnection, 0, len(config.Transport.Endpoints)*connectionsPerEP)
	connected := 0

	for _, endpoint := range config.Transport.Endpoints {
		// Create multiple connections per endpoint
		for i := 0; i < connectionsPerEP; i++ {
			cc := &clientConnection{endpoint: endpoint, parent: t}
			connections = append(connections, cc)

			// Failed slots are kept, they reconnect when picked
			if _, err := cc.get(); err != nil {
				Logger.Warningf("Failed to connect to %s (connection %d/%d): %v", endpoint, i+1, connectionsPerEP, err)
				continue
			}
			connected++
		}
	}

	t.connectionsMu.Lock()
	t.connections = connections
	t.connectionsMu.Unlock()

	// Check if we have at least one connection
	if connected == 0 {
		t.closeConnections()
		return fmt.Errorf("failed to connect to any endpoint")
	}

	Logger.Infof("Connected to %d out of %d connections to %d endpoints using %s transport",
		connected, len(connections), len(config.Transport.Endpoints), t.connector.GetName())

	return nil
}

func (t *clientTransport) Send(shardId uint64, req []byte) ([]byte, error) {
	defer sendTimer.UpdateSince(time.Now())

	if t.stopping.Load() {
		return nil, errTransportClosed
	}

	timeout := time.Duration(t.config.TimeoutSecond) * time.Second
	attempts := max(1, t.config.Transport.RetryCount)

	var resp []byte
	attempt := func() error {
		cc := t.getNextConnection()
		if cc == nil {
			return backoff.Permanent(fmt.Errorf("no connections available"))
		}

		live, err := cc.get()
		if err != nil {
			if errors.Is(err, errTransportClosed) {
				return backoff.Permanent(err)
			}
			return err
		}

		resp, err = live.roundTrip(shardId, t.nextRequestID.Add(1), req, timeout)
		if errors.Is(err, ErrFrameTooLarge) {
			// no other connection would accept it either
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		Logger.Debugf("Request for shard %d failed, retrying in %s: %v", shardId, wait, err)
	}

	b := backoff.WithMaxRetries(newRetryBackOff(), uint64(attempts-1))
	if err := backoff.RetryNotify(attempt, b, notify); err != nil {
		sendErrors.Inc(1)
		return nil, fmt.Errorf("failed to send request after %d attempts: %w", attempts, err)
	}
	return resp, nil
}

func (t *clientTransport) Close() error {
	t.stopping.Store(true)
	t.closeConnections()
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// newRetryBackOff returns the backoff between two attempts of a request
func newRetryBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	// the number of attempts is limited by WithMaxRetries
	b.MaxElapsedTime = 0
	return b
}

// getNextConnection selects the next connection via Round Robin
func (t *clientTransport) getNextConnection() *clientConnection {
	t.connectionsMu.RLock()
	defer t.connectionsMu.RUnlock()

	if len(t.connections) == 0 {
		return nil
	}
	if len(t.connections) == 1 {
		return t.connections[0]
	}
	return t.connections[t.nextConnIndex.Add(1)%uint64(len(t.connections))]
}

// closeConnections closes all connections and empties the list
func (t *clientTransport) closeConnections() {
	t.connectionsMu.Lock()
	connections := t.connections
	t.connections = nil
	t.connectionsMu.Unlock()

	for _, cc := range connections {
		cc.close()
	}
}

// get returns the established connection of the slot or opens a new one
func (cc *clientConnection) get() (*liveConn, error) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	if cc.live != nil && cc.live.c.IsActive() {
		return cc.live, nil
	}
	if cc.parent.stopping.Load() {
		return nil, errTransportClosed
	}

	live, err := cc.parent.dial(cc.endpoint)
	if err != nil {
		return nil, err
	}
	cc.live = live
	return live, nil
}

// close closes the connection of the slot (if any)
func (cc *clientConnection) close() {
	cc.mu.Lock()
	live := cc.live
	cc.live = nil
	cc.mu.Unlock()

	if live != nil {
		_ = live.c.Close()
	}
}

// dial connects to the endpoint and starts a framed connection on it
func (t *clientTransport) dial(endpoint string) (*liveConn, error) {
	nc, err := t.connector.Connect(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %v", endpoint, err)
	}

	// Upgrade the connection with protocol-specific settings
	if err := t.connector.UpgradeConnection(nc, t.config); err != nil {
		_ = nc.Close()
		return nil, fmt.Errorf("failed to upgrade connection to %s: %v", endpoint, err)
	}

	live := &liveConn{
		pending:      xsync.NewMapOf[uint64, chan responseResult](),
		maxFrameSize: t.config.Transport.Conn.MaxFrameSize,
	}
	live.c = conn.New(uuid.NewString(), conn.Config{
		MessageHandler:  newFrameDecoder(t.config.Transport.Conn.MaxFrameSize, live.deliver),
		ShutdownHandler: conn.ShutdownHandlerFunc(live.failPending),
		MinReadSize:     t.config.Transport.Conn.MinReadSize,
		MaxPipeBytes:    t.config.Transport.Conn.MaxPipeBytes,
	})

	timeout := time.Duration(t.config.TimeoutSecond) * time.Second
	if err := live.c.Activate(withWriteTimeout(nc, timeout)); err != nil {
		_ = nc.Close()
		return nil, err
	}

	// nobody else knows the connection yet, so the preamble is the first thing written
	if !live.c.Send(Preamble[:]) {
		_ = live.c.Close()
		return nil, fmt.Errorf("failed to write preamble to %s", endpoint)
	}

	Logger.Debugf("Connection %s to %s established", live.c.ID(), endpoint)
	return live, nil
}

// roundTrip sends one request and waits for its response
func (l *liveConn) roundTrip(shardID, requestID uint64, req []byte, timeout time.Duration) ([]byte, error) {
	header, err := frameHeader(shardID, requestID, len(req), l.maxFrameSize)
	if err != nil {
		return nil, err
	}

	respCh := make(chan responseResult, 1)
	l.pending.Store(requestID, respCh)

	if !l.c.SendBuffers(header, req) {
		l.pending.Delete(requestID)
		return nil, fmt.Errorf("connection %s is closed", l.c.ID())
	}

	// Wait for response or timeout
	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case result := <-respCh:
		return result.data, result.err
	case <-timeoutCh:
		l.pending.Delete(requestID)
		return nil, fmt.Errorf("request timed out")
	}
}

// deliver passes a response frame to the waiting request
func (l *liveConn) deliver(c *conn.Connection, shardID, requestID uint64, payload []byte) {
	respCh, found := l.pending.LoadAndDelete(requestID)
	if !found {
		// e.g. the request timed out in the meantime
		Logger.Warningf("Connection %s: received response for unknown request ID %d with shard ID %d", c.ID(), requestID, shardID)
		return
	}
	respCh <- responseResult{data: bytes.Clone(payload)}
}

// failPending fails all requests still waiting on the connection
func (l *liveConn) failPending(c *conn.Connection) {
	err := fmt.Errorf("connection %s closed before the response arrived (%s)", c.ID(), c.Reason())
	l.pending.Range(func(requestID uint64, respCh chan responseResult) bool {
		if _, ok := l.pending.LoadAndDelete(requestID); ok {
			respCh <- responseResult{err: err}
		}
		return true
	})
}
