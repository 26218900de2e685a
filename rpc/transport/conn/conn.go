package conn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lni/dragonboat/v4/logger"
	"gopkg.in/tomb.v2"
)

var Logger = logger.GetLogger("transport/conn")

// Connection is a duplex framed connection over a Transport.
//
// Lifecycle: New (or the Set* methods) configures it, Activate starts the ingest
// and dispatch goroutines, and the connection stays active until the peer closes
// the stream, an I/O error or handler fault occurs, Send fails, or Close/Cancel
// is called. Whatever comes first runs the shutdown sequence exactly once.
type Connection struct {
	id string

	// configuration, immutable once activated
	cfgMu     sync.Mutex
	cfg       Config
	activated atomic.Bool

	transport Transport
	pipe      *pipe
	frames    *frameProcessor

	// loop group: Kill is the cancellation signal, Wait the joint completion
	tmb  tomb.Tomb
	ctx  context.Context
	stop func() bool

	active          atomic.Bool
	shutdownStarted atomic.Bool
	notifying       atomic.Bool
	done            chan struct{}

	closeOnce sync.Once
	sendMu    sync.Mutex

	reasonMu sync.Mutex
	reason   Result

	createTime    atomic.Int64
	lastReadTime  atomic.Int64
	lastWriteTime atomic.Int64
}

// New creates an inactive connection with the given id and configuration.
// The id is opaque and only used for logging and correlation.
func New(id string, cfg Config) *Connection {
	return &Connection{
		id:   id,
		cfg:  cfg,
		done: make(chan struct{}),
	}
}

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// SetMessageHandler sets the message handler. Fails once the connection is active.
func (c *Connection) SetMessageHandler(h MessageHandler) error {
	return c.configure(func(cfg *Config) { cfg.MessageHandler = h })
}

// SetPrefixHandler sets the prefix handler and the prefix length.
// Fails once the connection is active.
func (c *Connection) SetPrefixHandler(h PrefixHandler, length int) error {
	return c.configure(func(cfg *Config) {
		cfg.PrefixHandler = h
		cfg.PrefixLength = length
	})
}

// SetShutdownHandler sets the shutdown handler. Fails once the connection is active.
func (c *Connection) SetShutdownHandler(h ShutdownHandler) error {
	return c.configure(func(cfg *Config) { cfg.ShutdownHandler = h })
}

func (c *Connection) configure(apply func(cfg *Config)) error {
	c.cfgMu.Lock()
	defer c.cfgMu.Unlock()

	if c.activated.Load() {
		return fmt.Errorf("%w: connection %s is already active", ErrInvalidState, c.id)
	}
	apply(&c.cfg)
	return nil
}

// --------------------------------------------------------------------------
// Activation
// --------------------------------------------------------------------------

// Activate attaches an already-open transport and starts the ingest and
// dispatch loops. It can succeed only once per connection.
func (c *Connection) Activate(t Transport) error {
	c.cfgMu.Lock()
	defer c.cfgMu.Unlock()

	if c.activated.Load() {
		return fmt.Errorf("%w: connection %s was already activated", ErrInvalidState, c.id)
	}
	if err := c.validate(t); err != nil {
		return err
	}

	c.transport = t
	c.pipe = newPipe(2*c.cfg.minReadSize(), c.cfg.MaxPipeBytes)
	c.frames = newFrameProcessor(c.cfg)
	c.ctx = c.tmb.Context(nil)
	c.stop = context.AfterFunc(c.ctx, c.interruptRead)

	c.createTime.Store(time.Now().UnixNano())
	c.activated.Store(true)
	c.active.Store(true)
	activeConnections.Add(1)
	connectionsOpened.Inc()

	c.tmb.Go(c.ingest)
	c.tmb.Go(c.dispatch)
	go c.supervise()

	Logger.Debugf("Connection %s activated (local %v, remote %v)", c.id, t.LocalAddr(), t.RemoteAddr())
	return nil
}

// validate checks that the configuration is complete. Called with cfgMu held.
func (c *Connection) validate(t Transport) error {
	switch {
	case t == nil:
		return fmt.Errorf("%w: connection %s: transport is nil", ErrInvalidState, c.id)
	case c.cfg.MessageHandler == nil:
		return fmt.Errorf("%w: connection %s: message handler is not set", ErrInvalidState, c.id)
	case c.cfg.PrefixLength < 0:
		return fmt.Errorf("%w: connection %s: negative prefix length %d", ErrInvalidState, c.id, c.cfg.PrefixLength)
	case c.cfg.PrefixLength > 0 && c.cfg.PrefixHandler == nil:
		return fmt.Errorf("%w: connection %s: prefix length %d without prefix handler", ErrInvalidState, c.id, c.cfg.PrefixLength)
	case c.cfg.MaxPipeBytes > 0 && c.cfg.MaxPipeBytes < c.cfg.minReadSize():
		return fmt.Errorf("%w: connection %s: pipe limit %d below read size %d", ErrInvalidState, c.id, c.cfg.MaxPipeBytes, c.cfg.minReadSize())
	}
	return nil
}

// --------------------------------------------------------------------------
// Ingest loop (transport -> pipe)
// --------------------------------------------------------------------------

func (c *Connection) ingest() error {
	res := c.ingestLoop()
	c.pipe.complete()
	c.recordReason(res)

	Logger.Debugf("Connection %s: ingest loop ended (%s)", c.id, res)

	// either loop ending starts the shutdown
	c.tmb.Kill(nil)
	return nil
}

func (c *Connection) ingestLoop() Result {
	minRead := c.cfg.minReadSize()

	for {
		if c.ctx.Err() != nil {
			return cancelled()
		}

		region, err := c.pipe.writable(minRead)
		if errors.Is(err, errPipeClosed) {
			return cancelled()
		}
		if err != nil {
			Logger.Errorf("Connection %s: %v (%d bytes buffered)", c.id, err, c.pipe.buffered())
			return failed(err)
		}

		n, err := c.transport.Read(region)
		if n > 0 {
			c.lastReadTime.Store(time.Now().UnixNano())
			bytesRead.Add(n)
			c.pipe.commit(n)
			c.pipe.flush()
		}

		switch {
		case err != nil && c.ctx.Err() != nil:
			// the read was interrupted on purpose
			return cancelled()
		case errors.Is(err, io.EOF):
			Logger.Debugf("Connection %s closed by peer", c.id)
			return completed()
		case err != nil:
			Logger.Warningf("Connection %s: read failed: %v", c.id, err)
			ioFailures.Inc()
			return failed(fmt.Errorf("read: %w", err))
		case n == 0:
			// zero bytes without error is treated as a graceful close
			return completed()
		}
	}
}

// interruptRead unblocks a pending transport read after cancellation.
func (c *Connection) interruptRead() {
	if d, ok := c.transport.(readDeadliner); ok {
		if err := d.SetReadDeadline(time.Now()); err == nil {
			return
		}
	}
	// no way to interrupt the read but closing the transport
	c.closeTransport()
}

// --------------------------------------------------------------------------
// Dispatch loop (pipe -> handlers)
// --------------------------------------------------------------------------

func (c *Connection) dispatch() error {
	res := c.dispatchLoop()
	c.pipe.closeRead()
	c.recordReason(res)

	Logger.Debugf("Connection %s: dispatch loop ended (%s)", c.id, res)

	c.tmb.Kill(nil)
	return nil
}

func (c *Connection) dispatchLoop() Result {
	for {
		view, done := c.pipe.read()
		if len(view) == 0 && done {
			return completed()
		}

		r := Range{b: view}
		fault := c.frames.process(c, &r)
		c.pipe.advance(len(view) - r.Len())

		if fault != nil {
			Logger.Errorf("Connection %s: %v", c.id, fault)
			handlerFaults.Inc()
			return failed(fault)
		}

		if done {
			if r.Len() > 0 {
				Logger.Debugf("Connection %s: discarding %d bytes of an incomplete frame", c.id, r.Len())
			}
			return completed()
		}
	}
}

// --------------------------------------------------------------------------
// Shutdown
// --------------------------------------------------------------------------

// supervise runs the shutdown once the loop group is dying, i.e. after the first
// loop ended or cancellation was requested.
func (c *Connection) supervise() {
	<-c.tmb.Dying()
	c.shutdown()
}

// shutdown runs the termination sequence. Only the first caller proceeds.
func (c *Connection) shutdown() {
	if !c.shutdownStarted.CompareAndSwap(false, true) {
		return
	}

	c.active.Store(false)

	// stop the other loop and wait for both
	c.tmb.Kill(nil)
	_ = c.tmb.Wait()
	c.stop()

	c.closeTransport()
	activeConnections.Add(-1)
	connectionsClosed.Inc()

	Logger.Debugf("Connection %s shut down (%s)", c.id, c.Reason())

	c.notifyShutdown()
	close(c.done)
}

// closeTransport closes the transport exactly once, ignoring the error.
func (c *Connection) closeTransport() {
	c.closeOnce.Do(func() {
		if err := c.transport.Close(); err != nil {
			Logger.Debugf("Connection %s: closing transport: %v", c.id, err)
		}
	})
}

func (c *Connection) notifyShutdown() {
	h := c.cfg.ShutdownHandler
	if h == nil {
		return
	}
	c.notifying.Store(true)

	defer func() {
		if v := recover(); v != nil {
			Logger.Errorf("Connection %s: shutdown handler panicked: %v", c.id, v)
		}
	}()
	h.OnShutdown(c)
}

// recordReason keeps the most informative termination reason. Within the same
// outcome the first one wins.
func (c *Connection) recordReason(r Result) {
	c.reasonMu.Lock()
	defer c.reasonMu.Unlock()
	if r.outranks(c.reason) {
		c.reason = r
	}
}

// Cancel requests a shutdown without waiting for it. Unlike Close it writes
// nothing to the peer and is safe to call from handlers.
func (c *Connection) Cancel() {
	if c.activated.Load() {
		c.tmb.Kill(nil)
	}
}

// Close gracefully shuts down the connection. It writes the close sentinel to
// the peer (best effort, bounded by Config.CloseTimeout), cancels the loops and
// waits until the shutdown handler has returned. While the ShutdownHandler
// runs, Close returns at once, so the handler may call it. Prefix and message
// handlers must use Cancel, Close would wait for their own loop.
func (c *Connection) Close() error {
	if !c.activated.Load() {
		return fmt.Errorf("%w: connection %s was never activated", ErrInvalidState, c.id)
	}
	if c.notifying.Load() {
		return nil
	}

	if c.active.Load() {
		c.writeSentinel()
	}

	c.tmb.Kill(nil)
	<-c.done
	return nil
}

// writeSentinel writes the close sentinel. Once the close timeout has passed,
// the connection is cancelled and pending writes (a stalled Send as well as the
// sentinel itself) are aborted.
func (c *Connection) writeSentinel() {
	timeout := c.cfg.closeTimeout()
	timer := time.AfterFunc(timeout, c.abortWrites)
	defer timer.Stop()

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.active.Load() || c.ctx.Err() != nil {
		return
	}
	if d, ok := c.transport.(writeDeadliner); ok {
		_ = d.SetWriteDeadline(time.Now().Add(timeout))
	}
	if _, err := c.transport.Write(CloseSentinel); err != nil {
		Logger.Debugf("Connection %s: writing close sentinel: %v", c.id, err)
	}
}

// abortWrites cancels the connection and unblocks a pending transport write.
func (c *Connection) abortWrites() {
	c.tmb.Kill(nil)
	if d, ok := c.transport.(writeDeadliner); ok {
		if err := d.SetWriteDeadline(time.Now()); err == nil {
			return
		}
	}
	c.closeTransport()
}

// --------------------------------------------------------------------------
// Send
// --------------------------------------------------------------------------

// Send writes p to the transport. It returns false without touching the
// transport if the connection is not active. A failed write cancels the
// connection and returns false. Concurrent calls are serialized.
func (c *Connection) Send(p []byte) bool {
	if !c.active.Load() {
		return false
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.active.Load() {
		return false
	}

	if _, err := c.transport.Write(p); err != nil {
		c.writeFailed(err)
		return false
	}

	c.lastWriteTime.Store(time.Now().UnixNano())
	bytesWritten.Add(len(p))
	return true
}

// SendBuffers writes several slices as one logical message (e.g. header and
// payload) using a single vectored write where the transport supports it.
func (c *Connection) SendBuffers(bufs ...[]byte) bool {
	if !c.active.Load() {
		return false
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.active.Load() {
		return false
	}

	b := net.Buffers(bufs)
	n, err := b.WriteTo(c.transport)
	if err != nil {
		c.writeFailed(err)
		return false
	}

	c.lastWriteTime.Store(time.Now().UnixNano())
	bytesWritten.Add(int(n))
	return true
}

// writeFailed shuts the connection down after a failed write. A write aborted
// by cancellation (e.g. Close on a stalled peer) is not a transport failure.
func (c *Connection) writeFailed(err error) {
	sendFailures.Inc()
	if c.ctx.Err() != nil {
		Logger.Debugf("Connection %s: write aborted: %v", c.id, err)
		return
	}

	Logger.Warningf("Connection %s: write failed: %v", c.id, err)
	ioFailures.Inc()
	c.recordReason(failed(fmt.Errorf("write: %w", err)))
	c.tmb.Kill(nil)
}

// --------------------------------------------------------------------------
// Observers
// --------------------------------------------------------------------------

// ID returns the id the owner assigned to the connection.
func (c *Connection) ID() string { return c.id }

// IsActive reports whether the connection is exchanging bytes.
func (c *Connection) IsActive() bool { return c.active.Load() }

// CreateTime returns the activation time.
func (c *Connection) CreateTime() time.Time { return loadTime(&c.createTime) }

// LastReadTime returns the time of the last successful transport read.
func (c *Connection) LastReadTime() time.Time { return loadTime(&c.lastReadTime) }

// LastWriteTime returns the time of the last successful Send.
func (c *Connection) LastWriteTime() time.Time { return loadTime(&c.lastWriteTime) }

// LocalAddr returns the local endpoint of the transport (nil before activation).
func (c *Connection) LocalAddr() net.Addr {
	if !c.activated.Load() {
		return nil
	}
	return c.transport.LocalAddr()
}

// RemoteAddr returns the remote endpoint of the transport (nil before activation).
func (c *Connection) RemoteAddr() net.Addr {
	if !c.activated.Load() {
		return nil
	}
	return c.transport.RemoteAddr()
}

// Done is closed once the shutdown sequence (including the shutdown handler) has finished.
func (c *Connection) Done() <-chan struct{} { return c.done }

// Reason returns why the connection ended. It is only meaningful after shutdown
// started; failures take precedence over cancellation and normal completion.
func (c *Connection) Reason() Result {
	c.reasonMu.Lock()
	defer c.reasonMu.Unlock()
	return c.reason
}

func loadTime(v *atomic.Int64) time.Time {
	ns := v.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
