package conn

import (
	"bytes"
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"testing"
	"time"
)

// scriptedTransport is a Transport whose reads are fed by the test.
// Every value sent on reads is returned by (at least) one Read call, closing
// reads produces io.EOF and failRead makes the pending Read fail.
type scriptedTransport struct {
	reads    chan []byte
	readErrs chan error
	pending  []byte

	interruptOnce sync.Once
	interrupted   chan struct{}

	mu       sync.Mutex
	written  bytes.Buffer
	writes   int
	writeErr error
	closes   int
	readLog  [][]byte
}

func newScriptedTransport() *scriptedTransport {
	return &scriptedTransport{
		reads:       make(chan []byte, 1024),
		readErrs:    make(chan error, 1),
		interrupted: make(chan struct{}),
	}
}

func (t *scriptedTransport) Read(p []byte) (int, error) {
	if len(t.pending) == 0 {
		select {
		case b, ok := <-t.reads:
			if !ok {
				return 0, io.EOF
			}
			t.pending = b
		case err := <-t.readErrs:
			return 0, err
		case <-t.interrupted:
			return 0, os.ErrDeadlineExceeded
		}
	}
	n := copy(p, t.pending)
	t.mu.Lock()
	t.readLog = append(t.readLog, append([]byte(nil), t.pending[:n]...))
	t.mu.Unlock()
	t.pending = t.pending[n:]
	return n, nil
}

func (t *scriptedTransport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writes++
	if t.writeErr != nil {
		return 0, t.writeErr
	}
	return t.written.Write(p)
}

func (t *scriptedTransport) Close() error {
	t.mu.Lock()
	t.closes++
	t.mu.Unlock()
	return nil
}

func (t *scriptedTransport) SetReadDeadline(time.Time) error {
	t.interruptOnce.Do(func() { close(t.interrupted) })
	return nil
}

func (t *scriptedTransport) LocalAddr() net.Addr  { return fakeAddr("local") }
func (t *scriptedTransport) RemoteAddr() net.Addr { return fakeAddr("remote") }

// feed queues chunks to be returned by successive reads
func (t *scriptedTransport) feed(chunks ...[]byte) {
	for _, c := range chunks {
		t.reads <- c
	}
}

// failRead makes the pending (or next) read fail with err
func (t *scriptedTransport) failRead(err error) {
	t.readErrs <- err
}

func (t *scriptedTransport) setWriteErr(err error) {
	t.mu.Lock()
	t.writeErr = err
	t.mu.Unlock()
}

func (t *scriptedTransport) stats() (writes, closes int, written []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.writes, t.closes, append([]byte(nil), t.written.Bytes()...)
}

type fakeAddr string

func (a fakeAddr) Network() string { return "fake" }
func (a fakeAddr) String() string  { return string(a) }

// --------------------------------------------------------------------------
// Handler helpers
// --------------------------------------------------------------------------

// collector records everything handed to the handlers of one connection
type collector struct {
	mu        sync.Mutex
	prefixes  [][]byte
	messages  [][]byte
	calls     []string
	shutdowns int
	reason    Result
	done      chan struct{}
}

func newCollector() *collector {
	return &collector{done: make(chan struct{})}
}

func (c *collector) prefixHandler() PrefixHandler {
	return PrefixHandlerFunc(func(_ *Connection, prefix []byte) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.prefixes = append(c.prefixes, append([]byte(nil), prefix...))
		c.calls = append(c.calls, "prefix")
		return nil
	})
}

// consumeAll consumes the whole range on every call and asks for more data
func (c *collector) consumeAll() MessageHandler {
	return MessageHandlerFunc(func(_ *Connection, r *Range) (bool, error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.messages = append(c.messages, append([]byte(nil), r.Bytes()...))
		c.calls = append(c.calls, "message")
		r.Consume(r.Len())
		return false, nil
	})
}

// lengthPrefixed consumes frames whose first byte is the total frame length
func (c *collector) lengthPrefixed() MessageHandler {
	return MessageHandlerFunc(func(_ *Connection, r *Range) (bool, error) {
		head, ok := r.Peek(1)
		if !ok {
			return false, nil
		}
		frame, ok := r.Peek(int(head[0]))
		if !ok {
			return false, nil
		}
		c.mu.Lock()
		c.messages = append(c.messages, append([]byte(nil), frame...))
		c.calls = append(c.calls, "message")
		c.mu.Unlock()
		r.Consume(len(frame))
		return true, nil
	})
}

func (c *collector) shutdownHandler() ShutdownHandler {
	return ShutdownHandlerFunc(func(conn *Connection) {
		c.mu.Lock()
		c.shutdowns++
		c.reason = conn.Reason()
		first := c.shutdowns == 1
		c.mu.Unlock()
		if first {
			close(c.done)
		}
	})
}

func (c *collector) joined() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return bytes.Join(c.messages, nil)
}

func (c *collector) waitShutdown(t *testing.T) {
	t.Helper()
	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Timeout waiting for shutdown handler")
	}
}

// waitFor polls cond until it holds or the timeout expires
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timeout waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// activate creates and activates a connection over a scripted transport
func activate(t *testing.T, cfg Config) (*Connection, *scriptedTransport) {
	t.Helper()
	tr := newScriptedTransport()
	c := New(t.Name(), cfg)
	if err := c.Activate(tr); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	return c, tr
}

var errBoom = errors.New("boom")
