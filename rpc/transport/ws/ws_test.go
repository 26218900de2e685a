package ws

import (
	"bytes"
	"fmt"
	"github.com/ValentinKolb/dGrid/rpc/common"
	"github.com/ValentinKolb/dGrid/rpc/transport"
	"github.com/ValentinKolb/dGrid/rpc/transport/base"
	"github.com/gorilla/websocket"
	"io"
	"net"
	"sync"
	"testing"
	"time"
)

// preparedConnector returns a listener created by the test, so the test knows
// the address before the server runs
type preparedConnector struct {
	serverConnector
	ln net.Listener
}

func (c *preparedConnector) Listen(common.ServerConfig) (net.Listener, error) {
	return c.ln, nil
}

func startWSServer(t *testing.T, handler transport.ServerHandleFunc) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	config := common.ServerConfig{TimeoutSecond: 5}
	server := base.NewBaseServerTransport(&preparedConnector{ln: newWSListener(ln, config)})
	server.RegisterHandler(handler)

	done := make(chan error, 1)
	go func() { done <- server.Listen(config) }()
	t.Cleanup(func() {
		_ = server.Close()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Errorf("Listen did not return after Close")
		}
	})
	return ln.Addr().String()
}

func TestWSRoundTrip(t *testing.T) {
	addr := startWSServer(t, func(shardID uint64, req []byte) []byte {
		return []byte(fmt.Sprintf("%d:%s", shardID, req))
	})

	client := NewWSClientTransport()
	err := client.Connect(common.ClientConfig{
		TimeoutSecond: 5,
		Transport: common.ClientTransportConfig{
			Endpoints:              []string{addr},
			RetryCount:             1,
			ConnectionsPerEndpoint: 2,
		},
	})
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := fmt.Sprintf("req-%d", i)
			resp, err := client.Send(uint64(i), []byte(req))
			if err != nil {
				t.Errorf("Send %d failed: %v", i, err)
				return
			}
			if want := fmt.Sprintf("%d:%s", i, req); string(resp) != want {
				t.Errorf("Expected %q, got %q", want, resp)
			}
		}(i)
	}
	wg.Wait()
}

func TestWSLargePayload(t *testing.T) {
	addr := startWSServer(t, func(_ uint64, req []byte) []byte { return req })

	client := NewWSClientTransport()
	if err := client.Connect(common.ClientConfig{
		TimeoutSecond: 5,
		Transport:     common.ClientTransportConfig{Endpoints: []string{"ws://" + addr + Path}},
	}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	payload := bytes.Repeat([]byte("0123456789"), 100_000)
	resp, err := client.Send(1, payload)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if !bytes.Equal(resp, payload) {
		t.Fatalf("Response differs from request (%d vs %d bytes)", len(resp), len(payload))
	}
}

func TestWSConnStream(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	l := newWSListener(ln, common.ServerConfig{})
	defer l.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := l.Accept()
		if err != nil {
			t.Errorf("Accept failed: %v", err)
			return
		}
		accepted <- c
	}()

	raw, _, err := websocket.DefaultDialer.Dial(endpointURL(ln.Addr().String()), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	client := newWSConn(raw)

	var server net.Conn
	select {
	case server = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("No connection accepted")
	}

	// text messages are skipped, binary messages are concatenated
	if err := raw.WriteMessage(websocket.TextMessage, []byte("ignored")); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}
	for _, part := range []string{"hello ", "", "websocket"} {
		if _, err := client.Write([]byte(part)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	buf := make([]byte, len("hello websocket"))
	if _, err := io.ReadFull(server, buf); err != nil {
		t.Fatalf("ReadFull failed: %v", err)
	}
	if string(buf) != "hello websocket" {
		t.Fatalf("Expected %q, got %q", "hello websocket", buf)
	}

	// a regular close ends the stream
	if err := client.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	_ = server.SetReadDeadline(time.Now().Add(2 * time.Second))
	if n, err := server.Read(buf); n != 0 || err != io.EOF {
		t.Fatalf("Expected EOF after close, got %d, %v", n, err)
	}
}

func TestWSListenerClose(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	l := newWSListener(ln, common.ServerConfig{})
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := l.Accept(); err != net.ErrClosed {
		t.Fatalf("Expected net.ErrClosed, got %v", err)
	}
}

func TestEndpointURL(t *testing.T) {
	tests := map[string]string{
		"localhost:8080":             "ws://localhost:8080/dgrid",
		"ws://example.com/grid":      "ws://example.com/grid",
		"wss://example.com:443/grid": "wss://example.com:443/grid",
	}
	for endpoint, want := range tests {
		if got := endpointURL(endpoint); got != want {
			t.Errorf("endpointURL(%q) = %q, want %q", endpoint, got, want)
		}
	}
}
