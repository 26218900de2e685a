package base

import (
	"encoding/binary"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dGrid/rpc/common"
	"github.com/ValentinKolb/dGrid/rpc/transport"
	"github.com/ValentinKolb/dGrid/rpc/transport/conn"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

// echoHandler answers with the shard id and the request
func echoHandler(shardID uint64, req []byte) []byte {
	return []byte(fmt.Sprintf("%d:%s", shardID, req))
}

// startServer runs a server transport on a pipe network
func startServer(t *testing.T, handler transport.ServerHandleFunc, config common.ServerConfig) (*serverTransport, *pipeNetwork) {
	t.Helper()
	network := newPipeNetwork()
	server := newServerTransport(network)
	server.RegisterHandler(handler)

	done := make(chan error, 1)
	go func() { done <- server.Listen(config) }()
	server.addr()

	t.Cleanup(func() {
		_ = server.Close()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Listen returned %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Errorf("Listen did not return after Close")
		}
	})
	return server, network
}

func connectClient(t *testing.T, network *pipeNetwork, config common.ClientConfig) transport.IRPCClientTransport {
	t.Helper()
	if len(config.Transport.Endpoints) == 0 {
		config.Transport.Endpoints = []string{"pipe"}
	}
	client := NewBaseClientTransport(pipeClient{network})
	if err := client.Connect(config); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// writeRawFrame writes a frame to a raw connection. Safe to call from any goroutine.
func writeRawFrame(t *testing.T, c net.Conn, shardID, requestID uint64, payload []byte) {
	t.Helper()
	b := net.Buffers{encodeHeader(shardID, requestID, len(payload)), payload}
	if _, err := b.WriteTo(c); err != nil {
		t.Errorf("Failed to write frame: %v", err)
	}
}

// readRawFrame reads a frame from a raw connection. Safe to call from any goroutine.
func readRawFrame(t *testing.T, c net.Conn) (uint64, uint64, []byte) {
	t.Helper()
	header := make([]byte, frameHeaderLen)
	if _, err := io.ReadFull(c, header); err != nil {
		t.Errorf("Failed to read frame header: %v", err)
		return 0, 0, nil
	}
	payload := make([]byte, binary.BigEndian.Uint32(header[:4])-frameIDsSize)
	if _, err := io.ReadFull(c, payload); err != nil {
		t.Errorf("Failed to read frame payload: %v", err)
		return 0, 0, nil
	}
	return binary.BigEndian.Uint64(header[4:12]), binary.BigEndian.Uint64(header[12:20]), payload
}

// --------------------------------------------------------------------------
// Round trips
// --------------------------------------------------------------------------

func TestRoundTrip(t *testing.T) {
	_, network := startServer(t, echoHandler, common.ServerConfig{})
	client := connectClient(t, network, common.ClientConfig{TimeoutSecond: 5})

	resp, err := client.Send(100, []byte("hello"))
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if string(resp) != "100:hello" {
		t.Errorf("Expected 100:hello, got %q", resp)
	}
}

func TestEmptyPayload(t *testing.T) {
	_, network := startServer(t, func(_ uint64, req []byte) []byte {
		if req == nil || len(req) != 0 {
			t.Errorf("Expected an empty non nil request, got %v", req)
		}
		return nil
	}, common.ServerConfig{})
	client := connectClient(t, network, common.ClientConfig{TimeoutSecond: 5})

	resp, err := client.Send(1, nil)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(resp) != 0 {
		t.Errorf("Expected an empty response, got %q", resp)
	}
}

func TestConcurrentRequests(t *testing.T) {
	config := common.ServerConfig{Transport: common.ServerTransportConfig{WorkersPerConn: 4}}
	_, network := startServer(t, echoHandler, config)
	client := connectClient(t, network, common.ClientConfig{
		TimeoutSecond: 5,
		Transport:     common.ClientTransportConfig{ConnectionsPerEndpoint: 3},
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := fmt.Sprintf("request-%d", i)
			resp, err := client.Send(uint64(i), []byte(req))
			if err != nil {
				t.Errorf("Send %d failed: %v", i, err)
				return
			}
			if want := fmt.Sprintf("%d:%s", i, req); string(resp) != want {
				t.Errorf("Response mismatch: expected %q, got %q", want, resp)
			}
		}(i)
	}
	wg.Wait()
}

func TestLargePayload(t *testing.T) {
	_, network := startServer(t, func(_ uint64, req []byte) []byte { return req }, common.ServerConfig{})
	client := connectClient(t, network, common.ClientConfig{TimeoutSecond: 5})

	req := []byte(strings.Repeat("0123456789", 100_000))
	resp, err := client.Send(1, req)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if string(resp) != string(req) {
		t.Errorf("Large payload changed on the way (%d bytes back)", len(resp))
	}
}

// --------------------------------------------------------------------------
// Server side protocol checks
// --------------------------------------------------------------------------

func TestServerRejectsBadPreamble(t *testing.T) {
	_, network := startServer(t, echoHandler, common.ServerConfig{})

	raw, err := network.Connect("pipe")
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer raw.Close()

	go func() { _, _ = raw.Write([]byte("HTTP")) }()

	// the server closes the connection without answering
	_ = raw.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := raw.Read(make([]byte, 1)); err != io.EOF {
		t.Errorf("Expected EOF after a bad preamble, got %v", err)
	}
}

func TestServerRejectsShortFrame(t *testing.T) {
	_, network := startServer(t, echoHandler, common.ServerConfig{})

	raw, err := network.Connect("pipe")
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer raw.Close()

	go func() {
		_, _ = raw.Write(Preamble[:])
		_, _ = raw.Write([]byte{0, 0, 0, 5, 1, 2, 3, 4, 5})
	}()

	_ = raw.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := raw.Read(make([]byte, 1)); err != io.EOF {
		t.Errorf("Expected EOF after a short frame, got %v", err)
	}
}

func TestServerAnswersRawClient(t *testing.T) {
	_, network := startServer(t, echoHandler, common.ServerConfig{})

	raw, err := network.Connect("pipe")
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer raw.Close()

	go func() {
		_, _ = raw.Write(Preamble[:])
		writeRawFrame(t, raw, 7, 42, []byte("x"))
	}()

	shardID, requestID, payload := readRawFrame(t, raw)
	if shardID != 7 || requestID != 42 || string(payload) != "7:x" {
		t.Errorf("Unexpected response shard=%d id=%d payload=%q", shardID, requestID, payload)
	}
}

// --------------------------------------------------------------------------
// Client side behaviour
// --------------------------------------------------------------------------

// fakeServer accepts one client connection and hands the raw stream to serve
func fakeServer(t *testing.T, serve func(raw net.Conn)) *pipeNetwork {
	t.Helper()
	network := newPipeNetwork()
	go func() {
		raw, err := network.Accept()
		if err != nil {
			return
		}
		defer raw.Close()

		preamble := make([]byte, PreambleLength)
		if _, err := io.ReadFull(raw, preamble); err != nil || string(preamble) != string(Preamble[:]) {
			t.Errorf("Expected the preamble, got %q (%v)", preamble, err)
			return
		}
		serve(raw)
	}()
	t.Cleanup(func() { _ = network.Close() })
	return network
}

func TestClientDropsUnknownResponse(t *testing.T) {
	network := fakeServer(t, func(raw net.Conn) {
		shardID, requestID, _ := readRawFrame(t, raw)
		writeRawFrame(t, raw, shardID, requestID+1000, []byte("stray"))
		writeRawFrame(t, raw, shardID, requestID, []byte("answer"))
		// keep the stream open until the client is done
		_, _ = io.Copy(io.Discard, raw)
	})
	client := connectClient(t, network, common.ClientConfig{TimeoutSecond: 5})

	resp, err := client.Send(3, []byte("q"))
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if string(resp) != "answer" {
		t.Errorf("Expected answer, got %q", resp)
	}
}

func TestClientRejectsOversizedRequest(t *testing.T) {
	_, network := startServer(t, echoHandler, common.ServerConfig{})
	client := connectClient(t, network, common.ClientConfig{
		TimeoutSecond: 5,
		Transport: common.ClientTransportConfig{
			RetryCount: 3,
			Conn:       common.ConnConf{MaxFrameSize: 1024},
		},
	})

	start := time.Now()
	if _, err := client.Send(1, make([]byte, 1024)); !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("Expected ErrFrameTooLarge, got %v", err)
	}
	// refused locally, three backoff waits would take well over 100ms
	if d := time.Since(start); d > 100*time.Millisecond {
		t.Errorf("Oversized request took %s, expected no retries", d)
	}

	// the connection is still usable, the largest allowed payload included
	resp, err := client.Send(1, []byte("hello"))
	if err != nil || string(resp) != "1:hello" {
		t.Fatalf("Expected 1:hello after the rejected request, got %q (%v)", resp, err)
	}
	if _, err := client.Send(1, make([]byte, MaxPayloadSize(1024)-2)); err != nil {
		t.Errorf("Request at the frame limit failed: %v", err)
	}
}

func TestServerDropsOversizedResponse(t *testing.T) {
	config := common.ServerConfig{Transport: common.ServerTransportConfig{
		Conn: common.ConnConf{MaxFrameSize: 64},
	}}
	_, network := startServer(t, func(shardID uint64, req []byte) []byte {
		if string(req) == "big" {
			return make([]byte, 100)
		}
		return echoHandler(shardID, req)
	}, config)
	client := connectClient(t, network, common.ClientConfig{TimeoutSecond: 1})

	if _, err := client.Send(1, []byte("big")); err == nil {
		t.Fatalf("Expected the oversized response to be dropped")
	}

	// the member kept the connection open
	resp, err := client.Send(1, []byte("small"))
	if err != nil || string(resp) != "1:small" {
		t.Fatalf("Expected 1:small, got %q (%v)", resp, err)
	}
}

func TestClientTimeout(t *testing.T) {
	network := fakeServer(t, func(raw net.Conn) {
		// read everything, never answer
		_, _ = io.Copy(io.Discard, raw)
	})
	client := connectClient(t, network, common.ClientConfig{TimeoutSecond: 1})

	start := time.Now()
	_, err := client.Send(1, []byte("q"))
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Errorf("Expected a timeout, got %v", err)
	}
	if d := time.Since(start); d < time.Second {
		t.Errorf("Send returned after %s, before the timeout", d)
	}
}

func TestClientCloseFailsPending(t *testing.T) {
	received := make(chan struct{})
	network := fakeServer(t, func(raw net.Conn) {
		readRawFrame(t, raw)
		close(received)
		_, _ = io.Copy(io.Discard, raw)
	})
	client := connectClient(t, network, common.ClientConfig{TimeoutSecond: 30})

	errCh := make(chan error, 1)
	go func() {
		_, err := client.Send(1, []byte("q"))
		errCh <- err
	}()

	<-received
	_ = client.Close()

	select {
	case err := <-errCh:
		if err == nil {
			t.Errorf("Expected an error for a request pending during Close")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Pending request was not failed by Close")
	}

	if _, err := client.Send(1, []byte("q")); !errors.Is(err, errTransportClosed) {
		t.Errorf("Expected errTransportClosed after Close, got %v", err)
	}
}

func TestClientReconnects(t *testing.T) {
	server, network := startServer(t, echoHandler, common.ServerConfig{})
	client := connectClient(t, network, common.ClientConfig{
		TimeoutSecond: 5,
		Transport:     common.ClientTransportConfig{RetryCount: 5},
	})

	if _, err := client.Send(1, []byte("before")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	// drop all server side connections, the listener stays open
	server.conns.Range(func(_ string, c *conn.Connection) bool {
		_ = c.Close()
		return true
	})

	resp, err := client.Send(1, []byte("after"))
	if err != nil {
		t.Fatalf("Send after connection loss failed: %v", err)
	}
	if string(resp) != "1:after" {
		t.Errorf("Expected 1:after, got %q", resp)
	}
}

func TestConnectFailsWithoutServer(t *testing.T) {
	network := newPipeNetwork()
	_ = network.Close()

	client := NewBaseClientTransport(pipeClient{network})
	if err := client.Connect(common.ClientConfig{Transport: common.ClientTransportConfig{Endpoints: []string{"pipe"}}}); err == nil {
		t.Errorf("Expected Connect to fail")
	}
	if err := client.Connect(common.ClientConfig{}); err == nil {
		t.Errorf("Expected Connect to fail without endpoints")
	}
}

func TestServerCloseNotifiesClients(t *testing.T) {
	network := newPipeNetwork()
	server := newServerTransport(network)
	server.RegisterHandler(echoHandler)

	done := make(chan error, 1)
	go func() { done <- server.Listen(common.ServerConfig{}) }()
	server.addr()

	client := connectClient(t, network, common.ClientConfig{TimeoutSecond: 5})
	if _, err := client.Send(1, []byte("q")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if err := server.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Listen returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Listen did not return after Close")
	}

	if n := server.conns.Size(); n != 0 {
		t.Errorf("Expected no tracked connections after Close, got %d", n)
	}
	if _, err := client.Send(1, []byte("q")); err == nil {
		t.Errorf("Expected Send to fail after the server closed")
	}
}

func TestListenWithoutHandler(t *testing.T) {
	server := newServerTransport(newPipeNetwork())
	if err := server.Listen(common.ServerConfig{}); err == nil {
		t.Errorf("Expected Listen to fail without handler")
	}
}
