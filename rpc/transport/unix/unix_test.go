package unix

import (
	"github.com/ValentinKolb/dGrid/rpc/common"
	"github.com/ValentinKolb/dGrid/rpc/transport"
	"path/filepath"
	"testing"
	"time"
)

// connectWhenReady retries Connect until the server created its socket
func connectWhenReady(t *testing.T, config common.ClientConfig) transport.IRPCClientTransport {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		client := NewUnixClientTransport()
		err := client.Connect(config)
		if err == nil {
			return client
		}
		_ = client.Close()
		if time.Now().After(deadline) {
			t.Fatalf("Connect failed: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestUnixRoundTrip(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "dgrid.sock")

	server := NewUnixServerTransport()
	server.RegisterHandler(func(_ uint64, req []byte) []byte {
		return append(req, '!')
	})
	done := make(chan error, 1)
	go func() {
		done <- server.Listen(common.ServerConfig{
			TimeoutSecond: 5,
			Transport:     common.ServerTransportConfig{Endpoint: socket},
		})
	}()
	defer func() {
		_ = server.Close()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Errorf("Listen did not return after Close")
		}
	}()

	client := connectWhenReady(t, common.ClientConfig{
		TimeoutSecond: 5,
		Transport: common.ClientTransportConfig{
			Endpoints:  []string{socket},
			SocketConf: common.SocketConf{ReadBufferSize: 32 << 10},
		},
	})
	defer client.Close()

	resp, err := client.Send(1, []byte("hello"))
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if string(resp) != "hello!" {
		t.Fatalf("Unexpected response %q", resp)
	}
}
