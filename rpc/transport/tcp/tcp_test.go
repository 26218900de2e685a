package tcp

import (
	"github.com/ValentinKolb/dGrid/rpc/common"
	"github.com/ValentinKolb/dGrid/rpc/transport/base"
	"net"
	"testing"
	"time"
)

// preparedConnector returns a listener created by the test
type preparedConnector struct {
	serverConnector
	ln net.Listener
}

func (c *preparedConnector) Listen(common.ServerConfig) (net.Listener, error) {
	return c.ln, nil
}

func TestTCPRoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	server := base.NewBaseServerTransport(&preparedConnector{ln: ln})
	server.RegisterHandler(func(shardID uint64, req []byte) []byte {
		return append([]byte{byte(shardID)}, req...)
	})
	serverConfig := common.ServerConfig{
		TimeoutSecond: 5,
		Transport: common.ServerTransportConfig{
			TCPConf: common.TCPConf{TCPNoDelay: true, TCPKeepAliveSec: 30},
		},
	}
	done := make(chan error, 1)
	go func() { done <- server.Listen(serverConfig) }()
	defer func() {
		_ = server.Close()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Errorf("Listen did not return after Close")
		}
	}()

	client := NewTCPClientTransport()
	err = client.Connect(common.ClientConfig{
		TimeoutSecond: 5,
		Transport: common.ClientTransportConfig{
			Endpoints:  []string{ln.Addr().String()},
			SocketConf: common.SocketConf{ReadBufferSize: 64 << 10, WriteBufferSize: 64 << 10},
			TCPConf:    common.TCPConf{TCPNoDelay: true},
		},
	})
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	resp, err := client.Send(7, []byte("ping"))
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if string(resp) != "\x07ping" {
		t.Fatalf("Unexpected response %q", resp)
	}
}

func TestApplyOptionsIgnoresOtherConns(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	if err := ApplyOptions(a, common.TCPConf{TCPNoDelay: true}, common.SocketConf{}); err != nil {
		t.Fatalf("Expected no error for a non tcp connection, got %v", err)
	}
}
