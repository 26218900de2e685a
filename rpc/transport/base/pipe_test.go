package base

import (
	"errors"
	"github.com/ValentinKolb/dGrid/rpc/common"
	"net"
	"sync"
)

// pipeNetwork connects clients and servers in memory with net.Pipe.
// It implements both IClientConnector and IServerConnector.
type pipeNetwork struct {
	conns  chan net.Conn
	closed chan struct{}
	once   sync.Once
}

func newPipeNetwork() *pipeNetwork {
	return &pipeNetwork{
		conns:  make(chan net.Conn),
		closed: make(chan struct{}),
	}
}

func (n *pipeNetwork) GetName() string { return "pipe" }

func (n *pipeNetwork) Connect(string) (net.Conn, error) {
	client, server := net.Pipe()
	select {
	case n.conns <- server:
		return client, nil
	case <-n.closed:
		return nil, errors.New("connection refused")
	}
}

func (n *pipeNetwork) Listen(common.ServerConfig) (net.Listener, error) { return n, nil }

func (n *pipeNetwork) UpgradeConnection(net.Conn, common.ServerConfig) error { return nil }

// pipeClient adapts the network to IClientConnector (UpgradeConnection differs in its config type)
type pipeClient struct{ *pipeNetwork }

func (c pipeClient) UpgradeConnection(net.Conn, common.ClientConfig) error { return nil }

// net.Listener

func (n *pipeNetwork) Accept() (net.Conn, error) {
	select {
	case c := <-n.conns:
		return c, nil
	case <-n.closed:
		return nil, net.ErrClosed
	}
}

func (n *pipeNetwork) Close() error {
	n.once.Do(func() { close(n.closed) })
	return nil
}

func (n *pipeNetwork) Addr() net.Addr { return pipeAddr{} }

type pipeAddr struct{}

func (pipeAddr) Network() string { return "pipe" }
func (pipeAddr) String() string  { return "pipe" }
