package ws

import (
	"context"
	"github.com/ValentinKolb/dGrid/rpc/common"
	"github.com/ValentinKolb/dGrid/rpc/transport"
	"github.com/ValentinKolb/dGrid/rpc/transport/base"
	"github.com/ValentinKolb/dGrid/rpc/transport/tcp"
	"github.com/gorilla/websocket"
	"net"
	"strings"
	"time"
)

const dialTimeout = 5 * time.Second

// clientConnector implements the IClientConnector interface for websockets
type clientConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "ws"
}

// Connect dials the endpoint, which is either host:port or a ws:// or wss:// url
func (c *clientConnector) Connect(endpoint string) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, endpointURL(endpoint), nil)
	if err != nil {
		return nil, err
	}
	return newWSConn(ws), nil
}

// UpgradeConnection applies the tcp options to the connection below the websocket
func (c *clientConnector) UpgradeConnection(conn net.Conn, config common.ClientConfig) error {
	return tcp.ApplyOptions(underlying(conn), config.Transport.TCPConf, config.Transport.SocketConf)
}

// endpointURL returns the websocket url of an endpoint
func endpointURL(endpoint string) string {
	if strings.HasPrefix(endpoint, "ws://") || strings.HasPrefix(endpoint, "wss://") {
		return endpoint
	}
	return "ws://" + endpoint + Path
}

// --------------------------------------------------------------------------
// Client Transport Factory Method
// --------------------------------------------------------------------------

// NewWSClientTransport creates a new websocket client transport
func NewWSClientTransport() transport.IRPCClientTransport {
	return base.NewBaseClientTransport(&clientConnector{})
}
