package ws

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/dGrid/rpc/common"
	"github.com/ValentinKolb/dGrid/rpc/transport"
	"github.com/ValentinKolb/dGrid/rpc/transport/base"
	"github.com/ValentinKolb/dGrid/rpc/transport/tcp"
	"github.com/gorilla/websocket"
	"github.com/lni/dragonboat/v4/logger"
	"net"
	"net/http"
	"sync"
	"time"
)

var Logger = logger.GetLogger("transport/rpc")

// Path is the http path the members accept websocket connections on
const Path = "/dgrid"

// serverConnector implements the IServerConnector interface for websockets
type serverConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return "ws"
}

func (c *serverConnector) Listen(config common.ServerConfig) (net.Listener, error) {
	ln, err := net.Listen("tcp", config.Transport.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create TCP socket: %v", err)
	}
	return newWSListener(ln, config), nil
}

// UpgradeConnection applies the tcp options to the connection below the websocket
func (c *serverConnector) UpgradeConnection(conn net.Conn, config common.ServerConfig) error {
	return tcp.ApplyOptions(underlying(conn), config.Transport.TCPConf, config.Transport.SocketConf)
}

// --------------------------------------------------------------------------
// Listener
// --------------------------------------------------------------------------

// wsListener is a net.Listener that serves http on a tcp listener and returns
// every connection upgraded on Path from Accept.
type wsListener struct {
	ln       net.Listener
	server   *http.Server
	upgrader websocket.Upgrader

	conns     chan net.Conn
	closed    chan struct{}
	closeOnce sync.Once
}

func newWSListener(ln net.Listener, config common.ServerConfig) *wsListener {
	l := &wsListener{
		ln: ln,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.Transport.ReadBufferSize,
			WriteBufferSize: config.Transport.WriteBufferSize,
		},
		conns:  make(chan net.Conn),
		closed: make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+Path, l.upgrade)
	l.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := l.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Errorf("websocket server on %s failed: %v", ln.Addr(), err)
		}
	}()
	return l
}

// upgrade hands an upgraded connection to Accept
func (l *wsListener) upgrade(w http.ResponseWriter, r *http.Request) {
	ws, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered with an http error
		Logger.Warningf("Failed to upgrade connection from %s: %v", r.RemoteAddr, err)
		return
	}

	select {
	case l.conns <- newWSConn(ws):
	case <-l.closed:
		_ = ws.Close()
	}
}

func (l *wsListener) Accept() (net.Conn, error) {
	select {
	case c := <-l.conns:
		return c, nil
	case <-l.closed:
		return nil, net.ErrClosed
	}
}

// Close stops the http server. Upgraded connections are not affected.
func (l *wsListener) Close() error {
	err := net.ErrClosed
	l.closeOnce.Do(func() {
		close(l.closed)
		err = l.server.Close()
	})
	return err
}

func (l *wsListener) Addr() net.Addr {
	return l.ln.Addr()
}

// --------------------------------------------------------------------------
// Server Transport Factory Method
// --------------------------------------------------------------------------

// NewWSServerTransport creates a new websocket server transport
func NewWSServerTransport() transport.IRPCServerTransport {
	return base.NewBaseServerTransport(&serverConnector{})
}
