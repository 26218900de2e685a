package base

import (
	"net"
	"time"
)

// timeoutConn sets a write deadline before every write
type timeoutConn struct {
	net.Conn
	timeout time.Duration
}

// withWriteTimeout wraps conn so a single write can't block longer than timeout (0 = no timeout)
func withWriteTimeout(conn net.Conn, timeout time.Duration) net.Conn {
	if timeout <= 0 {
		return conn
	}
	return &timeoutConn{Conn: conn, timeout: timeout}
}

func (c *timeoutConn) Write(p []byte) (int, error) {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Write(p)
}
