package session

import (
	"net"
	"strconv"
	"time"

	"github.com/teldufalsari/simi/internal/errcode"
	"github.com/teldufalsari/simi/internal/wire"
)

// Timeout is the dial/read/write deadline applied to every socket this
// instance touches.
const Timeout = 10 * time.Second

// transportConn wraps a net.Conn with the frame codec from package wire
// and the 10-second read/write deadlines every accepted or dialed socket
// must carry.
type transportConn struct {
	conn net.Conn
}

// NewConn wraps an already-established net.Conn.
func NewConn(conn net.Conn) *transportConn {
	return &transportConn{conn: conn}
}

// Send writes m to the connection, honoring Timeout as a write deadline.
func (t *transportConn) Send(m wire.Message) error {
	if err := t.conn.SetWriteDeadline(time.Now().Add(Timeout)); err != nil {
		return errcode.Wrap(errcode.Network, "cannot set write deadline", err)
	}
	if _, err := t.conn.Write(wire.Encode(m)); err != nil {
		return errcode.Wrap(errcode.Network, "write failed", err)
	}
	return nil
}

// Receive reads one Message from the connection, honoring Timeout as a
// read deadline.
func (t *transportConn) Receive() (wire.Message, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(Timeout)); err != nil {
		return wire.Message{}, errcode.Wrap(errcode.Network, "cannot set read deadline", err)
	}
	return wire.Decode(t.conn)
}

// RemoteAddr returns the remote address of the underlying connection.
func (t *transportConn) RemoteAddr() net.Addr {
	return t.conn.RemoteAddr()
}

// Close closes the underlying connection.
func (t *transportConn) Close() error {
	return t.conn.Close()
}

// Dial opens a single-use TCP connection to addr with a Timeout connect
// deadline. Every outbound message opens a fresh connection, never
// reused across messages.
func Dial(addr string) (*transportConn, error) {
	conn, err := net.DialTimeout("tcp", addr, Timeout)
	if err != nil {
		return nil, errcode.Wrap(errcode.Network, "cannot connect to peer", err)
	}
	return NewConn(conn), nil
}

// Listen binds a TCP listener on 0.0.0.0:port. Bind failure is fatal.
func Listen(port uint16) (net.Listener, error) {
	ln, err := net.Listen("tcp", addrForPort(port))
	if err != nil {
		return nil, errcode.Wrap(errcode.Fatal, "cannot bind listener", err)
	}
	return ln, nil
}

func addrForPort(port uint16) string {
	return net.JoinHostPort("0.0.0.0", strconv.Itoa(int(port)))
}
