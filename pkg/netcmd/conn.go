package netcmd

import (
	"bytes"
	"net"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// Peer is the remote end frames are replied to.
type Peer interface {
	Send(Frame) error
	// LocalAddr is the IPv4 address of this node as seen by the peer,
	// empty if unknown.
	LocalAddr() string
}

const readBufSize = 512

// Conn exchanges frames over a stream connection.
//
// Each transport write carries one frame, optionally newline terminated.
// Several frames coalesced into a single read are split on line
// terminators and queued for subsequent Receive calls.
type Conn struct {
	// Timeout bounds a single Receive, zero blocks forever.
	Timeout time.Duration

	conn    net.Conn
	queue   []string
	readBuf []byte
	wlock   sync.Mutex
}

// NewConn wraps a connection.
func NewConn(conn net.Conn, timeout time.Duration) *Conn {
	return &Conn{
		Timeout: timeout,
		conn:    conn,
		readBuf: make([]byte, readBufSize),
	}
}

// Receive waits for the next frame.
func (c *Conn) Receive() (Frame, error) {
	for len(c.queue) == 0 {
		if err := c.fill(); err != nil {
			return Frame{}, err
		}
	}
	line := c.queue[0]
	c.queue = c.queue[1:]
	f, err := ParseFrame(line)
	if err == nil && glog.V(2) {
		glog.Infof("recv %s", f)
	}
	return f, err
}

// Send writes a single frame.
func (c *Conn) Send(f Frame) error {
	if glog.V(2) {
		glog.Infof("send %s", f)
	}
	c.wlock.Lock()
	defer c.wlock.Unlock()
	if _, err := c.conn.Write([]byte(f.String() + "\n")); err != nil {
		return errors.Wrapf(ErrTransportClosed, "send: %v", err)
	}
	return nil
}

// LocalAddr implements Peer.
func (c *Conn) LocalAddr() string {
	if addr, ok := c.conn.LocalAddr().(*net.TCPAddr); ok {
		if ip := addr.IP.To4(); ip != nil {
			return ip.String()
		}
	}
	return ""
}

// RemoteAddr returns the address of the coordinator.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}

func (c *Conn) fill() error {
	if c.Timeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.Timeout))
	}
	n, err := c.conn.Read(c.readBuf)
	c.split(c.readBuf[:n])
	if err == nil || len(c.queue) > 0 {
		return nil
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return ErrReceiveTimeout
	}
	return errors.Wrapf(ErrTransportClosed, "receive: %v", err)
}

func (c *Conn) split(data []byte) {
	for _, line := range bytes.FieldsFunc(data, func(r rune) bool {
		return r == '\n' || r == '\r'
	}) {
		if len(bytes.TrimSpace(line)) > 0 {
			c.queue = append(c.queue, string(line))
		}
	}
}
