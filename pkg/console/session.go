package console

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/rover/pkg/framework"
)

// Session is a slot for one inbound network connection. A new
// connection replaces the current one.
type Session struct {
	name string

	lock   sync.Mutex
	s      *stream
	gen    uint64
	notify func()
}

// NewSession creates an empty session slot.
func NewSession(name string) *Session {
	return &Session{name: name}
}

// Attach makes rwc the current connection, closing the previous one.
// The returned channel is closed when rwc is disconnected.
func (s *Session) Attach(rwc io.ReadWriteCloser, filter func([]byte) []byte) <-chan struct{} {
	st := newStream(rwc, filter, s.wake)
	s.lock.Lock()
	prev := s.s
	s.s = st
	s.gen++
	s.lock.Unlock()
	if prev != nil {
		glog.Infof("session %s replaced", s.name)
		prev.close()
	}
	s.wake()
	return st.done
}

func (s *Session) current() *stream {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.s
}

// Name implements Channel.
func (s *Session) Name() string {
	return s.name
}

// Kind implements Channel.
func (s *Session) Kind() Kind {
	return KindSession
}

// IsConnected implements Channel.
func (s *Session) IsConnected() bool {
	st := s.current()
	return st != nil && st.isConnected()
}

// Buffered implements Channel.
func (s *Session) Buffered() int {
	if st := s.current(); st != nil {
		return st.buffered()
	}
	return 0
}

// ReadByte implements Channel.
func (s *Session) ReadByte() (byte, error) {
	if st := s.current(); st != nil {
		return st.readByte()
	}
	return 0, ErrNotConnected
}

// Write implements Channel.
func (s *Session) Write(p []byte) (int, error) {
	if st := s.current(); st != nil {
		return st.write(p)
	}
	return 0, ErrNotConnected
}

// Disconnect implements Channel.
func (s *Session) Disconnect() error {
	st := s.current()
	if st == nil || !st.isConnected() {
		return nil
	}
	glog.Infof("session %s disconnected", s.name)
	err := st.close()
	s.wake()
	return err
}

// Generation implements Channel.
func (s *Session) Generation() uint64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.gen
}

// Notify implements Channel.
func (s *Session) Notify(fn func()) {
	s.lock.Lock()
	s.notify = fn
	s.lock.Unlock()
}

func (s *Session) wake() {
	s.lock.Lock()
	fn := s.notify
	s.lock.Unlock()
	if fn != nil {
		fn()
	}
}

// Telnet protocol bytes.
const (
	telnetIAC  byte = 255
	telnetDONT byte = 254
	telnetDO   byte = 253
	telnetWONT byte = 252
	telnetWILL byte = 251
	telnetSB   byte = 250
	telnetSE   byte = 240

	telnetOptEcho byte = 1
	telnetOptSGA  byte = 3
)

// telnetCharMode asks the client to send every key stroke and leave
// echoing to the server.
var telnetCharMode = []byte{
	telnetIAC, telnetWILL, telnetOptEcho,
	telnetIAC, telnetWILL, telnetOptSGA,
}

type telnetState int

const (
	telnetData telnetState = iota
	telnetCmd
	telnetOpt
	telnetSub
	telnetSubIAC
)

// telnetFilter strips telnet negotiation from the input. The state is
// kept across reads.
type telnetFilter struct {
	state telnetState
}

func (f *telnetFilter) Filter(in []byte) []byte {
	out := in[:0]
	for _, b := range in {
		switch f.state {
		case telnetData:
			if b == telnetIAC {
				f.state = telnetCmd
			} else {
				out = append(out, b)
			}
		case telnetCmd:
			switch b {
			case telnetIAC:
				out = append(out, b)
				f.state = telnetData
			case telnetWILL, telnetWONT, telnetDO, telnetDONT:
				f.state = telnetOpt
			case telnetSB:
				f.state = telnetSub
			default:
				f.state = telnetData
			}
		case telnetOpt:
			f.state = telnetData
		case telnetSub:
			if b == telnetIAC {
				f.state = telnetSubIAC
			}
		case telnetSubIAC:
			if b == telnetSE {
				f.state = telnetData
			} else {
				f.state = telnetSub
			}
		}
	}
	return out
}

// TelnetServer feeds a Session from a TCP listener.
type TelnetServer struct {
	Addr    string
	Session *Session
}

// Name implements framework.Named.
func (t *TelnetServer) Name() string {
	return "telnet"
}

// Run implements framework.Runnable.
func (t *TelnetServer) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", t.Addr)
	if err != nil {
		return err
	}
	glog.Infof("telnet console on %s", ln.Addr())
	return t.Serve(ctx, ln)
}

// Serve accepts connections from ln until ctx is done.
func (t *TelnetServer) Serve(ctx context.Context, ln net.Listener) error {
	return fx.RunWithContextCloser(ctx, ln, func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return err
			}
			glog.Infof("telnet session from %s", conn.RemoteAddr())
			if _, err := conn.Write(telnetCharMode); err != nil {
				conn.Close()
				continue
			}
			t.Session.Attach(conn, (&telnetFilter{}).Filter)
		}
	})
}

// WebsocketServer feeds a Session from websocket connections.
type WebsocketServer struct {
	Addr    string
	Path    string
	Session *Session
}

// Name implements framework.Named.
func (w *WebsocketServer) Name() string {
	return "websocket"
}

// Handler serves websocket upgrades into the session.
func (w *WebsocketServer) Handler() http.Handler {
	return websocket.Server{
		Handler: func(conn *websocket.Conn) {
			glog.Infof("websocket session from %s", conn.Request().RemoteAddr)
			<-w.Session.Attach(conn, nil)
		},
	}
}

// Run implements framework.Runnable.
func (w *WebsocketServer) Run(ctx context.Context) error {
	path := w.Path
	if path == "" {
		path = "/console"
	}
	mux := http.NewServeMux()
	mux.Handle(path, w.Handler())
	srv := &http.Server{Addr: w.Addr, Handler: mux}
	glog.Infof("websocket console on %s%s", w.Addr, path)
	err := fx.RunWithContextCloser(ctx, srv, srv.ListenAndServe)
	if err == http.ErrServerClosed {
		return context.Canceled
	}
	return err
}
