package console

import (
	"io"
	"sync"
)

// Kind classifies a channel.
type Kind int

// Kinds
const (
	// KindSerial is a locally attached line, its presence means the
	// vehicle is attended.
	KindSerial Kind = iota
	// KindSession is an inbound network session.
	KindSession
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindSerial:
		return "serial"
	case KindSession:
		return "session"
	}
	return "unknown"
}

// Channel is a byte stream merged by the Mux.
type Channel interface {
	Name() string
	Kind() Kind
	IsConnected() bool
	// Buffered returns the number of bytes readable without blocking.
	Buffered() int
	// ReadByte reads a buffered byte, it never blocks.
	ReadByte() (byte, error)
	Write(p []byte) (int, error)
	Disconnect() error
	// Generation is bumped on every new connection.
	Generation() uint64
	// Notify sets a hook invoked when input arrives or the
	// connection state changes. It must not block.
	Notify(fn func())
}

const streamReadSize = 256

// stream buffers everything read from an underlying connection in the
// background so input can be consumed byte by byte without blocking.
type stream struct {
	rwc    io.ReadWriteCloser
	filter func([]byte) []byte
	notify func()

	lock   sync.Mutex
	buf    []byte
	closed bool
	done   chan struct{}
}

func newStream(rwc io.ReadWriteCloser, filter func([]byte) []byte, notify func()) *stream {
	s := &stream{
		rwc:    rwc,
		filter: filter,
		notify: notify,
		done:   make(chan struct{}),
	}
	go s.readLoop()
	return s
}

func (s *stream) readLoop() {
	defer close(s.done)
	data := make([]byte, streamReadSize)
	for {
		n, err := s.rwc.Read(data)
		in := data[:n]
		if s.filter != nil {
			in = s.filter(in)
		}
		s.lock.Lock()
		s.buf = append(s.buf, in...)
		if err != nil {
			s.closed = true
		}
		s.lock.Unlock()
		if s.notify != nil {
			s.notify()
		}
		if err != nil {
			return
		}
	}
}

func (s *stream) isConnected() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return !s.closed
}

func (s *stream) buffered() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.buf)
}

func (s *stream) readByte() (byte, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if len(s.buf) == 0 {
		if s.closed {
			return 0, io.EOF
		}
		return 0, ErrNoInput
	}
	b := s.buf[0]
	s.buf = s.buf[1:]
	return b, nil
}

func (s *stream) write(p []byte) (int, error) {
	if !s.isConnected() {
		return 0, io.ErrClosedPipe
	}
	return s.rwc.Write(p)
}

func (s *stream) close() error {
	s.lock.Lock()
	s.closed = true
	s.buf = nil
	s.lock.Unlock()
	return s.rwc.Close()
}
