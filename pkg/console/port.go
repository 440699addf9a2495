package console

import (
	"io"
	"os"
	"sync"

	"github.com/golang/glog"
	"github.com/jacobsa/go-serial/serial"
	"github.com/pkg/errors"
	"golang.org/x/term"
)

// Port is a locally attached line opened once for the life of the process.
type Port struct {
	name string
	kind Kind
	s    *stream

	lock   sync.Mutex
	notify func()
}

// NewPort wraps an opened connection.
func NewPort(name string, kind Kind, rwc io.ReadWriteCloser) *Port {
	p := &Port{name: name, kind: kind}
	p.s = newStream(rwc, nil, p.wake)
	return p
}

// OpenSerial opens a serial device in 8N1 mode.
func OpenSerial(device string, baud uint) (*Port, error) {
	rwc, err := serial.Open(serial.OpenOptions{
		PortName:        device,
		BaudRate:        baud,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open serial %s", device)
	}
	glog.Infof("console on serial %s at %d baud", device, baud)
	return NewPort(device, KindSerial, rwc), nil
}

type stdio struct {
	fd    int
	state *term.State
}

func (s *stdio) Read(p []byte) (int, error) {
	return os.Stdin.Read(p)
}

func (s *stdio) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

func (s *stdio) Close() error {
	if s.state != nil {
		return term.Restore(s.fd, s.state)
	}
	return nil
}

// OpenStdio uses the controlling terminal as the local line. The
// terminal is switched to raw mode until the port is disconnected.
func OpenStdio() (*Port, error) {
	s := &stdio{fd: int(os.Stdin.Fd())}
	if term.IsTerminal(s.fd) {
		state, err := term.MakeRaw(s.fd)
		if err != nil {
			return nil, errors.Wrap(err, "raw terminal")
		}
		s.state = state
	}
	return NewPort("stdio", KindSerial, s), nil
}

// Name implements Channel.
func (p *Port) Name() string {
	return p.name
}

// Kind implements Channel.
func (p *Port) Kind() Kind {
	return p.kind
}

// IsConnected implements Channel.
func (p *Port) IsConnected() bool {
	return p.s.isConnected()
}

// Buffered implements Channel.
func (p *Port) Buffered() int {
	return p.s.buffered()
}

// ReadByte implements Channel.
func (p *Port) ReadByte() (byte, error) {
	return p.s.readByte()
}

// Write implements Channel.
func (p *Port) Write(data []byte) (int, error) {
	return p.s.write(data)
}

// Disconnect implements Channel.
func (p *Port) Disconnect() error {
	return p.s.close()
}

// Generation implements Channel. A port is connected exactly once.
func (p *Port) Generation() uint64 {
	return 1
}

// Notify implements Channel.
func (p *Port) Notify(fn func()) {
	p.lock.Lock()
	p.notify = fn
	p.lock.Unlock()
}

func (p *Port) wake() {
	p.lock.Lock()
	fn := p.notify
	p.lock.Unlock()
	if fn != nil {
		fn()
	}
}
