package console

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/glog"
)

// Control characters.
const (
	CharInterrupt byte = 0x03
	CharEOF       byte = 0x04
	CharBackspace byte = 0x08
	CharDelete    byte = 0x7f
)

// MaxLineLen bounds the line buffer, further input is dropped.
const MaxLineLen = 128

const defaultPollInterval = 50 * time.Millisecond

// Mux merges several channels into a single line-edited command stream.
// Channels listed first have higher priority. Only the active channel
// provides input, everything else is discarded. Output is written to
// all connected channels.
//
// A Mux is used from a single goroutine.
type Mux struct {
	// PollInterval is the fallback interval to recheck channels.
	PollInterval time.Duration
	Clock        clock.Clock

	channels []Channel
	gens     []uint64
	active   int
	line     []byte
	afterCR  bool
	wakeCh   chan struct{}
}

// NewMux creates a Mux over channels ordered by priority.
func NewMux(channels ...Channel) *Mux {
	m := &Mux{
		PollInterval: defaultPollInterval,
		Clock:        clock.New(),
		channels:     channels,
		gens:         make([]uint64, len(channels)),
		active:       -1,
		wakeCh:       make(chan struct{}, 1),
	}
	for _, ch := range channels {
		ch.Notify(m.wake)
	}
	return m
}

// Channels returns all channels in priority order.
func (m *Mux) Channels() []Channel {
	return m.channels
}

// Active returns the active channel, nil if none is connected.
func (m *Mux) Active() Channel {
	if m.active < 0 {
		return nil
	}
	return m.channels[m.active]
}

// Attended indicates a local line is connected.
func (m *Mux) Attended() bool {
	for _, ch := range m.channels {
		if ch.Kind() == KindSerial && ch.IsConnected() {
			return true
		}
	}
	return false
}

// Write implements io.Writer, it writes to all connected channels.
func (m *Mux) Write(p []byte) (int, error) {
	for _, ch := range m.channels {
		if ch.IsConnected() {
			if _, err := ch.Write(p); err != nil {
				glog.V(2).Infof("write %s: %v", ch.Name(), err)
			}
		}
	}
	return len(p), nil
}

// Printf writes formatted output to all connected channels.
func (m *Mux) Printf(format string, args ...interface{}) {
	fmt.Fprintf(m, format, args...)
}

// DisconnectSessions disconnects all network sessions.
func (m *Mux) DisconnectSessions() {
	for _, ch := range m.channels {
		if ch.Kind() == KindSession {
			ch.Disconnect()
		}
	}
}

// ReadChar waits for one byte from the active channel. It returns
// ErrTakeover when a higher priority channel becomes active.
func (m *Mux) ReadChar(ctx context.Context) (byte, error) {
	for {
		if m.update() {
			return 0, ErrTakeover
		}
		m.discardInactive()
		if ch := m.Active(); ch != nil && ch.Buffered() > 0 {
			if b, err := ch.ReadByte(); err == nil {
				return b, nil
			}
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-m.wakeCh:
		case <-m.Clock.After(m.PollInterval):
		}
	}
}

// ReadCommand reads and edits a line, then returns its tokens. An empty
// result means the line was aborted.
func (m *Mux) ReadCommand(ctx context.Context) ([]string, error) {
	for {
		c, err := m.ReadChar(ctx)
		if err == ErrTakeover {
			m.resetLine()
			return []string{}, nil
		}
		if err != nil {
			return nil, err
		}
		if c == '\n' && m.afterCR {
			m.afterCR = false
			continue
		}
		m.afterCR = c == '\r'
		switch {
		case c == '\r' || c == '\n':
			m.Write([]byte("\r\n"))
			tokens := strings.Fields(string(m.line))
			m.line = m.line[:0]
			return tokens, nil
		case c == CharInterrupt:
			m.resetLine()
			m.Write([]byte("^C\r\n"))
			return []string{}, nil
		case c == CharEOF:
			m.resetLine()
			ch := m.Active()
			if ch.Kind() == KindSession {
				m.Write([]byte("\r\n"))
				ch.Disconnect()
				return []string{}, nil
			}
			return []string{"quit"}, nil
		case c == CharBackspace || c == CharDelete:
			if len(m.line) > 0 {
				m.line = m.line[:len(m.line)-1]
				m.Write([]byte("\b \b"))
			}
		case isLineChar(c):
			if len(m.line) < MaxLineLen {
				m.line = append(m.line, c)
				m.Write([]byte{c})
			}
		}
	}
}

// Line returns the current line buffer.
func (m *Mux) Line() string {
	return string(m.line)
}

func (m *Mux) resetLine() {
	m.line = m.line[:0]
	m.afterCR = false
}

// update reconciles the active channel and reports a takeover.
func (m *Mux) update() (takeover bool) {
	if ch := m.Active(); ch != nil && !ch.IsConnected() {
		glog.Infof("console %s disconnected", ch.Name())
		m.active = -1
		m.resetLine()
	}
	for n, ch := range m.channels {
		gen := ch.Generation()
		if gen == m.gens[n] {
			continue
		}
		m.gens[n] = gen
		if !ch.IsConnected() || (m.active >= 0 && n > m.active) {
			continue
		}
		if m.active >= 0 {
			prev := m.channels[m.active]
			glog.Infof("console taken over by %s from %s", ch.Name(), prev.Name())
			m.Printf("\r\n*** console taken over by %s ***\r\n", ch.Name())
			takeover = true
		}
		m.active = n
	}
	if m.active < 0 {
		for n, ch := range m.channels {
			if ch.IsConnected() {
				glog.Infof("console on %s", ch.Name())
				m.active = n
				break
			}
		}
	}
	return
}

func (m *Mux) discardInactive() {
	for n, ch := range m.channels {
		if n == m.active {
			continue
		}
		for count := ch.Buffered(); count > 0; count-- {
			if _, err := ch.ReadByte(); err != nil {
				break
			}
		}
	}
}

func (m *Mux) wake() {
	select {
	case m.wakeCh <- struct{}{}:
	default:
	}
}

func isLineChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') || c == ' ' || c == '-'
}
