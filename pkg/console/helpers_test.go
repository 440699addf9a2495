package console

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testConn is the remote end of a channel: input is fed with send and
// everything written by the channel is collected.
type testConn struct {
	inR *io.PipeReader
	inW *io.PipeWriter

	lock sync.Mutex
	out  bytes.Buffer
}

func newTestConn() *testConn {
	r, w := io.Pipe()
	return &testConn{inR: r, inW: w}
}

func (c *testConn) Read(p []byte) (int, error) {
	return c.inR.Read(p)
}

func (c *testConn) Write(p []byte) (int, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.out.Write(p)
}

func (c *testConn) Close() error {
	c.inW.Close()
	return c.inR.Close()
}

// hangup simulates the peer going away.
func (c *testConn) hangup() {
	c.inW.Close()
}

func (c *testConn) send(t *testing.T, s string) {
	_, err := c.inW.Write([]byte(s))
	require.NoError(t, err)
}

func (c *testConn) output() string {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.out.String()
}

func (c *testConn) waitOutput(t *testing.T, substr string) {
	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(c.output(), substr) {
		if time.Now().After(deadline) {
			t.Fatalf("output %q doesn't contain %q", c.output(), substr)
		}
		time.Sleep(time.Millisecond)
	}
}

func readCommand(t *testing.T, m *Mux) []string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	tokens, err := m.ReadCommand(ctx)
	require.NoError(t, err)
	return tokens
}

type readResult struct {
	tokens []string
	err    error
}

func readCommandAsync(m *Mux) <-chan readResult {
	ch := make(chan readResult, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		tokens, err := m.ReadCommand(ctx)
		ch <- readResult{tokens: tokens, err: err}
	}()
	return ch
}

func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}
