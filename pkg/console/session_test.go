package console

import (
	"io"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func TestTelnetFilter(t *testing.T) {
	f := &telnetFilter{}
	out := f.Filter([]byte{'a', telnetIAC, telnetDO, telnetOptEcho, 'b', telnetIAC, telnetIAC})
	require.Equal(t, []byte{'a', 'b', telnetIAC}, out)

	// negotiation split across reads
	require.Equal(t, []byte("x"), f.Filter([]byte{'x', telnetIAC}))
	require.Empty(t, f.Filter([]byte{telnetWILL}))
	require.Equal(t, []byte("y"), f.Filter([]byte{31, 'y'}))

	// sub negotiation
	out = f.Filter([]byte{telnetIAC, telnetSB, 31, 0, 80, telnetIAC, telnetSE, '\r', 0})
	require.Equal(t, []byte{'\r', 0}, out)
}

func TestTelnetServer(t *testing.T) {
	session := NewSession("net")
	m := NewMux(session)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &TelnetServer{Session: session}
	ctx, cancel := contextWithTimeout()
	defer cancel()
	go srv.Serve(ctx, ln)

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	negotiation := make([]byte, len(telnetCharMode))
	_, err = io.ReadFull(conn, negotiation)
	require.NoError(t, err)
	require.Equal(t, telnetCharMode, negotiation)

	_, err = conn.Write([]byte{telnetIAC, telnetDO, telnetOptEcho, 'v', '\r', 0})
	require.NoError(t, err)
	require.Equal(t, []string{"v"}, readCommand(t, m))

	echo := make([]byte, 3)
	_, err = io.ReadFull(conn, echo)
	require.NoError(t, err)
	require.Equal(t, "v\r\n", string(echo))
}

func TestWebsocketSession(t *testing.T) {
	session := NewSession("net")
	m := NewMux(session)
	srv := httptest.NewServer((&WebsocketServer{Session: session}).Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, err := websocket.Dial(url, "", srv.URL)
	require.NoError(t, err)
	defer ws.Close()

	_, err = ws.Write([]byte("view\r"))
	require.NoError(t, err)
	require.Equal(t, []string{"view"}, readCommand(t, m))
	require.True(t, session.IsConnected())

	ws.Close()
	for session.IsConnected() {
		time.Sleep(time.Millisecond)
	}
}
