package server

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"

	"whoisd/internal/handlers"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	deps := &handlers.Deps{HandlerDeadline: 2 * time.Second}
	return New("127.0.0.1:0", deps, logr.Discard())
}

func TestReadPreface_NoPrefaceReturnsFirstLineAsQuery(t *testing.T) {
	s := newTestServer(t)
	reader := bufio.NewReader(strings.NewReader("example.com\n"))
	mode, line, err := s.readPreface(&discardConn{}, reader)
	require.NoError(t, err)
	require.Equal(t, colorNone, mode)
	require.NotNil(t, line)
	require.Equal(t, "example.com", *line)
}

func TestReadPreface_ColorProbeIsAcknowledged(t *testing.T) {
	s := newTestServer(t)
	conn := &recordingConn{}
	input := colorProbeLine + "\n\nexample.com\n"
	reader := bufio.NewReader(strings.NewReader(input))
	mode, line, err := s.readPreface(conn, reader)
	require.NoError(t, err)
	require.Equal(t, colorNone, mode)
	require.Nil(t, line, "a blank line after the probe ends the preface without naming a query line")
	require.Equal(t, "X-WHOIS-COLOR: 1.0 ripe,bgptools\r\n", string(conn.written))
}

func TestReadPreface_ColorRequestSetsMode(t *testing.T) {
	s := newTestServer(t)
	input := colorRequestPrefix + "ripe\n\nexample.com-RIPE\n"
	reader := bufio.NewReader(strings.NewReader(input))
	mode, line, err := s.readPreface(&discardConn{}, reader)
	require.NoError(t, err)
	require.Equal(t, colorRIPE, mode)
	require.Nil(t, line)
}

func TestReadPreface_ColorRequestBGPTools(t *testing.T) {
	s := newTestServer(t)
	input := colorRequestPrefix + "bgptools\n\n"
	reader := bufio.NewReader(strings.NewReader(input))
	mode, _, err := s.readPreface(&discardConn{}, reader)
	require.NoError(t, err)
	require.Equal(t, colorBGPTools, mode)
}

func TestReadQueryLine_TrimsAndTruncates(t *testing.T) {
	s := newTestServer(t)
	reader := bufio.NewReader(strings.NewReader("  example.com  \n"))
	line, err := s.readQueryLine(reader)
	require.NoError(t, err)
	require.Equal(t, "example.com", line)
}

func TestTruncateQueryLine(t *testing.T) {
	long := strings.Repeat("a", MaxQueryLine+100)
	got := truncateQueryLine(long)
	require.Len(t, got, MaxQueryLine)
}

func TestColorize_NonIRRTagPassesThrough(t *testing.T) {
	body := []byte("status: active\n")
	out := colorize(body, "STEAM", colorRIPE)
	require.Equal(t, body, out)
}

func TestColorize_IRRTagAddsANSICodes(t *testing.T) {
	body := []byte("route: 192.0.2.0/24\n% comment\n")
	out := colorize(body, "RIPE", colorRIPE)
	require.Contains(t, string(out), ansiCyan)
	require.Contains(t, string(out), ansiDim)
	require.Contains(t, string(out), ansiReset)
}

func TestColorize_BGPToolsUsesYellow(t *testing.T) {
	body := []byte("route: 192.0.2.0/24\n")
	out := colorize(body, "ARIN", colorBGPTools)
	require.Contains(t, string(out), ansiYellow)
}

func TestColorize_NoModePassesThrough(t *testing.T) {
	body := []byte("route: 192.0.2.0/24\n")
	out := colorize(body, "RIPE", colorNone)
	require.Equal(t, body, out)
}

// TestListenAndServe_RoundTrip exercises the full accept/handleConn path
// over a real loopback TCP connection: dial, send a bare query, read the
// response, and confirm the server shuts down when ctx is canceled.
func TestListenAndServe_RoundTrip(t *testing.T) {
	deps := &handlers.Deps{HandlerDeadline: 2 * time.Second}
	s := New("127.0.0.1:0", deps, logr.Discard())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()
	s.Addr = addr

	ctx, cancel := context.WithCancel(context.Background())
	serveErrCh := make(chan error, 1)
	go func() { serveErrCh <- s.ListenAndServe(ctx) }()

	var conn net.Conn
	for i := 0; i < 50; i++ {
		conn, err = net.Dial("tcp", addr)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.NoError(t, err)

	// -HELP needs neither storage nor a live upstream, so the round trip
	// stays hermetic.
	_, err = conn.Write([]byte("-HELP\n"))
	require.NoError(t, err)

	body, err := io.ReadAll(conn)
	require.NoError(t, err)
	require.NotEmpty(t, body)

	cancel()
	select {
	case err := <-serveErrCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("ListenAndServe did not stop after context cancellation")
	}
}

// discardConn is a net.Conn stub that discards writes, for readPreface
// tests that never expect an ack write.
type discardConn struct{ net.Conn }

func (discardConn) Write(p []byte) (int, error) { return len(p), nil }

// recordingConn is a net.Conn stub that records the last write, for
// asserting the probe-ack line readPreface sends.
type recordingConn struct {
	net.Conn
	written []byte
}

func (c *recordingConn) Write(p []byte) (int, error) {
	c.written = append([]byte(nil), p...)
	return len(p), nil
}
