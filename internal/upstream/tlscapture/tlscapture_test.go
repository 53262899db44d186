package tlscapture

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCapture_SelfSignedCertificate(t *testing.T) {
	srv := httptest.NewTLSServer(http.NotFoundHandler())
	defer srv.Close()

	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	summary, err := Capture(ctx, host, port)
	require.NoError(t, err)
	require.NotEmpty(t, summary.SHA1)
	require.NotEmpty(t, summary.SHA256)
	require.Contains(t, summary.SHA1, ":")
	require.True(t, summary.IsSelfSigned)
}

func TestCapture_ConnectFailureIsUpstreamError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	_, err := Capture(ctx, "127.0.0.1", 1)
	require.Error(t, err)
}

func TestColonHex(t *testing.T) {
	require.Equal(t, "ab:cd:ef", colonHex([]byte{0xab, 0xcd, 0xef}))
	require.Equal(t, "", colonHex(nil))
}
