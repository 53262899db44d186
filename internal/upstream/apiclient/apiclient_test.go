package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"whoisd/internal/whoiserr"
)

type payload struct {
	Name string `json:"name"`
}

func TestGetJSON_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, BrowserUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"example","unused_field":123}`))
	}))
	defer srv.Close()

	c := New(2 * time.Second)
	var dst payload
	err := c.GetJSON(context.Background(), srv.URL, &dst)
	require.NoError(t, err)
	require.Equal(t, "example", dst.Name)
}

func TestGetJSON_NonTwoXXIsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(2 * time.Second)
	var dst payload
	err := c.GetJSON(context.Background(), srv.URL, &dst)
	require.Error(t, err)
	require.Equal(t, whoiserr.UpstreamUnavailable, whoiserr.KindOf(err))
}

func TestGetJSON_MalformedBodyIsUpstreamMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := New(2 * time.Second)
	var dst payload
	err := c.GetJSON(context.Background(), srv.URL, &dst)
	require.Error(t, err)
	require.Equal(t, whoiserr.UpstreamMalformed, whoiserr.KindOf(err))
}

func TestGetJSON_DisabledWhenAPIKeyMissing(t *testing.T) {
	c := New(2 * time.Second)
	c.Auth = AuthBearer
	c.APIKeyEnv = "WHOISD_TEST_NONEXISTENT_KEY"

	var dst payload
	err := c.GetJSON(context.Background(), "http://example.invalid", &dst)
	require.Error(t, err)
	require.Equal(t, whoiserr.FeatureDisabled, whoiserr.KindOf(err))
}

func TestGetJSON_BearerAuthHeaderSet(t *testing.T) {
	t.Setenv("WHOISD_TEST_API_KEY", "secret-token")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"name":"ok"}`))
	}))
	defer srv.Close()

	c := New(2 * time.Second)
	c.Auth = AuthBearer
	c.APIKeyEnv = "WHOISD_TEST_API_KEY"

	var dst payload
	require.NoError(t, c.GetJSON(context.Background(), srv.URL, &dst))
}

func TestGetJSON_APIKeyHeaderSet(t *testing.T) {
	t.Setenv("WHOISD_TEST_API_KEY", "secret-token")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "secret-token", r.Header.Get("X-Api-Key"))
		_, _ = w.Write([]byte(`{"name":"ok"}`))
	}))
	defer srv.Close()

	c := New(2 * time.Second)
	c.Auth = AuthAPIKeyHeader
	c.APIKeyEnv = "WHOISD_TEST_API_KEY"

	var dst payload
	require.NoError(t, c.GetJSON(context.Background(), srv.URL, &dst))
}

func TestGetText_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("plain text body"))
	}))
	defer srv.Close()

	c := New(2 * time.Second)
	body, err := c.GetText(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "plain text body", body)
}

func TestGetJSON_ContextTimeoutIsTimeoutKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(2 * time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Millisecond)
	defer cancel()

	var dst payload
	err := c.GetJSON(ctx, srv.URL, &dst)
	require.Error(t, err)
	require.Equal(t, whoiserr.Timeout, whoiserr.KindOf(err))
}
