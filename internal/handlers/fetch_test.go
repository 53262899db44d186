package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"whoisd/internal/cache"
	"whoisd/internal/ratelimit"
)

// countingCache wraps cache.NewMemory and counts Get/Set calls so tests can
// assert fetchJSON actually consults the cache rather than hitting the
// network every time.
type countingCache struct {
	mu   sync.Mutex
	*cache.Memory
	gets int
	sets int
}

func newCountingCache() *countingCache {
	return &countingCache{Memory: cache.NewMemory()}
}

func (c *countingCache) Get(key string, dst any) (bool, error) {
	c.mu.Lock()
	c.gets++
	c.mu.Unlock()
	return c.Memory.Get(key, dst)
}

func (c *countingCache) Set(key string, value any, ttl time.Duration) error {
	c.mu.Lock()
	c.sets++
	c.mu.Unlock()
	return c.Memory.Set(key, value, ttl)
}

// denyLimiter always refuses Acquire, simulating an exhausted bucket.
type denyLimiter struct{}

func (denyLimiter) Acquire(context.Context, string) (bool, time.Duration, error) {
	return false, 5 * time.Second, nil
}

func (denyLimiter) BlockUntil(context.Context, string, time.Time) error { return nil }

func TestFetchJSON_CachesResponse(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte(`{"status":"success","country":"Testland"}`))
	}))
	defer srv.Close()

	cc := newCountingCache()
	d := &Deps{Cache: cc, Limiter: ratelimit.NewMemory(ratelimit.Limits{RatePerSec: 100, Burst: 100})}

	var first, second ipAPIResponse
	require.NoError(t, d.fetchJSON(context.Background(), srv.URL, &first))
	require.NoError(t, d.fetchJSON(context.Background(), srv.URL, &second))

	require.Equal(t, 1, hits, "second fetchJSON should be served from cache, not hit the server again")
	require.Equal(t, "Testland", first.Country)
	require.Equal(t, "Testland", second.Country)
	require.True(t, cc.sets >= 1)
}

func TestFetchJSON_RateLimitedReturnsRateLimitedError(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	d := &Deps{Cache: cache.NewMemory(), Limiter: denyLimiter{}}

	var dst ipAPIResponse
	err := d.fetchJSON(context.Background(), srv.URL, &dst)
	require.Error(t, err)
	var rlErr *ratelimit.RateLimitedError
	require.ErrorAs(t, err, &rlErr)
	require.Equal(t, 0, hits, "a denied Acquire must short-circuit before the request is sent")
}

func TestFetchJSON_NilCacheAndLimiterStillWork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","country":"Nowhere"}`))
	}))
	defer srv.Close()

	d := &Deps{}
	var dst ipAPIResponse
	require.NoError(t, d.fetchJSON(context.Background(), srv.URL, &dst))
	require.Equal(t, "Nowhere", dst.Country)
}

func TestFetchText_CachesResponseBody(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte("plain body text"))
	}))
	defer srv.Close()

	d := &Deps{Cache: cache.NewMemory(), Limiter: ratelimit.NewMemory(ratelimit.Limits{RatePerSec: 100, Burst: 100})}

	first, err := d.fetchText(context.Background(), srv.URL)
	require.NoError(t, err)
	second, err := d.fetchText(context.Background(), srv.URL)
	require.NoError(t, err)

	require.Equal(t, 1, hits)
	require.Equal(t, "plain body text", first)
	require.Equal(t, first, second)
}

func TestUpstreamHost(t *testing.T) {
	require.Equal(t, "crates.io", upstreamHost("https://crates.io/api/v1/crates/foo"))
	require.Equal(t, "unknown", upstreamHost("://not a url"))
	require.Equal(t, "unknown", upstreamHost(""))
}
