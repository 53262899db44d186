// Package ratelimit implements the per-upstream token bucket the
// enrichment coordinator (C4) uses to keep each upstream service's request
// rate within whatever that service tolerates (spec §5.3). Every upstream
// client is keyed by its own name ("geoip", "crt-sh", "steam", ...), so one
// slow or rate-limited upstream never throttles the others.
//
// Adapted from the provider-keyed limiter in the teacher's
// internal/registrydata package, generalized beyond a single WHOIS/RDAP
// provider concept into a limiter usable by any named upstream.
package ratelimit

import (
	"context"
	"time"
)

// Limiter gates requests to a named upstream with a token bucket.
type Limiter interface {
	// Acquire attempts to take one token for the given upstream. If ok is
	// false, retryAfter indicates how long the caller should wait.
	Acquire(ctx context.Context, upstream string) (ok bool, retryAfter time.Duration, err error)
	// BlockUntil forces the upstream's bucket closed until the given time,
	// e.g. after receiving an HTTP 429 with a Retry-After header.
	BlockUntil(ctx context.Context, upstream string, until time.Time) error
}

// Limits configures a token bucket's refill rate, burst capacity, and the
// default block duration applied when a bucket is exhausted.
type Limits struct {
	RatePerSec float64
	Burst      float64
	Block      time.Duration
}

// RateLimitedError is returned by an upstream client when a Limiter denies
// the request.
type RateLimitedError struct {
	Upstream   string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e == nil || e.Upstream == "" {
		return "rate limited"
	}
	if e.RetryAfter > 0 {
		return "rate limited by " + e.Upstream + "; retry after " + e.RetryAfter.String()
	}
	return "rate limited by " + e.Upstream
}
