package ratelimit

import (
	"strings"
	"time"
)

// ParseRetryAfterHeader parses an HTTP Retry-After header value, which per
// RFC 9110 §10.2.3 is either delta-seconds or an HTTP-date.
func ParseRetryAfterHeader(val string) time.Duration {
	val = strings.TrimSpace(val)
	if val == "" {
		return 0
	}
	if secs, err := time.ParseDuration(val + "s"); err == nil {
		if secs < 0 {
			return 0
		}
		return secs
	}
	if t, err := time.Parse(time.RFC1123, val); err == nil {
		d := time.Until(t)
		if d < 0 {
			return 0
		}
		return d
	}
	if t, err := time.Parse(time.RFC1123Z, val); err == nil {
		d := time.Until(t)
		if d < 0 {
			return 0
		}
		return d
	}
	return 0
}
