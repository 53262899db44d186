package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseRetryAfterHeader_DeltaSeconds(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0*time.Second, ParseRetryAfterHeader(""))
	require.Equal(t, 0*time.Second, ParseRetryAfterHeader("   "))
	require.Equal(t, 120*time.Second, ParseRetryAfterHeader("120"))
	require.Equal(t, 0*time.Second, ParseRetryAfterHeader("-5"))
}

func TestParseRetryAfterHeader_HTTPDate(t *testing.T) {
	t.Parallel()

	target := time.Now().Add(5 * time.Second).UTC().Truncate(time.Second)
	d := ParseRetryAfterHeader(target.Format(time.RFC1123))
	require.GreaterOrEqual(t, d, 3*time.Second)
	require.LessOrEqual(t, d, 6*time.Second)
}
