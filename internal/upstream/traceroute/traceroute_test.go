package traceroute

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStripANSI(t *testing.T) {
	input := "\x1b[32mhop 1\x1b[0m 10.0.0.1\n\x1b[1;31mhop 2\x1b[0m 10.0.0.2\n"
	require.Equal(t, "hop 1 10.0.0.1\nhop 2 10.0.0.2\n", StripANSI(input))
}

func TestStripANSINoEscapesUnchanged(t *testing.T) {
	require.Equal(t, "plain text", StripANSI("plain text"))
}

func TestPlatformBinarySelection(t *testing.T) {
	name, url := platformBinary()
	require.NotEmpty(t, name)
	require.Contains(t, url, "nxtrace/NTrace-core")
}

func TestNewManagerDefaultsCacheDir(t *testing.T) {
	m := NewManager("")
	require.Equal(t, DefaultCacheDir, m.CacheDir)
}

func TestNewManagerHonorsGivenCacheDir(t *testing.T) {
	m := NewManager("/tmp/custom-cache")
	require.Equal(t, "/tmp/custom-cache", m.CacheDir)
}
