package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseCrtTime(t *testing.T) {
	cases := []string{
		"2024-01-02T15:04:05.999Z",
		"2024-01-02T15:04:05Z",
		"2024-01-02 15:04:05",
	}
	for _, s := range cases {
		got, ok := parseCrtTime(s)
		require.True(t, ok, s)
		require.Equal(t, 2024, got.Year())
	}
}

func TestParseCrtTime_Invalid(t *testing.T) {
	_, ok := parseCrtTime("not a time")
	require.False(t, ok)
}

func TestCrtClient_CarriesDescriptiveUserAgent(t *testing.T) {
	require.Contains(t, crtClient.UserAgent, "Certificate Transparency")
	require.Equal(t, 20*time.Second, crtClient.Timeout)
}
