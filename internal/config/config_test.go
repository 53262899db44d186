package config

import (
	"flag"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	d := Defaults()
	require.Equal(t, ":43", d.ListenAddr)
	require.True(t, d.Development)
	require.Equal(t, "./registry", d.RegistryPath)
	require.Equal(t, "./data/whoisd.db", d.StoragePath)
	require.Greater(t, d.MaxParallel, 0)
	require.Greater(t, d.HandlerDeadline, time.Duration(0))
	require.Greater(t, d.ConnTimeout, time.Duration(0))
}

func TestParse_NoArgsUsesDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	d := Defaults()
	require.Equal(t, d.ListenAddr, cfg.ListenAddr)
	require.Equal(t, d.RegistryPath, cfg.RegistryPath)
	require.Equal(t, d.StoragePath, cfg.StoragePath)
	require.Equal(t, d.MaxParallel, cfg.MaxParallel)
	require.Equal(t, d.HandlerDeadline, cfg.HandlerDeadline)
	require.Equal(t, d.ConnTimeout, cfg.ConnTimeout)
	require.Empty(t, cfg.CacheRedisAddr)
	require.Empty(t, cfg.RateLimitRedisAddr)
}

func TestParse_FlagsOverrideDefaults(t *testing.T) {
	cfg, err := Parse([]string{
		"-listen-address", ":4343",
		"-development=false",
		"-registry-path", "/var/whoisd/registry",
		"-storage-path", "/var/whoisd/data.db",
		"-max-parallel-enrichment", "4",
		"-handler-deadline", "10s",
		"-connection-timeout", "2s",
		"-cache-redis-address", "127.0.0.1:6379",
		"-ratelimit-redis-address", "127.0.0.1:6380",
	})
	require.NoError(t, err)
	require.Equal(t, ":4343", cfg.ListenAddr)
	require.False(t, cfg.Development)
	require.Equal(t, "/var/whoisd/registry", cfg.RegistryPath)
	require.Equal(t, "/var/whoisd/data.db", cfg.StoragePath)
	require.Equal(t, 4, cfg.MaxParallel)
	require.Equal(t, 10*time.Second, cfg.HandlerDeadline)
	require.Equal(t, 2*time.Second, cfg.ConnTimeout)
	require.Equal(t, "127.0.0.1:6379", cfg.CacheRedisAddr)
	require.Equal(t, "127.0.0.1:6380", cfg.RateLimitRedisAddr)
}

func TestParse_APIKeysFromEnv(t *testing.T) {
	t.Setenv("WHOISD_STEAM_API_KEY", "steam-key")
	t.Setenv("WHOISD_OMDB_API_KEY", "omdb-key")
	t.Setenv("WHOISD_GEO_API_KEY", "geo-key")
	t.Setenv("WHOISD_CURSEFORGE_API_KEY", "cf-key")

	cfg, err := Parse(nil)
	require.NoError(t, err)
	require.Equal(t, "steam-key", cfg.SteamAPIKey)
	require.Equal(t, "omdb-key", cfg.OMDBAPIKey)
	require.Equal(t, "geo-key", cfg.GeoAPIKey)
	require.Equal(t, "cf-key", cfg.CurseForgeAPIKey)
}

func TestParse_InvalidFlagReturnsError(t *testing.T) {
	_, err := Parse([]string{"-max-parallel-enrichment", "not-a-number"})
	require.Error(t, err)
}

func TestParse_HelpFlagReturnsErrHelp(t *testing.T) {
	_, err := Parse([]string{"-help"})
	require.ErrorIs(t, err, flag.ErrHelp)
}
