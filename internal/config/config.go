// Package config centralizes the server's CLI-flag-driven settings,
// following the teacher's cmd/main.go convention of flag.StringVar /
// flag.BoolVar / flag.IntVar into package-level variables rather than
// introducing a flags/viper layer the teacher doesn't have.
package config

import (
	"flag"
	"os"
	"time"

	"whoisd/internal/enrich"
	"whoisd/internal/handlers"
	"whoisd/internal/server"
)

// Config is the fully resolved set of server settings, populated by Parse.
type Config struct {
	ListenAddr string

	Development bool

	RegistryPath string
	StoragePath  string

	SteamAPIKey      string
	OMDBAPIKey       string
	GeoAPIKey        string
	CurseForgeAPIKey string

	MaxParallel     int
	HandlerDeadline time.Duration
	ConnTimeout     time.Duration

	CacheRedisAddr     string
	RateLimitRedisAddr string
}

// Defaults mirrors the teacher's internal/config/defaults.go convention of
// centralizing default constants in one place rather than scattering
// literals across flag.StringVar calls.
func Defaults() Config {
	return Config{
		ListenAddr:      ":43",
		Development:     true,
		RegistryPath:    "./registry",
		StoragePath:     "./data/whoisd.db",
		MaxParallel:     enrich.DefaultMaxParallel,
		HandlerDeadline: handlers.DefaultHandlerDeadline,
		ConnTimeout:     server.DefaultConnTimeout,
	}
}

// Parse builds a Config from CLI flags, falling back to Defaults() for any
// flag left unset. API keys are never required; handlers that need one
// degrade gracefully when it's empty (spec §4.6, e.g. -STEAM/-IMDB/-GEO).
func Parse(args []string) (Config, error) {
	d := Defaults()
	fs := flag.NewFlagSet("whoisd", flag.ContinueOnError)

	cfg := Config{}
	fs.StringVar(&cfg.ListenAddr, "listen-address", d.ListenAddr, "The address the WHOIS server binds to.")
	fs.BoolVar(&cfg.Development, "development", d.Development, "Use human-readable console logging instead of JSON.")
	fs.StringVar(&cfg.RegistryPath, "registry-path", d.RegistryPath, "Path to the registry mirror directory synced by the loader.")
	fs.StringVar(&cfg.StoragePath, "storage-path", d.StoragePath, "Path to the bbolt storage file.")
	fs.IntVar(&cfg.MaxParallel, "max-parallel-enrichment", d.MaxParallel, "Maximum concurrent upstream fan-out per query.")
	fs.DurationVar(&cfg.HandlerDeadline, "handler-deadline", d.HandlerDeadline, "Per-query handler timeout.")
	fs.DurationVar(&cfg.ConnTimeout, "connection-timeout", d.ConnTimeout, "Per-connection timeout covering preface, query read, and dispatch.")
	fs.StringVar(&cfg.CacheRedisAddr, "cache-redis-address", "", "Redis address for the enrichment cache; empty uses the in-memory cache.")
	fs.StringVar(&cfg.RateLimitRedisAddr, "ratelimit-redis-address", "", "Redis address for the rate limiter; empty uses the in-memory limiter.")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.SteamAPIKey = os.Getenv("WHOISD_STEAM_API_KEY")
	cfg.OMDBAPIKey = os.Getenv("WHOISD_OMDB_API_KEY")
	cfg.GeoAPIKey = os.Getenv("WHOISD_GEO_API_KEY")
	cfg.CurseForgeAPIKey = os.Getenv("WHOISD_CURSEFORGE_API_KEY")

	return cfg, nil
}
