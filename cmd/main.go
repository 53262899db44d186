// Command whoisd is the WHOIS query dispatch & enrichment server (spec
// §1 OVERVIEW): it mirrors the IANA/RIR registry data (C2) into the
// embedded store (C1), classifies and dispatches incoming queries across
// the full tag set (C5/C6), enriches responses from the upstream services
// each tag targets (C3/C4), keeps the two maintainer datasets fresh (C7),
// and serves all of it over the TCP front end (C8).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	redis "github.com/go-redis/redis/v7"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"whoisd/internal/cache"
	"whoisd/internal/config"
	"whoisd/internal/handlers"
	"whoisd/internal/ratelimit"
	"whoisd/internal/registry"
	"whoisd/internal/server"
	"whoisd/internal/storage"
)

// registrySyncInterval bounds how often the registry mirror loader (C2)
// re-walks its directory tree for changes, once the initial sync at startup
// has completed.
const registrySyncInterval = 6 * time.Hour

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "whoisd:", err)
		os.Exit(2)
	}

	log := newLogger(cfg.Development)

	store, err := storage.Open(cfg.StoragePath)
	if err != nil {
		log.Error(err, "unable to open storage")
		os.Exit(1)
	}
	defer store.Close()

	reg := registry.New(store, cfg.RegistryPath, log)

	deps := handlers.NewDeps(store, reg, log)
	deps.SteamAPIKey = cfg.SteamAPIKey
	deps.OMDBAPIKey = cfg.OMDBAPIKey
	deps.GeoAPIKey = cfg.GeoAPIKey
	deps.CurseForgeAPIKey = cfg.CurseForgeAPIKey
	deps.HandlerDeadline = cfg.HandlerDeadline
	deps.MaxParallel = cfg.MaxParallel

	if cfg.CacheRedisAddr != "" {
		log.Info("using redis-backed cache", "addr", cfg.CacheRedisAddr)
		deps.Cache = cache.NewRedis(redis.NewClient(&redis.Options{Addr: cfg.CacheRedisAddr}), "whoisd:cache:")
	}
	if cfg.RateLimitRedisAddr != "" {
		log.Info("using redis-backed rate limiter", "addr", cfg.RateLimitRedisAddr)
		deps.Limiter = ratelimit.NewRedis(redis.NewClient(&redis.Options{Addr: cfg.RateLimitRedisAddr}), "whoisd:ratelimit:", handlers.DefaultUpstreamLimits)
	}

	srv := server.New(cfg.ListenAddr, deps, log)
	srv.ConnTimeout = cfg.ConnTimeout

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	log.Info("starting whois server", "addr", cfg.ListenAddr)
	g.Go(func() error {
		return ignoreCanceled(srv.ListenAndServe(ctx))
	})

	log.Info("starting registry mirror sync loop", "path", cfg.RegistryPath, "interval", registrySyncInterval)
	g.Go(func() error {
		reg.StartPeriodic(registrySyncInterval, ctx.Done())
		return nil
	})

	log.Info("starting membership maintainer loop")
	g.Go(func() error {
		deps.Membership.Run(ctx)
		return nil
	})

	log.Info("starting PEN maintainer loop")
	g.Go(func() error {
		deps.Pen.Run(ctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error(err, "unable to start")
		os.Exit(1)
	}
}

// newLogger wires go.uber.org/zap through github.com/go-logr/zapr into the
// logr.Logger interface every component accepts, the same zap/logr pairing
// the teacher obtains via sigs.k8s.io/controller-runtime/pkg/log/zap, minus
// the controller-runtime dependency this server has no other use for.
func newLogger(development bool) logr.Logger {
	var zapCfg zap.Config
	if development {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zl, err := zapCfg.Build()
	if err != nil {
		panic(fmt.Sprintf("whoisd: building logger: %s", err))
	}
	return zapr.NewLogger(zl).WithName("whoisd")
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
