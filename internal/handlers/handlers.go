// Package handlers implements one response-rendering function per suffix
// tag plus the default domain/IP/ASN/CIDR handler (C6). Each handler takes
// a classified query and the shared Deps bundle and returns the response
// body as bytes; handlers never return an error to the caller — any
// failure is rendered as an explanatory "% ..." text block, matching the
// original implementation's "degrade gracefully, never 5xx" posture
// (see e.g. original_source/src/services/crt.rs's query_crt catching its
// own fetch error into formatted text).
package handlers

import (
	"context"
	"time"

	"github.com/go-logr/logr"

	"whoisd/internal/cache"
	"whoisd/internal/enrich"
	"whoisd/internal/maintainer"
	"whoisd/internal/query"
	"whoisd/internal/ratelimit"
	"whoisd/internal/registry"
	"whoisd/internal/storage"
	"whoisd/internal/upstream/dnsresolve"
	"whoisd/internal/upstream/traceroute"
)

// Deps bundles every component a handler might need, constructed once in
// main and passed down, per the "no package-level globals" rule carried
// from the teacher's controller-construction style.
type Deps struct {
	Store      *storage.Store
	Registry   *registry.Loader
	Log        logr.Logger
	Resolver   *dnsresolve.Resolver
	Trace      *traceroute.Manager
	Membership *maintainer.MembershipLoop
	Pen        *maintainer.PenLoop

	// Cache holds short-TTL responses from upstream HTTP APIs, keyed by
	// request URL, so that repeated queries for the same resource within
	// a cache's TTL window don't re-hit the upstream (spec §5.3).
	Cache cache.Cache
	// Limiter gates every outbound fetchJSON/fetchText call by upstream
	// host, keeping one slow or strict upstream from starving the others
	// (spec §5.3).
	Limiter ratelimit.Limiter

	SteamAPIKey      string
	OMDBAPIKey       string
	GeoAPIKey        string
	CurseForgeAPIKey string
	HandlerDeadline  time.Duration
	MaxParallel      int
}

// DefaultHandlerDeadline bounds any single handler invocation (spec §5:
// "connection-level ... default 30s").
const DefaultHandlerDeadline = 30 * time.Second

// DefaultFetchCacheTTL bounds how long an upstream HTTP response is reused
// before fetchJSON/fetchText go back to the network.
const DefaultFetchCacheTTL = 60 * time.Second

// DefaultUpstreamLimits is applied to every upstream host fetchJSON/fetchText
// rate-limits, absent a more specific per-host policy.
var DefaultUpstreamLimits = ratelimit.Limits{
	RatePerSec: 5,
	Burst:      10,
	Block:      5 * time.Second,
}

// NewDeps returns a Deps with the ambient defaults filled in: an in-memory
// cache and rate limiter, swapped for Redis-backed ones by main when a
// Redis address is configured.
func NewDeps(store *storage.Store, reg *registry.Loader, log logr.Logger) *Deps {
	return &Deps{
		Store:           store,
		Registry:        reg,
		Log:             log,
		Resolver:        dnsresolve.New(),
		Trace:           traceroute.Global(),
		Membership:      maintainer.NewMembershipLoop(store, log),
		Pen:             maintainer.NewPenLoop(store, log),
		Cache:           cache.NewMemory(),
		Limiter:         ratelimit.NewMemory(DefaultUpstreamLimits),
		HandlerDeadline: DefaultHandlerDeadline,
		MaxParallel:     enrich.DefaultMaxParallel,
	}
}

// Handle dispatches a classified query to the handler matching its tag (or
// the default handler when Tag is empty), per spec §4.6.
func (d *Deps) Handle(ctx context.Context, q query.Query) []byte {
	ctx, cancel := context.WithTimeout(ctx, d.HandlerDeadline)
	defer cancel()

	fn, ok := dispatch[q.Tag]
	if !ok {
		return d.handleDefault(ctx, q)
	}
	return fn(d, ctx, q)
}

type handlerFunc func(d *Deps, ctx context.Context, q query.Query) []byte

// dispatch maps every tag in the closed set (spec §6) to its handler.
// Populated by init() in each handler's own file so each tag's
// implementation stays next to its registration.
var dispatch = map[string]handlerFunc{}

func register(tag string, fn handlerFunc) {
	dispatch[tag] = fn
}

func registerAll(tags []string, fn handlerFunc) {
	for _, t := range tags {
		dispatch[t] = fn
	}
}
