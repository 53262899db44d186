// Package maintainer implements the periodic maintainer (C7): two
// independent loops that keep TTL-governed datasets in the storage layer
// fresh, each guarded by a compare-exchange "in-flight" flag so concurrent
// ticks never overlap (spec invariant I6).
//
// Grounded on original_source/src/services/manrs.rs (ManrsChecker's
// is_cache_expired/refresh_cache) and pen.rs (PenService's
// needs_update/force_update/parse_pen_data_batched), re-expressed with
// storage.Store in place of SharedLmdbStorage and a sync/atomic bool in
// place of the Rust AtomicBool compare_exchange.
package maintainer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"

	"whoisd/internal/storage"
	"whoisd/internal/whoiserr"
)

const (
	membershipAPIURL     = "https://api.manrs.org/asns"
	membershipSetKey     = "maintainer:manrs:asns"
	membershipUpdatedKey = "maintainer:manrs:updated_at"

	// MembershipTTL is the staleness threshold before a refresh is due
	// (spec §4.7: "14-day TTL").
	MembershipTTL = 14 * 24 * time.Hour
	// MembershipTickInterval is how often the loop re-checks staleness
	// after its initial check (spec §4.7: "wake every 1 h").
	MembershipTickInterval = time.Hour
)

// MembershipSet is the MANRS-style cached ASN set (spec §3 MembershipSet).
type MembershipSet struct {
	Members   []uint64 `json:"members"`
	UpdatedAt int64    `json:"updated_at"`
}

type membershipAPIResponse struct {
	ASNs []uint64 `json:"asns"`
}

// MembershipLoop refreshes the MANRS membership set on a timer.
type MembershipLoop struct {
	Store      *storage.Store
	Log        logr.Logger
	HTTPClient *http.Client
	APIURL     string

	inFlight atomic.Bool
}

// NewMembershipLoop returns a loop reading/writing store, using
// http.DefaultClient unless overridden.
func NewMembershipLoop(store *storage.Store, log logr.Logger) *MembershipLoop {
	return &MembershipLoop{
		Store:      store,
		Log:        log.WithName("maintainer.manrs"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		APIURL:     membershipAPIURL,
	}
}

// Get returns the cached membership set, whether it's present at all, and
// whether it is stale (spec §4.6's "-MANRS" handler needs both: a present-
// but-stale set is still served, annotated).
func (l *MembershipLoop) Get() (MembershipSet, bool, error) {
	var set MembershipSet
	found, err := l.Store.GetJSON(membershipSetKey, &set)
	if err != nil || !found {
		return MembershipSet{}, found, err
	}
	return set, true, nil
}

func (l *MembershipLoop) isStale(set MembershipSet, found bool) bool {
	if !found {
		return true
	}
	age := time.Since(time.Unix(set.UpdatedAt, 0))
	return age > MembershipTTL
}

// Stale reports whether a previously-read set (as returned by Get) is
// past its TTL; exported for handlers that need an on-demand staleness
// check outside the loop's own tick.
func (l *MembershipLoop) Stale(set MembershipSet, found bool) bool {
	return l.isStale(set, found)
}

// RefreshNow triggers an immediate refresh attempt, guarded by the same
// in-flight flag as the periodic tick (spec invariant I6).
func (l *MembershipLoop) RefreshNow(ctx context.Context) error {
	return l.refreshIfNotRunning(ctx)
}

// Run blocks, performing an immediate refresh-if-stale check and then
// ticking every MembershipTickInterval until ctx is cancelled. Per spec
// §5 ("periodic maintainer tasks are never externally cancelled"), ctx
// cancellation here only stops the loop for process shutdown; it never
// interrupts a refresh already in flight.
func (l *MembershipLoop) Run(ctx context.Context) {
	l.tick(ctx)

	ticker := time.NewTicker(MembershipTickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

func (l *MembershipLoop) tick(ctx context.Context) {
	set, found, err := l.Get()
	if err != nil {
		l.Log.Error(err, "reading cached membership set")
	}
	if !l.isStale(set, found) {
		return
	}
	if err := l.refreshIfNotRunning(ctx); err != nil {
		l.Log.Error(err, "membership set refresh failed, keeping stale data")
	}
}

// refreshIfNotRunning guards the refresh body with a compare-exchange
// so two ticks (the startup check and a timer fire racing it) never run
// concurrently (spec invariant I6).
func (l *MembershipLoop) refreshIfNotRunning(ctx context.Context) error {
	if !l.inFlight.CompareAndSwap(false, true) {
		l.Log.V(1).Info("membership refresh already in flight, skipping")
		return nil
	}
	defer l.inFlight.Store(false)

	return l.refresh(ctx)
}

func (l *MembershipLoop) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.APIURL, nil)
	if err != nil {
		return whoiserr.Wrap(whoiserr.Internal, "building MANRS request", err)
	}
	req.Header.Set("User-Agent", "whoisd/1.0")

	resp, err := l.HTTPClient.Do(req)
	if err != nil {
		return whoiserr.Upstream("manrs", "fetching membership set", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return whoiserr.Upstream("manrs", fmt.Sprintf("HTTP %d", resp.StatusCode), nil)
	}

	var body membershipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return whoiserr.Malformed("manrs", "decoding membership response", err)
	}

	set := MembershipSet{Members: body.ASNs, UpdatedAt: time.Now().Unix()}
	if err := l.Store.PutJSON(membershipSetKey, set); err != nil {
		return err
	}
	l.Log.Info("refreshed MANRS membership set", "members", len(set.Members))
	return nil
}
