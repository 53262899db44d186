package maintainer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"

	"whoisd/internal/storage"
)

func openTempStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(filepath.Join(t.TempDir(), "maintainer.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMembershipLoopRefreshesWhenMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(membershipAPIResponse{ASNs: []uint64{64496, 64497}})
	}))
	defer srv.Close()

	l := NewMembershipLoop(openTempStore(t), logr.Discard())
	l.APIURL = srv.URL

	require.NoError(t, l.refresh(context.Background()))

	set, found, err := l.Get()
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []uint64{64496, 64497}, set.Members)
}

func TestMembershipLoopTickSkipsWhenFresh(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(membershipAPIResponse{ASNs: []uint64{1}})
	}))
	defer srv.Close()

	l := NewMembershipLoop(openTempStore(t), logr.Discard())
	l.APIURL = srv.URL

	require.NoError(t, l.Store.PutJSON(membershipSetKey, MembershipSet{Members: []uint64{1}, UpdatedAt: time.Now().Unix()}))

	l.tick(context.Background())
	require.Equal(t, 0, calls)
}

func TestMembershipLoopServesStaleSetOnRefreshFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	l := NewMembershipLoop(openTempStore(t), logr.Discard())
	l.APIURL = srv.URL

	stale := MembershipSet{Members: []uint64{99}, UpdatedAt: time.Now().Add(-30 * 24 * time.Hour).Unix()}
	require.NoError(t, l.Store.PutJSON(membershipSetKey, stale))

	l.tick(context.Background())

	set, found, err := l.Get()
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, stale.Members, set.Members)
}

func TestMembershipLoopInFlightPreventsConcurrentRefresh(t *testing.T) {
	l := NewMembershipLoop(openTempStore(t), logr.Discard())
	l.inFlight.Store(true)

	require.NoError(t, l.refreshIfNotRunning(context.Background()))

	_, found, err := l.Get()
	require.NoError(t, err)
	require.False(t, found)
}

func TestIsStale(t *testing.T) {
	l := NewMembershipLoop(openTempStore(t), logr.Discard())
	require.True(t, l.isStale(MembershipSet{}, false))
	require.False(t, l.isStale(MembershipSet{UpdatedAt: time.Now().Unix()}, true))
	require.True(t, l.isStale(MembershipSet{UpdatedAt: time.Now().Add(-15 * 24 * time.Hour).Unix()}, true))
}
