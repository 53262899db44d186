package maintainer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"
)

const samplePenData = "Decimal\n| Organization\n| | Contact\n| | | Email\n| | | |\n0\n  Reserved\n    Internet Assigned Numbers Authority\n      iana&iana.org\n9\n  ciscoSystems\n    Dave Jones\n      davej&cisco.com\n64537\n  AKAERE NETWORKS TECHNOLOGY LTD\n    Liu HaoRan\n      qq593277393&outlook.com\n"

func newTestPenLoop(t *testing.T) *PenLoop {
	t.Helper()
	return NewPenLoop(openTempStore(t), logr.Discard())
}

func TestPenEntryOIDAndExpiry(t *testing.T) {
	e := newPenEntry(9, "ciscoSystems", "Dave Jones", "davej@cisco.com")
	require.Equal(t, "1.3.6.1.4.1.9", e.OID)
	require.False(t, e.expired())

	e.CachedAt = time.Now().Add(-31 * 24 * time.Hour).Unix()
	require.True(t, e.expired())
}

func TestParseBatchedExtractsAllEntries(t *testing.T) {
	l := newTestPenLoop(t)
	count, err := l.parseBatched(samplePenData)
	require.NoError(t, err)
	require.Equal(t, 3, count)

	entry, found, err := l.LookupNumber(9)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "ciscoSystems", entry.Organization)
	require.Equal(t, "davej@cisco.com", entry.Email)

	entry, found, err = l.LookupNumber(64537)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "AKAERE NETWORKS TECHNOLOGY LTD", entry.Organization)
}

func TestLookupNumberMissing(t *testing.T) {
	l := newTestPenLoop(t)
	_, found, err := l.LookupNumber(123456)
	require.NoError(t, err)
	require.False(t, found)
}

func TestLookupNumberEvictsExpiredEntry(t *testing.T) {
	l := newTestPenLoop(t)
	e := newPenEntry(5, "Old Org", "Someone", "a@b.com")
	e.CachedAt = time.Now().Add(-31 * 24 * time.Hour).Unix()
	require.NoError(t, l.Store.PutJSON(penEntryKey(5), e))

	_, found, err := l.LookupNumber(5)
	require.NoError(t, err)
	require.False(t, found)

	_, found, err = l.Store.GetJSON(penEntryKey(5), &PenEntry{})
	require.NoError(t, err)
	require.False(t, found)
}

func TestSearchFuzzyMatchAcrossFields(t *testing.T) {
	l := newTestPenLoop(t)
	_, err := l.parseBatched(samplePenData)
	require.NoError(t, err)

	result, err := l.Search("cisco")
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	require.False(t, result.Truncated)
	require.Equal(t, uint32(9), result.Entries[0].Number)
}

func TestSearchCapsAtTwentyResults(t *testing.T) {
	l := newTestPenLoop(t)
	for i := uint32(1); i <= 25; i++ {
		e := newPenEntry(i, "Acme Corp", "contact", "a@acme.example")
		require.NoError(t, l.Store.PutJSON(penEntryKey(i), e))
	}

	result, err := l.Search("acme")
	require.NoError(t, err)
	require.Len(t, result.Entries, PenSearchCap)
	require.True(t, result.Truncated)
}

func TestPenLoopDownloadsAndStoresFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(samplePenData))
	}))
	defer srv.Close()

	l := newTestPenLoop(t)
	l.DataURL = srv.URL

	require.NoError(t, l.refresh(context.Background()))

	raw, found, err := l.Store.Get(penFileKey)
	require.NoError(t, err)
	require.True(t, found)
	require.Contains(t, string(raw), "ciscoSystems")

	entry, found, err := l.LookupNumber(9)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "ciscoSystems", entry.Organization)
}

func TestPenLoopNeedsUpdateWhenMissing(t *testing.T) {
	l := newTestPenLoop(t)
	stale, err := l.needsUpdate()
	require.NoError(t, err)
	require.True(t, stale)
}

func TestPenLoopInFlightPreventsConcurrentRefresh(t *testing.T) {
	l := newTestPenLoop(t)
	l.inFlight.Store(true)

	require.NoError(t, l.refreshIfNotRunning(context.Background()))

	_, found, err := l.Store.Get(penFileKey)
	require.NoError(t, err)
	require.False(t, found)
}
