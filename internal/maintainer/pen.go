package maintainer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"

	"whoisd/internal/storage"
	"whoisd/internal/whoiserr"
)

const (
	penDataURL     = "https://www.iana.org/assignments/enterprise-numbers.txt"
	penFileKey     = "maintainer:pen:file"
	penUpdatedKey  = "maintainer:pen:updated_at"
	penEntryPrefix = "maintainer:pen:entry:"

	// PenFileTTL is how stale the downloaded source file may get before a
	// refresh is due (spec §4.7: "immediate check against 24-h age").
	PenFileTTL = 24 * time.Hour
	// PenEntryTTL is the per-entry staleness horizon; expired entries are
	// evicted lazily on read (spec §3 PenEntry: "TTL: 30 days per entry").
	PenEntryTTL = 30 * 24 * time.Hour
	// PenTickInterval mirrors MembershipTickInterval: checked every hour.
	PenTickInterval = time.Hour
	// penBatchSize is the chunk size batch-parsing yields between, so a
	// large registry parse doesn't starve other work (spec §4.7).
	penBatchSize = 10000
	// PenSearchCap bounds fuzzy-search results (spec §4.6 "-PEN").
	PenSearchCap = 20
)

// PenEntry is one IANA Private Enterprise Number record (spec §3 PenEntry).
type PenEntry struct {
	Number       uint32 `json:"number"`
	OID          string `json:"oid"`
	Organization string `json:"organization"`
	Contact      string `json:"contact"`
	Email        string `json:"email"`
	CachedAt     int64  `json:"cached_at"`
}

func newPenEntry(number uint32, organization, contact, email string) PenEntry {
	return PenEntry{
		Number:       number,
		OID:          fmt.Sprintf("1.3.6.1.4.1.%d", number),
		Organization: organization,
		Contact:      contact,
		Email:        email,
		CachedAt:     time.Now().Unix(),
	}
}

func (e PenEntry) expired() bool {
	return time.Since(time.Unix(e.CachedAt, 0)) > PenEntryTTL
}

func penEntryKey(number uint32) string {
	return penEntryPrefix + strconv.FormatUint(uint64(number), 10)
}

// PenLoop refreshes the IANA enterprise-number registry on a timer and
// serves exact/fuzzy lookups against the parsed entries.
type PenLoop struct {
	Store      *storage.Store
	Log        logr.Logger
	HTTPClient *http.Client
	DataURL    string

	inFlight atomic.Bool
}

// NewPenLoop returns a loop reading/writing store.
func NewPenLoop(store *storage.Store, log logr.Logger) *PenLoop {
	return &PenLoop{
		Store:      store,
		Log:        log.WithName("maintainer.pen"),
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		DataURL:    penDataURL,
	}
}

// Run blocks, performing an immediate check-and-refresh and then ticking
// every PenTickInterval until ctx is cancelled.
func (l *PenLoop) Run(ctx context.Context) {
	l.tick(ctx)

	ticker := time.NewTicker(PenTickInterval)
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

func (l *PenLoop) tick(ctx context.Context) {
	stale, err := l.needsUpdate()
	if err != nil {
		l.Log.Error(err, "checking PEN registry staleness")
	}
	if !stale {
		return
	}
	if err := l.refreshIfNotRunning(ctx); err != nil {
		l.Log.Error(err, "PEN registry refresh failed, keeping existing data")
	}
}

func (l *PenLoop) needsUpdate() (bool, error) {
	var updatedAt int64
	found, err := l.Store.GetJSON(penUpdatedKey, &updatedAt)
	if err != nil {
		return true, err
	}
	if !found {
		return true, nil
	}
	return time.Since(time.Unix(updatedAt, 0)) > PenFileTTL, nil
}

// refreshIfNotRunning guards the refresh body with a compare-exchange so
// concurrent ticks never race (spec invariant I6).
func (l *PenLoop) refreshIfNotRunning(ctx context.Context) error {
	if !l.inFlight.CompareAndSwap(false, true) {
		l.Log.V(1).Info("PEN registry refresh already in flight, skipping")
		return nil
	}
	defer l.inFlight.Store(false)

	return l.refresh(ctx)
}

func (l *PenLoop) refresh(ctx context.Context) error {
	content, err := l.download(ctx)
	if err != nil {
		return err
	}

	if err := l.Store.Put(penFileKey, []byte(content)); err != nil {
		return err
	}

	count, err := l.parseBatched(content)
	if err != nil {
		return err
	}

	if err := l.Store.PutJSON(penUpdatedKey, time.Now().Unix()); err != nil {
		return err
	}
	l.Log.Info("refreshed PEN registry", "entries", count)
	return nil
}

func (l *PenLoop) download(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.DataURL, nil)
	if err != nil {
		return "", whoiserr.Wrap(whoiserr.Internal, "building PEN download request", err)
	}
	// Realistic browser user agent, per spec §4.6: "Source file is
	// downloaded with a realistic browser user agent."
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")

	resp, err := l.HTTPClient.Do(req)
	if err != nil {
		return "", whoiserr.Upstream("pen", "downloading enterprise-numbers registry", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", whoiserr.Upstream("pen", fmt.Sprintf("HTTP %d", resp.StatusCode), nil)
	}

	var sb strings.Builder
	buf := make([]byte, 32*1024)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			sb.Write(buf[:n])
		}
		if err != nil {
			break
		}
	}
	return sb.String(), nil
}

// parseBatched parses the `number / organization / contact / email`
// quadruple-line format (spec §9 "PEN/enterprise-numbers source text
// format"), writing entries in chunks of penBatchSize and yielding between
// chunks so a large parse doesn't starve other goroutines.
func (l *PenLoop) parseBatched(content string) (int, error) {
	lines := strings.Split(content, "\n")
	i := 0
	for i < len(lines) && !isEnterpriseNumberLine(lines[i]) {
		i++
	}

	count := 0
	batch := 0
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		number, ok := parseEnterpriseNumber(line)
		if !ok {
			i++
			continue
		}
		if i+3 >= len(lines) {
			break
		}
		orgLine, contactLine, emailLine := lines[i+1], lines[i+2], lines[i+3]
		if !strings.HasPrefix(orgLine, "  ") || !strings.HasPrefix(contactLine, "    ") || !strings.HasPrefix(emailLine, "      ") {
			i++
			continue
		}

		entry := newPenEntry(
			number,
			strings.TrimSpace(orgLine),
			strings.TrimSpace(contactLine),
			strings.ReplaceAll(strings.TrimSpace(emailLine), "&", "@"),
		)
		if err := l.Store.PutJSON(penEntryKey(number), entry); err != nil {
			l.Log.Error(err, "caching PEN entry", "number", number)
		}
		count++
		batch++
		i += 4

		if batch >= penBatchSize {
			runtime.Gosched()
			batch = 0
		}
	}
	return count, nil
}

func isEnterpriseNumberLine(line string) bool {
	_, ok := parseEnterpriseNumber(strings.TrimSpace(line))
	return ok
}

func parseEnterpriseNumber(s string) (uint32, bool) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}

// LookupNumber returns the rendered PEN entry for an exact number, evicting
// it first if expired (spec §3 "expired single entries are evicted on
// read").
func (l *PenLoop) LookupNumber(number uint32) (PenEntry, bool, error) {
	var entry PenEntry
	found, err := l.Store.GetJSON(penEntryKey(number), &entry)
	if err != nil || !found {
		return PenEntry{}, false, err
	}
	if entry.expired() {
		_ = l.Store.Delete(penEntryKey(number))
		return PenEntry{}, false, nil
	}
	return entry, true, nil
}

// SearchResult is the outcome of a fuzzy PEN search.
type SearchResult struct {
	Entries   []PenEntry
	Truncated bool
}

// Search performs a case-insensitive substring search across organization,
// contact, and email fields, capped at PenSearchCap results with an
// overflow flag (spec §4.6: "capped at 20 results with overflow banner").
func (l *PenLoop) Search(query string) (SearchResult, error) {
	q := strings.ToLower(query)
	var result SearchResult

	err := l.Store.IteratePrefix(penEntryPrefix, func(key string, value []byte) bool {
		var entry PenEntry
		if json.Unmarshal(value, &entry) != nil {
			return true
		}
		if entry.expired() {
			return true
		}
		if strings.Contains(strings.ToLower(entry.Organization), q) ||
			strings.Contains(strings.ToLower(entry.Contact), q) ||
			strings.Contains(strings.ToLower(entry.Email), q) {
			result.Entries = append(result.Entries, entry)
			if len(result.Entries) >= PenSearchCap {
				result.Truncated = true
				return false
			}
		}
		return true
	})
	return result, err
}
