// Package registry implements the incremental registry mirror loader (C2):
// it walks a directory tree of the form data/<category>/<entry> and
// incrementally syncs it into the storage layer, following the decision
// table of spec §4.2. Grounded directly on LmdbStorage::populate_from_registry
// in original_source/src/storage/lmdb.rs, re-expressed with bbolt as the
// backing store and a logr.Logger in place of the original's tracing macros.
package registry

import (
	"os"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"

	"whoisd/internal/storage"
	"whoisd/internal/whoiserr"
)

// Stats summarizes one sync pass, mirroring the added/updated/skipped/removed
// counters the original logs at the end of populate_from_registry.
type Stats struct {
	Added     int
	Updated   int
	Unchanged int
	Removed   int
	Errors    int
}

// Loader walks Path/data/*/* into Store.
type Loader struct {
	Store *storage.Store
	Path  string
	Log   logr.Logger
}

func New(store *storage.Store, path string, log logr.Logger) *Loader {
	return &Loader{Store: store, Path: path, Log: log}
}

// Sync performs one incremental pass per spec §4.2's algorithm.
func (l *Loader) Sync() (Stats, error) {
	var st Stats
	dataPath := filepath.Join(l.Path, "data")
	entries, err := os.ReadDir(dataPath)
	if err != nil {
		return st, whoiserr.Wrap(whoiserr.Internal, "registry data directory not found: "+dataPath, err)
	}

	seen := make(map[string]struct{})

	for _, categoryEntry := range entries {
		if !categoryEntry.IsDir() {
			continue
		}
		category := categoryEntry.Name()
		categoryPath := filepath.Join(dataPath, category)

		files, err := os.ReadDir(categoryPath)
		if err != nil {
			l.Log.Error(err, "failed to read category directory", "category", category)
			st.Errors++
			continue
		}

		for _, fileEntry := range files {
			if fileEntry.IsDir() {
				continue
			}
			key := category + "/" + fileEntry.Name()
			seen[key] = struct{}{}

			filePath := filepath.Join(categoryPath, fileEntry.Name())
			info, err := fileEntry.Info()
			if err != nil {
				l.Log.Error(err, "failed to stat file", "path", filePath)
				st.Errors++
				continue
			}
			current := storage.FileMeta{Size: uint64(info.Size()), Modified: info.ModTime().Unix()}

			stored, found, err := l.Store.GetMeta(key)
			if err != nil {
				l.Log.Error(err, "failed to read stored metadata", "key", key)
				st.Errors++
				continue
			}

			switch {
			case !found:
				if err := l.writeFile(key, filePath, current); err != nil {
					st.Errors++
					continue
				}
				st.Added++
			case stored == current:
				st.Unchanged++
			default:
				if err := l.writeFile(key, filePath, current); err != nil {
					st.Errors++
					continue
				}
				st.Updated++
			}
		}
	}

	removed, err := l.sweep(seen)
	if err != nil {
		return st, err
	}
	st.Removed = removed

	l.Log.Info("registry sync completed",
		"added", st.Added, "updated", st.Updated,
		"unchanged", st.Unchanged, "removed", st.Removed, "errors", st.Errors)
	return st, nil
}

func (l *Loader) writeFile(key, filePath string, meta storage.FileMeta) error {
	content, err := os.ReadFile(filePath)
	if err != nil {
		l.Log.Error(err, "failed to read file", "path", filePath)
		return err
	}
	if err := l.Store.PutWithMeta(key, content, meta); err != nil {
		l.Log.Error(err, "failed to write content/meta", "key", key)
		return err
	}
	return nil
}

// sweep deletes any content key not present in the current filesystem walk,
// per spec §4.2 step 5.
func (l *Loader) sweep(seen map[string]struct{}) (int, error) {
	keys, err := l.Store.AllKeys()
	if err != nil {
		return 0, whoiserr.Wrap(whoiserr.Internal, "failed to list storage keys", err)
	}
	removed := 0
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}
		if err := l.Store.Delete(key); err != nil {
			l.Log.Error(err, "failed to delete stale key", "key", key)
			continue
		}
		removed++
	}
	return removed, nil
}

// StartPeriodic runs Sync immediately and then on every interval until ctx
// is done. Intended to be invoked alongside the C7 maintainer loops under
// the same errgroup in main.
func (l *Loader) StartPeriodic(interval time.Duration, stop <-chan struct{}) {
	if _, err := l.Sync(); err != nil {
		l.Log.Error(err, "initial registry sync failed")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, err := l.Sync(); err != nil {
				l.Log.Error(err, "periodic registry sync failed")
			}
		}
	}
}
