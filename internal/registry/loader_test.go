package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"

	"whoisd/internal/storage"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestSyncAddsFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "data", "aut-num", "AS4242420000"), "aut-num: AS4242420000\n")

	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer store.Close()

	l := New(store, root, logr.Discard())
	st, err := l.Sync()
	require.NoError(t, err)
	require.Equal(t, 1, st.Added)

	v, found, err := store.Get("aut-num/AS4242420000")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "aut-num: AS4242420000\n", string(v))
}

func TestSyncSkipsUnchanged(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "data", "domain", "example.com"), "domain: EXAMPLE.COM\n")

	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer store.Close()

	l := New(store, root, logr.Discard())
	_, err = l.Sync()
	require.NoError(t, err)

	st2, err := l.Sync()
	require.NoError(t, err)
	require.Equal(t, 0, st2.Added)
	require.Equal(t, 0, st2.Updated)
	require.Equal(t, 1, st2.Unchanged)
}

func TestSyncDetectsUpdate(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "data", "domain", "example.com")
	writeFile(t, path, "v1\n")

	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer store.Close()

	l := New(store, root, logr.Discard())
	_, err = l.Sync()
	require.NoError(t, err)

	// Ensure the modification time actually advances on filesystems with
	// coarse mtime granularity.
	future := time.Now().Add(2 * time.Second)
	writeFile(t, path, "v2\n")
	require.NoError(t, os.Chtimes(path, future, future))

	st2, err := l.Sync()
	require.NoError(t, err)
	require.Equal(t, 1, st2.Updated)

	v, _, err := store.Get("domain/example.com")
	require.NoError(t, err)
	require.Equal(t, "v2\n", string(v))
}

func TestSyncSweepsDeletedFiles(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "data", "domain", "gone.com")
	writeFile(t, path, "content\n")

	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer store.Close()

	l := New(store, root, logr.Discard())
	_, err = l.Sync()
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))
	st2, err := l.Sync()
	require.NoError(t, err)
	require.Equal(t, 1, st2.Removed)

	_, found, err := store.Get("domain/gone.com")
	require.NoError(t, err)
	require.False(t, found)

	_, found, err = store.GetMeta("domain/gone.com")
	require.NoError(t, err)
	require.False(t, found, "meta must not outlive content (spec invariant I1/§3)")
}
