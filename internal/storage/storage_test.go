package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutGetDelete(t *testing.T) {
	s := openTemp(t)

	_, found, err := s.Get("aut-num/AS4242420000")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, s.Put("aut-num/AS4242420000", []byte("aut-num: AS4242420000\n")))
	v, found, err := s.Get("aut-num/AS4242420000")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "aut-num: AS4242420000\n", string(v))

	require.NoError(t, s.Delete("aut-num/AS4242420000"))
	_, found, err = s.Get("aut-num/AS4242420000")
	require.NoError(t, err)
	require.False(t, found)

	// Deleting a missing key is success (idempotent).
	require.NoError(t, s.Delete("aut-num/AS4242420000"))
}

func TestEmptyValueDistinctFromAbsent(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.Put("k", []byte{}))
	v, found, err := s.Get("k")
	require.NoError(t, err)
	require.True(t, found)
	require.Empty(t, v)
}

func TestMetaInvariant(t *testing.T) {
	s := openTemp(t)
	meta := FileMeta{Size: 10, Modified: 123}
	require.NoError(t, s.PutWithMeta("domain/example.com", []byte("data"), meta))

	got, found, err := s.GetMeta("domain/example.com")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, meta, got)

	require.NoError(t, s.Delete("domain/example.com"))
	_, found, err = s.GetMeta("domain/example.com")
	require.NoError(t, err)
	require.False(t, found)
}

func TestIteratePrefixSkipsMeta(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.PutWithMeta("inetnum/10.0.0.0", []byte("a"), FileMeta{}))
	require.NoError(t, s.PutWithMeta("inetnum/20.0.0.0", []byte("b"), FileMeta{}))
	require.NoError(t, s.Put("domain/example.com", []byte("c")))

	var keys []string
	err := s.IteratePrefix("inetnum/", func(key string, _ []byte) bool {
		keys = append(keys, key)
		return true
	})
	require.NoError(t, err)
	require.Equal(t, []string{"inetnum/10.0.0.0", "inetnum/20.0.0.0"}, keys)
}

func TestIteratePrefixStopsEarly(t *testing.T) {
	s := openTemp(t)
	for _, k := range []string{"x/1", "x/2", "x/3"} {
		require.NoError(t, s.Put(k, []byte("v")))
	}
	var seen int
	_ = s.IteratePrefix("x/", func(string, []byte) bool {
		seen++
		return seen < 2
	})
	require.Equal(t, 2, seen)
}

type cachedThing struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
}

func TestPutJSONGetJSONRoundTrip(t *testing.T) {
	s := openTemp(t)
	in := cachedThing{Number: 9, Name: "example"}
	require.NoError(t, s.PutJSON("pen/9", in))

	var out cachedThing
	found, err := s.GetJSON("pen/9", &out)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, in, out)
}

func TestGetJSONDecodeFailureIsError(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.Put("bad", []byte("not json")))
	var out cachedThing
	_, err := s.GetJSON("bad", &out)
	require.Error(t, err)
}

func TestClearRemovesEverything(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.PutWithMeta("a", []byte("1"), FileMeta{Size: 1}))
	require.NoError(t, s.Clear())

	_, found, err := s.Get("a")
	require.NoError(t, err)
	require.False(t, found)
	_, found, err = s.GetMeta("a")
	require.NoError(t, err)
	require.False(t, found)
}

func TestReopenSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Put("k", []byte("v")))
	require.NoError(t, s.Close())

	_, err = os.Stat(path)
	require.NoError(t, err)

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	v, found, err := s2.Get("k")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "v", string(v))
}
