// Package storage implements the embedded ordered key→bytes store (C1):
// a BoltDB-backed mmap key-value engine with per-key sidecar metadata used
// for change detection by the registry mirror loader.
//
// Grounded on the BoltDB architecture described for the storage layer of
// cuemby-warren (other_examples manifest): single mmap'd file, MVCC
// transactions (db.View for readers, db.Update for the writer), buckets for
// namespacing. We use one bucket for content and a second for the
// "__meta__" sidecar so a prefix scan over content never has to skip keys
// by string comparison.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"whoisd/internal/whoiserr"
)

var (
	contentBucket = []byte("content")
	metaBucket    = []byte("meta")
)

// FileMeta is the sidecar metadata recorded alongside every content key,
// used by the registry loader to detect unchanged files without re-reading
// them (spec §3, §4.2).
type FileMeta struct {
	Size     uint64 `json:"size"`
	Modified int64  `json:"modified"`
}

// Store is the C1 contract: put/get/delete/iteratePrefix plus JSON helpers
// layered on the primitive byte API.
type Store struct {
	db      *bolt.DB
	maxSize int64
}

// DefaultMaxSize is the soft ceiling referenced by spec §4.1 ("sized for
// ≈1 GiB"). bbolt itself grows its mmap on demand, so this is enforced as
// an explicit check before each write rather than a fixed map_size.
const DefaultMaxSize = 1 << 30

// Open creates (if needed) and opens the embedded store at path, sized for
// roughly 1 GiB per spec §4.1's size limit.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, whoiserr.Wrap(whoiserr.Internal, "failed to open storage", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(contentBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(metaBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, whoiserr.Wrap(whoiserr.Internal, "failed to initialize storage buckets", err)
	}
	return &Store{db: db, maxSize: DefaultMaxSize}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Put overwrites key with value, writing content and, when meta is
// provided, the sidecar metadata in the same transaction so the invariant
// "meta exists iff content exists" (spec §3) holds for any external
// observer between transactions.
func (s *Store) Put(key string, value []byte) error {
	if err := s.checkCapacity(int64(len(value))); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(contentBucket).Put([]byte(key), value)
	})
}

// checkCapacity rejects a write that would push the store past maxSize,
// surfacing the distinguishable ErrTooLarge kind spec §4.1 calls for.
func (s *Store) checkCapacity(incoming int64) error {
	if s.maxSize <= 0 {
		return nil
	}
	if s.db.Size()+incoming > s.maxSize {
		return whoiserr.Wrap(whoiserr.Internal, "storage capacity exceeded", ErrTooLarge)
	}
	return nil
}

// PutWithMeta atomically writes content and its sidecar metadata.
func (s *Store) PutWithMeta(key string, value []byte, meta FileMeta) error {
	if err := s.checkCapacity(int64(len(value))); err != nil {
		return err
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return whoiserr.Wrap(whoiserr.Internal, "failed to encode metadata", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(contentBucket).Put([]byte(key), value); err != nil {
			return err
		}
		return tx.Bucket(metaBucket).Put([]byte(key), metaBytes)
	})
}

// Get returns (value, true) if key exists, or (nil, false) if absent —
// distinguished from an empty value per spec §4.1.
func (s *Store) Get(key string) ([]byte, bool, error) {
	var out []byte
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(contentBucket).Get([]byte(key))
		if v == nil {
			return nil
		}
		found = true
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, false, whoiserr.Wrap(whoiserr.Internal, "storage read failed", err)
	}
	return out, found, nil
}

// GetMeta returns the sidecar metadata for key, if present.
func (s *Store) GetMeta(key string) (FileMeta, bool, error) {
	var meta FileMeta
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(metaBucket).Get([]byte(key))
		if v == nil {
			return nil
		}
		if err := json.Unmarshal(v, &meta); err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return FileMeta{}, false, whoiserr.Wrap(whoiserr.UpstreamMalformed, "corrupt metadata for "+key, err)
	}
	return meta, found, nil
}

// Delete removes key and its metadata; idempotent, missing key is success.
func (s *Store) Delete(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(contentBucket).Delete([]byte(key)); err != nil {
			return err
		}
		return tx.Bucket(metaBucket).Delete([]byte(key))
	})
}

// IteratePrefix visits content keys in lexicographic order under prefix.
// cb returns false to stop early. Metadata keys are never visible here
// since they live in a separate bucket (spec I3 is true by construction).
func (s *Store) IteratePrefix(prefix string, cb func(key string, value []byte) bool) error {
	return s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(contentBucket).Cursor()
		p := []byte(prefix)
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			if !cb(string(k), v) {
				break
			}
		}
		return nil
	})
}

// AllKeys returns every content key not under any particular prefix, used
// by the registry loader's deletion sweep (spec §4.2 step 5).
func (s *Store) AllKeys() ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(contentBucket).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

// PutJSON marshals v and stores it under key.
func (s *Store) PutJSON(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return whoiserr.Wrap(whoiserr.Internal, "failed to encode value", err)
	}
	return s.Put(key, b)
}

// GetJSON decodes the value at key into dst. Decode failure is a distinct
// error from "absent".
func (s *Store) GetJSON(key string, dst any) (bool, error) {
	b, found, err := s.Get(key)
	if err != nil || !found {
		return found, err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return true, whoiserr.Wrap(whoiserr.UpstreamMalformed, "corrupt cached value for "+key, err)
	}
	return true, nil
}

// Stats reports basic diagnostics.
type Stats struct {
	ContentKeys int
	MetaKeys    int
	DBSizeBytes int64
}

func (s *Store) Stats() (Stats, error) {
	var st Stats
	err := s.db.View(func(tx *bolt.Tx) error {
		st.ContentKeys = tx.Bucket(contentBucket).Stats().KeyN
		st.MetaKeys = tx.Bucket(metaBucket).Stats().KeyN
		st.DBSizeBytes = tx.Size()
		return nil
	})
	return st, err
}

// Clear removes all keys, including metadata.
func (s *Store) Clear() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(contentBucket); err != nil {
			return err
		}
		if err := tx.DeleteBucket(metaBucket); err != nil {
			return err
		}
		if _, err := tx.CreateBucket(contentBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(metaBucket)
		return err
	})
}

// ErrTooLarge is returned (wrapped in a whoiserr.Error) when a write would
// exceed the configured map size (spec §4.1's "fail write with a
// distinguishable error kind").
var ErrTooLarge = fmt.Errorf("storage map size exhausted")
