package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/oops"
	bolt "go.etcd.io/bbolt"
	"k8s.io/utils/clock"

	"github.com/aquasecurity/ossaudit/pkg/log"
	"github.com/aquasecurity/ossaudit/pkg/utils"
)

const (
	cacheFile  = "cache.db"
	bucketName = "responses"

	// Expiration is how long a stored response stays valid.
	// Entries older than this are treated as misses.
	Expiration = 24 * time.Hour
)

// Error is a storage-layer failure while writing the cache. Callers
// treat the cache as best-effort: a failed Put only forgoes caching
// for that entry and must not abort an audit run.
type Error struct {
	err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("cache error: %s", e.err)
}

func (e *Error) Unwrap() error {
	return e.err
}

// Store maps a query fingerprint to a previously fetched raw response.
// It is backed by a single BoltDB file under the cache directory.
type Store struct {
	path  string
	clock clock.PassiveClock
	db    *bolt.DB
}

type Option func(*Store)

// WithClock replaces the wall clock, used to control entry expiry in tests.
func WithClock(c clock.PassiveClock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

func New(cacheDir string, opts ...Option) *Store {
	s := &Store{
		path:  Path(cacheDir),
		clock: clock.RealClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func Path(cacheDir string) string {
	return filepath.Join(cacheDir, cacheFile)
}

type entry struct {
	CreatedAt time.Time `json:"created_at"`
	Response  []byte    `json:"response"`
}

// Get looks up the raw response stored under the fingerprint. Any read
// problem (no store, torn entry, expired entry) is reported as a miss,
// never as an error.
func (s *Store) Get(fingerprint string) ([]byte, bool) {
	db, err := s.open(false)
	if err != nil {
		return nil, false
	}

	var raw []byte
	err = db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(bucketName))
		if bkt == nil {
			return nil
		}
		value := bkt.Get([]byte(fingerprint))
		if value == nil {
			return nil
		}

		var e entry
		if err := json.Unmarshal(value, &e); err != nil {
			log.Debug("Broken cache entry", log.String("fingerprint", fingerprint), log.Err(err))
			return nil
		}
		if s.clock.Since(e.CreatedAt) > Expiration {
			return nil
		}

		// The value is only valid inside the transaction
		raw = make([]byte, len(e.Response))
		copy(raw, e.Response)
		return nil
	})
	if err != nil || raw == nil {
		return nil, false
	}
	return raw, true
}

// Put stores the raw response under the fingerprint, replacing any
// prior entry. BoltDB updates are transactional, so a crash mid-write
// never leaves a torn entry behind.
func (s *Store) Put(fingerprint string, raw []byte) error {
	eb := oops.With("db_path", s.path).With("fingerprint", fingerprint)

	db, err := s.open(true)
	if err != nil {
		return &Error{err: err}
	}

	value, err := json.Marshal(entry{
		CreatedAt: s.clock.Now(),
		Response:  raw,
	})
	if err != nil {
		return &Error{err: eb.Wrapf(err, "json marshal error")}
	}

	err = db.Update(func(tx *bolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		if err != nil {
			return eb.Wrapf(err, "bucket create error")
		}
		if err := bkt.Put([]byte(fingerprint), value); err != nil {
			return eb.Wrapf(err, "bucket put error")
		}
		return nil
	})
	if err != nil {
		return &Error{err: err}
	}
	return nil
}

// Reset deletes the entire store. Calling it when no store exists is a no-op.
func (s *Store) Reset() error {
	if err := s.Close(); err != nil {
		return err
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return &Error{err: oops.With("db_path", s.path).Wrapf(err, "file remove error")}
	}
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	db := s.db
	s.db = nil
	if err := db.Close(); err != nil {
		return &Error{err: oops.With("db_path", s.path).Wrapf(err, "db close error")}
	}
	return nil
}

func (s *Store) open(create bool) (*bolt.DB, error) {
	if s.db != nil {
		return s.db, nil
	}

	eb := oops.With("db_path", s.path)
	if !create {
		// Opening would create an empty file, a lookup should not do that
		if ok, err := utils.Exists(s.path); err != nil || !ok {
			return nil, eb.Errorf("no cache store")
		}
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return nil, eb.Wrapf(err, "mkdir error")
	}

	db, err := bolt.Open(s.path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, eb.Wrapf(err, "db open error")
	}
	s.db = db
	return db, nil
}
