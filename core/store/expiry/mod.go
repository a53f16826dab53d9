// Package expiry implements a string-keyed storage where every entry carries
// an expiration date. An expired entry is reported as absent and removed the
// first time it is read.
//
// Entries are saved as a JSON envelope `{"value": ..., "expiry": <unix ms>}`
// in a single bucket of the key/value database.
//
// Documentation Last Review: 02.09.2026
//
package expiry

import (
	"encoding/json"
	"time"

	"go.canvass.io/canvass/core/store/kv"
	"golang.org/x/xerrors"
)

var defaultBucket = []byte("expiry:entries")

// envelope is the persisted representation of an entry.
type envelope struct {
	Value  json.RawMessage `json:"value"`
	Expiry int64           `json:"expiry"`
}

// Store is a key/value storage with expiring entries.
type Store struct {
	db     kv.DB
	bucket []byte
	now    func() time.Time
}

// Option is the type of options to create a store.
type Option func(*Store)

// WithClock is an option to set the function returning the current time.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithBucket is an option to set the name of the bucket holding the entries.
func WithBucket(name []byte) Option {
	return func(s *Store) {
		s.bucket = name
	}
}

// NewStore creates a new store on top of the database.
func NewStore(db kv.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		bucket: defaultBucket,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Set stores the value under the key. The value must be a valid JSON document
// and it expires after the duration.
func (s *Store) Set(key string, value []byte, ttl time.Duration) error {
	if !json.Valid(value) {
		return xerrors.Errorf("invalid JSON value for '%s'", key)
	}

	data, err := json.Marshal(envelope{
		Value:  value,
		Expiry: s.now().Add(ttl).UnixMilli(),
	})
	if err != nil {
		return xerrors.Errorf("couldn't marshal entry: %v", err)
	}

	err = s.db.Update(func(tx kv.WritableTx) error {
		bucket, err := tx.GetBucketOrCreate(s.bucket)
		if err != nil {
			return err
		}

		return bucket.Set([]byte(key), data)
	})
	if err != nil {
		return xerrors.Errorf("couldn't write entry: %v", err)
	}

	return nil
}

// Get returns the value stored under the key if it exists and is not expired.
// Expired entries are deleted.
func (s *Store) Get(key string) ([]byte, bool, error) {
	env, found, err := s.read(key)
	if err != nil || !found {
		return nil, false, err
	}

	if s.expired(env) {
		err = s.Delete(key)
		if err != nil {
			return nil, false, xerrors.Errorf("couldn't delete expired entry: %v", err)
		}

		return nil, false, nil
	}

	return env.Value, true, nil
}

// Expiry returns the expiration date of the entry, if it exists and is not
// yet expired.
func (s *Store) Expiry(key string) (time.Time, bool, error) {
	env, found, err := s.read(key)
	if err != nil || !found || s.expired(env) {
		return time.Time{}, false, err
	}

	return time.UnixMilli(env.Expiry), true, nil
}

// Delete removes the entry if it exists.
func (s *Store) Delete(key string) error {
	return s.db.Update(func(tx kv.WritableTx) error {
		bucket := tx.GetBucket(s.bucket)
		if bucket == nil {
			return nil
		}

		return bucket.Delete([]byte(key))
	})
}

func (s *Store) read(key string) (envelope, bool, error) {
	var data []byte

	err := s.db.View(func(tx kv.ReadableTx) error {
		bucket := tx.GetBucket(s.bucket)
		if bucket == nil {
			return nil
		}

		value := bucket.Get([]byte(key))
		if value != nil {
			data = append([]byte{}, value...)
		}

		return nil
	})
	if err != nil {
		return envelope{}, false, xerrors.Errorf("couldn't read entry: %v", err)
	}

	if data == nil {
		return envelope{}, false, nil
	}

	var env envelope

	err = json.Unmarshal(data, &env)
	if err != nil {
		return envelope{}, false, xerrors.Errorf("couldn't unmarshal entry: %v", err)
	}

	return env, true, nil
}

func (s *Store) expired(env envelope) bool {
	return !s.now().Before(time.UnixMilli(env.Expiry))
}
