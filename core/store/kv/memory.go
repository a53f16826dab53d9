package kv

import (
	"bytes"
	"sort"
	"sync"

	"golang.org/x/xerrors"
)

// memoryDB is an in-memory key/value database. Updates are applied to a copy
// of the buckets which replaces the current state only when the transaction
// succeeds.
//
// - implements kv.DB
type memoryDB struct {
	sync.RWMutex

	buckets map[string]*memoryBucket
	closed  bool
}

// NewInMemory returns a new empty in-memory database.
func NewInMemory() DB {
	return &memoryDB{
		buckets: make(map[string]*memoryBucket),
	}
}

// View implements kv.DB.
func (db *memoryDB) View(fn func(ReadableTx) error) error {
	db.RLock()
	defer db.RUnlock()

	if db.closed {
		return xerrors.New("database closed")
	}

	return fn(memoryTx{buckets: db.buckets, readonly: true})
}

// Update implements kv.DB. It applies the changes only if the function returns
// without error.
func (db *memoryDB) Update(fn func(WritableTx) error) error {
	db.Lock()
	defer db.Unlock()

	if db.closed {
		return xerrors.New("database closed")
	}

	staged := make(map[string]*memoryBucket, len(db.buckets))
	for name, bucket := range db.buckets {
		staged[name] = bucket.clone()
	}

	err := fn(memoryTx{buckets: staged})
	if err != nil {
		return err
	}

	db.buckets = staged

	return nil
}

// Close implements kv.DB.
func (db *memoryDB) Close() error {
	db.Lock()
	db.closed = true
	db.Unlock()

	return nil
}

// memoryTx is a transaction over the in-memory buckets.
//
// - implements kv.ReadableTx
// - implements kv.WritableTx
type memoryTx struct {
	buckets  map[string]*memoryBucket
	readonly bool
}

// GetBucket implements kv.ReadableTx.
func (tx memoryTx) GetBucket(name []byte) Bucket {
	bucket, found := tx.buckets[string(name)]
	if !found {
		return nil
	}

	if tx.readonly {
		return readonlyBucket{memoryBucket: bucket}
	}

	return bucket
}

// GetBucketOrCreate implements kv.WritableTx.
func (tx memoryTx) GetBucketOrCreate(name []byte) (Bucket, error) {
	if len(name) == 0 {
		return nil, xerrors.New("failed to create bucket: bucket name required")
	}

	bucket, found := tx.buckets[string(name)]
	if !found {
		bucket = &memoryBucket{entries: make(map[string][]byte)}
		tx.buckets[string(name)] = bucket
	}

	return bucket, nil
}

// memoryBucket is a bucket of the in-memory database.
//
// - implements kv.Bucket
type memoryBucket struct {
	entries map[string][]byte
}

// Get implements kv.Bucket.
func (b *memoryBucket) Get(key []byte) []byte {
	return b.entries[string(key)]
}

// Set implements kv.Bucket. The value is copied.
func (b *memoryBucket) Set(key, value []byte) error {
	if len(key) == 0 {
		return xerrors.New("key required")
	}

	b.entries[string(key)] = append([]byte{}, value...)

	return nil
}

// Delete implements kv.Bucket.
func (b *memoryBucket) Delete(key []byte) error {
	delete(b.entries, string(key))

	return nil
}

// ForEach implements kv.Bucket.
func (b *memoryBucket) ForEach(fn func(k, v []byte) error) error {
	for _, key := range b.sortedKeys() {
		err := fn([]byte(key), b.entries[key])
		if err != nil {
			return err
		}
	}

	return nil
}

// Scan implements kv.Bucket.
func (b *memoryBucket) Scan(prefix []byte, fn func(k, v []byte) error) error {
	for _, key := range b.sortedKeys() {
		if !bytes.HasPrefix([]byte(key), prefix) {
			continue
		}

		err := fn([]byte(key), b.entries[key])
		if err != nil {
			return xerrors.Errorf("callback failed: %v", err)
		}
	}

	return nil
}

func (b *memoryBucket) sortedKeys() []string {
	keys := make([]string, 0, len(b.entries))
	for key := range b.entries {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

func (b *memoryBucket) clone() *memoryBucket {
	entries := make(map[string][]byte, len(b.entries))
	for key, value := range b.entries {
		entries[key] = value
	}

	return &memoryBucket{entries: entries}
}

// readonlyBucket refuses the write operations in a read-only transaction.
type readonlyBucket struct {
	*memoryBucket
}

// Set implements kv.Bucket. It always returns an error.
func (b readonlyBucket) Set(key, value []byte) error {
	return xerrors.New("tx not writable")
}

// Delete implements kv.Bucket. It always returns an error.
func (b readonlyBucket) Delete(key []byte) error {
	return xerrors.New("tx not writable")
}
