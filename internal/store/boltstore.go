package store

import (
	"bytes"
	"context"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// BoltStore is a single-node durable Store backed by go.etcd.io/bbolt, the
// same embedded B+Tree cuemby-warren uses as its Raft log store. Each
// column family maps 1:1 to a bbolt bucket; bbolt buckets iterate keys in
// ascending lexicographic order natively, which is exactly the ordering
// contract spec.md §4.1 requires from PrefixScan without any key padding
// tricks.
type BoltStore struct {
	db *bolt.DB
}

var _ Store = (*BoltStore)(nil)

// OpenBoltStore opens (creating if absent) a bbolt database file at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bbolt store %q: %w", path, err)
	}
	return &BoltStore{db: db}, nil
}

// Get implements Store.
func (b *BoltStore) Get(_ context.Context, cf string, key []byte) ([]byte, error) {
	var out []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(cf))
		if bucket == nil {
			return ErrNotFound
		}
		v := bucket.Get(key)
		if v == nil {
			return ErrNotFound
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Put implements Store.
func (b *BoltStore) Put(_ context.Context, cf string, key, value []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(cf))
		if err != nil {
			return fmt.Errorf("create bucket %q: %w", cf, err)
		}
		return bucket.Put(key, value)
	})
}

// Delete implements Store.
func (b *BoltStore) Delete(_ context.Context, cf string, key []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(cf))
		if bucket == nil {
			return nil
		}
		return bucket.Delete(key)
	})
}

// PrefixScan implements Store using a bucket cursor seeked to prefix.
func (b *BoltStore) PrefixScan(_ context.Context, cf string, prefix []byte) ([]Entry, error) {
	var entries []Entry
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(cf))
		if bucket == nil {
			return nil
		}
		c := bucket.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			entries = append(entries, Entry{
				Key:   append([]byte(nil), k...),
				Value: append([]byte(nil), v...),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Batch implements Store: every op commits as one bbolt transaction, giving
// the atomic all-or-nothing semantics spec.md §4.1 requires.
func (b *BoltStore) Batch(_ context.Context, ops []WriteOp) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		buckets := make(map[string]*bolt.Bucket)
		for _, op := range ops {
			bucket, ok := buckets[op.ColumnFamily]
			if !ok {
				var err error
				bucket, err = tx.CreateBucketIfNotExists([]byte(op.ColumnFamily))
				if err != nil {
					return fmt.Errorf("create bucket %q: %w", op.ColumnFamily, err)
				}
				buckets[op.ColumnFamily] = bucket
			}
			if op.Value == nil {
				if err := bucket.Delete(op.Key); err != nil {
					return fmt.Errorf("delete %q/%x: %w", op.ColumnFamily, op.Key, err)
				}
				continue
			}
			if err := bucket.Put(op.Key, op.Value); err != nil {
				return fmt.Errorf("put %q/%x: %w", op.ColumnFamily, op.Key, err)
			}
		}
		return nil
	})
}

// Close implements Store.
func (b *BoltStore) Close() error {
	return b.db.Close()
}
