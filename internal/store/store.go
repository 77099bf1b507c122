// Package store defines the persistent key/value contract (C3, spec.md
// §4.1): column-family partitioned storage with point get/put/delete,
// prefix-ordered iteration, and atomic multi-key batch writes. The
// interface shape is grounded on registry/store.Store (memory/mongo dual
// implementation pattern); this package instead ships memstore (in-process)
// and boltstore (go.etcd.io/bbolt, used as a Raft log store by
// cuemby-warren) since bbolt buckets give true lexicographic prefix-scan
// ordering per column family without fabricating anything.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when a key does not exist in a column family.
var ErrNotFound = errors.New("store: key not found")

type (
	// WriteOp is one operation inside an atomic Batch: either a Put (Value
	// non-nil) or a Delete (Value nil).
	WriteOp struct {
		ColumnFamily string
		Key          []byte
		Value        []byte // nil means delete
	}

	// Entry is a single key/value pair returned by prefix iteration.
	Entry struct {
		Key   []byte
		Value []byte
	}

	// Store is the persistent key/value contract every higher-level
	// component (inbox, job registry, invoices) is built on. Column families
	// are created implicitly on first write. Implementations must be safe
	// for concurrent use and must preserve lexicographic key order within a
	// column family for PrefixScan.
	Store interface {
		// Get reads a single key. Returns ErrNotFound if absent.
		Get(ctx context.Context, columnFamily string, key []byte) ([]byte, error)
		// Put writes a single key, creating or replacing it.
		Put(ctx context.Context, columnFamily string, key, value []byte) error
		// Delete removes a single key. It is not an error to delete an
		// absent key.
		Delete(ctx context.Context, columnFamily string, key []byte) error
		// PrefixScan returns every entry in columnFamily whose key starts
		// with prefix, in ascending lexicographic key order.
		PrefixScan(ctx context.Context, columnFamily string, prefix []byte) ([]Entry, error)
		// Batch applies every WriteOp atomically: either all writes succeed
		// and are visible together, or none are.
		Batch(ctx context.Context, ops []WriteOp) error
		// Close releases any underlying resources.
		Close() error
	}
)
