package store

import (
	"bytes"
	"context"
	"sort"
	"sync"
)

// MemStore is an in-process Store backed by sorted column families, grounded
// on registry/store/memory.Store (sync.RWMutex-guarded maps, ctx.Done
// short-circuit on every call).
type MemStore struct {
	mu      sync.RWMutex
	columns map[string]map[string][]byte
}

// NewMemStore constructs an empty in-memory Store. Suitable for tests and
// single-process development, matching the teacher's memory store role.
func NewMemStore() *MemStore {
	return &MemStore{columns: make(map[string]map[string][]byte)}
}

var _ Store = (*MemStore)(nil)

func checkCtx(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func (m *MemStore) column(cf string) map[string][]byte {
	c, ok := m.columns[cf]
	if !ok {
		c = make(map[string][]byte)
		m.columns[cf] = c
	}
	return c
}

// Get implements Store.
func (m *MemStore) Get(ctx context.Context, cf string, key []byte) ([]byte, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.columns[cf][string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Put implements Store.
func (m *MemStore) Put(ctx context.Context, cf string, key, value []byte) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.column(cf)[string(key)] = v
	return nil
}

// Delete implements Store.
func (m *MemStore) Delete(ctx context.Context, cf string, key []byte) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.column(cf), string(key))
	return nil
}

// PrefixScan implements Store.
func (m *MemStore) PrefixScan(ctx context.Context, cf string, prefix []byte) ([]Entry, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	col := m.columns[cf]
	entries := make([]Entry, 0, len(col))
	for k, v := range col {
		if bytes.HasPrefix([]byte(k), prefix) {
			val := make([]byte, len(v))
			copy(val, v)
			entries = append(entries, Entry{Key: []byte(k), Value: val})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].Key, entries[j].Key) < 0
	})
	return entries, nil
}

// Batch implements Store, applying every op atomically under one lock.
func (m *MemStore) Batch(ctx context.Context, ops []WriteOp) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, op := range ops {
		if op.Value == nil {
			delete(m.column(op.ColumnFamily), string(op.Key))
			continue
		}
		v := make([]byte, len(op.Value))
		copy(v, op.Value)
		m.column(op.ColumnFamily)[string(op.Key)] = v
	}
	return nil
}

// Close implements Store; MemStore holds no external resources.
func (m *MemStore) Close() error { return nil }
