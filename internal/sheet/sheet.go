// Package sheet implements the Sheet collaborator referenced by the
// job-execution plane (spec.md §3): an ordered set of columns — each with a
// static, LLM-derived, or formula-derived behaviour — rows identified by
// opaque UUIDs, and cells keyed by (row, column), emitting update events
// when cells change. Supplemented from the original Rust source's
// managers/sheet_manager.rs and shinkai_sheet::sheet::Sheet, which the
// distilled spec.md referenced but never fully specified; this package
// follows the persistence conventions of internal/job and
// internal/toolregistry (store-backed, column-family per concern) rather
// than translating the Rust struct layout directly.
package sheet

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/nodecore/node/internal/nodeerr"
	"github.com/nodecore/node/internal/store"
)

const (
	cfMeta  = "sheet_meta"
	cfCells = "sheet_cells"
)

// ColumnBehavior is the closed set of ways a column's values are produced
// (spec.md §3).
type ColumnBehavior string

const (
	ColumnStatic  ColumnBehavior = "static"
	ColumnLLM     ColumnBehavior = "llm"
	ColumnFormula ColumnBehavior = "formula"
)

// Column is one ordered column definition.
type Column struct {
	ID       string
	Name     string
	Behavior ColumnBehavior
	// Formula is the expression evaluated for ColumnFormula columns,
	// referencing other column ids (e.g. "{colA} + {colB}"); evaluation is
	// the caller's responsibility — this package only stores the cell
	// values formula columns resolve to, not an expression engine.
	Formula string
}

// meta is the ordered column/row index persisted per sheet. Order cannot be
// recovered from a map, so it is tracked explicitly here rather than
// derived from a PrefixScan.
type meta struct {
	Columns []Column
	Rows    []string
}

// Update is emitted on every SetCell call (spec.md §3: "the sheet emits
// update events when cells change").
type Update struct {
	SheetID  string
	RowID    string
	ColumnID string
	Value    string
}

// Sheet is one ordered grid of columns/rows/cells, persisted in backend and
// broadcasting Update events to any current subscribers.
type Sheet struct {
	backend store.Store

	mu          sync.Mutex
	subscribers map[int]chan Update
	nextSubID   int
}

// NewSheet constructs a Sheet over backend. A single Sheet value is shared
// by every sheet id it is asked to operate on; sheetID scopes every
// operation's storage keys and subscription events.
func NewSheet(backend store.Store) *Sheet {
	return &Sheet{backend: backend, subscribers: make(map[int]chan Update)}
}

func metaKey(sheetID string) []byte { return []byte(sheetID) }

func cellKey(sheetID, rowID, columnID string) []byte {
	return []byte(sheetID + "::" + rowID + "::" + columnID)
}

func wrapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	if err == store.ErrNotFound {
		return nodeerr.Wrap(nodeerr.NotFound, "", err)
	}
	return nodeerr.Wrap(nodeerr.Retryable, "sheet store operation failed", err)
}

func (s *Sheet) getMeta(ctx context.Context, sheetID string) (meta, error) {
	raw, err := s.backend.Get(ctx, cfMeta, metaKey(sheetID))
	if err != nil {
		if err == store.ErrNotFound {
			return meta{}, nil
		}
		return meta{}, wrapStoreErr(err)
	}
	var m meta
	if err := json.Unmarshal(raw, &m); err != nil {
		return meta{}, nodeerr.Wrap(nodeerr.Retryable, "decode sheet meta", err)
	}
	return m, nil
}

func (s *Sheet) putMeta(ctx context.Context, sheetID string, m meta) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return nodeerr.Wrap(nodeerr.BadRequest, "marshal sheet meta", err)
	}
	if err := s.backend.Put(ctx, cfMeta, metaKey(sheetID), raw); err != nil {
		return wrapStoreErr(err)
	}
	return nil
}

// AddColumn appends a column to sheetID's ordered column set. Adding a
// column whose id already exists is a no-op, matching the idempotent-create
// discipline used elsewhere in this module (internal/job.CreateJob).
func (s *Sheet) AddColumn(ctx context.Context, sheetID string, col Column) error {
	m, err := s.getMeta(ctx, sheetID)
	if err != nil {
		return err
	}
	for _, existing := range m.Columns {
		if existing.ID == col.ID {
			return nil
		}
	}
	m.Columns = append(m.Columns, col)
	return s.putMeta(ctx, sheetID, m)
}

// AddRow appends a new row with an opaque UUID identifier (spec.md §3:
// "rows identified by opaque UUIDs") and returns its id.
func (s *Sheet) AddRow(ctx context.Context, sheetID string) (string, error) {
	m, err := s.getMeta(ctx, sheetID)
	if err != nil {
		return "", err
	}
	rowID := uuid.NewString()
	m.Rows = append(m.Rows, rowID)
	if err := s.putMeta(ctx, sheetID, m); err != nil {
		return "", err
	}
	return rowID, nil
}

// Columns returns sheetID's columns in declaration order.
func (s *Sheet) Columns(ctx context.Context, sheetID string) ([]Column, error) {
	m, err := s.getMeta(ctx, sheetID)
	if err != nil {
		return nil, err
	}
	return m.Columns, nil
}

// Rows returns sheetID's row ids in insertion order.
func (s *Sheet) Rows(ctx context.Context, sheetID string) ([]string, error) {
	m, err := s.getMeta(ctx, sheetID)
	if err != nil {
		return nil, err
	}
	return m.Rows, nil
}

// SetCell writes the value at (rowID, columnID) and broadcasts an Update to
// every current subscriber. Broadcasting never blocks on a slow subscriber:
// a full subscriber channel drops the update for that subscriber rather
// than stalling the writer, mirroring the original manager's "avoid
// premature drops, never block the update loop" intent.
func (s *Sheet) SetCell(ctx context.Context, sheetID, rowID, columnID, value string) error {
	if err := s.backend.Put(ctx, cfCells, cellKey(sheetID, rowID, columnID), []byte(value)); err != nil {
		return wrapStoreErr(err)
	}
	s.broadcast(Update{SheetID: sheetID, RowID: rowID, ColumnID: columnID, Value: value})
	return nil
}

// Cell reads the value at (rowID, columnID), returning "" if never set.
func (s *Sheet) Cell(ctx context.Context, sheetID, rowID, columnID string) (string, error) {
	raw, err := s.backend.Get(ctx, cfCells, cellKey(sheetID, rowID, columnID))
	if err != nil {
		if err == store.ErrNotFound {
			return "", nil
		}
		return "", wrapStoreErr(err)
	}
	return string(raw), nil
}

// Subscribe registers a new Update listener with the given channel buffer
// size and returns the channel plus an unsubscribe function.
func (s *Sheet) Subscribe(buffer int) (<-chan Update, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	ch := make(chan Update, buffer)
	s.subscribers[id] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if existing, ok := s.subscribers[id]; ok {
			close(existing)
			delete(s.subscribers, id)
		}
	}
}

func (s *Sheet) broadcast(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- u:
		default:
		}
	}
}
