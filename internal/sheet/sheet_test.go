package sheet_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nodecore/node/internal/sheet"
	"github.com/nodecore/node/internal/store"
)

func newSheet(t *testing.T) *sheet.Sheet {
	t.Helper()
	return sheet.NewSheet(store.NewMemStore())
}

func TestAddColumnIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newSheet(t)

	col := sheet.Column{ID: "col-a", Name: "Status", Behavior: sheet.ColumnStatic}
	require.NoError(t, s.AddColumn(ctx, "sheet-1", col))
	require.NoError(t, s.AddColumn(ctx, "sheet-1", col))

	cols, err := s.Columns(ctx, "sheet-1")
	require.NoError(t, err)
	require.Len(t, cols, 1)
}

func TestAddRowGeneratesUniqueIDsInOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newSheet(t)

	first, err := s.AddRow(ctx, "sheet-1")
	require.NoError(t, err)
	second, err := s.AddRow(ctx, "sheet-1")
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	rows, err := s.Rows(ctx, "sheet-1")
	require.NoError(t, err)
	require.Equal(t, []string{first, second}, rows)
}

func TestSetCellBroadcastsUpdate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newSheet(t)

	updates, unsubscribe := s.Subscribe(4)
	defer unsubscribe()

	require.NoError(t, s.AddColumn(ctx, "sheet-1", sheet.Column{ID: "col-a", Behavior: sheet.ColumnStatic}))
	rowID, err := s.AddRow(ctx, "sheet-1")
	require.NoError(t, err)

	require.NoError(t, s.SetCell(ctx, "sheet-1", rowID, "col-a", "done"))

	got, err := s.Cell(ctx, "sheet-1", rowID, "col-a")
	require.NoError(t, err)
	require.Equal(t, "done", got)

	update := <-updates
	require.Equal(t, sheet.Update{SheetID: "sheet-1", RowID: rowID, ColumnID: "col-a", Value: "done"}, update)
}

func TestSetCellDoesNotBlockOnFullSubscriberBuffer(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newSheet(t)

	updates, unsubscribe := s.Subscribe(1)
	defer unsubscribe()

	rowID, err := s.AddRow(ctx, "sheet-1")
	require.NoError(t, err)

	require.NoError(t, s.SetCell(ctx, "sheet-1", rowID, "col-a", "one"))
	require.NoError(t, s.SetCell(ctx, "sheet-1", rowID, "col-a", "two"))

	first := <-updates
	require.Equal(t, "one", first.Value)
}
