package toolregistry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nodecore/node/internal/toolregistry"
)

type fakeDirectory struct {
	entries []toolregistry.RemoteEntry
	bodies  map[string]toolregistry.Tool
}

func (f *fakeDirectory) FetchEntries(_ context.Context) ([]toolregistry.RemoteEntry, error) {
	return f.entries, nil
}

func (f *fakeDirectory) FetchTool(_ context.Context, entry toolregistry.RemoteEntry) (toolregistry.Tool, error) {
	return f.bodies[entry.RouterKey], nil
}

type fakeAgentImporter struct {
	imported []string
}

func (f *fakeAgentImporter) ImportAgent(_ context.Context, entry toolregistry.RemoteEntry) error {
	f.imported = append(f.imported, entry.RouterKey)
	return nil
}

func TestSyncInstallsNewerToolsAndSkipsOlder(t *testing.T) {
	t.Parallel()
	r := newRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.PutTool(ctx, toolregistry.Tool{RouterKey: "a", Version: "1.0.0", Name: "old"}))

	dir := &fakeDirectory{
		entries: []toolregistry.RemoteEntry{
			{Type: toolregistry.EntryTool, RouterKey: "a", Version: "2.0.0"},
			{Type: toolregistry.EntryTool, RouterKey: "b", Version: "1.0.0"},
		},
		bodies: map[string]toolregistry.Tool{
			"a": {RouterKey: "a", Version: "2.0.0", Name: "new", IsDefault: true},
			"b": {RouterKey: "b", Version: "1.0.0", Name: "fresh"},
		},
	}
	syncer := toolregistry.NewSyncer(r, dir, nil)
	require.NoError(t, syncer.Sync(ctx))

	got, err := r.GetTool(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "new", got.Name)
	require.True(t, syncer.HasSyncedDefaultTools())

	got, err = r.GetTool(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, "fresh", got.Name)
}

func TestSyncImportsAgentEntries(t *testing.T) {
	t.Parallel()
	r := newRegistry(t)
	ctx := context.Background()

	agents := &fakeAgentImporter{}
	dir := &fakeDirectory{entries: []toolregistry.RemoteEntry{{Type: toolregistry.EntryAgent, RouterKey: "researcher"}}}
	syncer := toolregistry.NewSyncer(r, dir, agents)
	require.NoError(t, syncer.Sync(ctx))
	require.Equal(t, []string{"researcher"}, agents.imported)
}
