package toolregistry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nodecore/node/internal/nodeerr"
	"github.com/nodecore/node/internal/store"
	"github.com/nodecore/node/internal/toolregistry"
)

func newRegistry(t *testing.T) *toolregistry.Registry {
	t.Helper()
	backend := store.NewMemStore()
	t.Cleanup(func() { _ = backend.Close() })
	return toolregistry.NewRegistry(backend)
}

func TestPutAndGetTool(t *testing.T) {
	t.Parallel()
	r := newRegistry(t)
	ctx := context.Background()

	err := r.PutTool(ctx, toolregistry.Tool{RouterKey: "search.web", Version: "1.0.0", Name: "Web Search", Variant: toolregistry.VariantNetwork})
	require.NoError(t, err)

	got, err := r.GetTool(ctx, "search.web")
	require.NoError(t, err)
	require.Equal(t, "1.0.0", got.Version)
	require.Equal(t, toolregistry.VariantNetwork, got.Variant)
}

func TestGetToolNotFound(t *testing.T) {
	t.Parallel()
	r := newRegistry(t)
	_, err := r.GetTool(context.Background(), "missing")
	require.True(t, nodeerr.Is(err, nodeerr.NotFound))
}

func TestUpsertToolVersionSkipsOlderOrEqual(t *testing.T) {
	t.Parallel()
	r := newRegistry(t)
	ctx := context.Background()

	installed, err := r.UpsertToolVersion(ctx, toolregistry.Tool{RouterKey: "k", Version: "1.2.0", Name: "v1.2"})
	require.NoError(t, err)
	require.True(t, installed)

	installed, err = r.UpsertToolVersion(ctx, toolregistry.Tool{RouterKey: "k", Version: "1.2.0", Name: "same"})
	require.NoError(t, err)
	require.False(t, installed)

	installed, err = r.UpsertToolVersion(ctx, toolregistry.Tool{RouterKey: "k", Version: "1.1.9", Name: "older"})
	require.NoError(t, err)
	require.False(t, installed)

	installed, err = r.UpsertToolVersion(ctx, toolregistry.Tool{RouterKey: "k", Version: "1.10.0", Name: "newer"})
	require.NoError(t, err)
	require.True(t, installed)

	got, err := r.GetTool(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "newer", got.Name)
}

func TestIsDefaultTool(t *testing.T) {
	t.Parallel()
	r := newRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.PutTool(ctx, toolregistry.Tool{RouterKey: "a", Version: "1.0.0", IsDefault: true}))
	require.NoError(t, r.PutTool(ctx, toolregistry.Tool{RouterKey: "b", Version: "1.0.0", IsDefault: false}))

	isDefault, err := r.IsDefaultTool(ctx, "a")
	require.NoError(t, err)
	require.True(t, isDefault)

	isDefault, err = r.IsDefaultTool(ctx, "b")
	require.NoError(t, err)
	require.False(t, isDefault)
}

func TestIsEmpty(t *testing.T) {
	t.Parallel()
	r := newRegistry(t)
	ctx := context.Background()

	empty, err := r.IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	require.NoError(t, r.PutTool(ctx, toolregistry.Tool{RouterKey: "a", Version: "1.0.0"}))

	empty, err = r.IsEmpty(ctx)
	require.NoError(t, err)
	require.False(t, empty)
}
