package toolrouter_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nodecore/node/internal/nodeerr"
	"github.com/nodecore/node/internal/store"
	"github.com/nodecore/node/internal/toolregistry"
	"github.com/nodecore/node/internal/toolrouter"
)

type recordingExecutor struct {
	lastArgs   map[string]any
	lastConfig map[string]string
	result     string
	err        error
}

func (e *recordingExecutor) Execute(_ context.Context, _ toolregistry.Tool, arguments map[string]any, _ toolrouter.ExecContext, config map[string]string) (string, error) {
	e.lastArgs = arguments
	e.lastConfig = config
	return e.result, e.err
}

type fakeConfigResolver struct {
	config map[string]string
}

func (f *fakeConfigResolver) ResolveConfig(_ context.Context, _, _ string) (map[string]string, error) {
	return f.config, nil
}

func newTestRegistry(t *testing.T) *toolregistry.Registry {
	t.Helper()
	backend := store.NewMemStore()
	t.Cleanup(func() { _ = backend.Close() })
	return toolregistry.NewRegistry(backend)
}

func TestRouterExecuteDispatchesToVariantExecutor(t *testing.T) {
	t.Parallel()
	registry := newTestRegistry(t)
	ctx := context.Background()

	schema := json.RawMessage(`{"type":"object","properties":{"city":{"type":"string"}},"required":["city"]}`)
	require.NoError(t, registry.PutTool(ctx, toolregistry.Tool{
		RouterKey: "weather.today", Version: "1.0.0", Variant: toolregistry.VariantNetwork, InputSchema: schema,
	}))

	exec := &recordingExecutor{result: "sunny"}
	router := toolrouter.NewRouter(registry, map[toolregistry.Variant]toolrouter.Executor{
		toolregistry.VariantNetwork: exec,
	}, &fakeConfigResolver{config: map[string]string{"provider": "weatherco"}})

	result, err := router.Execute(ctx, "weather.today", map[string]any{"city": "Lisbon"}, toolrouter.ExecContext{AgentID: "agent1"})
	require.NoError(t, err)
	require.Equal(t, "sunny", result)
	require.Equal(t, "Lisbon", exec.lastArgs["city"])
	require.Equal(t, "weatherco", exec.lastConfig["provider"])
}

func TestRouterExecuteRejectsArgumentsFailingSchema(t *testing.T) {
	t.Parallel()
	registry := newTestRegistry(t)
	ctx := context.Background()

	schema := json.RawMessage(`{"type":"object","properties":{"city":{"type":"string"}},"required":["city"]}`)
	require.NoError(t, registry.PutTool(ctx, toolregistry.Tool{
		RouterKey: "weather.today", Version: "1.0.0", Variant: toolregistry.VariantNetwork, InputSchema: schema,
	}))

	exec := &recordingExecutor{result: "sunny"}
	router := toolrouter.NewRouter(registry, map[toolregistry.Variant]toolrouter.Executor{
		toolregistry.VariantNetwork: exec,
	}, nil)

	_, err := router.Execute(ctx, "weather.today", map[string]any{}, toolrouter.ExecContext{})
	require.True(t, nodeerr.Is(err, nodeerr.BadRequest))
}

func TestRouterExecuteUnknownFunctionNotFound(t *testing.T) {
	t.Parallel()
	registry := newTestRegistry(t)
	router := toolrouter.NewRouter(registry, nil, nil)
	_, err := router.Execute(context.Background(), "missing.tool", nil, toolrouter.ExecContext{})
	require.True(t, nodeerr.Is(err, nodeerr.NotFound))
}

func TestRouterExecuteMissingExecutorForVariant(t *testing.T) {
	t.Parallel()
	registry := newTestRegistry(t)
	ctx := context.Background()
	require.NoError(t, registry.PutTool(ctx, toolregistry.Tool{RouterKey: "k", Version: "1.0.0", Variant: toolregistry.VariantAgent}))

	router := toolrouter.NewRouter(registry, map[toolregistry.Variant]toolrouter.Executor{}, nil)
	_, err := router.Execute(ctx, "k", nil, toolrouter.ExecContext{})
	require.True(t, nodeerr.Is(err, nodeerr.BadRequest))
}
