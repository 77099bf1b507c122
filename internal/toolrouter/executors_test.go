package toolrouter_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nodecore/node/internal/nodeerr"
	"github.com/nodecore/node/internal/toolregistry"
	"github.com/nodecore/node/internal/toolrouter"
)

type fakeSandbox struct {
	gotDefs []toolregistry.Tool
	result  string
}

func (f *fakeSandbox) Run(_ context.Context, _ toolregistry.Tool, _ map[string]any, _ []string, defs []toolregistry.Tool, _ map[string]string) (string, error) {
	f.gotDefs = defs
	return f.result, nil
}

func TestScriptedExecutorPassesToolDefinitions(t *testing.T) {
	t.Parallel()
	registry := newTestRegistry(t)
	ctx := context.Background()
	require.NoError(t, registry.PutTool(ctx, toolregistry.Tool{RouterKey: "a", Version: "1.0.0"}))
	require.NoError(t, registry.PutTool(ctx, toolregistry.Tool{RouterKey: "b", Version: "1.0.0"}))

	sandbox := &fakeSandbox{result: "done"}
	exec := toolrouter.NewScriptedExecutor(registry, sandbox)

	result, err := exec.Execute(ctx, toolregistry.Tool{RouterKey: "a"}, nil, toolrouter.ExecContext{}, nil)
	require.NoError(t, err)
	require.Equal(t, "done", result)
	require.Len(t, sandbox.gotDefs, 2)
}

func TestScriptedExecutorNoSandboxConfigured(t *testing.T) {
	t.Parallel()
	registry := newTestRegistry(t)
	exec := toolrouter.NewScriptedExecutor(registry, nil)
	_, err := exec.Execute(context.Background(), toolregistry.Tool{RouterKey: "a"}, nil, toolrouter.ExecContext{}, nil)
	require.True(t, nodeerr.Is(err, nodeerr.Retryable))
}

type fakeKeyStore struct{ key string }

func (f *fakeKeyStore) KeyFor(_ context.Context, _ string) (string, error) { return f.key, nil }

type fakeNativeFunction struct {
	gotKey string
	result string
}

func (f *fakeNativeFunction) Run(_ context.Context, _ map[string]any, apiKey string, _ map[string]string) (string, error) {
	f.gotKey = apiKey
	return f.result, nil
}

func TestNativeExecutorPassesBearerKey(t *testing.T) {
	t.Parallel()
	fn := &fakeNativeFunction{result: "ok"}
	exec := toolrouter.NewNativeExecutor(&fakeKeyStore{key: "secret-key"}, map[string]toolrouter.NativeFunction{"read.file": fn})

	result, err := exec.Execute(context.Background(), toolregistry.Tool{RouterKey: "read.file"}, nil, toolrouter.ExecContext{AgentID: "agent1"}, nil)
	require.NoError(t, err)
	require.Equal(t, "ok", result)
	require.Equal(t, "secret-key", fn.gotKey)
}

func TestNativeExecutorUnknownFunction(t *testing.T) {
	t.Parallel()
	exec := toolrouter.NewNativeExecutor(nil, map[string]toolrouter.NativeFunction{})
	_, err := exec.Execute(context.Background(), toolregistry.Tool{RouterKey: "missing"}, nil, toolrouter.ExecContext{}, nil)
	require.True(t, nodeerr.Is(err, nodeerr.NotFound))
}

type fakeAgentDelegate struct {
	gotTarget string
	gotJob    string
	result    string
}

func (f *fakeAgentDelegate) RunAsTool(_ context.Context, targetAgentID string, _ map[string]any, callerJobID string) (string, error) {
	f.gotTarget = targetAgentID
	f.gotJob = callerJobID
	return f.result, nil
}

func TestAgentExecutorDelegatesByRouterKey(t *testing.T) {
	t.Parallel()
	delegate := &fakeAgentDelegate{result: "delegated"}
	exec := toolrouter.NewAgentExecutor(delegate)

	result, err := exec.Execute(context.Background(), toolregistry.Tool{RouterKey: "researcher"}, nil, toolrouter.ExecContext{JobID: "job1"}, nil)
	require.NoError(t, err)
	require.Equal(t, "delegated", result)
	require.Equal(t, "researcher", delegate.gotTarget)
	require.Equal(t, "job1", delegate.gotJob)
}

type fakeNetworkInvoker struct {
	gotProvider, gotUsage, gotAmount string
	result                          string
}

func (f *fakeNetworkInvoker) RunNetworkTool(_ context.Context, provider, usage, amount string, _ map[string]any) (string, error) {
	f.gotProvider, f.gotUsage, f.gotAmount = provider, usage, amount
	return f.result, nil
}

func TestNetworkExecutorUsesConfigProviderOverRouterKey(t *testing.T) {
	t.Parallel()
	invoker := &fakeNetworkInvoker{result: "42"}
	exec := toolrouter.NewNetworkExecutor(invoker)

	result, err := exec.Execute(context.Background(), toolregistry.Tool{RouterKey: "gpt4.call"}, nil, toolrouter.ExecContext{}, map[string]string{"provider": "openai-node", "usage": "chat", "amount": "0.05"})
	require.NoError(t, err)
	require.Equal(t, "42", result)
	require.Equal(t, "openai-node", invoker.gotProvider)
	require.Equal(t, "chat", invoker.gotUsage)
}

func TestNetworkExecutorFallsBackToRouterKeyAsProvider(t *testing.T) {
	t.Parallel()
	invoker := &fakeNetworkInvoker{result: "ok"}
	exec := toolrouter.NewNetworkExecutor(invoker)

	_, err := exec.Execute(context.Background(), toolregistry.Tool{RouterKey: "provider-node"}, nil, toolrouter.ExecContext{}, map[string]string{})
	require.NoError(t, err)
	require.Equal(t, "provider-node", invoker.gotProvider)
}

type fakeWorkflowEngine struct {
	gotWorkflowID string
	result        string
}

func (f *fakeWorkflowEngine) RunWorkflow(_ context.Context, workflowID string, _ map[string]any) (string, error) {
	f.gotWorkflowID = workflowID
	return f.result, nil
}

func TestWorkflowExecutorDelegatesToEngine(t *testing.T) {
	t.Parallel()
	engine := &fakeWorkflowEngine{result: "started"}
	exec := toolrouter.NewWorkflowExecutor(engine)

	result, err := exec.Execute(context.Background(), toolregistry.Tool{RouterKey: "long-research"}, nil, toolrouter.ExecContext{}, nil)
	require.NoError(t, err)
	require.Equal(t, "started", result)
	require.Equal(t, "long-research", engine.gotWorkflowID)
}
