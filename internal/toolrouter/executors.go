package toolrouter

import (
	"context"

	"github.com/nodecore/node/internal/nodeerr"
	"github.com/nodecore/node/internal/toolregistry"
)

// Sandbox runs a scripted tool's code in an isolated environment (spec.md
// §4.4: scripted tools execute inside a sandbox with a declared readable
// scope and a tool-definitions support payload). The node itself never
// shells out or spawns a container — that is a deployment concern behind
// this interface.
type Sandbox interface {
	Run(ctx context.Context, tool toolregistry.Tool, arguments map[string]any, readableScope []string, toolDefinitions []toolregistry.Tool, config map[string]string) (string, error)
}

// ScriptedExecutor runs VariantScripted tools: it assembles the
// tool-definitions payload from the full catalogue (so a scripted tool can
// itself enumerate and call other tools) and hands execution to a Sandbox.
type ScriptedExecutor struct {
	registry *toolregistry.Registry
	sandbox  Sandbox
}

// NewScriptedExecutor constructs a ScriptedExecutor.
func NewScriptedExecutor(registry *toolregistry.Registry, sandbox Sandbox) *ScriptedExecutor {
	return &ScriptedExecutor{registry: registry, sandbox: sandbox}
}

func (e *ScriptedExecutor) Execute(ctx context.Context, tool toolregistry.Tool, arguments map[string]any, execCtx ExecContext, config map[string]string) (string, error) {
	if e.sandbox == nil {
		return "", nodeerr.New(nodeerr.Retryable, "no sandbox configured for scripted tool execution")
	}
	defs, err := e.registry.ListTools(ctx)
	if err != nil {
		return "", err
	}
	return e.sandbox.Run(ctx, tool, arguments, execCtx.ReadableScope, defs, config)
}

// KeyStore resolves the bearer API key a native tool uses to call back
// into this node's own v2 HTTP API (spec.md §4.4: native tools run
// in-process and authenticate to the node's own API like any other
// caller).
type KeyStore interface {
	KeyFor(ctx context.Context, agentID string) (string, error)
}

// NativeFunction is one in-process native tool implementation.
type NativeFunction interface {
	Run(ctx context.Context, arguments map[string]any, apiKey string, config map[string]string) (string, error)
}

// NativeExecutor runs VariantNative tools: native functions that execute
// directly in the node process rather than in a sandbox, authenticated
// with a bearer key scoped to the calling agent.
type NativeExecutor struct {
	keys      KeyStore
	functions map[string]NativeFunction
}

// NewNativeExecutor constructs a NativeExecutor. functions maps a tool's
// router key to its in-process implementation.
func NewNativeExecutor(keys KeyStore, functions map[string]NativeFunction) *NativeExecutor {
	return &NativeExecutor{keys: keys, functions: functions}
}

func (e *NativeExecutor) Execute(ctx context.Context, tool toolregistry.Tool, arguments map[string]any, execCtx ExecContext, config map[string]string) (string, error) {
	fn, ok := e.functions[tool.RouterKey]
	if !ok {
		return "", nodeerr.Errorf(nodeerr.NotFound, "no native implementation registered for %q", tool.RouterKey)
	}
	apiKey := ""
	if e.keys != nil {
		k, err := e.keys.KeyFor(ctx, execCtx.AgentID)
		if err != nil {
			return "", err
		}
		apiKey = k
	}
	return fn.Run(ctx, arguments, apiKey, config)
}

// AgentDelegate runs another agent as a tool call (spec.md §4.4: the agent
// variant lets one agent invoke another as a function, passing the target
// agent id through the call arguments).
type AgentDelegate interface {
	RunAsTool(ctx context.Context, targetAgentID string, arguments map[string]any, callerJobID string) (string, error)
}

// AgentExecutor runs VariantAgent tools.
type AgentExecutor struct {
	delegate AgentDelegate
}

// NewAgentExecutor constructs an AgentExecutor.
func NewAgentExecutor(delegate AgentDelegate) *AgentExecutor {
	return &AgentExecutor{delegate: delegate}
}

func (e *AgentExecutor) Execute(ctx context.Context, tool toolregistry.Tool, arguments map[string]any, execCtx ExecContext, _ map[string]string) (string, error) {
	if e.delegate == nil {
		return "", nodeerr.New(nodeerr.Retryable, "no agent delegate configured for agent tool execution")
	}
	return e.delegate.RunAsTool(ctx, tool.RouterKey, arguments, execCtx.JobID)
}

// NetworkInvoker runs a network (inter-node paid) tool call end to end —
// request an invoice, wait for settlement, and run the call — exactly the
// responsibility payments.Broker.RunNetworkTool already owns (spec.md
// §4.4(d) / §4.8). NetworkExecutor is a thin adapter onto that broker so
// the payments package stays the single owner of the invoice/settlement
// state machine.
type NetworkInvoker interface {
	RunNetworkTool(ctx context.Context, provider, usage, amount string, arguments map[string]any) (string, error)
}

// NetworkExecutor runs VariantNetwork tools. The provider node name and
// usage/amount hints come from the tool's own OAuth/config block rather
// than the call arguments, since they describe the tool, not the call.
type NetworkExecutor struct {
	broker NetworkInvoker
}

// NewNetworkExecutor constructs a NetworkExecutor.
func NewNetworkExecutor(broker NetworkInvoker) *NetworkExecutor {
	return &NetworkExecutor{broker: broker}
}

func (e *NetworkExecutor) Execute(ctx context.Context, tool toolregistry.Tool, arguments map[string]any, _ ExecContext, config map[string]string) (string, error) {
	if e.broker == nil {
		return "", nodeerr.New(nodeerr.Retryable, "no payment broker configured for network tool execution")
	}
	provider := config["provider"]
	if provider == "" {
		provider = tool.RouterKey
	}
	return e.broker.RunNetworkTool(ctx, provider, config["usage"], config["amount"], arguments)
}

// WorkflowEngine starts a durable multi-step job for a workflow tool call
// and returns once it reaches a result (spec.md's Open Question on
// long-running tool calls, resolved by adding the workflow variant: a tool
// whose "execution" is really delegating to C15's JobEngine rather than
// running inline).
type WorkflowEngine interface {
	RunWorkflow(ctx context.Context, workflowID string, arguments map[string]any) (string, error)
}

// WorkflowExecutor runs VariantWorkflow tools.
type WorkflowExecutor struct {
	engine WorkflowEngine
}

// NewWorkflowExecutor constructs a WorkflowExecutor.
func NewWorkflowExecutor(engine WorkflowEngine) *WorkflowExecutor {
	return &WorkflowExecutor{engine: engine}
}

func (e *WorkflowExecutor) Execute(ctx context.Context, tool toolregistry.Tool, arguments map[string]any, _ ExecContext, _ map[string]string) (string, error) {
	if e.engine == nil {
		return "", nodeerr.New(nodeerr.Retryable, "no workflow engine configured for workflow tool execution")
	}
	return e.engine.RunWorkflow(ctx, tool.RouterKey, arguments)
}
