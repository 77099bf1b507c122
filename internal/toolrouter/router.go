// Package toolrouter implements function-call resolution and execution
// (C7, spec.md §4.4): given a function name and arguments, resolve the
// matching catalogue entry, validate the arguments against its declared
// schema, and dispatch to the executor for its variant (scripted, native,
// agent, network, or workflow). Grounded on
// runtime/toolregistry/executor/executor.go's same resolve-then-dispatch
// shape, and on runtime/agent/toolerrors for the error taxonomy (already
// generalized into internal/nodeerr).
package toolrouter

import (
	"context"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/nodecore/node/internal/nodeerr"
	"github.com/nodecore/node/internal/toolregistry"
)

// ExecContext carries the caller-side state an executor needs beyond the
// function name/arguments: which job and agent is calling, who requested
// the call, and what scope it may read.
type ExecContext struct {
	JobID         string
	AgentID       string
	RequesterName string
	ReadableScope []string
}

// ConfigResolver resolves the effective per-call configuration for a tool,
// merging node-wide defaults with any agent-level override (spec.md §4.4:
// "tool configuration resolves node defaults overridden per-agent").
type ConfigResolver interface {
	ResolveConfig(ctx context.Context, routerKey, agentID string) (map[string]string, error)
}

// Executor runs one resolved, schema-validated tool call for a specific
// variant and returns its raw string result.
type Executor interface {
	Execute(ctx context.Context, tool toolregistry.Tool, arguments map[string]any, execCtx ExecContext, config map[string]string) (string, error)
}

// Router resolves a function name to a catalogue Tool and dispatches to
// the Executor registered for its Variant.
type Router struct {
	registry  *toolregistry.Registry
	executors map[toolregistry.Variant]Executor
	config    ConfigResolver

	schemas map[string]*jsonschema.Schema
}

// NewRouter constructs a Router. config may be nil, in which case tools run
// with an empty configuration map.
func NewRouter(registry *toolregistry.Registry, executors map[toolregistry.Variant]Executor, config ConfigResolver) *Router {
	return &Router{registry: registry, executors: executors, config: config, schemas: make(map[string]*jsonschema.Schema)}
}

// Resolve looks up the tool a function call targets, using the function
// name unchanged as the router key. The catalogue holds one installed
// version per router key, and that version is the one that runs.
func (r *Router) Resolve(ctx context.Context, functionName string) (*toolregistry.Tool, error) {
	tool, err := r.registry.GetTool(ctx, functionName)
	if err != nil {
		return nil, err
	}
	return tool, nil
}

// Execute resolves functionName, validates arguments against its declared
// input schema, resolves its effective configuration, and dispatches to
// the Executor registered for its variant (spec.md §4.4's function-call
// execution steps).
func (r *Router) Execute(ctx context.Context, functionName string, arguments map[string]any, execCtx ExecContext) (string, error) {
	tool, err := r.Resolve(ctx, functionName)
	if err != nil {
		return "", err
	}

	if err := r.validateArguments(functionName, tool, arguments); err != nil {
		return "", err
	}

	config := map[string]string{}
	if r.config != nil {
		config, err = r.config.ResolveConfig(ctx, tool.RouterKey, execCtx.AgentID)
		if err != nil {
			return "", err
		}
	}

	exec, ok := r.executors[tool.Variant]
	if !ok {
		return "", nodeerr.Errorf(nodeerr.BadRequest, "no executor registered for tool variant %q", tool.Variant)
	}
	return exec.Execute(ctx, *tool, arguments, execCtx, config)
}

func (r *Router) validateArguments(functionName string, tool *toolregistry.Tool, arguments map[string]any) error {
	if len(tool.InputSchema) == 0 {
		return nil
	}
	schema, ok := r.schemas[functionName]
	if !ok {
		var schemaDoc any
		if err := json.Unmarshal(tool.InputSchema, &schemaDoc); err != nil {
			return nodeerr.Wrap(nodeerr.BadRequest, "unmarshal tool input schema", err)
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(functionName, schemaDoc); err != nil {
			return nodeerr.Wrap(nodeerr.BadRequest, "add tool input schema resource", err)
		}
		compiled, err := compiler.Compile(functionName)
		if err != nil {
			return nodeerr.Wrap(nodeerr.BadRequest, "compile tool input schema", err)
		}
		schema = compiled
		r.schemas[functionName] = schema
	}

	raw, err := json.Marshal(arguments)
	if err != nil {
		return nodeerr.Wrap(nodeerr.BadRequest, "marshal tool call arguments", err)
	}
	var argDoc any
	if err := json.Unmarshal(raw, &argDoc); err != nil {
		return nodeerr.Wrap(nodeerr.BadRequest, "unmarshal tool call arguments", err)
	}
	if err := schema.Validate(argDoc); err != nil {
		return nodeerr.Wrap(nodeerr.BadRequest, "tool call arguments failed schema validation", err)
	}
	return nil
}
