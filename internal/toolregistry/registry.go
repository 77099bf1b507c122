// Package toolregistry implements the tool catalogue (C6, spec.md §4.4(a,
// b)): the tool/agent/workflow variant union, version-compare-and-skip
// remote directory sync, default-tool tracking, and combined vector+lexical
// search. Grounded on the same store-column-family discipline as
// internal/inbox and internal/job (runtime/registry/{manager,cache}.go is
// the closest teacher analog in spirit — a catalogue keyed by a stable
// name with sync/search on top — though it is generated-gRPC-backed and
// this package is not).
package toolregistry

import (
	"context"
	"encoding/json"

	"github.com/nodecore/node/internal/nodeerr"
	"github.com/nodecore/node/internal/store"
)

const (
	cfTools    = "toolregistry_tools"
	cfDefaults = "toolregistry_defaults"
)

// Variant is the closed tool-shape union (spec.md §4.4 plus the Workflow
// variant this module's onboarding Open Question resolved to add).
type Variant string

const (
	VariantScripted Variant = "scripted"
	VariantNative   Variant = "native"
	VariantAgent    Variant = "agent"
	VariantNetwork  Variant = "network"
	VariantWorkflow Variant = "workflow"
)

// OAuthBlock is a tool's declared OAuth requirement, used to derive the
// OAuth bundle a scripted tool's execution environment receives.
type OAuthBlock struct {
	Provider     string
	Scopes       []string
	AuthorizeURL string
	TokenURL     string
}

// Tool is a catalogue entry (spec.md §4.4).
type Tool struct {
	RouterKey   string
	Version     string
	Name        string
	Description string
	Variant     Variant
	InputSchema json.RawMessage
	OAuth       *OAuthBlock
	IsDefault   bool
	// Disabled marks a tool withheld from Search unless include_disabled is
	// set (spec.md §4.5).
	Disabled bool
	// Embedding is an optional precomputed embedding vector used by the
	// vector half of Search; nil means the tool only participates in the
	// lexical half.
	Embedding []float32
}

// Registry is the C6 tool catalogue.
type Registry struct {
	backend store.Store
}

// NewRegistry constructs a Registry over backend.
func NewRegistry(backend store.Store) *Registry {
	return &Registry{backend: backend}
}

func toolKey(routerKey string) []byte {
	return []byte(routerKey)
}

func defaultKey(routerKey string) []byte {
	return []byte(routerKey)
}

func wrapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	if err == store.ErrNotFound {
		return nodeerr.Wrap(nodeerr.NotFound, "", err)
	}
	return nodeerr.Wrap(nodeerr.Retryable, "toolregistry store operation failed", err)
}

// GetTool fetches the currently installed version of a tool by router key.
func (r *Registry) GetTool(ctx context.Context, routerKey string) (*Tool, error) {
	raw, err := r.backend.Get(ctx, cfTools, toolKey(routerKey))
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	var t Tool
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, nodeerr.Wrap(nodeerr.Retryable, "decode tool", err)
	}
	return &t, nil
}

// PutTool installs or replaces a tool unconditionally — callers that need
// the §4.4(b) "strictly greater version" compare-and-skip contract should
// call UpsertToolVersion instead.
func (r *Registry) PutTool(ctx context.Context, t Tool) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return nodeerr.Wrap(nodeerr.BadRequest, "marshal tool", err)
	}
	ops := []store.WriteOp{{ColumnFamily: cfTools, Key: toolKey(t.RouterKey), Value: raw}}
	if t.IsDefault {
		ops = append(ops, store.WriteOp{ColumnFamily: cfDefaults, Key: defaultKey(t.RouterKey), Value: []byte{1}})
	}
	if err := r.backend.Batch(ctx, ops); err != nil {
		return wrapStoreErr(err)
	}
	return nil
}

// IsDefaultTool reports whether routerKey is one of the tools the remote
// directory marked default (spec.md §4.4(b): "entries marked default are
// remembered in-process so other subsystems can query...").
func (r *Registry) IsDefaultTool(ctx context.Context, routerKey string) (bool, error) {
	_, err := r.backend.Get(ctx, cfDefaults, defaultKey(routerKey))
	if err != nil {
		if err == store.ErrNotFound {
			return false, nil
		}
		return false, wrapStoreErr(err)
	}
	return true, nil
}

// ListTools returns every installed tool. Used by the scripted-tool
// "tool-definitions" support payload (spec.md §4.4) and by Search.
func (r *Registry) ListTools(ctx context.Context) ([]Tool, error) {
	entries, err := r.backend.PrefixScan(ctx, cfTools, []byte(""))
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	tools := make([]Tool, 0, len(entries))
	for _, e := range entries {
		var t Tool
		if err := json.Unmarshal(e.Value, &t); err != nil {
			return nil, nodeerr.Wrap(nodeerr.Retryable, "decode tool", err)
		}
		tools = append(tools, t)
	}
	return tools, nil
}

// UpsertToolVersion implements spec.md §4.4(b)'s remote-sync compare-and-skip
// rule: the incoming tool is installed only if there is no existing entry,
// or the existing entry's version sorts strictly lower. Returns whether an
// install actually happened.
func (r *Registry) UpsertToolVersion(ctx context.Context, t Tool) (bool, error) {
	existing, err := r.GetTool(ctx, t.RouterKey)
	if err != nil && !nodeerr.Is(err, nodeerr.NotFound) {
		return false, err
	}
	if existing != nil && !versionLess(existing.Version, t.Version) {
		return false, nil
	}
	if err := r.PutTool(ctx, t); err != nil {
		return false, err
	}
	return true, nil
}

// versionLess compares version strings field by field as numbers (e.g.
// "1.2.0" < "1.10.0"); missing fields count as 0. Every non-digit character
// separates fields and there is no string-compare fallback, so versions
// that differ only in non-digit text (e.g. "1.0-beta" and "1.0") compare
// equal. Tool versions are author-assigned strings, not a strict semver
// contract.
func versionLess(a, b string) bool {
	as, bs := splitVersion(a), splitVersion(b)
	for i := 0; i < len(as) || i < len(bs); i++ {
		var av, bv int
		if i < len(as) {
			av = as[i]
		}
		if i < len(bs) {
			bv = bs[i]
		}
		if av != bv {
			return av < bv
		}
	}
	return false
}

func splitVersion(v string) []int {
	var parts []int
	cur := 0
	any := false
	for _, r := range v {
		if r >= '0' && r <= '9' {
			cur = cur*10 + int(r-'0')
			any = true
			continue
		}
		parts = append(parts, cur)
		cur = 0
		any = false
	}
	if any || len(parts) == 0 {
		parts = append(parts, cur)
	}
	return parts
}

// IsEmpty reports whether the catalogue has no tools yet, gating the
// static-prompt bootstrap step (spec.md §4.4: "When the store is empty,
// static prompts are also loaded").
func (r *Registry) IsEmpty(ctx context.Context) (bool, error) {
	tools, err := r.ListTools(ctx)
	if err != nil {
		return false, err
	}
	return len(tools) == 0, nil
}
