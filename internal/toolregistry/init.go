package toolregistry

import (
	"context"

	"github.com/rs/zerolog/log"
)

// LocalInstallSource loads tools from a node's local install directory
// (spec.md §4.4: tools can be dropped on disk alongside the node binary).
type LocalInstallSource interface {
	LoadLocalTools(ctx context.Context) ([]Tool, error)
}

// StaticPromptLoader seeds built-in prompt-only tools when the catalogue is
// empty (spec.md §4.4: "When the store is empty, static prompts are also
// loaded").
type StaticPromptLoader interface {
	LoadStaticPrompts(ctx context.Context) ([]Tool, error)
}

// BootstrapConfig controls Bootstrap's optional stages.
type BootstrapConfig struct {
	Native              []Tool
	LocalInstall        LocalInstallSource
	Syncer              *Syncer
	StaticPrompts       StaticPromptLoader
	TestingToolsEnabled bool
	TestingTools        []Tool
}

// Bootstrap runs the catalogue's load order exactly once, on node startup.
// The order is load-bearing (spec.md §4.4): native tools are always
// present and take priority; then the local install directory; then the
// remote directory sync; testing-network tools are loaded last and only
// when explicitly enabled, so they never silently shadow a real tool in a
// production deployment.
func Bootstrap(ctx context.Context, registry *Registry, cfg BootstrapConfig) error {
	for _, t := range cfg.Native {
		if err := registry.PutTool(ctx, t); err != nil {
			return err
		}
	}

	empty, err := registry.IsEmpty(ctx)
	if err != nil {
		return err
	}
	if empty && cfg.StaticPrompts != nil {
		prompts, err := cfg.StaticPrompts.LoadStaticPrompts(ctx)
		if err != nil {
			return err
		}
		for _, t := range prompts {
			if err := registry.PutTool(ctx, t); err != nil {
				return err
			}
		}
	}

	if cfg.LocalInstall != nil {
		local, err := cfg.LocalInstall.LoadLocalTools(ctx)
		if err != nil {
			return err
		}
		for _, t := range local {
			if _, err := registry.UpsertToolVersion(ctx, t); err != nil {
				return err
			}
		}
	}

	if cfg.Syncer != nil {
		if err := cfg.Syncer.Sync(ctx); err != nil {
			log.Warn().Err(err).Msg("remote tool directory sync failed during bootstrap")
		}
	}

	if cfg.TestingToolsEnabled {
		for _, t := range cfg.TestingTools {
			if err := registry.PutTool(ctx, t); err != nil {
				return err
			}
		}
	}

	return nil
}
