package toolregistry

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// EntryType distinguishes a remote directory entry that installs a tool
// from one that installs an agent definition (spec.md §4.4(b): "the remote
// directory lists both tools and agents").
type EntryType string

const (
	EntryTool  EntryType = "tool"
	EntryAgent EntryType = "agent"
)

// RemoteEntry is one listing returned by a DirectorySource.
type RemoteEntry struct {
	Type      EntryType
	RouterKey string
	Version   string
	FetchURL  string
}

// DirectorySource lists the remote directory's current entries and fetches
// one entry's full body. Sync calls FetchTool for every tool entry and
// leaves the version compare to UpsertToolVersion, so the body of an entry
// that is then skipped is still fetched.
type DirectorySource interface {
	FetchEntries(ctx context.Context) ([]RemoteEntry, error)
	FetchTool(ctx context.Context, entry RemoteEntry) (Tool, error)
}

// AgentImporter installs an agent definition fetched from the remote
// directory. Kept as a narrow seam since agent definitions are not part of
// this package's own storage model.
type AgentImporter interface {
	ImportAgent(ctx context.Context, entry RemoteEntry) error
}

// Syncer drives the C6 remote-directory sync described in spec.md §4.4(b):
// list remote entries, skip any whose local version is already current,
// install (tool) or import (agent) the rest, and remember whether a sync
// involving the default tool set has completed at least once
// (internal_has_sync_default_tools, exposed here as HasSyncedDefaultTools).
type Syncer struct {
	registry *Registry
	source   DirectorySource
	agents   AgentImporter
	synced   atomic.Bool
}

// NewSyncer constructs a Syncer. agents may be nil if the directory never
// lists agent entries in a given deployment.
func NewSyncer(registry *Registry, source DirectorySource, agents AgentImporter) *Syncer {
	return &Syncer{registry: registry, source: source, agents: agents}
}

// Sync performs one full pass over the remote directory.
func (s *Syncer) Sync(ctx context.Context) error {
	entries, err := s.source.FetchEntries(ctx)
	if err != nil {
		return err
	}

	sawDefault := false
	for _, entry := range entries {
		switch entry.Type {
		case EntryTool:
			tool, err := s.source.FetchTool(ctx, entry)
			if err != nil {
				return err
			}
			installed, err := s.registry.UpsertToolVersion(ctx, tool)
			if err != nil {
				return err
			}
			if tool.IsDefault {
				sawDefault = true
			}
			if installed {
				log.Info().Str("router_key", tool.RouterKey).Str("version", tool.Version).Msg("tool installed from remote directory")
			}
		case EntryAgent:
			if s.agents == nil {
				continue
			}
			if err := s.agents.ImportAgent(ctx, entry); err != nil {
				return err
			}
		}
	}
	if sawDefault {
		s.synced.Store(true)
	}
	return nil
}

// HasSyncedDefaultTools reports whether a Sync pass that ran to completion
// has ever listed at least one default-marked tool, whether or not that pass
// installed it.
func (s *Syncer) HasSyncedDefaultTools() bool {
	return s.synced.Load()
}
