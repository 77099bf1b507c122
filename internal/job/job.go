// Package job implements the job registry and execution pipeline (C5,
// spec.md §4.3): job records, the agent reverse index, time-ordered
// indexing, per-message execution context, and step history. Grounded on
// the same store-batch discipline as internal/inbox (registry/store.Store),
// since the teacher itself has no job-registry analog — job/session
// lifecycle here is original logic layered on the shared persistence
// contract.
package job

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/nodecore/node/internal/crypto"
	"github.com/nodecore/node/internal/inbox"
	"github.com/nodecore/node/internal/nodeerr"
	"github.com/nodecore/node/internal/store"
)

const (
	cfJobFields  = "jobinbox_fields"
	cfAgentIndex = "jobinbox_agent_index"
	cfTimeIndex  = "all_jobs_time_keyed"
	cfExecCtx    = "job_execution_context"
	cfStepHist   = "job_step_history"
)

// Job is a single job record (spec.md §3).
type Job struct {
	JobID             string
	IsHidden          bool
	IsFinished        bool
	CreatedAt         time.Time
	Scope             []string // file paths, folder paths, embedded resource refs
	LLMProviderID     string
	ConversationInbox string
	AssociatedUI      string // optional UI descriptor id; empty if none
	CreatorFullName   string
}

// ExecutionContext is the free-form key/value map carried by a job,
// snapshotted per message (spec.md §4.3).
type ExecutionContext map[string]string

// StepResult pairs a user message with the assistant's response, the unit
// step_history is written in (spec.md §4.3).
type StepResult struct {
	UserMessageHash      string
	UserContent          string
	AssistantMessageHash string
	AssistantContent     string
	Timestamp            time.Time
}

// Registry is the C5 job store, layered on a Store and an inbox.Store (every
// job owns exactly one conversation inbox, spec.md §4.3).
type Registry struct {
	backend store.Store
	inboxes *inbox.Store
}

// NewRegistry constructs a job Registry.
func NewRegistry(backend store.Store, inboxes *inbox.Store) *Registry {
	return &Registry{backend: backend, inboxes: inboxes}
}

func agentHash(agentID string) string {
	return hex.EncodeToString(crypto.TruncatedHash([]byte(agentID), 16))
}

func jobHash(jobID string) string {
	return hex.EncodeToString(crypto.TruncatedHash([]byte(jobID), 16))
}

func fieldsKey(jobID string) []byte {
	return []byte(jobID)
}

func agentIndexKey(agentID, jobID string) []byte {
	return []byte(fmt.Sprintf("%s_%s", agentHash(agentID), jobID))
}

func timeIndexKey(ts time.Time, jobID string) []byte {
	return []byte(fmt.Sprintf("%020d_%s", ts.UnixNano(), jobID))
}

func wrapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	if err == store.ErrNotFound {
		return nodeerr.Wrap(nodeerr.NotFound, "", err)
	}
	return nodeerr.Wrap(nodeerr.Retryable, "job store operation failed", err)
}
