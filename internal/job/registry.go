package job

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nodecore/node/internal/inbox"
	"github.com/nodecore/node/internal/nodeerr"
	"github.com/nodecore/node/internal/store"
)

// CreateJob writes every job field, the agent reverse index, and the
// time-ordered index in a single atomic batch (spec.md §4.3). The job's
// conversation inbox is `job_inbox::<job_id>::false`; since that name
// carries no participant list, the creating profile is granted an explicit
// Admin permission tuple on it (see internal/inbox's DESIGN.md entry).
//
// CreateJob is idempotent on job_id (testable invariant #2 / S1): a second
// call with the same job_id is a no-op that returns the job record as it
// was first created, rather than writing a second time-index entry keyed
// on a different now.
func (r *Registry) CreateJob(ctx context.Context, jobID, creatorFullName, llmProviderID string, scope []string, isHidden bool, associatedUI string, now time.Time) (*Job, error) {
	if existing, err := r.GetJob(ctx, jobID); err == nil {
		return existing, nil
	} else if !nodeerr.Is(err, nodeerr.NotFound) {
		return nil, err
	}

	j := &Job{
		JobID:             jobID,
		IsHidden:          isHidden,
		IsFinished:        false,
		// UTC without a monotonic reading: the record returned here is then
		// identical to the one GetJob (and a repeated CreateJob) decodes.
		CreatedAt:         now.UTC(),
		Scope:             scope,
		LLMProviderID:     llmProviderID,
		ConversationInbox: inbox.JobInboxName(jobID),
		AssociatedUI:      associatedUI,
		CreatorFullName:   creatorFullName,
	}
	record, err := json.Marshal(j)
	if err != nil {
		return nil, nodeerr.Wrap(nodeerr.BadRequest, "marshal job record", err)
	}
	ops := []store.WriteOp{
		{ColumnFamily: cfJobFields, Key: fieldsKey(jobID), Value: record},
		{ColumnFamily: cfAgentIndex, Key: agentIndexKey(llmProviderID, jobID), Value: []byte(jobID)},
		{ColumnFamily: cfTimeIndex, Key: timeIndexKey(now, jobID), Value: []byte(jobID)},
	}
	if err := r.backend.Batch(ctx, ops); err != nil {
		return nil, wrapStoreErr(err)
	}
	if r.inboxes != nil {
		if err := r.inboxes.GrantPermission(ctx, j.ConversationInbox, creatorFullName, inbox.PermissionAdmin); err != nil {
			return nil, err
		}
	}
	return j, nil
}

// GetJob fetches a job record by id.
func (r *Registry) GetJob(ctx context.Context, jobID string) (*Job, error) {
	raw, err := r.backend.Get(ctx, cfJobFields, fieldsKey(jobID))
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	var j Job
	if err := json.Unmarshal(raw, &j); err != nil {
		return nil, nodeerr.Wrap(nodeerr.Retryable, "decode job record", err)
	}
	return &j, nil
}

// ChangeJobAgent atomically deletes the old agent->job reverse-index key and
// writes the new one, together with the updated job record, so the
// agent->jobs map is never observed inconsistent (spec.md §4.3).
func (r *Registry) ChangeJobAgent(ctx context.Context, jobID, newAgentID string) error {
	j, err := r.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	oldAgentID := j.LLMProviderID
	j.LLMProviderID = newAgentID
	record, err := json.Marshal(j)
	if err != nil {
		return nodeerr.Wrap(nodeerr.BadRequest, "marshal job record", err)
	}
	ops := []store.WriteOp{
		{ColumnFamily: cfJobFields, Key: fieldsKey(jobID), Value: record},
		{ColumnFamily: cfAgentIndex, Key: agentIndexKey(newAgentID, jobID), Value: []byte(jobID)},
	}
	if oldAgentID != "" && oldAgentID != newAgentID {
		ops = append(ops, store.WriteOp{
			ColumnFamily: cfAgentIndex,
			Key:          agentIndexKey(oldAgentID, jobID),
			Value:        nil, // delete
		})
	}
	if err := r.backend.Batch(ctx, ops); err != nil {
		return wrapStoreErr(err)
	}
	return nil
}

// FinishJob marks a job finished. Once IsFinished transitions to true it
// never flips back (spec.md §4.3 invariant); calling this on an
// already-finished job is a no-op.
func (r *Registry) FinishJob(ctx context.Context, jobID string) error {
	j, err := r.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if j.IsFinished {
		return nil
	}
	j.IsFinished = true
	record, err := json.Marshal(j)
	if err != nil {
		return nodeerr.Wrap(nodeerr.BadRequest, "marshal job record", err)
	}
	if err := r.backend.Put(ctx, cfJobFields, fieldsKey(jobID), record); err != nil {
		return wrapStoreErr(err)
	}
	return nil
}

// JobsForAgent lists every job id currently assigned to agentID via the
// reverse index.
func (r *Registry) JobsForAgent(ctx context.Context, agentID string) ([]string, error) {
	prefix := []byte(agentHash(agentID) + "_")
	entries, err := r.backend.PrefixScan(ctx, cfAgentIndex, prefix)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, string(e.Value))
	}
	return ids, nil
}
