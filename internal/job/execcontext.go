package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nodecore/node/internal/nodeerr"
)

func execCtxKey(jobID, msgHash string) []byte {
	return []byte(fmt.Sprintf("%s_%s", jobHash(jobID), msgHash))
}

// SetExecutionContext writes the execution context for jobID, indexed by
// (job, msgHash) so replaying history retrieves the context current at that
// point (spec.md §4.3). If msgHash is empty, the most recent message in the
// job's conversation inbox is used.
func (r *Registry) SetExecutionContext(ctx context.Context, jobID string, execCtx ExecutionContext, msgHash string) error {
	if msgHash == "" {
		j, err := r.GetJob(ctx, jobID)
		if err != nil {
			return err
		}
		latest, err := r.latestMessageHash(ctx, j.ConversationInbox)
		if err != nil {
			return err
		}
		msgHash = latest
	}
	record, err := json.Marshal(execCtx)
	if err != nil {
		return nodeerr.Wrap(nodeerr.BadRequest, "marshal execution context", err)
	}
	if err := r.backend.Put(ctx, cfExecCtx, execCtxKey(jobID, msgHash), record); err != nil {
		return wrapStoreErr(err)
	}
	return nil
}

// ExecutionContext returns the execution context snapshot recorded at
// msgHash for jobID.
func (r *Registry) ExecutionContext(ctx context.Context, jobID, msgHash string) (ExecutionContext, error) {
	raw, err := r.backend.Get(ctx, cfExecCtx, execCtxKey(jobID, msgHash))
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	var execCtx ExecutionContext
	if err := json.Unmarshal(raw, &execCtx); err != nil {
		return nil, nodeerr.Wrap(nodeerr.Retryable, "decode execution context", err)
	}
	return execCtx, nil
}

func (r *Registry) latestMessageHash(ctx context.Context, inboxName string) (string, error) {
	if r.inboxes == nil {
		return "", nodeerr.New(nodeerr.Fatal, "job registry has no inbox store configured")
	}
	branches, err := r.inboxes.LastMessages(ctx, inboxName, 1, "")
	if err != nil {
		return "", err
	}
	if len(branches) == 0 || len(branches[0]) == 0 {
		return "", nodeerr.Errorf(nodeerr.NotFound, "inbox %q has no messages", inboxName)
	}
	return branches[0][0].Hash, nil
}
