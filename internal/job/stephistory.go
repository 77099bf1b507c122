package job

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nodecore/node/internal/crypto"
	"github.com/nodecore/node/internal/nodeerr"
)

func msgHashPrefix(msgHash string) string {
	return hex.EncodeToString(crypto.TruncatedHash([]byte(msgHash), 16))
}

// stepHistoryKey is shaped so every step for a given message hash is a
// single prefix scan (spec.md §4.3: "step_history__<hash(msg_key)>_
// <hash(job_id)>_<time>").
func stepHistoryKey(msgHash, jobID string, ts time.Time) []byte {
	return []byte(fmt.Sprintf("%s_%s_%020d", msgHashPrefix(msgHash), jobHash(jobID), ts.UnixNano()))
}

// AddStepHistory synthesizes a StepResult from a user message and the
// assistant's response and writes it under a message-hash-prefixed key.
func (r *Registry) AddStepHistory(ctx context.Context, jobID string, step StepResult) error {
	record, err := json.Marshal(step)
	if err != nil {
		return nodeerr.Wrap(nodeerr.BadRequest, "marshal step result", err)
	}
	key := stepHistoryKey(step.UserMessageHash, jobID, step.Timestamp)
	if err := r.backend.Put(ctx, cfStepHist, key, record); err != nil {
		return wrapStoreErr(err)
	}
	return nil
}

// StepHistoryForMessage returns every step recorded against msgHash across
// all jobs (a single prefix scan, per the key-schema invariant above).
func (r *Registry) StepHistoryForMessage(ctx context.Context, msgHash string) ([]StepResult, error) {
	prefix := []byte(msgHashPrefix(msgHash) + "_")
	entries, err := r.backend.PrefixScan(ctx, cfStepHist, prefix)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	steps := make([]StepResult, 0, len(entries))
	for _, e := range entries {
		var s StepResult
		if err := json.Unmarshal(e.Value, &s); err != nil {
			return nil, nodeerr.Wrap(nodeerr.Retryable, "decode step result", err)
		}
		steps = append(steps, s)
	}
	return steps, nil
}
