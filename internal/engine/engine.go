// Package engine implements the durable job engine (C15, spec.md §4.3 /
// SPEC_FULL.md's durable-job-engine domain-stack commitment): a pluggable
// interface so the inference chain can run either in-process (the default,
// and the only implementation exercised by most tests) or on
// go.temporal.io/sdk as an alternate, durable backend behind the same
// interface. Grounded on runtime/agent/engine/engine.go's Engine
// abstraction, scaled down to this node's single concrete workflow (run
// one job's inference chain) rather than the teacher's arbitrary
// multi-workflow registry.
package engine

import (
	"context"
	"time"
)

// JobRunRequest is the durable unit of work this engine executes: one
// inbound job message going through the inference pipeline (spec.md §4.3).
type JobRunRequest struct {
	JobID             string
	RequesterFullName string
	UserContent       string
	MessageScope      []string
	Now               time.Time
}

// JobEngine runs a job, durable or not depending on the implementation,
// and returns once the run has finished (in-process: when the pipeline call
// returns; Temporal: when the started workflow has completed, since RunJob
// waits on its result).
type JobEngine interface {
	RunJob(ctx context.Context, req JobRunRequest) error
}
