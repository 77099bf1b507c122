package engine

import (
	"context"

	"github.com/nodecore/node/internal/job"
)

// InMemEngine runs a job synchronously in the calling goroutine, grounded
// on runtime/agent/engine/inmem/engine.go — the teacher's own "no external
// dependency" default. This is the engine a single-process node runs under
// by default (cmd/node wires it); tests outside this package drive
// job.Pipeline directly rather than through an engine.
type InMemEngine struct {
	pipeline *job.Pipeline
}

// NewInMemEngine constructs an InMemEngine over pipeline.
func NewInMemEngine(pipeline *job.Pipeline) *InMemEngine {
	return &InMemEngine{pipeline: pipeline}
}

// RunJob implements JobEngine by calling the pipeline directly and
// blocking until it finishes.
func (e *InMemEngine) RunJob(ctx context.Context, req JobRunRequest) error {
	return e.pipeline.Run(ctx, req.JobID, req.RequesterFullName, req.UserContent, req.MessageScope, req.Now)
}
