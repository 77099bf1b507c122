package engine

import (
	"context"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/nodecore/node/internal/job"
	"github.com/nodecore/node/internal/nodeerr"
)

const (
	// WorkflowName is the logical workflow identifier registered with the
	// worker (grounded on engine.WorkflowDefinition.Name).
	WorkflowName = "RunJobWorkflow"
	// ActivityName is the logical activity identifier the workflow
	// schedules for the actual pipeline run.
	ActivityName = "RunJobActivity"
)

// TemporalEngine is the alternate, durable JobEngine implementation
// (spec.md's optional-durability note; SPEC_FULL.md's C15 domain-stack
// commitment), grounded on runtime/agent/engine/temporal/engine.go's
// client/worker wiring, scaled down to this node's single workflow.
type TemporalEngine struct {
	client    client.Client
	taskQueue string
}

// NewTemporalEngine constructs a TemporalEngine over an already-connected
// Temporal client. taskQueue is the queue workflows are started on and the
// worker (see RegisterWorker) listens on.
func NewTemporalEngine(c client.Client, taskQueue string) *TemporalEngine {
	return &TemporalEngine{client: c, taskQueue: taskQueue}
}

// RunJob starts RunJobWorkflow and blocks until it completes, giving
// callers the same synchronous contract as InMemEngine while the job run
// itself is durable — a worker crash mid-run resumes from Temporal's event
// history rather than losing the in-flight inference chain.
func (e *TemporalEngine) RunJob(ctx context.Context, req JobRunRequest) error {
	run, err := e.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "job-" + req.JobID + "-" + req.Now.String(),
		TaskQueue: e.taskQueue,
	}, WorkflowName, req)
	if err != nil {
		return nodeerr.Wrap(nodeerr.Retryable, "start durable job workflow", err)
	}
	if err := run.Get(ctx, nil); err != nil {
		return nodeerr.Wrap(nodeerr.Retryable, "durable job workflow failed", err)
	}
	return nil
}

// runJobWorkflow is the deterministic workflow function: it schedules
// ActivityName with the request and waits for it to finish. All actual
// I/O (store writes, inference calls) happens inside the activity, never
// directly in the workflow, preserving Temporal's determinism contract.
func runJobWorkflow(ctx workflow.Context, req JobRunRequest) error {
	ao := workflow.ActivityOptions{StartToCloseTimeout: -1}
	ctx = workflow.WithActivityOptions(ctx, ao)
	return workflow.ExecuteActivity(ctx, ActivityName, req).Get(ctx, nil)
}

// RegisterWorker registers the workflow and activity on w, backing
// ActivityName with a closure over pipeline so the activity can call the
// same job.Pipeline.Run the in-process engine uses directly.
func RegisterWorker(w worker.Worker, pipeline *job.Pipeline) {
	w.RegisterWorkflowWithOptions(runJobWorkflow, workflow.RegisterOptions{Name: WorkflowName})
	w.RegisterActivityWithOptions(func(ctx context.Context, req JobRunRequest) error {
		return pipeline.Run(ctx, req.JobID, req.RequesterFullName, req.UserContent, req.MessageScope, req.Now)
	}, activity.RegisterOptions{Name: ActivityName})
}
