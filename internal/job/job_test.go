package job_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nodecore/node/internal/identity"
	"github.com/nodecore/node/internal/inbox"
	"github.com/nodecore/node/internal/job"
	"github.com/nodecore/node/internal/store"
	"github.com/nodecore/node/internal/wire"
)

func newRegistry(t *testing.T) (*job.Registry, *inbox.Store) {
	t.Helper()
	backend := store.NewMemStore()
	inboxes := inbox.NewStore(backend)
	return job.NewRegistry(backend, inboxes), inboxes
}

func TestCreateJobGrantsCreatorAdmin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	registry, inboxes := newRegistry(t)

	j, err := registry.CreateJob(ctx, "job-1", "@@alice/main", "anthropic-claude", []string{"/scope/a"}, false, "", time.Now())
	require.NoError(t, err)
	require.Equal(t, "job_inbox::job-1::false", j.ConversationInbox)

	ok, err := inboxes.HasPermission(ctx, j.ConversationInbox, "@@alice/main", identity.PermissionNone, inbox.PermissionAdmin)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCreateJobIsIdempotentOnJobID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	registry, _ := newRegistry(t)

	first, err := registry.CreateJob(ctx, "job-1", "@@alice/main", "agent-a", []string{"/scope/a"}, false, "", time.Now())
	require.NoError(t, err)

	// A second create with the same job_id but a different now must be a
	// no-op: it returns the original record and must not write a second
	// all_jobs_time_keyed entry.
	second, err := registry.CreateJob(ctx, "job-1", "@@bob/main", "agent-b", []string{"/scope/b"}, true, "", time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, first, second)

	jobs, err := registry.JobsForAgent(ctx, "agent-a")
	require.NoError(t, err)
	require.Equal(t, []string{"job-1"}, jobs)

	jobsB, err := registry.JobsForAgent(ctx, "agent-b")
	require.NoError(t, err)
	require.Empty(t, jobsB)
}

func TestChangeJobAgentSwapsReverseIndex(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	registry, _ := newRegistry(t)

	_, err := registry.CreateJob(ctx, "job-1", "@@alice/main", "agent-a", nil, false, "", time.Now())
	require.NoError(t, err)

	jobs, err := registry.JobsForAgent(ctx, "agent-a")
	require.NoError(t, err)
	require.Equal(t, []string{"job-1"}, jobs)

	require.NoError(t, registry.ChangeJobAgent(ctx, "job-1", "agent-b"))

	jobsOld, err := registry.JobsForAgent(ctx, "agent-a")
	require.NoError(t, err)
	require.Empty(t, jobsOld)

	jobsNew, err := registry.JobsForAgent(ctx, "agent-b")
	require.NoError(t, err)
	require.Equal(t, []string{"job-1"}, jobsNew)
}

func TestFinishJobIsSticky(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	registry, _ := newRegistry(t)

	_, err := registry.CreateJob(ctx, "job-1", "@@alice/main", "agent-a", nil, false, "", time.Now())
	require.NoError(t, err)

	require.NoError(t, registry.FinishJob(ctx, "job-1"))
	j, err := registry.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.True(t, j.IsFinished)

	require.NoError(t, registry.FinishJob(ctx, "job-1"))
	j, err = registry.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.True(t, j.IsFinished)
}

func TestExecutionContextDefaultsToLatestMessage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	registry, inboxes := newRegistry(t)

	j, err := registry.CreateJob(ctx, "job-1", "@@alice/main", "agent-a", nil, false, "", time.Now())
	require.NoError(t, err)

	hash, err := inboxes.InsertMessage(ctx, j.ConversationInbox, "@@alice/main", inboxTextEnvelope("hi"), "", time.Now())
	require.NoError(t, err)

	require.NoError(t, registry.SetExecutionContext(ctx, "job-1", job.ExecutionContext{"k": "v"}, ""))

	got, err := registry.ExecutionContext(ctx, "job-1", hash)
	require.NoError(t, err)
	require.Equal(t, "v", got["k"])
}

func TestAddAndFetchStepHistory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	registry, _ := newRegistry(t)

	_, err := registry.CreateJob(ctx, "job-1", "@@alice/main", "agent-a", nil, false, "", time.Now())
	require.NoError(t, err)

	step := job.StepResult{
		UserMessageHash:      "user-hash",
		UserContent:          "question",
		AssistantMessageHash: "assistant-hash",
		AssistantContent:     "answer",
		Timestamp:            time.Now(),
	}
	require.NoError(t, registry.AddStepHistory(ctx, "job-1", step))

	steps, err := registry.StepHistoryForMessage(ctx, "user-hash")
	require.NoError(t, err)
	require.Len(t, steps, 1)
	require.Equal(t, "answer", steps[0].AssistantContent)
}

func TestPipelineRunPostsAssistantReply(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	registry, inboxes := newRegistry(t)

	j, err := registry.CreateJob(ctx, "job-1", "@@alice/main", "stub-provider", nil, false, "", time.Now())
	require.NoError(t, err)

	providers := map[string]job.InferenceProvider{
		"stub-provider": stubProvider{reply: "42"},
	}
	pipeline := job.NewPipeline(registry, inboxes, providers, nil)

	require.NoError(t, pipeline.Run(ctx, j.JobID, "@@alice/main", "what is the answer?", nil, time.Now()))

	branches, err := inboxes.LastMessages(ctx, j.ConversationInbox, 10, "")
	require.NoError(t, err)
	require.Len(t, branches, 1)
	require.Len(t, branches[0], 2)
	require.Equal(t, "42", string(branches[0][0].Envelope.Body))
}

func TestPipelineRunPostsErrorOnMissingProvider(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	registry, inboxes := newRegistry(t)

	j, err := registry.CreateJob(ctx, "job-1", "@@alice/main", "unregistered", nil, false, "", time.Now())
	require.NoError(t, err)

	pipeline := job.NewPipeline(registry, inboxes, map[string]job.InferenceProvider{}, nil)
	require.NoError(t, pipeline.Run(ctx, j.JobID, "@@alice/main", "hello", nil, time.Now()))

	branches, err := inboxes.LastMessages(ctx, j.ConversationInbox, 10, "")
	require.NoError(t, err)
	require.Len(t, branches, 1)
	require.Contains(t, string(branches[0][0].Envelope.Body), "error:")
}

type stubProvider struct {
	reply string
}

func (s stubProvider) RunInference(_ context.Context, _ job.InferenceRequest) (job.InferenceResponse, error) {
	return job.InferenceResponse{AssistantContent: s.reply}, nil
}

func inboxTextEnvelope(content string) wire.Envelope {
	return wire.Envelope{Body: []byte(content), InnerSchema: wire.SchemaTextContent}
}
