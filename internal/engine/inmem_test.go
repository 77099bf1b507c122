package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nodecore/node/internal/engine"
	"github.com/nodecore/node/internal/inbox"
	"github.com/nodecore/node/internal/job"
	"github.com/nodecore/node/internal/store"
)

type stubProvider struct{ reply string }

func (s stubProvider) RunInference(_ context.Context, _ job.InferenceRequest) (job.InferenceResponse, error) {
	return job.InferenceResponse{AssistantContent: s.reply}, nil
}

func TestInMemEngineRunsPipelineSynchronously(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	backend := store.NewMemStore()
	inboxes := inbox.NewStore(backend)
	registry := job.NewRegistry(backend, inboxes)

	j, err := registry.CreateJob(ctx, "job-1", "@@alice/main", "stub-provider", nil, false, "", time.Now())
	require.NoError(t, err)

	pipeline := job.NewPipeline(registry, inboxes, map[string]job.InferenceProvider{"stub-provider": stubProvider{reply: "ok"}}, nil)
	eng := engine.NewInMemEngine(pipeline)

	err = eng.RunJob(ctx, engine.JobRunRequest{JobID: j.JobID, RequesterFullName: "@@alice/main", UserContent: "hi", Now: time.Now()})
	require.NoError(t, err)

	branches, err := inboxes.LastMessages(ctx, j.ConversationInbox, 10, "")
	require.NoError(t, err)
	require.Len(t, branches, 1)
	require.Equal(t, "ok", string(branches[0][0].Envelope.Body))
}
