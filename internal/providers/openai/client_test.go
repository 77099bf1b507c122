package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/require"

	"github.com/nodecore/node/internal/job"
)

type stubChatClient struct {
	lastParams openai.ChatCompletionNewParams
	resp       *openai.ChatCompletion
	err        error
}

func (s *stubChatClient) New(_ context.Context, body openai.ChatCompletionNewParams, _ ...option.RequestOption) (*openai.ChatCompletion, error) {
	s.lastParams = body
	return s.resp, s.err
}

func TestRunInferenceReturnsFirstChoice(t *testing.T) {
	t.Parallel()
	stub := &stubChatClient{
		resp: &openai.ChatCompletion{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "42"}},
			},
		},
	}
	c, err := New(stub, Options{DefaultModel: "gpt-4o"})
	require.NoError(t, err)

	resp, err := c.RunInference(context.Background(), job.InferenceRequest{UserContent: "what is the answer?"})
	require.NoError(t, err)
	require.Equal(t, "42", resp.AssistantContent)
	require.Equal(t, "gpt-4o", stub.lastParams.Model)
}

func TestRunInferenceErrorsOnNoChoices(t *testing.T) {
	t.Parallel()
	stub := &stubChatClient{resp: &openai.ChatCompletion{}}
	c, err := New(stub, Options{DefaultModel: "gpt-4o"})
	require.NoError(t, err)

	_, err = c.RunInference(context.Background(), job.InferenceRequest{UserContent: "hi"})
	require.Error(t, err)
}

func TestRunInferencePropagatesSDKError(t *testing.T) {
	t.Parallel()
	stub := &stubChatClient{err: errors.New("boom")}
	c, err := New(stub, Options{DefaultModel: "gpt-4o"})
	require.NoError(t, err)

	_, err = c.RunInference(context.Background(), job.InferenceRequest{UserContent: "hi"})
	require.Error(t, err)
}
