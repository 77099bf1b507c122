package bedrock

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/require"

	"github.com/nodecore/node/internal/job"
)

type stubRuntimeClient struct {
	lastInput *bedrockruntime.ConverseInput
	resp      *bedrockruntime.ConverseOutput
	err       error
}

func (s *stubRuntimeClient) Converse(_ context.Context, params *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	s.lastInput = params
	return s.resp, s.err
}

func TestRunInferenceReturnsTextContent(t *testing.T) {
	t.Parallel()
	stub := &stubRuntimeClient{
		resp: &bedrockruntime.ConverseOutput{
			Output: &brtypes.ConverseOutputMemberMessage{
				Value: brtypes.Message{
					Content: []brtypes.ContentBlock{
						&brtypes.ContentBlockMemberText{Value: "hello back"},
					},
				},
			},
		},
	}
	c, err := New(Options{Runtime: stub, DefaultModel: "anthropic.claude-3-sonnet"})
	require.NoError(t, err)

	resp, err := c.RunInference(context.Background(), job.InferenceRequest{UserContent: "hi"})
	require.NoError(t, err)
	require.Equal(t, "hello back", resp.AssistantContent)
}

func TestRunInferencePropagatesConverseError(t *testing.T) {
	t.Parallel()
	stub := &stubRuntimeClient{err: errors.New("boom")}
	c, err := New(Options{Runtime: stub, DefaultModel: "anthropic.claude-3-sonnet"})
	require.NoError(t, err)

	_, err = c.RunInference(context.Background(), job.InferenceRequest{UserContent: "hi"})
	require.Error(t, err)
}

func TestNewRequiresRuntimeAndModel(t *testing.T) {
	t.Parallel()
	_, err := New(Options{DefaultModel: "x"})
	require.Error(t, err)
	_, err = New(Options{Runtime: &stubRuntimeClient{}})
	require.Error(t, err)
}
