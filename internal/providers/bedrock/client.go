// Package bedrock adapts internal/job.InferenceProvider onto the AWS
// Bedrock Converse API, grounded on features/model/bedrock/client.go's
// RuntimeClient-interface-plus-Options-plus-Client shape (narrowed here to
// the single-turn Converse call; streaming is out of scope for this
// component).
package bedrock

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/nodecore/node/internal/job"
	"github.com/nodecore/node/internal/nodeerr"
)

// RuntimeClient mirrors the subset of the AWS Bedrock runtime client this
// adapter needs; satisfied by *bedrockruntime.Client.
type RuntimeClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Options configures the adapter.
type Options struct {
	Runtime      RuntimeClient
	DefaultModel string
	MaxTokens    int32
	Temperature  float32
}

// Client implements job.InferenceProvider via AWS Bedrock Converse.
type Client struct {
	runtime RuntimeClient
	model   string
	maxTok  int32
	temp    float32
}

var _ job.InferenceProvider = (*Client)(nil)

// New builds a Bedrock-backed inference provider.
func New(opts Options) (*Client, error) {
	if opts.Runtime == nil {
		return nil, errors.New("bedrock runtime client is required")
	}
	if strings.TrimSpace(opts.DefaultModel) == "" {
		return nil, errors.New("default model identifier is required")
	}
	return &Client{runtime: opts.Runtime, model: opts.DefaultModel, maxTok: opts.MaxTokens, temp: opts.Temperature}, nil
}

// RunInference implements job.InferenceProvider.
func (c *Client) RunInference(ctx context.Context, req job.InferenceRequest) (job.InferenceResponse, error) {
	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.model),
		Messages: []brtypes.Message{
			{
				Role: brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: req.UserContent},
				},
			},
		},
	}
	inferenceConfig := &brtypes.InferenceConfiguration{}
	if c.maxTok > 0 {
		inferenceConfig.MaxTokens = aws.Int32(c.maxTok)
	}
	if c.temp > 0 {
		inferenceConfig.Temperature = aws.Float32(c.temp)
	}
	input.InferenceConfig = inferenceConfig

	out, err := c.runtime.Converse(ctx, input)
	if err != nil {
		return job.InferenceResponse{}, nodeerr.Wrap(nodeerr.Retryable, "bedrock converse failed", err)
	}
	msgOutput, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return job.InferenceResponse{}, nodeerr.New(nodeerr.Retryable, "bedrock converse returned no message output")
	}
	var sb strings.Builder
	for _, block := range msgOutput.Value.Content {
		if textBlock, ok := block.(*brtypes.ContentBlockMemberText); ok {
			sb.WriteString(textBlock.Value)
		}
	}
	return job.InferenceResponse{AssistantContent: sb.String()}, nil
}
