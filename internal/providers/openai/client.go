// Package openai adapts internal/job.InferenceProvider onto the OpenAI Chat
// Completions API via github.com/openai/openai-go (the SDK this module's
// go.mod actually carries), following the same narrow-interface-plus-
// Options-plus-Client shape as features/model/anthropic/client.go.
package openai

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/nodecore/node/internal/job"
	"github.com/nodecore/node/internal/nodeerr"
)

// ChatClient captures the subset of the openai-go client used by this
// adapter.
type ChatClient interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Options configures the adapter.
type Options struct {
	DefaultModel string
	Temperature  float64
}

// Client implements job.InferenceProvider via OpenAI Chat Completions.
type Client struct {
	chat  ChatClient
	model string
	temp  float64
}

var _ job.InferenceProvider = (*Client)(nil)

// New builds an OpenAI-backed inference provider.
func New(chat ChatClient, opts Options) (*Client, error) {
	if chat == nil {
		return nil, errors.New("openai client is required")
	}
	model := strings.TrimSpace(opts.DefaultModel)
	if model == "" {
		return nil, errors.New("default model is required")
	}
	return &Client{chat: chat, model: model, temp: opts.Temperature}, nil
}

// NewFromAPIKey constructs a Client using the default openai-go HTTP client.
func NewFromAPIKey(apiKey, defaultModel string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("api key is required")
	}
	c := openai.NewClient(option.WithAPIKey(apiKey))
	return New(&c.Chat.Completions, Options{DefaultModel: defaultModel})
}

// RunInference implements job.InferenceProvider.
func (c *Client) RunInference(ctx context.Context, req job.InferenceRequest) (job.InferenceResponse, error) {
	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.UserContent),
		},
	}
	if c.temp > 0 {
		params.Temperature = openai.Float(c.temp)
	}
	resp, err := c.chat.New(ctx, params)
	if err != nil {
		return job.InferenceResponse{}, nodeerr.Wrap(nodeerr.Retryable, "openai chat.completions.new failed", err)
	}
	if len(resp.Choices) == 0 {
		return job.InferenceResponse{}, nodeerr.New(nodeerr.Retryable, "openai returned no choices")
	}
	return job.InferenceResponse{AssistantContent: resp.Choices[0].Message.Content}, nil
}
