// Package anthropic adapts internal/job.InferenceProvider onto the
// Anthropic Claude Messages API, grounded on
// features/model/anthropic/client.go's MessagesClient-interface-plus-
// Options-plus-Client shape (the teacher wraps the SDK behind a narrow
// interface so tests can substitute a fake).
package anthropic

import (
	"context"
	"errors"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/nodecore/node/internal/job"
	"github.com/nodecore/node/internal/nodeerr"
)

// MessagesClient captures the subset of the Anthropic SDK used by this
// adapter, so tests can pass a fake instead of a live *sdk.MessageService.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Options configures the adapter.
type Options struct {
	DefaultModel string
	MaxTokens    int64
	Temperature  float64
}

// Client implements job.InferenceProvider on top of Anthropic Messages.
type Client struct {
	msg    MessagesClient
	model  string
	maxTok int64
	temp   float64
}

var _ job.InferenceProvider = (*Client)(nil)

// New builds an Anthropic-backed inference provider.
func New(msg MessagesClient, opts Options) (*Client, error) {
	if msg == nil {
		return nil, errors.New("anthropic client is required")
	}
	if strings.TrimSpace(opts.DefaultModel) == "" {
		return nil, errors.New("default model identifier is required")
	}
	maxTok := opts.MaxTokens
	if maxTok <= 0 {
		maxTok = 4096
	}
	return &Client{msg: msg, model: opts.DefaultModel, maxTok: maxTok, temp: opts.Temperature}, nil
}

// NewFromAPIKey constructs a Client using the default Anthropic HTTP client,
// authenticated with the given apiKey.
func NewFromAPIKey(apiKey, defaultModel string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}
	c := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&c.Messages, Options{DefaultModel: defaultModel})
}

// RunInference implements job.InferenceProvider.
func (c *Client) RunInference(ctx context.Context, req job.InferenceRequest) (job.InferenceResponse, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTok,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.UserContent)),
		},
	}
	if c.temp > 0 {
		params.Temperature = sdk.Float(c.temp)
	}
	msg, err := c.msg.New(ctx, params)
	if err != nil {
		return job.InferenceResponse{}, nodeerr.Wrap(nodeerr.Retryable, "anthropic messages.new failed", err)
	}
	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return job.InferenceResponse{AssistantContent: sb.String()}, nil
}
