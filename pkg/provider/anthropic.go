package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/aretw0/weave/pkg/domain"
)

// DefaultMaxTokens caps completions when no limit is configured.
const DefaultMaxTokens = 1024

// MessagesClient is the subset of the Anthropic SDK used by the adapter.
// *sdk.MessageService satisfies it.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Anthropic queries Claude through the Messages API.
type Anthropic struct {
	msg       MessagesClient
	model     string
	maxTokens int
	system    string
}

// AnthropicOption configures the Anthropic adapter.
type AnthropicOption func(*Anthropic)

// WithAnthropicMaxTokens sets the completion cap.
func WithAnthropicMaxTokens(n int) AnthropicOption {
	return func(a *Anthropic) {
		a.maxTokens = n
	}
}

// WithAnthropicSystem sets a system prompt sent with every query.
func WithAnthropicSystem(system string) AnthropicOption {
	return func(a *Anthropic) {
		a.system = system
	}
}

// NewAnthropic builds the adapter over an existing Messages client.
func NewAnthropic(msg MessagesClient, model string, opts ...AnthropicOption) (*Anthropic, error) {
	if msg == nil {
		return nil, errors.New("anthropic client is required")
	}
	if model == "" {
		return nil, errors.New("model identifier is required")
	}
	a := &Anthropic{msg: msg, model: model, maxTokens: DefaultMaxTokens}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// NewAnthropicFromAPIKey constructs the adapter using the default SDK HTTP client.
func NewAnthropicFromAPIKey(apiKey, model string, opts ...AnthropicOption) (*Anthropic, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return NewAnthropic(&ac.Messages, model, opts...)
}

// Query sends prompt as a single user message and joins the text blocks of the reply.
func (a *Anthropic) Query(ctx context.Context, prompt string) (string, error) {
	params := sdk.MessageNewParams{
		MaxTokens: int64(a.maxTokens),
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(prompt))},
		Model:     sdk.Model(a.model),
	}
	if a.system != "" {
		params.System = []sdk.TextBlockParam{{Text: a.system}}
	}

	msg, err := a.msg.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: anthropic: %w", domain.ErrResourceUnavailable, err)
	}
	if msg == nil {
		return "", fmt.Errorf("%w: anthropic: empty response", domain.ErrResourceUnavailable)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}
