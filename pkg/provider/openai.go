package provider

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/aretw0/weave/pkg/domain"
)

// ChatClient is the subset of the go-openai client used by the adapter.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (
		openai.ChatCompletionResponse, error)
}

// OpenAI queries the Chat Completions API.
type OpenAI struct {
	chat      ChatClient
	model     string
	maxTokens int
	system    string
}

// OpenAIOption configures the OpenAI adapter.
type OpenAIOption func(*OpenAI)

// WithOpenAIMaxTokens sets the completion cap.
func WithOpenAIMaxTokens(n int) OpenAIOption {
	return func(o *OpenAI) {
		o.maxTokens = n
	}
}

// WithOpenAISystem sets a system message sent with every query.
func WithOpenAISystem(system string) OpenAIOption {
	return func(o *OpenAI) {
		o.system = system
	}
}

// NewOpenAI builds the adapter over an existing chat client.
func NewOpenAI(chat ChatClient, model string, opts ...OpenAIOption) (*OpenAI, error) {
	if chat == nil {
		return nil, errors.New("openai client is required")
	}
	if model == "" {
		return nil, errors.New("model identifier is required")
	}
	o := &OpenAI{chat: chat, model: model}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// NewOpenAIFromAPIKey constructs the adapter using the default go-openai HTTP client.
func NewOpenAIFromAPIKey(apiKey, model string, opts ...OpenAIOption) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}
	return NewOpenAI(openai.NewClient(apiKey), model, opts...)
}

// Query sends prompt as a single user message and returns the first choice.
func (o *OpenAI) Query(ctx context.Context, prompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if o.system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: o.system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	resp, err := o.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     o.model,
		Messages:  messages,
		MaxTokens: o.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: openai: %w", domain.ErrResourceUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai: response has no choices", domain.ErrResourceUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}
