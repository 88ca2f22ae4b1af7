package provider_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/ports"
	"github.com/aretw0/weave/pkg/provider"
)

type stubMessages struct {
	got  sdk.MessageNewParams
	resp *sdk.Message
	err  error
}

func (s *stubMessages) New(_ context.Context, body sdk.MessageNewParams, _ ...option.RequestOption) (*sdk.Message, error) {
	s.got = body
	return s.resp, s.err
}

func TestAnthropic_Query(t *testing.T) {
	stub := &stubMessages{resp: &sdk.Message{Content: []sdk.ContentBlockUnion{
		{Type: "text", Text: "Hello, "},
		{Type: "thinking"},
		{Type: "text", Text: "Casey"},
	}}}
	p, err := provider.NewAnthropic(stub, "claude-test", provider.WithAnthropicMaxTokens(64), provider.WithAnthropicSystem("be brief"))
	require.NoError(t, err)

	out, err := p.Query(context.Background(), "greet")
	require.NoError(t, err)
	assert.Equal(t, "Hello, Casey", out)
	assert.Equal(t, int64(64), stub.got.MaxTokens)
	assert.Equal(t, sdk.Model("claude-test"), stub.got.Model)
	require.Len(t, stub.got.System, 1)
	assert.Equal(t, "be brief", stub.got.System[0].Text)
	require.Len(t, stub.got.Messages, 1)

	stub.err = errors.New("overloaded")
	_, err = p.Query(context.Background(), "greet")
	assert.ErrorIs(t, err, domain.ErrResourceUnavailable)

	_, err = provider.NewAnthropic(nil, "m")
	assert.Error(t, err)
	_, err = provider.NewAnthropic(stub, "")
	assert.Error(t, err)
	_, err = provider.NewAnthropicFromAPIKey("", "m")
	assert.Error(t, err)
}

type stubChat struct {
	got  openai.ChatCompletionRequest
	resp openai.ChatCompletionResponse
	err  error
}

func (s *stubChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.got = req
	return s.resp, s.err
}

func TestOpenAI_Query(t *testing.T) {
	stub := &stubChat{resp: openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{
		{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "Sure."}},
	}}}
	p, err := provider.NewOpenAI(stub, "gpt-test", provider.WithOpenAISystem("sys"), provider.WithOpenAIMaxTokens(10))
	require.NoError(t, err)

	out, err := p.Query(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Sure.", out)
	assert.Equal(t, "gpt-test", stub.got.Model)
	assert.Equal(t, 10, stub.got.MaxTokens)
	require.Len(t, stub.got.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, stub.got.Messages[0].Role)
	assert.Equal(t, "hi", stub.got.Messages[1].Content)

	stub.resp = openai.ChatCompletionResponse{}
	_, err = p.Query(context.Background(), "hi")
	assert.ErrorIs(t, err, domain.ErrResourceUnavailable)

	_, err = provider.NewOpenAIFromAPIKey("", "m")
	assert.Error(t, err)
}

func TestWithTimeout(t *testing.T) {
	slow := ports.ProviderFunc(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	p := provider.Chain(slow, provider.WithTimeout(10*time.Millisecond))

	_, err := p.Query(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrResourceUnavailable)
	assert.NotErrorIs(t, err, context.DeadlineExceeded)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Query(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithMaxResponseBytes(t *testing.T) {
	echo := ports.ProviderFunc(func(_ context.Context, prompt string) (string, error) {
		return prompt, nil
	})
	p := provider.Chain(echo, provider.WithMaxResponseBytes(5))

	out, err := p.Query(context.Background(), "12345")
	require.NoError(t, err)
	assert.Equal(t, "12345", out)

	_, err = p.Query(context.Background(), strings.Repeat("x", 6))
	assert.ErrorIs(t, err, provider.ErrResponseTooLarge)
	assert.ErrorIs(t, err, domain.ErrResourceUnavailable)
}

func TestWithRateLimit(t *testing.T) {
	var calls atomic.Int32
	count := ports.ProviderFunc(func(context.Context, string) (string, error) {
		calls.Add(1)
		return "ok", nil
	})
	// One request per minute with burst 1: the second call cannot fit the deadline.
	p := provider.Chain(count, provider.WithRateLimit(1, 1))

	_, err := p.Query(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = p.Query(ctx, "b")
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	unlimited := provider.Chain(count, provider.WithRateLimit(0, 0))
	for range 3 {
		_, err = unlimited.Query(context.Background(), "c")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(4), calls.Load())
}
