package cli

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/weave/internal/adapters/file"
	redisstore "github.com/aretw0/weave/internal/adapters/redis"
	"github.com/aretw0/weave/internal/config"
	"github.com/aretw0/weave/pkg/adapters/memory"
	"github.com/aretw0/weave/pkg/channel"
	"github.com/aretw0/weave/pkg/persistence/middleware"
	"github.com/aretw0/weave/pkg/ports"
	"github.com/aretw0/weave/pkg/provider"
	"github.com/aretw0/weave/pkg/session"
	backend "github.com/redis/go-redis/v9"
)

// closers collects cleanup functions for the resources a run opens.
type closers []func() error

func (c *closers) add(fn func() error) {
	*c = append(*c, fn)
}

// Close runs the cleanups in reverse order and returns the first error.
func (c closers) Close() error {
	var first error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewProvider builds the configured AI provider wrapped in the timeout,
// rate-limit and response-size middleware. It returns nil for kind "none".
func NewProvider(cfg config.Provider, extra ...provider.Middleware) (ports.Provider, error) {
	var base ports.Provider
	switch cfg.Kind {
	case config.ProviderNone, "":
		return nil, nil
	case config.ProviderAnthropic:
		var opts []provider.AnthropicOption
		if cfg.MaxTokens > 0 {
			opts = append(opts, provider.WithAnthropicMaxTokens(cfg.MaxTokens))
		}
		if cfg.System != "" {
			opts = append(opts, provider.WithAnthropicSystem(cfg.System))
		}
		p, err := provider.NewAnthropicFromAPIKey(cfg.APIKey(), cfg.Model, opts...)
		if err != nil {
			return nil, err
		}
		base = p
	case config.ProviderOpenAI:
		var opts []provider.OpenAIOption
		if cfg.MaxTokens > 0 {
			opts = append(opts, provider.WithOpenAIMaxTokens(cfg.MaxTokens))
		}
		if cfg.System != "" {
			opts = append(opts, provider.WithOpenAISystem(cfg.System))
		}
		p, err := provider.NewOpenAIFromAPIKey(cfg.APIKey(), cfg.Model, opts...)
		if err != nil {
			return nil, err
		}
		base = p
	default:
		return nil, fmt.Errorf("unknown provider kind %q", cfg.Kind)
	}

	var mws []provider.Middleware
	if cfg.Timeout > 0 {
		mws = append(mws, provider.WithTimeout(cfg.Timeout))
	}
	if cfg.RequestsPerMinute > 0 {
		mws = append(mws, provider.WithRateLimit(float64(cfg.RequestsPerMinute), cfg.Burst))
	}
	if cfg.MaxResponseBytes > 0 {
		mws = append(mws, provider.WithMaxResponseBytes(cfg.MaxResponseBytes))
	}
	mws = append(mws, extra...)
	return provider.Chain(base, mws...), nil
}

// NewChannel builds the configured I/O channel for session. The stdio kind
// uses in and out; the relayed kinds ignore them.
func NewChannel(cfg config.Channel, session string, in io.Reader, out io.Writer) (ports.Channel, func() error, error) {
	switch cfg.Kind {
	case config.ChannelStdio, "":
		s := channel.NewPipe(in, out)
		return s, s.Close, nil
	case config.ChannelHTTP:
		return channel.NewHTTP(cfg.URL, session), noop, nil
	case config.ChannelRedis:
		client := backend.NewClient(&backend.Options{Addr: cfg.RedisAddr})
		var opts []channel.RedisOption
		if cfg.TTL > 0 {
			opts = append(opts, channel.WithRedisTTL(cfg.TTL))
		}
		return channel.NewRedis(client, session, opts...), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown channel kind %q", cfg.Kind)
	}
}

// NewPoll converts the channel's polling settings.
func NewPoll(cfg config.Channel) channel.Poll {
	p := channel.DefaultPoll
	if cfg.PollInterval > 0 {
		p.Interval = cfg.PollInterval
	}
	if cfg.MaxPollAttempts > 0 {
		p.MaxAttempts = cfg.MaxPollAttempts
	}
	return p
}

// NewStore builds the configured checkpoint store, masking and encrypting
// variables when configured. Access is serialized per run through a
// session.Manager, locked across processes for the redis kind.
// It returns nil for kind "none".
func NewStore(cfg config.Checkpoint) (ports.CheckpointStore, func() error, error) {
	store, closeFn, err := newBaseStore(cfg)
	if err != nil || store == nil {
		return nil, closeFn, err
	}

	var sessionOpts []session.Option
	if rs, ok := store.(*redisstore.Store); ok {
		sessionOpts = append(sessionOpts, session.WithLocker(redisstore.NewLocker(rs.Client(), "weave:")))
	}

	var mws []middleware.Middleware
	if len(cfg.Mask) > 0 {
		mw, err := middleware.NewPIIMiddleware(cfg.Mask)
		if err != nil {
			return nil, nil, errors.Join(err, closeFn())
		}
		mws = append(mws, mw)
	}
	if cfg.EncryptionKeyEnv != "" {
		key, err := base64.StdEncoding.DecodeString(os.Getenv(cfg.EncryptionKeyEnv))
		if err != nil {
			return nil, nil, errors.Join(fmt.Errorf("%s: %w", cfg.EncryptionKeyEnv, err), closeFn())
		}
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return nil, nil, errors.Join(fmt.Errorf("%s: %w", cfg.EncryptionKeyEnv, err), closeFn())
		}
		mws = append(mws, mw)
	}
	return session.NewManager(middleware.Chain(store, mws...), sessionOpts...), closeFn, nil
}

func newBaseStore(cfg config.Checkpoint) (ports.CheckpointStore, func() error, error) {
	switch cfg.Kind {
	case config.StoreNone, "":
		return nil, noop, nil
	case config.StoreMemory:
		return memory.NewStore(), noop, nil
	case config.StoreFile:
		return file.New(cfg.Path), noop, nil
	case config.StoreRedis:
		var opts []redisstore.Option
		if cfg.TTL > 0 {
			opts = append(opts, redisstore.WithTTL(cfg.TTL))
		}
		s := redisstore.New(cfg.RedisAddr, "", 0, opts...)
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown checkpoint kind %q", cfg.Kind)
	}
}

func noop() error { return nil }
