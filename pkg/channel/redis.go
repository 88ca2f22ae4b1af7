package channel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// Redis is a detached channel relayed through Redis lists.
// Output chunks are RPUSHed to "<prefix><session>:out"; input lines are LPOPed
// from "<prefix><session>:in". The input side is closed once "<prefix><session>:closed" exists.
type Redis struct {
	client  *backend.Client
	prefix  string
	session string
	ttl     time.Duration

	buf strings.Builder
}

// RedisOption configures the Redis channel.
type RedisOption func(*Redis)

// WithRedisPrefix sets the key prefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

// WithRedisTTL expires the session's keys after ttl of inactivity.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		r.ttl = ttl
	}
}

// NewRedis creates a channel bound to one session.
func NewRedis(client *backend.Client, session string, opts ...RedisOption) *Redis {
	r := &Redis{
		client:  client,
		prefix:  "weave:io:",
		session: session,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) key(suffix string) string {
	return r.prefix + r.session + ":" + suffix
}

func (r *Redis) WriteString(_ context.Context, s string) error {
	r.buf.WriteString(s)
	return nil
}

func (r *Redis) Flush(ctx context.Context) error {
	if r.buf.Len() == 0 {
		return nil
	}
	key := r.key("out")
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, r.buf.String())
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: redis output: %w", domain.ErrResourceUnavailable, err)
	}
	r.buf.Reset()
	return nil
}

func (r *Redis) ReadLine(ctx context.Context) (string, error) {
	line, err := r.client.LPop(ctx, r.key("in")).Result()
	if errors.Is(err, backend.Nil) {
		closed, err := r.client.Exists(ctx, r.key("closed")).Result()
		if err != nil {
			return "", fmt.Errorf("%w: redis input: %w", domain.ErrResourceUnavailable, err)
		}
		if closed > 0 {
			return "", io.EOF
		}
		return "", ports.ErrWouldBlock
	}
	if err != nil {
		return "", fmt.Errorf("%w: redis input: %w", domain.ErrResourceUnavailable, err)
	}
	return Sanitize(TrimLine(line))
}

// SendInput queues a line for the engine (the remote side of the relay).
func (r *Redis) SendInput(ctx context.Context, line string) error {
	key := r.key("in")
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, line)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// TakeOutput drains every output chunk flushed so far.
func (r *Redis) TakeOutput(ctx context.Context) ([]string, error) {
	key := r.key("out")
	pipe := r.client.TxPipeline()
	chunks := pipe.LRange(ctx, key, 0, -1)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	return chunks.Val(), nil
}

// CloseInput marks the input side as finished; pending lines are still delivered.
func (r *Redis) CloseInput(ctx context.Context) error {
	return r.client.Set(ctx, r.key("closed"), "1", r.ttl).Err()
}
