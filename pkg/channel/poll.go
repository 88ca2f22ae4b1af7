package channel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/ports"
)

// ErrInputTimeout is returned when a polled channel produced no input within
// the configured number of attempts.
var ErrInputTimeout = fmt.Errorf("%w: timed out waiting for input", domain.ErrResourceUnavailable)

// ErrOutputTimeout is returned when a polled channel kept refusing output.
var ErrOutputTimeout = fmt.Errorf("%w: timed out flushing output", domain.ErrResourceUnavailable)

// Poll bounds the wait on non-blocking channels.
type Poll struct {
	Interval    time.Duration
	MaxAttempts int
}

// DefaultPoll waits up to five minutes, polling twice a second.
var DefaultPoll = Poll{Interval: 500 * time.Millisecond, MaxAttempts: 600}

// ReadLine reads one line from ch, retrying while it would block.
func ReadLine(ctx context.Context, ch ports.Channel, p Poll) (string, error) {
	for attempt := 1; ; attempt++ {
		line, err := ch.ReadLine(ctx)
		if !errors.Is(err, ports.ErrWouldBlock) {
			return line, err
		}
		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			return "", fmt.Errorf("%w after %d attempts", ErrInputTimeout, attempt)
		}
		if err := sleep(ctx, p.Interval); err != nil {
			return "", err
		}
	}
}

// Flush flushes ch, retrying while it would block.
func Flush(ctx context.Context, ch ports.Channel, p Poll) error {
	for attempt := 1; ; attempt++ {
		err := ch.Flush(ctx)
		if !errors.Is(err, ports.ErrWouldBlock) {
			return err
		}
		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			return fmt.Errorf("%w after %d attempts", ErrOutputTimeout, attempt)
		}
		if err := sleep(ctx, p.Interval); err != nil {
			return err
		}
	}
}

// Print writes text and flushes it.
func Print(ctx context.Context, ch ports.Channel, p Poll, text string) error {
	if err := ch.WriteString(ctx, text); err != nil {
		return err
	}
	return Flush(ctx, ch, p)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
