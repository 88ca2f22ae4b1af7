package ports

import (
	"context"
	"errors"
)

// ErrWouldBlock is returned by non-blocking channels when no input is queued yet
// or the remote end cannot accept output right now.
var ErrWouldBlock = errors.New("operation would block")

// Channel abstracts where interactive text goes to and comes from.
// A channel has a single writer and a single reader.
type Channel interface {
	// WriteString buffers s for output.
	WriteString(ctx context.Context, s string) error

	// Flush delivers buffered output. It may return ErrWouldBlock.
	Flush(ctx context.Context) error

	// ReadLine returns the next input line without its terminator.
	// It returns ErrWouldBlock when nothing is queued and io.EOF once the
	// input side is closed.
	ReadLine(ctx context.Context) (string, error)
}
