package channel

import (
	"context"
	"io"
)

// Null discards output and has no input.
type Null struct{}

func (Null) WriteString(context.Context, string) error { return nil }

func (Null) Flush(context.Context) error { return nil }

func (Null) ReadLine(context.Context) (string, error) { return "", io.EOF }
