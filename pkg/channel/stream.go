package channel

import (
	"bufio"
	"context"
	"io"
	"os"
	"sync"
)

// Stream is a blocking channel over a reader/writer pair: a socket, the two
// pipes of a child process, or the process's own stdin/stdout.
type Stream struct {
	reader *bufio.Reader
	writer *bufio.Writer
	closer io.Closer

	lines     chan lineResult
	startOnce sync.Once
}

type lineResult struct {
	text string
	err  error
}

// NewStream creates a channel over a bidirectional stream such as a net.Conn.
// If rw is an io.Closer, Close closes it.
func NewStream(rw io.ReadWriter) *Stream {
	s := NewPipe(rw, rw)
	if c, ok := rw.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// NewPipe creates a channel reading from r and writing to w.
func NewPipe(r io.Reader, w io.Writer) *Stream {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &Stream{
		reader: bufio.NewReader(r),
		writer: bufio.NewWriter(w),
	}
}

// Stdio creates a channel over the process's standard input and output.
func Stdio() *Stream {
	return NewPipe(os.Stdin, os.Stdout)
}

func (s *Stream) WriteString(_ context.Context, text string) error {
	_, err := s.writer.WriteString(text)
	return err
}

func (s *Stream) Flush(_ context.Context) error {
	return s.writer.Flush()
}

// ReadLine blocks until a line arrives, the stream ends, or ctx is done.
func (s *Stream) ReadLine(ctx context.Context) (string, error) {
	s.startOnce.Do(func() {
		s.lines = make(chan lineResult)
		go s.pump()
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-s.lines:
		if !ok {
			return "", io.EOF
		}
		if res.err != nil {
			return "", res.err
		}
		return Sanitize(TrimLine(res.text))
	}
}

// pump reads lines in the background so ReadLine can honor cancellation.
func (s *Stream) pump() {
	defer close(s.lines)
	for {
		text, err := s.reader.ReadString('\n')
		if text != "" {
			s.lines <- lineResult{text: text}
		}
		if err != nil {
			if err != io.EOF {
				s.lines <- lineResult{err: err}
			}
			return
		}
	}
}

// Close closes the underlying stream when it is closable.
func (s *Stream) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
