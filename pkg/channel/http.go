package channel

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/ports"
	"github.com/go-resty/resty/v2"
)

// Relay paths shared with pkg/adapters/relay.
const (
	OutputPath = "/sessions/{session}/output"
	InputPath  = "/sessions/{session}/input"
)

// OutputMessage is the body of an output flush.
type OutputMessage struct {
	Text string `json:"text"`
}

// InputMessage is the body of a queued input line.
type InputMessage struct {
	Line string `json:"line"`
}

// HTTP is a detached channel relayed through a remote queue.
// Writes are buffered locally and posted on Flush; reads are non-blocking polls
// of the remote input queue.
type HTTP struct {
	client  *resty.Client
	session string

	mu  sync.Mutex
	buf strings.Builder
}

// HTTPOption configures the HTTP channel.
type HTTPOption func(*HTTP)

// WithHTTPClient replaces the underlying resty client.
func WithHTTPClient(c *resty.Client) HTTPOption {
	return func(h *HTTP) {
		h.client = c
	}
}

// WithHTTPTimeout sets the per-request timeout.
func WithHTTPTimeout(d time.Duration) HTTPOption {
	return func(h *HTTP) {
		h.client.SetTimeout(d)
	}
}

// NewHTTP creates a channel bound to one relay session.
func NewHTTP(baseURL, session string, opts ...HTTPOption) *HTTP {
	h := &HTTP{
		client:  resty.New().SetTimeout(10 * time.Second),
		session: session,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.client.SetBaseURL(strings.TrimSuffix(baseURL, "/"))
	return h
}

// Session returns the relay session id.
func (h *HTTP) Session() string {
	return h.session
}

func (h *HTTP) WriteString(_ context.Context, s string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf.WriteString(s)
	return nil
}

// Flush posts the buffered output. A busy relay yields ports.ErrWouldBlock and
// keeps the buffer for the next attempt.
func (h *HTTP) Flush(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.buf.Len() == 0 {
		return nil
	}

	resp, err := h.client.R().
		SetContext(ctx).
		SetPathParam("session", h.session).
		SetBody(OutputMessage{Text: h.buf.String()}).
		Post(OutputPath)
	if err != nil {
		return fmt.Errorf("%w: relay output: %w", domain.ErrResourceUnavailable, err)
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable:
		return ports.ErrWouldBlock
	case code == http.StatusGone:
		return fmt.Errorf("%w: relay session closed", domain.ErrResourceUnavailable)
	case resp.IsError():
		return fmt.Errorf("%w: relay output returned %d", domain.ErrResourceUnavailable, code)
	}
	h.buf.Reset()
	return nil
}

// ReadLine pops one line from the remote input queue.
func (h *HTTP) ReadLine(ctx context.Context) (string, error) {
	var msg InputMessage
	resp, err := h.client.R().
		SetContext(ctx).
		SetPathParam("session", h.session).
		SetResult(&msg).
		Get(InputPath)
	if err != nil {
		return "", fmt.Errorf("%w: relay input: %w", domain.ErrResourceUnavailable, err)
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusNoContent:
		return "", ports.ErrWouldBlock
	case code == http.StatusGone:
		return "", io.EOF
	case resp.IsError():
		return "", fmt.Errorf("%w: relay input returned %d", domain.ErrResourceUnavailable, code)
	}
	return Sanitize(TrimLine(msg.Line))
}
