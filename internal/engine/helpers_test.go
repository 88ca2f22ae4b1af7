package engine_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/weave/internal/engine"
	"github.com/aretw0/weave/pkg/channel"
	"github.com/aretw0/weave/pkg/document"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *document.Document {
	t.Helper()
	doc, err := document.Parse([]byte(src))
	require.NoError(t, err)
	return doc
}

// harness wires a controller to scripted input and captured output.
type harness struct {
	ctrl   *engine.Controller
	out    *bytes.Buffer
	sleeps []time.Duration
}

func newHarness(t *testing.T, src, input string, opts ...engine.Option) *harness {
	t.Helper()
	h := build(input, opts...)
	require.NoError(t, h.ctrl.Load(parse(t, src)))
	return h
}

func newFileHarness(t *testing.T, path, input string, opts ...engine.Option) *harness {
	t.Helper()
	h := build(input, opts...)
	require.NoError(t, h.ctrl.LoadFile(path))
	return h
}

func build(input string, opts ...engine.Option) *harness {
	h := &harness{out: &bytes.Buffer{}}
	base := []engine.Option{
		engine.WithChannel(channel.NewPipe(strings.NewReader(input), h.out)),
		engine.WithSleep(func(_ context.Context, d time.Duration) error {
			h.sleeps = append(h.sleeps, d)
			return nil
		}),
	}
	h.ctrl = engine.New(append(base, opts...)...)
	return h
}

func (h *harness) run() error {
	return h.ctrl.ExecuteAllSteps(context.Background())
}

func (h *harness) get(t *testing.T, key string) string {
	t.Helper()
	v, ok := h.ctrl.Variables().Get(key)
	require.True(t, ok, "variable %q not set", key)
	return v
}
