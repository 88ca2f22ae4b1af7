package relay_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/weave/pkg/adapters/relay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRelay_InputQueue(t *testing.T) {
	h := relay.NewHandler(relay.NewServer())

	w := do(t, h, http.MethodGet, "/sessions/s1/input", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, http.StatusAccepted, do(t, h, http.MethodPost, "/sessions/s1/input", `{"line":"Casey\n"}`).Code)
	assert.Equal(t, http.StatusAccepted, do(t, h, http.MethodPost, "/sessions/s1/input", `{"line":"yes"}`).Code)

	w = do(t, h, http.MethodGet, "/sessions/s1/input", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"line":"Casey"}`, w.Body.String())

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/sessions/s1/input", "").Code)

	w = do(t, h, http.MethodGet, "/sessions/s1/input", "")
	require.Equal(t, http.StatusOK, w.Code, "pending lines survive close")
	assert.JSONEq(t, `{"line":"yes"}`, w.Body.String())

	assert.Equal(t, http.StatusGone, do(t, h, http.MethodGet, "/sessions/s1/input", "").Code)
	assert.Equal(t, http.StatusGone, do(t, h, http.MethodPost, "/sessions/s1/input", `{"line":"late"}`).Code)
}

func TestRelay_OutputQueue(t *testing.T) {
	h := relay.NewHandler(relay.NewServer(relay.WithMaxQueue(2)))

	assert.Equal(t, http.StatusAccepted, do(t, h, http.MethodPost, "/sessions/s1/output", `{"text":"a"}`).Code)
	assert.Equal(t, http.StatusAccepted, do(t, h, http.MethodPost, "/sessions/s1/output", `{"text":"b"}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, h, http.MethodPost, "/sessions/s1/output", `{"text":"c"}`).Code)

	w := do(t, h, http.MethodGet, "/sessions/s1/output", "")
	require.Equal(t, http.StatusOK, w.Code)
	var batch relay.OutputBatch
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &batch))
	assert.Equal(t, []string{"a", "b"}, batch.Chunks)

	w = do(t, h, http.MethodGet, "/sessions/s1/output", "")
	assert.JSONEq(t, `{"chunks":[]}`, w.Body.String())
}

func TestRelay_BadRequests(t *testing.T) {
	h := relay.NewHandler(relay.NewServer())

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/sessions/s1/output", `nope`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/sessions/s1/input", `nope`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/sessions/s1/input", `{"line":"bad\xff"}`).Code)
}

func TestRelay_DeleteSessionAndHealth(t *testing.T) {
	h := relay.NewHandler(relay.NewServer())

	do(t, h, http.MethodPost, "/sessions/s1/input", `{"line":"x"}`)
	w := do(t, h, http.MethodGet, "/health", "")
	assert.JSONEq(t, `{"status":"ok","sessions":1}`, w.Body.String())

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/sessions/s1", "").Code)
	w = do(t, h, http.MethodGet, "/health", "")
	assert.JSONEq(t, `{"status":"ok","sessions":0}`, w.Body.String())
}

func TestRelay_ReadsDoNotCreateSessions(t *testing.T) {
	h := relay.NewHandler(relay.NewServer())

	for _, id := range []string{"ghost-a", "ghost-b", "ghost-c"} {
		assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodGet, "/sessions/"+id+"/input", "").Code)
		w := do(t, h, http.MethodGet, "/sessions/"+id+"/output", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"chunks":[]}`, w.Body.String())
	}

	w := do(t, h, http.MethodGet, "/health", "")
	assert.JSONEq(t, `{"status":"ok","sessions":0}`, w.Body.String())

	do(t, h, http.MethodPost, "/sessions/s1/output", `{"text":"a"}`)
	w = do(t, h, http.MethodGet, "/health", "")
	assert.JSONEq(t, `{"status":"ok","sessions":1}`, w.Body.String())
}

func TestRelay_SubscribeEvents(t *testing.T) {
	srv := relay.NewServer()
	ts := httptest.NewServer(relay.NewHandler(srv))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/sessions/s1/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	readEvent := func() string {
		var lines []string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimSuffix(line, "\n")
			if line == "" {
				return strings.Join(lines, "\n")
			}
			lines = append(lines, line)
		}
	}
	assert.Equal(t, "event: ping\ndata: connected", readEvent())

	post, err := http.Post(ts.URL+"/sessions/s1/output", "application/json", strings.NewReader(`{"text":"Hi\nthere\n"}`))
	require.NoError(t, err)
	post.Body.Close()

	assert.Equal(t, "data: Hi\ndata: there", readEvent())
}
