// Package relay serves the session queues behind detached I/O channels.
//
// The engine side talks to it through channel.HTTP; the remote side (a web UI,
// a chat bot, a test) queues input lines and drains or streams output.
package relay

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/weave/pkg/channel"
	"github.com/go-chi/chi/v5"
)

// DefaultMaxQueue bounds each session queue.
const DefaultMaxQueue = 256

// OutputBatch is returned when the remote side drains output.
type OutputBatch struct {
	Chunks []string `json:"chunks"`
}

type session struct {
	in     []string
	out    []string
	closed bool
}

// Server holds per-session input and output queues.
type Server struct {
	mu       sync.Mutex
	sessions map[string]*session
	maxQueue int
	logger   *slog.Logger

	Streams *StreamManager
}

// Option configures the Server.
type Option func(*Server)

// WithMaxQueue bounds each queue. Full output queues answer 429.
func WithMaxQueue(n int) Option {
	return func(s *Server) {
		s.maxQueue = n
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates an empty relay.
func NewServer(opts ...Option) *Server {
	s := &Server{
		sessions: make(map[string]*session),
		maxQueue: DefaultMaxQueue,
		logger:   slog.Default(),
		Streams:  NewStreamManager(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewHandler creates the relay's HTTP handler.
func NewHandler(s *Server) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Route("/sessions/{session}", func(r chi.Router) {
		r.Delete("/", s.DeleteSession)
		r.Post("/output", s.PostOutput)
		r.Get("/output", s.GetOutput)
		r.Get("/events", s.SubscribeEvents)
		r.Post("/input", s.PostInput)
		r.Get("/input", s.GetInput)
		r.Delete("/input", s.CloseInput)
	})
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// session returns the queues for id, creating them. Only writes call it.
func (s *Server) session(id string) *session {
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{}
		s.sessions[id] = sess
	}
	return sess
}

// PostOutput handles POST /sessions/{session}/output from the engine.
func (s *Server) PostOutput(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session")
	var body channel.OutputMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("relay: invalid output body", "session_id", id, "err", err)
		return
	}

	s.mu.Lock()
	sess := s.session(id)
	if len(sess.out) >= s.maxQueue {
		s.mu.Unlock()
		http.Error(w, "Output queue full", http.StatusTooManyRequests)
		return
	}
	sess.out = append(sess.out, body.Text)
	s.mu.Unlock()

	s.Streams.Broadcast(id, body.Text)
	w.WriteHeader(http.StatusAccepted)
}

// GetOutput handles GET /sessions/{session}/output, draining the queue.
func (s *Server) GetOutput(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session")

	var batch OutputBatch
	s.mu.Lock()
	if sess, ok := s.sessions[id]; ok {
		batch.Chunks = sess.out
		sess.out = nil
	}
	s.mu.Unlock()

	if batch.Chunks == nil {
		batch.Chunks = []string{}
	}
	writeJSON(w, http.StatusOK, batch)
}

// PostInput handles POST /sessions/{session}/input from the remote side.
func (s *Server) PostInput(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session")
	var body channel.InputMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("relay: invalid input body", "session_id", id, "err", err)
		return
	}
	line, err := channel.Sanitize(channel.TrimLine(body.Line))
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid input: %v", err), http.StatusBadRequest)
		s.logger.Warn("relay: input rejected", "session_id", id, "err", err, "size", len(body.Line))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.session(id)
	switch {
	case sess.closed:
		http.Error(w, "Session input closed", http.StatusGone)
		return
	case len(sess.in) >= s.maxQueue:
		http.Error(w, "Input queue full", http.StatusTooManyRequests)
		return
	}
	sess.in = append(sess.in, line)
	w.WriteHeader(http.StatusAccepted)
}

// GetInput handles GET /sessions/{session}/input from the engine.
// It answers 204 while the queue is empty or the session is unknown, and 410
// once input is closed and drained.
func (s *Server) GetInput(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session")

	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok || len(sess.in) == 0 {
		closed := ok && sess.closed
		s.mu.Unlock()
		if closed {
			w.WriteHeader(http.StatusGone)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	line := sess.in[0]
	sess.in = sess.in[1:]
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, channel.InputMessage{Line: line})
}

// CloseInput handles DELETE /sessions/{session}/input.
func (s *Server) CloseInput(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session")
	s.mu.Lock()
	s.session(id).closed = true
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// DeleteSession handles DELETE /sessions/{session}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session")
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	s.logger.Info("relay: session deleted", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	n := len(s.sessions)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": n})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("relay: response encode failed", "err", err)
	}
}
