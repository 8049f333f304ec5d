package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/flitsinc/go-assistant/internal/engine"
	"github.com/flitsinc/go-assistant/internal/events"
	"github.com/flitsinc/go-assistant/internal/history"
	"github.com/flitsinc/go-assistant/internal/state"
)

type Server struct {
	Agent     *engine.Agent
	History   *history.Manager
	Store     *state.Store
	MaxTurns  int
	Timestamp bool
	StartedAt time.Time
	Info      DiagnosticsInfo
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/diagnostics", s.handleDiagnostics)
	mux.HandleFunc("/api/turns", s.handleTurns)
	mux.HandleFunc("/api/chat/history", s.handleChatHistory)
	mux.HandleFunc("/api/chat/stream", s.handleChatStream)
	mux.HandleFunc("/api/chat/ws", s.handleChatWS)

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "time": time.Now().UTC()})
}

func (s *Server) handleTurns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	limit := parseInt(r.URL.Query().Get("limit"), 100)
	turns, err := s.Store.ListTurns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, turns)
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.History.Wrapped())
	case http.MethodDelete:
		if err := s.History.Clear(); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if err := s.History.ClearImages(); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if err := s.Store.ClearTodos(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeMethodNotAllowed(w)
	}
}

// handleChatStream runs one chat exchange and streams every event over SSE,
// terminated by a [DONE] sentinel.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	var payload struct {
		Message  string `json:"message"`
		MaxTurns int    `json:"max_turns"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errNotFound("streaming support"))
		return
	}

	seq, err := s.startRun(r, payload.Message, payload.MaxTurns)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	_, _ = w.Write([]byte(":ok\n\n"))
	flusher.Flush()

	ctx := r.Context()
	for ev := range engine.Pump(ctx, seq, 64) {
		if ev.Type == events.TypeRunDone {
			s.finishRun(ev)
			// The transcript already lives on disk; keep the wire frame small.
			ev.FinalHistory = nil
		}
		data, _ := json.Marshal(ev)
		_, _ = w.Write([]byte("data: "))
		_, _ = w.Write(data)
		_, _ = w.Write([]byte("\n\n"))
		flusher.Flush()
	}
	if ctx.Err() == nil {
		_, _ = w.Write([]byte("data: [DONE]\n\n"))
		flusher.Flush()
	}
}

// startRun appends the user message and starts a run over the stored
// transcript. A blank message runs over an empty base instead, so the run
// terminates with run.done(no_input) without contacting the service.
func (s *Server) startRun(r *http.Request, message string, maxTurns int) (func(yield func(events.Event) bool), error) {
	if maxTurns <= 0 {
		maxTurns = s.MaxTurns
	}
	if strings.TrimSpace(message) == "" {
		return s.Agent.Run(r.Context(), nil, maxTurns), nil
	}
	if err := s.appendUserMessage(message, nil); err != nil {
		return nil, err
	}
	return s.Agent.Run(r.Context(), s.History.Entries(), maxTurns), nil
}

// appendUserMessage stores the user's message with any pending generated
// images (plus extras, e.g. a websocket attachment) riding along as image
// content, then clears the pending list.
func (s *Server) appendUserMessage(message string, extra []history.GeneratedImage) error {
	if message == "" {
		return nil
	}
	pending := append(s.History.Images(), extra...)
	entry := history.UserMessage(message, pending)
	if s.Timestamp {
		entry = history.UserMessageAt(message, time.Now(), pending)
	}
	if _, err := s.History.Append(entry); err != nil {
		return err
	}
	return s.History.ClearImages()
}

// finishRun persists what the run accumulated.
func (s *Server) finishRun(done events.Event) {
	_ = s.History.AppendAll(done.FinalHistory)
	_ = s.History.AddImages(done.GeneratedImages)
}

func decodeJSON(body io.Reader, dest any) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

type notFoundError struct {
	msg string
}

func (e notFoundError) Error() string { return e.msg }

func errNotFound(target string) error {
	return notFoundError{msg: target + " not found"}
}
