package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/flitsinc/go-assistant/internal/engine"
	"github.com/flitsinc/go-assistant/internal/history"
	"github.com/flitsinc/go-assistant/internal/provider"
	"github.com/flitsinc/go-assistant/internal/provider/providertest"
	"github.com/flitsinc/go-assistant/internal/state"
	"github.com/flitsinc/go-assistant/internal/testutil"
	"github.com/flitsinc/go-assistant/internal/tools"
)

func newTestServer(t *testing.T, scripted *providertest.Scripted) *Server {
	t.Helper()
	registry, err := tools.NewRegistry()
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return &Server{
		Agent: &engine.Agent{
			Name:     "test",
			Provider: scripted,
			Registry: registry,
		},
		History:   testutil.NewTestHistory(t),
		Store:     testutil.OpenTestStore(t),
		MaxTurns:  5,
		StartedAt: time.Now().UTC(),
	}
}

func TestHealthAndDiagnostics(t *testing.T) {
	server := newTestServer(t, providertest.NewScripted())
	client := testutil.NewInProcessClient(server.Handler())

	resp := doJSON(t, client, http.MethodGet, "/api/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status: %d", resp.StatusCode)
	}
	var health map[string]any
	decodeJSONResponse(t, resp, &health)
	if health["status"] != "ok" {
		t.Fatalf("unexpected health payload: %v", health)
	}

	resp = doJSON(t, client, http.MethodGet, "/api/diagnostics", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("diagnostics status: %d", resp.StatusCode)
	}
	var diag DiagnosticsResponse
	decodeJSONResponse(t, resp, &diag)
	if diag.GoVersion == "" {
		t.Fatalf("missing go version in diagnostics")
	}
}

func TestChatHistoryEndpoints(t *testing.T) {
	server := newTestServer(t, providertest.NewScripted())
	if _, err := server.History.Append(history.UserMessage("hello", nil)); err != nil {
		t.Fatalf("seed history: %v", err)
	}
	client := testutil.NewInProcessClient(server.Handler())

	resp := doJSON(t, client, http.MethodGet, "/api/chat/history", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get history status: %d", resp.StatusCode)
	}
	var envelopes []history.Envelope
	decodeJSONResponse(t, resp, &envelopes)
	if len(envelopes) != 1 || envelopes[0].ID == "" {
		t.Fatalf("unexpected history payload: %+v", envelopes)
	}

	resp = doJSON(t, client, http.MethodDelete, "/api/chat/history", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete history status: %d", resp.StatusCode)
	}
	if server.History.Len() != 0 {
		t.Fatalf("history not cleared")
	}
}

func TestChatStreamSSE(t *testing.T) {
	scripted := providertest.NewScripted(
		providertest.TextTurn("hi there", provider.Usage{InputTokens: 5, OutputTokens: 2, TotalTokens: 7}),
	)
	server := newTestServer(t, scripted)
	mux := server.Handler()

	body, err := json.Marshal(map[string]any{"message": "hello", "max_turns": 3})
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := testutil.NewRequest(http.MethodPost, "/api/chat/stream", body)
	req.Header.Set("Content-Type", "application/json")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req = req.WithContext(ctx)

	rec := testutil.NewStreamRecorder()
	go func() {
		mux.ServeHTTP(rec, req)
		_ = rec.Close()
	}()

	var frames []string
	sawDone := false
	reader := bufio.NewReader(rec.Body)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			break
		}
		payload, ok := bytes.CutPrefix(bytes.TrimSpace(line), []byte("data: "))
		if !ok {
			continue
		}
		if string(payload) == "[DONE]" {
			sawDone = true
			break
		}
		frames = append(frames, string(payload))
	}
	if !sawDone {
		t.Fatalf("stream did not end with [DONE]; frames=%v", frames)
	}

	var types []string
	for _, frame := range frames {
		var ev struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal([]byte(frame), &ev); err != nil {
			t.Fatalf("decode frame %q: %v", frame, err)
		}
		types = append(types, ev.Type)
	}
	joined := strings.Join(types, ",")
	if !strings.Contains(joined, "text.delta") || !strings.HasSuffix(joined, "run.done") {
		t.Fatalf("unexpected event types: %s", joined)
	}

	// The user message and the assistant reply both persisted.
	entries := server.History.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 persisted entries, got %+v", entries)
	}
	if entries[0].Role != "user" || entries[1].Role != "assistant" {
		t.Fatalf("unexpected persisted roles: %+v", entries)
	}
}

func TestChatStreamBlankMessageSkipsService(t *testing.T) {
	scripted := providertest.NewScripted()
	server := newTestServer(t, scripted)
	if _, err := server.History.Append(history.UserMessage("earlier message", nil)); err != nil {
		t.Fatalf("seed history: %v", err)
	}
	mux := server.Handler()

	body, err := json.Marshal(map[string]any{"message": "   "})
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := testutil.NewRequest(http.MethodPost, "/api/chat/stream", body)
	req.Header.Set("Content-Type", "application/json")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req = req.WithContext(ctx)

	rec := testutil.NewStreamRecorder()
	go func() {
		mux.ServeHTTP(rec, req)
		_ = rec.Close()
	}()

	var frames []string
	reader := bufio.NewReader(rec.Body)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			break
		}
		payload, ok := bytes.CutPrefix(bytes.TrimSpace(line), []byte("data: "))
		if !ok {
			continue
		}
		if string(payload) == "[DONE]" {
			break
		}
		frames = append(frames, string(payload))
	}

	// Blank input must terminate immediately, not run a turn over old history.
	if len(frames) != 1 {
		t.Fatalf("expected only the terminal event, got %v", frames)
	}
	var ev struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(frames[0]), &ev); err != nil {
		t.Fatalf("decode frame %q: %v", frames[0], err)
	}
	if ev.Type != "run.done" || ev.Reason != "no_input" {
		t.Fatalf("unexpected terminal event: %+v", ev)
	}
	if scripted.Calls() != 0 {
		t.Fatalf("service must not be contacted on blank input, got %d calls", scripted.Calls())
	}
	if server.History.Len() != 1 {
		t.Fatalf("history must be unchanged, got %d entries", server.History.Len())
	}
}

func TestTurnsEndpoint(t *testing.T) {
	server := newTestServer(t, providertest.NewScripted())
	server.Agent.Turns = server.Store
	if err := server.Store.RecordTurn(context.Background(), "run-1", 1, "completed", state.TokenUsage{TotalTokens: 9}); err != nil {
		t.Fatalf("record turn: %v", err)
	}
	client := testutil.NewInProcessClient(server.Handler())

	resp := doJSON(t, client, http.MethodGet, "/api/turns?limit=10", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("turns status: %d", resp.StatusCode)
	}
	var turns []map[string]any
	decodeJSONResponse(t, resp, &turns)
	if len(turns) != 1 {
		t.Fatalf("expected 1 turn, got %+v", turns)
	}
}

func doJSON(t *testing.T, client *http.Client, method, path string, payload any) *http.Response {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, "http://in-process"+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func decodeJSONResponse(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(dest); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return string(data)
}
