// Package providertest provides a deterministic in-memory Provider for tests.
package providertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/flitsinc/go-assistant/internal/history"
	"github.com/flitsinc/go-assistant/internal/provider"
)

// Scripted replays pre-recorded notification turns in order. Each call to
// Stream consumes the next turn and records the request it was given.
type Scripted struct {
	mu       sync.Mutex
	turns    [][]provider.Notification
	errs     []error
	requests []provider.Request
	calls    int
}

// NewScripted builds a provider that serves the given turns in order.
func NewScripted(turns ...[]provider.Notification) *Scripted {
	return &Scripted{turns: turns, errs: make([]error, len(turns))}
}

// FailTurn makes the nth Stream call (zero-based) return err instead of a
// stream.
func (s *Scripted) FailTurn(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.errs) <= n {
		s.errs = append(s.errs, nil)
	}
	s.errs[n] = err
}

func (s *Scripted) Stream(_ context.Context, req provider.Request) (provider.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	call := s.calls
	s.calls++
	if call < len(s.errs) && s.errs[call] != nil {
		return nil, s.errs[call]
	}
	if call >= len(s.turns) {
		return nil, fmt.Errorf("scripted provider exhausted after %d turns", len(s.turns))
	}
	return &scriptedStream{notifications: s.turns[call]}, nil
}

// Requests returns every request seen so far.
func (s *Scripted) Requests() []provider.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]provider.Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Calls reports how many times Stream was invoked.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type scriptedStream struct {
	notifications []provider.Notification
	pos           int
	cur           provider.Notification
}

func (s *scriptedStream) Next() bool {
	if s.pos >= len(s.notifications) {
		return false
	}
	s.cur = s.notifications[s.pos]
	s.pos++
	return true
}

func (s *scriptedStream) Current() provider.Notification { return s.cur }
func (s *scriptedStream) Err() error                     { return nil }
func (s *scriptedStream) Close() error                   { return nil }

// Completed builds the response.completed notification for a turn whose
// output is the given items.
func Completed(usage provider.Usage, items ...provider.OutputItem) provider.Notification {
	return provider.Notification{
		Type:     "response.completed",
		Response: &provider.Response{Output: items, Usage: usage},
	}
}

// MessageItem builds a completed assistant message output item.
func MessageItem(text string) provider.OutputItem {
	return provider.OutputItem{
		Type:    "message",
		Status:  "completed",
		Content: []history.ContentPart{{Type: "output_text", Text: text}},
	}
}

// FunctionCallItem builds a completed function_call output item.
func FunctionCallItem(callID, name, arguments string) provider.OutputItem {
	return provider.OutputItem{
		Type:      "function_call",
		Status:    "completed",
		CallID:    callID,
		Name:      name,
		Arguments: arguments,
	}
}

// TextTurn scripts a plain assistant text turn: part added, one delta, text
// done, item done, response completed.
func TextTurn(text string, usage provider.Usage) []provider.Notification {
	item := MessageItem(text)
	return []provider.Notification{
		{Type: "response.content_part.added"},
		{Type: "response.output_text.delta", Delta: text},
		{Type: "response.output_text.done", Text: text},
		{Type: "response.output_item.done", Item: &item},
		Completed(usage, item),
	}
}

// ToolCallTurn scripts a turn that requests a single tool invocation.
func ToolCallTurn(callID, name, arguments string, usage provider.Usage) []provider.Notification {
	item := FunctionCallItem(callID, name, arguments)
	return []provider.Notification{
		{Type: "response.output_item.done", Item: &item},
		Completed(usage, item),
	}
}
