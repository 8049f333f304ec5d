// Package provider is the boundary to the remote completion service. A
// Provider accepts the full conversation and yields the vendor's streaming
// notifications one at a time; callers normalize them downstream.
package provider

import (
	"context"

	"github.com/flitsinc/go-assistant/internal/history"
	"github.com/flitsinc/go-assistant/internal/tools"
)

type Request struct {
	Instructions     string
	Input            []history.Entry
	Tools            []tools.Schema
	Temperature      float64
	ReasoningEffort  string
	ReasoningSummary string
	Verbosity        string
	PromptCacheKey   string
}

// Stream is a live sequence of vendor notifications. Next blocks until the
// next notification arrives or the stream ends; Err reports any transport
// failure after Next returns false.
type Stream interface {
	Next() bool
	Current() Notification
	Err() error
	Close() error
}

type Provider interface {
	Stream(ctx context.Context, req Request) (Stream, error)
}

// Notification mirrors the completion service's streaming event shape. Type
// selects which of the remaining fields are meaningful.
type Notification struct {
	Type            string
	Delta           string
	Text            string
	ItemID          string
	SequenceNumber  int64
	PartialImageB64 string
	Item            *OutputItem
	Response        *Response
}

// OutputItem is one structured output item of a turn.
type OutputItem struct {
	Type      string
	ID        string
	Status    string
	CallID    string
	Name      string
	Arguments string
	Result    string
	Content   []history.ContentPart
}

// Response is the completion marker payload carrying the turn's full output
// and usage counters.
type Response struct {
	Output []OutputItem
	Usage  Usage
}

type Usage struct {
	InputTokens     int64 `json:"input_tokens"`
	CachedTokens    int64 `json:"cached_tokens"`
	OutputTokens    int64 `json:"output_tokens"`
	ReasoningTokens int64 `json:"reasoning_tokens"`
	TotalTokens     int64 `json:"total_tokens"`
}

// MessageEntry converts a completed message output item into a history entry.
func (i OutputItem) MessageEntry() history.Entry {
	return history.Entry{
		Type:    "message",
		Role:    "assistant",
		Status:  i.Status,
		Content: i.Content,
	}
}
