// Package events defines the canonical event taxonomy a run produces and the
// normalizer that maps the completion service's raw notification stream onto
// it. Everything downstream of the engine (console, SSE, websocket) speaks
// only these events.
package events

import (
	"github.com/flitsinc/go-assistant/internal/history"
	"github.com/flitsinc/go-assistant/internal/provider"
)

// Event type tags. Type selects which of the remaining Event fields carry
// data; unset fields marshal away.
const (
	TypeReasoningStarted = "reasoning.started"
	TypeReasoningDelta   = "reasoning.delta"
	TypeReasoningDone    = "reasoning.done"
	TypeTextStarted      = "text.started"
	TypeTextDelta        = "text.delta"
	TypeTextDone         = "text.done"
	TypeToolRequested    = "tool.requested"
	TypeToolResult       = "tool.result"
	TypeImageProgress    = "image.progress"
	TypeImageCompleted   = "image.completed"
	TypeTurnCompleted    = "turn.completed"
	TypeRunDone          = "run.done"
	TypeRunError         = "run.error"
)

// Run termination reasons carried by a run.done event.
const (
	ReasonCompleted        = "completed"
	ReasonNoInput          = "no_input"
	ReasonMaxTurnsExceeded = "max_turns_exceeded"
	ReasonRunError         = "run_error"
)

// Event is the closed union of everything a run can emit. Exactly one
// run.done terminates every run and nothing follows it.
type Event struct {
	Type string `json:"type"`

	// Text carries reasoning/output text deltas and completed text, and the
	// human-readable message of a run.error.
	Text string `json:"text,omitempty"`

	// Tool invocation round trip.
	CallID    string `json:"call_id,omitempty"`
	ToolName  string `json:"tool_name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	Result    string `json:"result,omitempty"`

	// Image generation progress.
	ItemID         string `json:"item_id,omitempty"`
	SequenceNumber int64  `json:"sequence_number,omitempty"`
	ImageB64       string `json:"image_b64,omitempty"`

	// Turn completion usage counters.
	Usage *provider.Usage `json:"usage,omitempty"`

	// Run termination payload.
	Reason          string                   `json:"reason,omitempty"`
	FinalHistory    []history.Entry          `json:"final_history,omitempty"`
	GeneratedImages []history.GeneratedImage `json:"generated_images,omitempty"`
}

func ToolRequested(callID, name, arguments string) Event {
	return Event{Type: TypeToolRequested, CallID: callID, ToolName: name, Arguments: arguments}
}

func ToolResult(callID, result string) Event {
	return Event{Type: TypeToolResult, CallID: callID, Result: result}
}

func TurnCompleted(usage provider.Usage) Event {
	return Event{Type: TypeTurnCompleted, Usage: &usage}
}

func RunDone(reason string, finalHistory []history.Entry, images []history.GeneratedImage) Event {
	return Event{Type: TypeRunDone, Reason: reason, FinalHistory: finalHistory, GeneratedImages: images}
}

func RunError(message string) Event {
	return Event{Type: TypeRunError, Text: message}
}

// Normalize maps one raw service notification to at most one canonical event.
// It is pure and order-preserving; unrecognized notification types return
// ok=false and are dropped by the caller. Function-call and completion
// bookkeeping stays in the engine, which inspects the raw notification
// alongside the normalized event.
func Normalize(n provider.Notification) (Event, bool) {
	switch n.Type {
	case "response.reasoning_summary_part.added":
		return Event{Type: TypeReasoningStarted}, true
	case "response.reasoning_summary_text.delta":
		return Event{Type: TypeReasoningDelta, Text: n.Delta}, true
	case "response.reasoning_summary_text.done":
		return Event{Type: TypeReasoningDone, Text: n.Text}, true
	case "response.content_part.added":
		return Event{Type: TypeTextStarted}, true
	case "response.output_text.delta":
		return Event{Type: TypeTextDelta, Text: n.Delta}, true
	case "response.output_text.done":
		return Event{Type: TypeTextDone, Text: n.Text}, true
	case "response.output_item.done":
		if n.Item != nil && n.Item.Type == "function_call" {
			return ToolRequested(n.Item.CallID, n.Item.Name, n.Item.Arguments), true
		}
		return Event{}, false
	case "response.image_generation_call.partial_image":
		return Event{
			Type:           TypeImageProgress,
			ItemID:         n.ItemID,
			SequenceNumber: n.SequenceNumber,
			ImageB64:       n.PartialImageB64,
		}, true
	case "response.image_generation_call.completed":
		return Event{Type: TypeImageCompleted, ItemID: n.ItemID, SequenceNumber: n.SequenceNumber}, true
	default:
		return Event{}, false
	}
}
