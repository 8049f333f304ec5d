package events

import (
	"testing"

	"github.com/flitsinc/go-assistant/internal/provider"
)

func TestNormalize(t *testing.T) {
	functionCall := &provider.OutputItem{
		Type: "function_call", CallID: "call_7", Name: "get_time", Arguments: "{}",
	}
	message := &provider.OutputItem{Type: "message", Status: "completed"}
	imageGen := &provider.OutputItem{Type: "image_generation_call", Result: "AAAA"}

	tests := []struct {
		name     string
		in       provider.Notification
		want     Event
		wantDrop bool
	}{
		{
			name: "reasoning part added",
			in:   provider.Notification{Type: "response.reasoning_summary_part.added"},
			want: Event{Type: TypeReasoningStarted},
		},
		{
			name: "reasoning delta",
			in:   provider.Notification{Type: "response.reasoning_summary_text.delta", Delta: "hm"},
			want: Event{Type: TypeReasoningDelta, Text: "hm"},
		},
		{
			name: "reasoning done",
			in:   provider.Notification{Type: "response.reasoning_summary_text.done", Text: "thought"},
			want: Event{Type: TypeReasoningDone, Text: "thought"},
		},
		{
			name: "content part added",
			in:   provider.Notification{Type: "response.content_part.added"},
			want: Event{Type: TypeTextStarted},
		},
		{
			name: "text delta",
			in:   provider.Notification{Type: "response.output_text.delta", Delta: "hi"},
			want: Event{Type: TypeTextDelta, Text: "hi"},
		},
		{
			name: "text done",
			in:   provider.Notification{Type: "response.output_text.done", Text: "hi there"},
			want: Event{Type: TypeTextDone, Text: "hi there"},
		},
		{
			name: "function call item done",
			in:   provider.Notification{Type: "response.output_item.done", Item: functionCall},
			want: ToolRequested("call_7", "get_time", "{}"),
		},
		{
			name:     "message item done is not a tool request",
			in:       provider.Notification{Type: "response.output_item.done", Item: message},
			wantDrop: true,
		},
		{
			name:     "image item done handled elsewhere",
			in:       provider.Notification{Type: "response.output_item.done", Item: imageGen},
			wantDrop: true,
		},
		{
			name: "partial image",
			in: provider.Notification{
				Type: "response.image_generation_call.partial_image",
				ItemID: "ig_1", SequenceNumber: 2, PartialImageB64: "QUJD",
			},
			want: Event{Type: TypeImageProgress, ItemID: "ig_1", SequenceNumber: 2, ImageB64: "QUJD"},
		},
		{
			name: "image completed",
			in:   provider.Notification{Type: "response.image_generation_call.completed", ItemID: "ig_1"},
			want: Event{Type: TypeImageCompleted, ItemID: "ig_1"},
		},
		{
			name:     "image generating is dropped",
			in:       provider.Notification{Type: "response.image_generation_call.generating"},
			wantDrop: true,
		},
		{
			name:     "completion marker handled by the controller",
			in:       provider.Notification{Type: "response.completed"},
			wantDrop: true,
		},
		{
			name:     "unrecognized type is dropped",
			in:       provider.Notification{Type: "response.some_future_event"},
			wantDrop: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.in)
			if tt.wantDrop {
				if ok {
					t.Fatalf("expected drop, got %+v", got)
				}
				return
			}
			if !ok {
				t.Fatalf("expected event, got drop")
			}
			if got.Type != tt.want.Type || got.Text != tt.want.Text ||
				got.CallID != tt.want.CallID || got.ToolName != tt.want.ToolName ||
				got.Arguments != tt.want.Arguments || got.ItemID != tt.want.ItemID ||
				got.SequenceNumber != tt.want.SequenceNumber || got.ImageB64 != tt.want.ImageB64 {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
