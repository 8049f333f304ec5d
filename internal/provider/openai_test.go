package provider

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/flitsinc/go-assistant/internal/history"
)

func marshalInput(t *testing.T, entries []history.Entry) string {
	t.Helper()
	items := buildInput(entries)
	data, err := json.Marshal(items)
	if err != nil {
		t.Fatalf("marshal input items: %v", err)
	}
	return string(data)
}

func TestBuildInputRoundTripsToolCalls(t *testing.T) {
	entries := []history.Entry{
		history.UserMessage("what time is it?", nil),
		history.FunctionCall("call_1", "get_time", "{}"),
		history.FunctionCallOutput("call_1", `{"status":"success"}`),
		{Type: "message", Role: "assistant", Content: []history.ContentPart{{Type: "output_text", Text: "it is noon"}}},
	}
	got := marshalInput(t, entries)

	for _, want := range []string{
		`"what time is it?"`,
		`"type":"function_call"`,
		`"call_id":"call_1"`,
		`"name":"get_time"`,
		`"type":"function_call_output"`,
		`"it is noon"`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("input items missing %s: %s", want, got)
		}
	}
}

func TestBuildInputDropsReasoningEntries(t *testing.T) {
	entries := []history.Entry{
		history.UserMessage("hi", nil),
		{Type: "reasoning"},
	}
	got := marshalInput(t, entries)
	if strings.Contains(got, "reasoning") {
		t.Fatalf("reasoning entries must not be replayed: %s", got)
	}
}

func TestBuildInputAttachesImages(t *testing.T) {
	entries := []history.Entry{
		history.UserMessage("look at this", []history.GeneratedImage{
			{Type: "input_image", ImageURL: "data:image/png;base64,AAAA"},
		}),
	}
	got := marshalInput(t, entries)
	if !strings.Contains(got, `"input_image"`) || !strings.Contains(got, "base64,AAAA") {
		t.Fatalf("image part missing: %s", got)
	}
}

func TestMessageEntry(t *testing.T) {
	item := OutputItem{
		Type:    "message",
		Status:  "completed",
		Content: []history.ContentPart{{Type: "output_text", Text: "done"}},
	}
	entry := item.MessageEntry()
	if entry.Role != "assistant" || entry.Type != "message" || entry.Status != "completed" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if len(entry.Content) != 1 || entry.Content[0].Text != "done" {
		t.Fatalf("content lost: %+v", entry)
	}
}
