package history

import (
	"encoding/json"
	"time"
)

// Entry is one conversation item in the shape the completion service replays.
// Exactly one kind is populated per entry: a role message, a function call, or
// a function call output.
type Entry struct {
	Type      string        `json:"type,omitempty"`
	Role      string        `json:"role,omitempty"`
	Content   []ContentPart `json:"content,omitempty"`
	CallID    string        `json:"call_id,omitempty"`
	Name      string        `json:"name,omitempty"`
	Arguments string        `json:"arguments,omitempty"`
	Output    string        `json:"output,omitempty"`
	Status    string        `json:"status,omitempty"`
}

type ContentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// GeneratedImage is a side artifact produced by the model's image generation.
// It is replayed as user message content, never as a transcript entry.
type GeneratedImage struct {
	Type     string `json:"type"`
	ImageURL string `json:"image_url"`
}

// Envelope wraps a persisted entry with durable metadata. Identifiers are
// opaque: deleting an envelope never renumbers the survivors.
type Envelope struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"ts"`
	Type      string    `json:"type"`
	Size      int       `json:"size"`
	Content   Entry     `json:"content"`
}

func UserMessage(text string, images []GeneratedImage) Entry {
	content := []ContentPart{{Type: "input_text", Text: text}}
	for _, img := range images {
		content = append(content, ContentPart{Type: img.Type, ImageURL: img.ImageURL})
	}
	return Entry{Role: "user", Content: content}
}

// UserMessageAt prefixes the text with a local-time preamble so the model
// knows when the message was sent.
func UserMessageAt(text string, at time.Time, images []GeneratedImage) Entry {
	return UserMessage("["+at.Format("2006-01-02 15:04")+"] "+text, images)
}

func AssistantError(message string) Entry {
	return Entry{
		Type:    "message",
		Role:    "assistant",
		Status:  "incomplete",
		Content: []ContentPart{{Type: "output_text", Text: message}},
	}
}

func FunctionCall(callID, name, arguments string) Entry {
	return Entry{Type: "function_call", CallID: callID, Name: name, Arguments: arguments}
}

func FunctionCallOutput(callID, output string) Entry {
	return Entry{Type: "function_call_output", CallID: callID, Output: output}
}

// entryType infers the envelope type tag: an explicit entry type wins, then
// the type of the first content part, then "unknown".
func entryType(entry Entry) string {
	if entry.Type != "" {
		return entry.Type
	}
	if len(entry.Content) > 0 && entry.Content[0].Type != "" {
		return entry.Content[0].Type
	}
	return "unknown"
}

func entrySize(entry Entry) int {
	data, err := json.Marshal(entry)
	if err != nil {
		return 0
	}
	return len(data)
}
