package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/coder/websocket"

	"github.com/flitsinc/go-assistant/internal/engine"
	"github.com/flitsinc/go-assistant/internal/events"
	"github.com/flitsinc/go-assistant/internal/history"
)

type wsInFrame struct {
	Type     string `json:"type"`
	Message  string `json:"message,omitempty"`
	MaxTurns int    `json:"max_turns,omitempty"`
	// Chunked announces that attachment chunk frames follow the message.
	Chunked bool `json:"chunked,omitempty"`
	// Data carries one base64 attachment chunk for type "chunk".
	Data string `json:"data,omitempty"`
}

// handleChatWS runs chat exchanges over a websocket. The client sends a
// message frame, optionally followed by attachment chunk frames and a
// chunks.done sentinel; every run event goes back as its own frame, ended by
// a stream.finished frame.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closed")

	ctx := r.Context()
	for {
		frame, err := readFrame(ctx, conn)
		if err != nil {
			_ = conn.Close(websocket.StatusNormalClosure, "done")
			return
		}
		if frame.Type != "message" {
			continue
		}
		var attachment string
		if frame.Chunked {
			attachment, err = collectChunks(ctx, conn)
			if err != nil {
				_ = conn.Close(websocket.StatusNormalClosure, "done")
				return
			}
		}
		if err := s.runOverWS(ctx, conn, frame, attachment); err != nil {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
			return
		}
	}
}

// collectChunks drains chunk frames until the chunks.done sentinel and
// returns the reassembled base64 attachment.
func collectChunks(ctx context.Context, conn *websocket.Conn) (string, error) {
	var b strings.Builder
	for {
		frame, err := readFrame(ctx, conn)
		if err != nil {
			return "", err
		}
		switch frame.Type {
		case "chunk":
			b.WriteString(frame.Data)
		case "chunks.done":
			return b.String(), nil
		default:
			return "", fmt.Errorf("unexpected frame %q during chunked upload", frame.Type)
		}
	}
}

func (s *Server) runOverWS(ctx context.Context, conn *websocket.Conn, frame wsInFrame, attachment string) error {
	maxTurns := frame.MaxTurns
	if maxTurns <= 0 {
		maxTurns = s.MaxTurns
	}
	// A blank message runs over an empty base: run.done(no_input) comes back
	// without a service call, matching the console transport.
	var input []history.Entry
	if strings.TrimSpace(frame.Message) != "" {
		var extra []history.GeneratedImage
		if attachment != "" {
			extra = append(extra, history.GeneratedImage{
				Type:     "input_image",
				ImageURL: "data:image/png;base64," + attachment,
			})
		}
		if err := s.appendUserMessage(frame.Message, extra); err != nil {
			return err
		}
		input = s.History.Entries()
	}

	seq := s.Agent.Run(ctx, input, maxTurns)
	for ev := range engine.Pump(ctx, seq, 64) {
		if ev.Type == events.TypeRunDone {
			s.finishRun(ev)
			ev.FinalHistory = nil
		}
		if err := writeFrame(ctx, conn, ev); err != nil {
			return err
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return writeFrame(ctx, conn, map[string]any{"type": "stream.finished"})
}

func readFrame(ctx context.Context, conn *websocket.Conn) (wsInFrame, error) {
	var frame wsInFrame
	_, data, err := conn.Read(ctx)
	if err != nil {
		return frame, err
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		return frame, fmt.Errorf("decode frame: %w", err)
	}
	return frame, nil
}

func writeFrame(ctx context.Context, conn *websocket.Conn, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
