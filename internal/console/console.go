// Package console is the interactive terminal transport: it reads user lines,
// drives runs synchronously, and renders the event stream with light ANSI
// color when attached to a terminal.
package console

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/flitsinc/go-assistant/internal/engine"
	"github.com/flitsinc/go-assistant/internal/events"
	"github.com/flitsinc/go-assistant/internal/history"
)

const (
	ansiReset  = "\033[0m"
	ansiDim    = "\033[2m"
	ansiYellow = "\033[33m"
	ansiRed    = "\033[31m"
	ansiCyan   = "\033[36m"
)

type Console struct {
	Agent       *engine.Agent
	History     *history.Manager
	MaxTurns    int
	Timestamp   bool
	ImageOutDir string

	In  io.Reader
	Out io.Writer

	color     bool
	inlineRow bool
}

// Run loops until EOF or an exit command. Each line becomes one run; the
// transcript persists between lines through the history manager.
func (c *Console) Run(ctx context.Context) error {
	if c.In == nil {
		c.In = os.Stdin
	}
	if c.Out == nil {
		c.Out = os.Stdout
	}
	if f, ok := c.Out.(*os.File); ok {
		c.color = isatty.IsTerminal(f.Fd())
	}

	c.printf("%s ready. Type a message, or \"exit\" to quit.\n", c.Agent.Name)
	scanner := bufio.NewScanner(c.In)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		c.printf("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		if err := c.runOnce(ctx, line); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return scanner.Err()
}

func (c *Console) runOnce(ctx context.Context, line string) error {
	pending := c.History.Images()
	entry := history.UserMessage(line, pending)
	if c.Timestamp {
		entry = history.UserMessageAt(line, time.Now(), pending)
	}
	if _, err := c.History.Append(entry); err != nil {
		return err
	}
	if err := c.History.ClearImages(); err != nil {
		return err
	}

	seq := c.Agent.Run(ctx, c.History.Entries(), c.MaxTurns)
	seq(func(ev events.Event) bool {
		c.render(ev)
		if ev.Type == events.TypeRunDone {
			if err := c.History.AppendAll(ev.FinalHistory); err != nil {
				log.Printf("persist run history: %v", err)
			}
			if err := c.History.AddImages(ev.GeneratedImages); err != nil {
				log.Printf("persist generated images: %v", err)
			}
		}
		return ctx.Err() == nil
	})
	return nil
}

func (c *Console) render(ev events.Event) {
	switch ev.Type {
	case events.TypeReasoningStarted:
		c.breakRow()
		c.printColored(ansiDim, "· thinking\n")
	case events.TypeReasoningDelta:
		c.inlineRow = true
		c.printColored(ansiDim, ev.Text)
	case events.TypeReasoningDone:
		c.breakRow()
	case events.TypeTextDelta:
		c.inlineRow = true
		c.printf("%s", ev.Text)
	case events.TypeTextDone:
		c.breakRow()
	case events.TypeToolRequested:
		c.breakRow()
		c.printColored(ansiYellow, fmt.Sprintf("→ %s %s\n", ev.ToolName, ev.Arguments))
	case events.TypeToolResult:
		c.printColored(ansiYellow, fmt.Sprintf("← %s\n", truncate(ev.Result, 200)))
	case events.TypeImageProgress:
		c.breakRow()
		c.saveImage(ev.ItemID, ev.SequenceNumber, ev.ImageB64, true)
	case events.TypeImageCompleted:
		c.printColored(ansiCyan, fmt.Sprintf("image %s completed\n", ev.ItemID))
	case events.TypeTurnCompleted:
		c.breakRow()
		if ev.Usage != nil {
			c.printColored(ansiDim, fmt.Sprintf("[turn: %d in / %d out tokens]\n",
				ev.Usage.InputTokens, ev.Usage.OutputTokens))
		}
	case events.TypeRunError:
		c.breakRow()
		c.printColored(ansiRed, ev.Text+"\n")
	case events.TypeRunDone:
		c.breakRow()
		for _, img := range ev.GeneratedImages {
			c.saveDataURL(img.ImageURL)
		}
		if ev.Reason != events.ReasonCompleted {
			c.printColored(ansiDim, fmt.Sprintf("[run ended: %s]\n", ev.Reason))
		}
	}
}

func (c *Console) saveImage(itemID string, sequence int64, b64 string, partial bool) {
	if c.ImageOutDir == "" || b64 == "" {
		return
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		log.Printf("decode image %s: %v", itemID, err)
		return
	}
	suffix := "final"
	if partial {
		suffix = fmt.Sprintf("partial_%d", sequence)
	}
	name := fmt.Sprintf("%s_%s.png", itemID, suffix)
	if err := writeImageFile(c.ImageOutDir, name, data); err != nil {
		log.Printf("save image %s: %v", name, err)
		return
	}
	c.printColored(ansiCyan, fmt.Sprintf("saved %s\n", filepath.Join(c.ImageOutDir, name)))
}

func (c *Console) saveDataURL(url string) {
	const prefix = "data:image/png;base64,"
	if !strings.HasPrefix(url, prefix) {
		return
	}
	c.saveImage(fmt.Sprintf("img_%d", time.Now().UnixMilli()), 0, strings.TrimPrefix(url, prefix), false)
}

func writeImageFile(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name), data, 0o644)
}

// breakRow terminates a pending inline delta row before block output.
func (c *Console) breakRow() {
	if c.inlineRow {
		c.printf("\n")
		c.inlineRow = false
	}
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.Out, format, args...)
}

func (c *Console) printColored(color, text string) {
	if c.color {
		fmt.Fprint(c.Out, color, text, ansiReset)
	} else {
		fmt.Fprint(c.Out, text)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
