// Package engine drives multi-turn runs against the completion service: it
// owns the turn state machine, dispatches tool calls, and accumulates the
// run's transcript additions.
package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/flitsinc/go-assistant/internal/events"
	"github.com/flitsinc/go-assistant/internal/history"
	"github.com/flitsinc/go-assistant/internal/idgen"
	"github.com/flitsinc/go-assistant/internal/provider"
	"github.com/flitsinc/go-assistant/internal/state"
	"github.com/flitsinc/go-assistant/internal/tools"
)

// TurnRecorder persists per-turn usage. state.Store satisfies it.
type TurnRecorder interface {
	RecordTurn(ctx context.Context, runID string, ordinal int, outcome string, usage state.TokenUsage) error
}

// Agent configures runs. Fields are read-only after construction; one Agent
// serves any number of sequential runs.
type Agent struct {
	Name         string
	Instructions string
	Provider     provider.Provider
	Registry     *tools.Registry

	// Turns records per-turn usage when non-nil.
	Turns TurnRecorder

	Temperature      float64
	ReasoningEffort  string
	ReasoningSummary string
	Verbosity        string
	PromptCacheKey   string
}

// Run starts a run over the given base transcript and returns its event
// sequence. The sequence is lazy and single-use: nothing happens until the
// caller iterates, and a halted consumer halts further service calls at the
// next suspension point. Exactly one run.done event terminates the sequence.
//
// Entries appended during the run (assistant messages and tool round trips)
// are NOT written to any store; they ride out on the run.done event and the
// transport decides what to persist.
func (a *Agent) Run(ctx context.Context, base []history.Entry, maxTurns int) func(yield func(events.Event) bool) {
	if maxTurns < 1 {
		maxTurns = 1
	}
	return func(yield func(events.Event) bool) {
		runID := idgen.Prefixed("run")

		if len(base) == 0 {
			yield(events.RunDone(events.ReasonNoInput, nil, nil))
			return
		}

		var (
			ephemeral []history.Entry
			images    []history.GeneratedImage
			turn      = 1
			detected  = false
		)
		done := func(reason string) {
			yield(events.RunDone(reason, ephemeral, images))
		}

		for {
			if t := decideAwaiting(turn, maxTurns, detected); t.next == stateDone {
				done(t.reason)
				return
			}
			detected = false

			input := make([]history.Entry, 0, len(base)+len(ephemeral))
			input = append(input, base...)
			input = append(input, ephemeral...)
			stream, err := a.Provider.Stream(ctx, provider.Request{
				Instructions:     a.Instructions,
				Input:            input,
				Tools:            a.Registry.Schemas(),
				Temperature:      a.Temperature,
				ReasoningEffort:  a.ReasoningEffort,
				ReasoningSummary: a.ReasoningSummary,
				Verbosity:        a.Verbosity,
				PromptCacheKey:   a.PromptCacheKey,
			})
			if err != nil {
				a.failRun(ctx, yield, &ephemeral, images, runID, turn, err)
				return
			}

			var completed *provider.Response
			halted := false
			for stream.Next() {
				n := stream.Current()
				if ev, ok := events.Normalize(n); ok {
					if !yield(ev) {
						halted = true
						break
					}
					if ev.Type == events.TypeToolRequested {
						detected = true
						result := tools.Dispatch(ctx, a.Registry, ev.CallID, ev.ToolName, ev.Arguments)
						ephemeral = append(ephemeral,
							history.FunctionCall(result.CallID, ev.ToolName, ev.Arguments),
							history.FunctionCallOutput(result.CallID, result.Output))
						if !yield(events.ToolResult(result.CallID, result.Output)) {
							halted = true
							break
						}
					}
				}
				if n.Type == "response.output_item.done" && n.Item != nil &&
					n.Item.Type == "image_generation_call" && n.Item.Result != "" {
					images = append(images, history.GeneratedImage{
						Type:     "input_image",
						ImageURL: "data:image/png;base64," + n.Item.Result,
					})
				}
				if n.Type == "response.completed" {
					completed = n.Response
				}
			}
			streamErr := stream.Err()
			_ = stream.Close()
			if halted {
				return
			}
			if streamErr != nil {
				a.failRun(ctx, yield, &ephemeral, images, runID, turn, streamErr)
				return
			}
			if completed == nil {
				a.failRun(ctx, yield, &ephemeral, images, runID, turn,
					fmt.Errorf("completion service stream ended without a completed response"))
				return
			}

			for _, item := range completed.Output {
				if item.Type == "message" {
					ephemeral = append(ephemeral, item.MessageEntry())
				}
			}
			a.recordTurn(ctx, runID, turn, "completed", completed.Usage)
			if !yield(events.TurnCompleted(completed.Usage)) {
				return
			}
			turn++
		}
	}
}

// failRun converts a service failure into transcript data: a synthetic
// assistant error entry, a run.error event, and the terminal run.done. The
// run never retries.
func (a *Agent) failRun(ctx context.Context, yield func(events.Event) bool, ephemeral *[]history.Entry, images []history.GeneratedImage, runID string, turn int, err error) {
	message := fmt.Sprintf("The assistant hit a service error and stopped: %v", err)
	*ephemeral = append(*ephemeral, history.AssistantError(message))
	a.recordTurn(ctx, runID, turn, "error", provider.Usage{})
	if !yield(events.RunError(message)) {
		return
	}
	yield(events.RunDone(events.ReasonRunError, *ephemeral, images))
}

func (a *Agent) recordTurn(ctx context.Context, runID string, ordinal int, outcome string, usage provider.Usage) {
	if a.Turns == nil {
		return
	}
	counters := state.TokenUsage{
		InputTokens:     usage.InputTokens,
		CachedTokens:    usage.CachedTokens,
		OutputTokens:    usage.OutputTokens,
		ReasoningTokens: usage.ReasoningTokens,
		TotalTokens:     usage.TotalTokens,
	}
	if err := a.Turns.RecordTurn(ctx, runID, ordinal, outcome, counters); err != nil {
		log.Printf("record turn %d of %s: %v", ordinal, runID, err)
	}
}
