package engine

import (
	"testing"

	"github.com/flitsinc/go-assistant/internal/events"
)

func TestDecideAwaiting(t *testing.T) {
	tests := []struct {
		name       string
		turn       int
		maxTurns   int
		detected   bool
		wantNext   runState
		wantReason string
	}{
		{name: "first turn streams", turn: 1, maxTurns: 1, detected: false, wantNext: stateStreaming},
		{name: "no tool call ends run", turn: 2, maxTurns: 5, detected: false, wantNext: stateDone, wantReason: events.ReasonCompleted},
		{name: "tool call continues", turn: 2, maxTurns: 5, detected: true, wantNext: stateStreaming},
		{name: "turn bound enforced", turn: 3, maxTurns: 2, detected: true, wantNext: stateDone, wantReason: events.ReasonMaxTurnsExceeded},
		{name: "completion wins over bound", turn: 3, maxTurns: 2, detected: false, wantNext: stateDone, wantReason: events.ReasonCompleted},
		{name: "last allowed turn streams", turn: 2, maxTurns: 2, detected: true, wantNext: stateStreaming},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decideAwaiting(tt.turn, tt.maxTurns, tt.detected)
			if got.next != tt.wantNext {
				t.Fatalf("next = %v, want %v", got.next, tt.wantNext)
			}
			if got.reason != tt.wantReason {
				t.Fatalf("reason = %q, want %q", got.reason, tt.wantReason)
			}
		})
	}
}

func TestRunStateString(t *testing.T) {
	for state, want := range map[runState]string{
		stateAwaitingTurn:     "awaiting_turn",
		stateStreaming:        "streaming",
		stateDispatchingTools: "dispatching_tools",
		stateDone:             "done",
		runState(99):          "unknown",
	} {
		if got := state.String(); got != want {
			t.Fatalf("runState(%d).String() = %q, want %q", state, got, want)
		}
	}
}
