package engine

import "github.com/flitsinc/go-assistant/internal/events"

// runState tags where a run is in its lifecycle. Transitions out of
// awaitingTurn are decided by decideAwaiting; streaming and dispatchingTools
// interleave inside the service stream and fall back to awaitingTurn when the
// stream ends cleanly.
type runState int

const (
	stateAwaitingTurn runState = iota
	stateStreaming
	stateDispatchingTools
	stateDone
)

func (s runState) String() string {
	switch s {
	case stateAwaitingTurn:
		return "awaiting_turn"
	case stateStreaming:
		return "streaming"
	case stateDispatchingTools:
		return "dispatching_tools"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

// transition is one step of the run state machine. reason is set only when
// next is stateDone.
type transition struct {
	next   runState
	reason string
}

// decideAwaiting is the pure transition out of stateAwaitingTurn. A run
// continues past turn 1 only while the previous turn requested a tool, and
// the turn bound is enforced here and nowhere else, so a tool round in
// flight always completes before the bound applies.
func decideAwaiting(turn, maxTurns int, toolCallDetected bool) transition {
	if turn > 1 && !toolCallDetected {
		return transition{next: stateDone, reason: events.ReasonCompleted}
	}
	if turn > maxTurns {
		return transition{next: stateDone, reason: events.ReasonMaxTurnsExceeded}
	}
	return transition{next: stateStreaming}
}
