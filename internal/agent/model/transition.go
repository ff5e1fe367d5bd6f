package model

import "fmt"

// TransitionKind tells the graph runner what a stage wants to happen next.
type TransitionKind int

const (
	// TransitionNone is the zero value: nothing pending.
	TransitionNone TransitionKind = iota
	// TransitionAdvance follows the stage's forward edge.
	TransitionAdvance
	// TransitionAnalysis hands control to detail collection.
	TransitionAnalysis
	// TransitionChat hands control to the chat responder.
	TransitionChat
	// TransitionAwaitInput pauses the graph until the next user message.
	TransitionAwaitInput
	// TransitionRetreat aborts the pipeline; Target resumes it on a later turn.
	TransitionRetreat
	// TransitionFinish marks a completed analysis.
	TransitionFinish
)

func (k TransitionKind) String() string {
	switch k {
	case TransitionNone:
		return "none"
	case TransitionAdvance:
		return "advance"
	case TransitionAnalysis:
		return "analysis"
	case TransitionChat:
		return "chat"
	case TransitionAwaitInput:
		return "await_input"
	case TransitionRetreat:
		return "retreat"
	case TransitionFinish:
		return "finish"
	default:
		return fmt.Sprintf("transition(%d)", int(k))
	}
}

// Transition is returned by every stage alongside its state.
type Transition struct {
	Kind   TransitionKind
	Target string
	Reason string
}

// Awaiting reports whether the run paused for user input rather than finishing.
func (t Transition) Awaiting() bool {
	return t.Kind != TransitionFinish
}

func (t Transition) String() string {
	if t.Target != "" {
		return fmt.Sprintf("%s->%s", t.Kind, t.Target)
	}
	return t.Kind.String()
}

func Advance() Transition {
	return Transition{Kind: TransitionAdvance}
}

func ToAnalysis(reason string) Transition {
	return Transition{Kind: TransitionAnalysis, Reason: reason}
}

func ToChat(reason string) Transition {
	return Transition{Kind: TransitionChat, Reason: reason}
}

func AwaitInput(reason string) Transition {
	return Transition{Kind: TransitionAwaitInput, Reason: reason}
}

func Retreat(target, reason string) Transition {
	return Transition{Kind: TransitionRetreat, Target: target, Reason: reason}
}

func Finish() Transition {
	return Transition{Kind: TransitionFinish}
}
