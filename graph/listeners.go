package graph

import (
	"context"

	"github.com/codex-mohan/autonix/log"
)

// EventKind classifies an Event.
type EventKind string

const (
	EventNodeStart    EventKind = "start"
	EventNodeComplete EventKind = "complete"
	EventNodeError    EventKind = "error"
)

// Event describes one transition of a node during a run.
type Event struct {
	Kind     EventKind
	Node     string
	ThreadID string
	// Step counts from 1 within a run.
	Step int
	// State is the input state for start and error events and the merged
	// state for complete events.
	State any
	Err   error
}

// NodeListener observes node events. Calls happen on the run's goroutine.
type NodeListener interface {
	OnNodeEvent(ctx context.Context, event Event)
}

// NodeListenerFunc adapts a function to NodeListener.
type NodeListenerFunc func(ctx context.Context, event Event)

func (f NodeListenerFunc) OnNodeEvent(ctx context.Context, event Event) {
	f(ctx, event)
}

// LogListener logs starts and completions at debug and failures at warn.
func LogListener(logger log.Logger) NodeListener {
	return NodeListenerFunc(func(_ context.Context, e Event) {
		switch e.Kind {
		case EventNodeError:
			logger.Warn("thread %q step %d: node %s failed: %v", e.ThreadID, e.Step, e.Node, e.Err)
		default:
			logger.Debug("thread %q step %d: node %s %s", e.ThreadID, e.Step, e.Node, e.Kind)
		}
	})
}

func notify(ctx context.Context, listeners []NodeListener, e Event) {
	for _, l := range listeners {
		l.OnNodeEvent(ctx, e)
	}
}
