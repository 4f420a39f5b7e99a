package graph

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/codex-mohan/autonix/store"
)

// Config holds per-run settings.
type Config struct {
	// ThreadID keys the checkpoints of the run. Empty disables checkpointing.
	ThreadID string

	// RecursionLimit caps the number of steps. Zero means DefaultRecursionLimit.
	RecursionLimit int

	// Listeners receive node start, complete and error events.
	Listeners []NodeListener
}

func (c *Config) recursionLimit() int {
	if c == nil || c.RecursionLimit <= 0 {
		return DefaultRecursionLimit
	}
	return c.RecursionLimit
}

// StateRunnable represents a compiled state graph that can be invoked with type safety.
type StateRunnable[S any] struct {
	graph        *StateGraph[S]
	tracer       trace.Tracer
	checkpointer store.CheckpointStore
}

// WithTracer returns a copy of the runnable that records spans with tracer.
func (r *StateRunnable[S]) WithTracer(tracer trace.Tracer) *StateRunnable[S] {
	c := *r
	c.tracer = tracer
	return &c
}

// WithCheckpointer returns a copy of the runnable that checkpoints into cp.
func (r *StateRunnable[S]) WithCheckpointer(cp store.CheckpointStore) *StateRunnable[S] {
	c := *r
	c.checkpointer = cp
	return &c
}

// Graph returns the graph the runnable was compiled from.
func (r *StateRunnable[S]) Graph() *StateGraph[S] {
	return r.graph
}

// Invoke executes the compiled state graph with the given input state.
func (r *StateRunnable[S]) Invoke(ctx context.Context, initialState S) (S, error) {
	return r.InvokeWithConfig(ctx, initialState, nil)
}

// InvokeWithConfig executes the graph from its entry point until END.
// On failure the state reached so far is returned along with the error.
func (r *StateRunnable[S]) InvokeWithConfig(ctx context.Context, initialState S, config *Config) (S, error) {
	if config == nil {
		config = &Config{}
	}

	ctx, span := r.tracer.Start(ctx, SpanInvoke, trace.WithAttributes(
		attribute.String(AttrEntryPoint, r.graph.entryPoint),
		attribute.String(AttrThreadID, config.ThreadID),
	))
	defer span.End()

	state, version, err := r.restore(ctx, initialState, config)
	if err != nil {
		recordError(span, err)
		return initialState, err
	}

	limit := config.recursionLimit()
	current := r.graph.entryPoint
	steps := 0
	for current != END {
		if steps >= limit {
			err := fmt.Errorf("%w: %d steps without reaching %s", ErrRecursionLimit, limit, END)
			recordError(span, err)
			return state, err
		}
		if err := ctx.Err(); err != nil {
			recordError(span, err)
			return state, err
		}

		steps++
		state, err = r.step(ctx, current, steps, state, config)
		if err != nil {
			recordError(span, err)
			return state, err
		}

		next, err := r.Next(ctx, current, state)
		if err != nil {
			recordError(span, err)
			return state, err
		}
		span.AddEvent(EventRoute, trace.WithAttributes(
			attribute.String(AttrNode, current),
			attribute.String(AttrNext, next),
		))

		if r.checkpointer != nil && config.ThreadID != "" {
			version++
			if err := r.save(ctx, config.ThreadID, current, next, state, version); err != nil {
				recordError(span, err)
				return state, err
			}
		}
		current = next
	}

	span.SetAttributes(attribute.Int(AttrSteps, steps))
	return state, nil
}

// Next returns the node that follows from for the given state. A conditional
// edge takes precedence over static edges.
func (r *StateRunnable[S]) Next(ctx context.Context, from string, state S) (string, error) {
	if ce, ok := r.graph.conditionalEdges[from]; ok {
		next := ce.condition(ctx, state)
		if next == "" {
			return "", fmt.Errorf("%w: %s", ErrNoOutgoingEdge, from)
		}
		if !r.graph.isTarget(next) {
			return "", fmt.Errorf("condition of %s returned %s: %w", from, next, ErrNodeNotFound)
		}
		return next, nil
	}

	for _, edge := range r.graph.edges {
		if edge.From == from {
			return edge.To, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoOutgoingEdge, from)
}

func (r *StateRunnable[S]) step(ctx context.Context, name string, n int, state S, config *Config) (S, error) {
	node, ok := r.graph.nodes[name]
	if !ok {
		return state, fmt.Errorf("%w: %s", ErrNodeNotFound, name)
	}

	ctx, span := r.tracer.Start(ctx, SpanNode, trace.WithAttributes(attribute.String(AttrNode, name)))
	defer span.End()

	event := Event{Node: name, ThreadID: config.ThreadID, Step: n}
	event.Kind, event.State = EventNodeStart, state
	notify(ctx, config.Listeners, event)

	update, err := call(ctx, node, state)
	if err == nil {
		update, err = r.merge(state, update)
		if err != nil {
			err = fmt.Errorf("failed to merge update of node %s: %w", name, err)
		}
	}
	if err != nil {
		recordError(span, err)
		event.Kind, event.Err = EventNodeError, err
		notify(ctx, config.Listeners, event)
		return state, err
	}

	event.Kind, event.State = EventNodeComplete, update
	notify(ctx, config.Listeners, event)
	return update, nil
}

func call[S any](ctx context.Context, node Node[S], state S) (update S, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic in node %s: %v", node.Name, p)
		}
	}()

	update, err = node.Function(ctx, state)
	if err != nil {
		return update, fmt.Errorf("error in node %s: %w", node.Name, err)
	}
	return update, nil
}

func (r *StateRunnable[S]) merge(current, update S) (S, error) {
	if r.graph.Schema == nil {
		return update, nil
	}
	return r.graph.Schema.Update(current, update)
}
