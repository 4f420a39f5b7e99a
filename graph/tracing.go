package graph

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/codex-mohan/autonix/graph"

// Span names, events and attributes emitted by a run.
const (
	SpanInvoke = "graph.invoke"
	SpanNode   = "graph.node"

	// EventRoute is added to the invoke span after every step, carrying
	// AttrNode and AttrNext.
	EventRoute = "graph.route"

	AttrNode       = "graph.node"
	AttrEntryPoint = "graph.entry_point"
	AttrThreadID   = "graph.thread_id"
	AttrNext       = "graph.next"
	AttrSteps      = "graph.steps"
)

func defaultTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
