package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func spanAttr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracing_SpansPerRunAndNode(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	r := loopGraph(t).WithTracer(tp.Tracer("test"))
	_, err := r.InvokeWithConfig(context.Background(), trailState{}, &Config{ThreadID: "t1"})
	require.NoError(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 3)

	assert.Equal(t, SpanNode, spans[0].Name())
	node, ok := spanAttr(spans[0], AttrNode)
	require.True(t, ok)
	assert.Equal(t, "work", node.AsString())

	node, _ = spanAttr(spans[1], AttrNode)
	assert.Equal(t, "review", node.AsString())

	run := spans[2]
	assert.Equal(t, SpanInvoke, run.Name())
	thread, _ := spanAttr(run, AttrThreadID)
	assert.Equal(t, "t1", thread.AsString())
	steps, _ := spanAttr(run, AttrSteps)
	assert.Equal(t, int64(2), steps.AsInt64())

	assert.Equal(t, run.SpanContext().SpanID(), spans[0].Parent().SpanID())

	events := run.Events()
	require.Len(t, events, 2)
	var routes [][2]string
	for _, ev := range events {
		assert.Equal(t, EventRoute, ev.Name)
		var from, to string
		for _, kv := range ev.Attributes {
			switch string(kv.Key) {
			case AttrNode:
				from = kv.Value.AsString()
			case AttrNext:
				to = kv.Value.AsString()
			}
		}
		routes = append(routes, [2]string{from, to})
	}
	assert.Equal(t, [][2]string{{"work", "review"}, {"review", END}}, routes)
}

func TestTracing_ErrorStatus(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	g := NewStateGraph[trailState]()
	g.AddNode("bad", "bad", func(ctx context.Context, s trailState) (trailState, error) {
		return s, errors.New("boom")
	})
	g.AddEdge("bad", END)
	g.SetEntryPoint("bad")
	r, err := g.Compile()
	require.NoError(t, err)

	_, err = r.WithTracer(tp.Tracer("test")).Invoke(context.Background(), trailState{})
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	for _, span := range spans {
		assert.Equal(t, codes.Error, span.Status().Code)
		assert.Equal(t, "error in node bad: boom", span.Status().Description)
	}
}
