package prebuilt

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codex-mohan/autonix/graph"
	"github.com/codex-mohan/autonix/llmconfig"
	"github.com/codex-mohan/autonix/log"
	"github.com/codex-mohan/autonix/state"
	"github.com/codex-mohan/autonix/store/memory"
	"github.com/codex-mohan/autonix/tool"
)

func TestRoute(t *testing.T) {
	call := state.ToolCall{ID: "c1", Name: "echo", Arguments: "{}"}
	tests := []struct {
		name     string
		messages []state.Message
		want     string
	}{
		{"empty", nil, graph.END},
		{"human last", []state.Message{state.Human("hi")}, graph.END},
		{"ai without calls", []state.Message{state.Human("hi"), state.AI("hello")}, graph.END},
		{"ai with calls", []state.Message{state.Human("hi"), state.AI("", call)}, NodeTools},
		{"tool result last", []state.Message{state.AI("", call), state.ToolResult(call, "ok")}, graph.END},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Route(state.ConversationState{Messages: tt.messages}))
		})
	}
}

func TestChatbot_NoToolCallsEnds(t *testing.T) {
	model := NewMockChatModel(state.AI("Hi! How can I help?"))
	g, err := NewChatbotGraph(model, tool.NewExecutor(), WithChatbotLogger(&log.NoOpLogger{}))
	require.NoError(t, err)

	out, err := g.Invoke(context.Background(), state.ConversationState{Messages: []state.Message{state.Human("hi")}})
	require.NoError(t, err)
	require.Len(t, out.Messages, 2)
	assert.Equal(t, "Hi! How can I help?", out.Messages[1].Content)
	assert.Len(t, model.calls, 1)
}

func TestChatbot_ToolLoop(t *testing.T) {
	echo := &MockTool{name: "echo", output: "echoed"}
	broken := &MockTool{name: "broken", err: errors.New("boom")}
	executor := tool.NewExecutor(echo, broken)

	first := state.AI("",
		state.ToolCall{ID: "c1", Name: "echo", Arguments: `{"text":"a"}`},
		state.ToolCall{ID: "c2", Name: "broken", Arguments: `{}`},
		state.ToolCall{ID: "c3", Name: "missing", Arguments: `{}`},
	)
	model := NewMockChatModel(first, state.AI("all done"))

	g, err := NewChatbotGraph(model, executor, WithChatbotLogger(&log.NoOpLogger{}))
	require.NoError(t, err)

	out, err := g.Invoke(context.Background(), state.ConversationState{Messages: []state.Message{state.Human("do things")}})
	require.NoError(t, err)

	require.Len(t, out.Messages, 6)
	assert.Equal(t, state.RoleHuman, out.Messages[0].Role)
	assert.Equal(t, state.RoleAI, out.Messages[1].Role)

	results := out.Messages[2:5]
	for i, id := range []string{"c1", "c2", "c3"} {
		assert.Equal(t, state.RoleTool, results[i].Role)
		assert.Equal(t, id, results[i].ToolCallID)
	}
	assert.Equal(t, "echoed", results[0].Content)
	assert.Equal(t, "Error: tool broken failed: boom", results[1].Content)
	assert.Equal(t, "Error: tool missing failed: unknown tool", results[2].Content)
	assert.Equal(t, "all done", out.Messages[5].Content)

	assert.Equal(t, []string{`{"text":"a"}`}, echo.inputs)

	require.Len(t, model.calls, 2)
	assert.Len(t, model.calls[1], 5)

	require.Len(t, model.tools, 2)
	assert.Equal(t, "broken", model.tools[0].Name)
	assert.Equal(t, "echo", model.tools[1].Name)
}

func TestChatbot_FileTools(t *testing.T) {
	dir := t.TempDir()
	write := state.AI("", state.ToolCall{ID: "w", Name: "write_file", Arguments: `{"path":"notes.txt","content":"remember"}`})
	read := state.AI("", state.ToolCall{ID: "r", Name: "read_file", Arguments: `{"path":"notes.txt"}`})
	model := NewMockChatModel(write, read, state.AI("The file says remember."))

	g, err := NewChatbotGraph(model, tool.NewExecutor(DefaultTools(dir)...), WithChatbotLogger(&log.NoOpLogger{}))
	require.NoError(t, err)

	out, err := g.Invoke(context.Background(), state.ConversationState{Messages: []state.Message{state.Human("save a note")}})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "remember", string(data))

	require.Len(t, out.Messages, 6)
	assert.Equal(t, "remember", out.Messages[4].Content)
	assert.Len(t, model.tools, 3)
}

func TestChatbot_ModelError(t *testing.T) {
	model := &MockChatModel{err: errors.New("unavailable")}
	g, err := NewChatbotGraph(model, nil, WithChatbotLogger(&log.NoOpLogger{}))
	require.NoError(t, err)

	out, err := g.Invoke(context.Background(), state.ConversationState{Messages: []state.Message{state.Human("hi")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error in node chatbot")
	assert.Len(t, out.Messages, 1)
}

func TestChatbot_CheckpointPerThread(t *testing.T) {
	model := NewMockChatModel(state.AI("first answer"), state.AI("second answer"), state.AI("other thread"))
	cp := memory.New()
	g, err := NewChatbotGraph(model, tool.NewExecutor(), WithCheckpointer(cp), WithChatbotLogger(&log.NoOpLogger{}))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = g.InvokeWithConfig(ctx, state.ConversationState{Messages: []state.Message{state.Human("one")}}, &graph.Config{ThreadID: "t1"})
	require.NoError(t, err)

	out, err := g.InvokeWithConfig(ctx, state.ConversationState{Messages: []state.Message{state.Human("two")}}, &graph.Config{ThreadID: "t1"})
	require.NoError(t, err)
	require.Len(t, out.Messages, 4)
	assert.Equal(t, "one", out.Messages[0].Content)
	assert.Equal(t, "second answer", out.Messages[3].Content)
	assert.Len(t, model.calls[1], 3)

	other, err := g.InvokeWithConfig(ctx, state.ConversationState{Messages: []state.Message{state.Human("fresh")}}, &graph.Config{ThreadID: "t2"})
	require.NoError(t, err)
	assert.Len(t, other.Messages, 2)

	saved, err := g.GetState(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, saved.Messages, 4)
}

func TestChatbotDefaults(t *testing.T) {
	cfg := ChatbotLLMConfig()
	assert.True(t, cfg.EnableReasoning)
	assert.Equal(t, DefaultChatbotMaxRetries, cfg.MaxRetries)
	require.NoError(t, cfg.Validate())

	builder := &MockBuilder{model: NewMockChatModel()}
	_, err := NewDefaultChatbotModel(builder)
	require.NoError(t, err)
	assert.Equal(t, "google", builder.provider)
	assert.Equal(t, "gemini-2.5-flash", builder.alias)
	assert.Equal(t, llmconfig.EffortMedium, builder.cfg.ReasoningEffort)
}

func TestChatbot_Diagram(t *testing.T) {
	g, err := NewChatbotGraph(NewMockChatModel(), nil)
	require.NoError(t, err)
	mermaid := g.DrawMermaid()
	assert.Contains(t, mermaid, "START --> chatbot")
	assert.Contains(t, mermaid, "chatbot -.-> tools")
	assert.Contains(t, mermaid, "chatbot -.-> END")
	assert.Contains(t, mermaid, "tools --> chatbot")
}
