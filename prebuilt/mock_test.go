package prebuilt

import (
	"context"
	"errors"
	"sync"

	"github.com/codex-mohan/autonix/llmconfig"
	"github.com/codex-mohan/autonix/provider"
	"github.com/codex-mohan/autonix/registry"
	"github.com/codex-mohan/autonix/state"
	"github.com/codex-mohan/autonix/tool"
)

// MockChatModel replays canned replies and records every call.
type MockChatModel struct {
	mu        sync.Mutex
	responses []state.Message
	err       error
	calls     [][]state.Message
	options   []provider.CallOptions
	tools     []tool.Definition
}

func NewMockChatModel(responses ...state.Message) *MockChatModel {
	return &MockChatModel{responses: responses}
}

func (m *MockChatModel) Invoke(ctx context.Context, messages []state.Message, opts ...provider.CallOption) (state.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, append([]state.Message(nil), messages...))
	var o provider.CallOptions
	for _, opt := range opts {
		opt(&o)
	}
	m.options = append(m.options, o)

	if m.err != nil {
		return state.Message{}, m.err
	}
	if len(m.responses) == 0 {
		return state.Message{}, errors.New("no more mock responses")
	}
	reply := m.responses[0]
	m.responses = m.responses[1:]
	return reply, nil
}

func (m *MockChatModel) Params() provider.Params {
	return provider.Params{Provider: provider.Google, Model: "mock"}
}

func (m *MockChatModel) Descriptor() registry.ModelDescriptor {
	return registry.ModelDescriptor{Alias: "mock", Provider: "google", ModelID: "mock"}
}

func (m *MockChatModel) WithTools(defs ...tool.Definition) provider.Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tools = defs
	return m
}

// MockBuilder hands out one model and records the requested selection.
type MockBuilder struct {
	model    provider.Client
	err      error
	provider string
	alias    string
	cfg      llmconfig.LLMConfig
}

func (b *MockBuilder) Build(providerName, alias string, cfg llmconfig.LLMConfig) (provider.Client, error) {
	b.provider, b.alias, b.cfg = providerName, alias, cfg
	if b.err != nil {
		return nil, b.err
	}
	return b.model, nil
}

// MockTool answers with a fixed output or error.
type MockTool struct {
	name   string
	output string
	err    error
	inputs []string
}

func (t *MockTool) Name() string {
	return t.name
}

func (t *MockTool) Description() string {
	return "mock tool " + t.name
}

func (t *MockTool) Definition() tool.Definition {
	return tool.Definition{Name: t.name, Description: t.Description(), Parameters: map[string]any{"type": "object"}}
}

func (t *MockTool) Call(ctx context.Context, input string) (string, error) {
	t.inputs = append(t.inputs, input)
	return t.output, t.err
}
