package prebuilt

import (
	"context"
	"errors"
	"fmt"

	"github.com/codex-mohan/autonix/graph"
	"github.com/codex-mohan/autonix/llmconfig"
	"github.com/codex-mohan/autonix/log"
	"github.com/codex-mohan/autonix/provider"
	"github.com/codex-mohan/autonix/state"
	"github.com/codex-mohan/autonix/store"
	"github.com/codex-mohan/autonix/tool"
)

// Node names of the chatbot graph.
const (
	NodeChatbot = "chatbot"
	NodeTools   = "tools"
)

// Chatbot defaults.
const (
	DefaultChatbotProvider   = "google"
	DefaultChatbotModel      = "gemini-2.5-flash"
	DefaultChatbotMaxRetries = 3
)

// ChatbotLLMConfig returns the chatbot's generation settings: thoughts are
// included and transient failures retried three times.
func ChatbotLLMConfig() llmconfig.LLMConfig {
	cfg := llmconfig.Default()
	cfg.EnableReasoning = true
	cfg.ReasoningEffort = llmconfig.EffortMedium
	cfg.MaxRetries = DefaultChatbotMaxRetries
	return cfg
}

// NewDefaultChatbotModel builds the default chatbot model.
func NewDefaultChatbotModel(models ModelBuilder) (provider.Client, error) {
	return models.Build(DefaultChatbotProvider, DefaultChatbotModel, ChatbotLLMConfig())
}

// DefaultTools returns the shell, read_file and write_file tools rooted at workDir.
// An empty workDir leaves paths unconfined.
func DefaultTools(workDir string) []tool.Tool {
	return []tool.Tool{
		tool.NewShell(tool.WithShellWorkDir(workDir)),
		&tool.ReadFileTool{Root: workDir},
		&tool.WriteFileTool{Root: workDir},
	}
}

type chatbotConfig struct {
	checkpointer store.CheckpointStore
	logger       log.Logger
}

// ChatbotOption configures NewChatbotGraph.
type ChatbotOption func(*chatbotConfig)

// WithCheckpointer persists the conversation per thread id.
func WithCheckpointer(cp store.CheckpointStore) ChatbotOption {
	return func(c *chatbotConfig) {
		c.checkpointer = cp
	}
}

// WithChatbotLogger sets the logger.
func WithChatbotLogger(l log.Logger) ChatbotOption {
	return func(c *chatbotConfig) {
		c.logger = l
	}
}

// Route returns NodeTools when the last message requests at least one tool, else graph.END.
func Route(s state.ConversationState) string {
	last, ok := s.LastMessage()
	if ok && last.Role == state.RoleAI && last.HasToolCalls() {
		return NodeTools
	}
	return graph.END
}

// NewChatbotGraph compiles the chatbot <-> tools loop. The model is offered
// every tool of executor.
func NewChatbotGraph(model provider.Client, executor *tool.Executor, opts ...ChatbotOption) (*ConversationGraph, error) {
	cfg := chatbotConfig{logger: log.GetDefaultLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if executor == nil {
		executor = tool.NewExecutor()
	}
	bound := model.WithTools(executor.Definitions()...)

	g := graph.NewStateGraph[state.ConversationState]()
	g.SetSchema(conversationSchema())

	g.AddNode(NodeChatbot, "Invoke the model with the tools bound", func(ctx context.Context, s state.ConversationState) (state.ConversationState, error) {
		reply, err := bound.Invoke(ctx, s.Messages)
		if err != nil {
			return state.ConversationState{}, err
		}
		return state.ConversationState{Messages: []state.Message{reply}}, nil
	})

	g.AddNode(NodeTools, "Execute the requested tool calls", func(ctx context.Context, s state.ConversationState) (state.ConversationState, error) {
		last, ok := s.LastMessage()
		if !ok || !last.HasToolCalls() {
			return state.ConversationState{}, errors.New("last message has no tool calls")
		}
		return state.ConversationState{Messages: runTools(ctx, executor, last.ToolCalls, cfg.logger)}, nil
	})

	g.SetEntryPoint(NodeChatbot)
	g.AddConditionalEdge(NodeChatbot, func(_ context.Context, s state.ConversationState) string {
		return Route(s)
	}, NodeTools, graph.END)
	g.AddEdge(NodeTools, NodeChatbot)

	runnable, err := g.Compile()
	if err != nil {
		return nil, err
	}
	if cfg.checkpointer != nil {
		runnable = runnable.WithCheckpointer(cfg.checkpointer)
	}
	return runnable, nil
}

// runTools executes calls in order and returns one tool message per call.
func runTools(ctx context.Context, executor *tool.Executor, calls []state.ToolCall, logger log.Logger) []state.Message {
	out := make([]state.Message, 0, len(calls))
	for _, call := range calls {
		result, err := executor.Execute(ctx, call)
		if err != nil {
			logger.Warn("tool %s (%s): %v", call.Name, call.ID, err)
			result = fmt.Sprintf("Error: %v", err)
		}
		out = append(out, state.ToolResult(call, result))
	}
	return out
}
