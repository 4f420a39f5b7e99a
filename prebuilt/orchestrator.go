package prebuilt

import (
	"context"
	"errors"

	"github.com/codex-mohan/autonix/graph"
	"github.com/codex-mohan/autonix/llmconfig"
	"github.com/codex-mohan/autonix/log"
	"github.com/codex-mohan/autonix/state"
)

// Node names of the orchestrator graph.
const (
	NodeOrchestrator = "orchestrator"
	NodeFinalizer    = "finalizer"
)

// ErrNoModelSelected is returned when the state names no provider or model.
var ErrNoModelSelected = errors.New("state has no provider or main_llm")

// Finalizer post-processes the conversation after the orchestrator. It returns
// an update merged into the state; the zero value changes nothing.
type Finalizer func(ctx context.Context, s state.ConversationState) (state.ConversationState, error)

type orchestratorConfig struct {
	llm       llmconfig.LLMConfig
	finalizer Finalizer
	logger    log.Logger
}

// OrchestratorOption configures NewOrchestratorGraph.
type OrchestratorOption func(*orchestratorConfig)

// WithLLMConfig sets the generation parameters of the orchestrator's model.
func WithLLMConfig(cfg llmconfig.LLMConfig) OrchestratorOption {
	return func(c *orchestratorConfig) {
		c.llm = cfg
	}
}

// WithFinalizer replaces the no-op finalizer.
func WithFinalizer(f Finalizer) OrchestratorOption {
	return func(c *orchestratorConfig) {
		c.finalizer = f
	}
}

// WithOrchestratorLogger sets the logger.
func WithOrchestratorLogger(l log.Logger) OrchestratorOption {
	return func(c *orchestratorConfig) {
		c.logger = l
	}
}

// NewOrchestratorGraph compiles orchestrator -> finalizer -> END.
func NewOrchestratorGraph(models ModelBuilder, opts ...OrchestratorOption) (*ConversationGraph, error) {
	cfg := orchestratorConfig{
		llm:    llmconfig.Default(),
		logger: log.GetDefaultLogger(),
		finalizer: func(context.Context, state.ConversationState) (state.ConversationState, error) {
			return state.ConversationState{}, nil
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	g := graph.NewStateGraph[state.ConversationState]()
	g.SetSchema(conversationSchema())

	g.AddNode(NodeOrchestrator, "Invoke the selected chat model", func(ctx context.Context, s state.ConversationState) (state.ConversationState, error) {
		if s.Provider == "" || s.MainLLM == "" {
			return state.ConversationState{}, ErrNoModelSelected
		}
		client, err := models.Build(s.Provider, s.MainLLM, cfg.llm)
		if err != nil {
			return state.ConversationState{}, err
		}
		cfg.logger.Debug("orchestrator: %s/%s with %d messages", s.Provider, s.MainLLM, len(s.Messages))

		reply, err := client.Invoke(ctx, s.Messages)
		if err != nil {
			return state.ConversationState{}, err
		}
		return state.ConversationState{Messages: []state.Message{reply}}, nil
	})
	g.AddNode(NodeFinalizer, "Post-process the conversation", func(ctx context.Context, s state.ConversationState) (state.ConversationState, error) {
		return cfg.finalizer(ctx, s)
	})

	g.SetEntryPoint(NodeOrchestrator)
	g.AddEdge(NodeOrchestrator, NodeFinalizer)
	g.AddEdge(NodeFinalizer, graph.END)

	return g.Compile()
}
