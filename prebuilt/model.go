package prebuilt

import (
	"github.com/codex-mohan/autonix/graph"
	"github.com/codex-mohan/autonix/llmconfig"
	"github.com/codex-mohan/autonix/provider"
	"github.com/codex-mohan/autonix/state"
)

// ConversationGraph is a compiled graph over the conversation state.
type ConversationGraph = graph.StateRunnable[state.ConversationState]

// ModelBuilder builds a chat model client. *provider.Factory implements it.
type ModelBuilder interface {
	Build(providerName, alias string, cfg llmconfig.LLMConfig) (provider.Client, error)
}

func conversationSchema() graph.Schema[state.ConversationState] {
	return graph.NewStructSchema(state.ConversationState{}, state.Merge)
}
