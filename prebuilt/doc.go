// Package prebuilt holds the Autonix graphs.
//
// NewOrchestratorGraph runs orchestrator -> finalizer. The orchestrator builds
// the chat model named by the state's provider and main_llm and appends its
// answer.
//
// NewChatbotGraph runs a chatbot <-> tools loop: while the model requests tool
// calls, each call is executed in order and answered with a tool message. A
// failing tool produces an "Error: ..." tool message instead of aborting the run.
//
// NewSuggestGraph asks the model for follow-up questions as a JSON object and
// fails with a *StructuredOutputParseError when the answer cannot be used.
//
// All graphs run on graph.StateRunnable. The conversation graphs use
// state.Merge as their schema, so nodes return only the messages they add.
package prebuilt
