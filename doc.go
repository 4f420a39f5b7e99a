// Package autonix is a multi-provider conversation backend built on typed
// state graphs.
//
// A request names a provider and a model alias. The registry package resolves
// the alias to a descriptor, llmconfig validates the generation parameters,
// and provider.Factory maps both onto an OpenAI, Gemini or Ollama client. The
// client is driven by one of three graphs from the prebuilt package:
//
//   - the orchestrator graph answers once and finalizes;
//   - the chatbot graph loops between the model and the tools it requests,
//     checkpointing each thread;
//   - the suggest graph asks for follow-up questions as structured JSON.
//
// # Packages
//
//	graph/        state graph engine: nodes, edges, schemas, checkpoints, Mermaid export
//	state/        conversation state and its merge rules
//	registry/     model catalog
//	llmconfig/    generation parameters and validation
//	provider/     chat clients and the parameter table
//	tool/         shell, file and web tools
//	prebuilt/     the three graphs
//	store/        checkpoint stores (memory, file, sqlite, postgres, redis)
//	conversation/ branching conversation trees in PostgreSQL
//	imageutil/    image encoding for multimodal messages
//	config/       YAML and environment configuration
//	server/       HTTP API
//	log/          logging
//
// # Quick start
//
//	factory := provider.NewFactory(provider.WithAPIKey(provider.Google, key))
//	model, _ := prebuilt.NewDefaultChatbotModel(factory)
//	chat, _ := prebuilt.NewChatbotGraph(model, tool.NewExecutor(prebuilt.DefaultTools(".")...),
//		prebuilt.WithCheckpointer(memory.New()))
//
//	out, _ := chat.InvokeWithConfig(ctx, state.ConversationState{
//		Provider: "google",
//		MainLLM:  "gemini-2.5-flash",
//		Messages: []state.Message{state.Human("List the files here")},
//	}, &graph.Config{ThreadID: "t1"})
//
// The autonix command in cmd/autonix wires the same pieces behind an HTTP
// server and a small CLI.
package autonix // import "github.com/codex-mohan/autonix"
