// Package provider builds chat model clients for the supported providers.
//
// A Factory turns a provider name, a model alias and an llmconfig.LLMConfig
// into a Client. Build checks, in order, that the provider is supported, that
// the configuration is valid and that the alias exists in the registry. It then
// maps the shared configuration onto the provider's own parameter names (see
// Resolve) and constructs the adapter. Construction never touches the network.
//
// Adapters:
//
//   - openai uses github.com/sashabaranov/go-openai
//   - google uses the Gemini API client from google.golang.org/genai
//   - ollama uses go-openai against the OpenAI-compatible /v1 endpoint of
//     the Ollama server; top_k has no field there and is not sent
//
// Every adapter sends its requests through an HTTP client whose transport
// retries transient failures up to LLMConfig.MaxRetries times.
package provider
