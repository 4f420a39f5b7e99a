package provider

import (
	"net/http"
	"strings"

	"github.com/codex-mohan/autonix/registry"
)

// DefaultOllamaURL is the server used when no base URL is configured.
const DefaultOllamaURL = "http://localhost:11434"

// newOllamaClient talks to the OpenAI-compatible endpoint Ollama serves
// under /v1, which carries tools, tool results and image parts.
func newOllamaClient(d registry.ModelDescriptor, p Params, baseURL string, hc *http.Client) *openAIClient {
	return newOpenAIClient(d, p, "ollama", ollamaBaseURL(baseURL), hc)
}

func ollamaBaseURL(baseURL string) string {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if !strings.HasSuffix(baseURL, "/v1") {
		baseURL += "/v1"
	}
	return baseURL
}
