package provider

import (
	"fmt"
	"net/http"

	"github.com/codex-mohan/autonix/llmconfig"
	"github.com/codex-mohan/autonix/log"
	"github.com/codex-mohan/autonix/registry"
)

// Factory builds Clients from provider names and model aliases.
type Factory struct {
	// Registry resolves aliases. Nil means registry.Default().
	Registry *registry.Registry

	// HTTPClient is the base client of every adapter. Its transport is wrapped
	// with a RetryTransport per Client.
	HTTPClient *http.Client

	// Logger receives construction and retry logs.
	Logger log.Logger

	APIKeys  map[Name]string
	BaseURLs map[Name]string
}

// Option configures a Factory.
type Option func(*Factory)

// NewFactory returns a Factory using the default registry and logger.
func NewFactory(opts ...Option) *Factory {
	f := &Factory{
		Registry: registry.Default(),
		Logger:   log.GetDefaultLogger(),
		APIKeys:  make(map[Name]string),
		BaseURLs: make(map[Name]string),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// WithRegistry sets the model registry.
func WithRegistry(r *registry.Registry) Option {
	return func(f *Factory) {
		f.Registry = r
	}
}

// WithHTTPClient sets the base HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Factory) {
		f.HTTPClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(f *Factory) {
		f.Logger = l
	}
}

// WithAPIKey sets the API key of a provider.
func WithAPIKey(n Name, key string) Option {
	return func(f *Factory) {
		f.APIKeys[n] = key
	}
}

// WithBaseURL points a provider at another endpoint.
func WithBaseURL(n Name, url string) Option {
	return func(f *Factory) {
		f.BaseURLs[n] = url
	}
}

// Build returns a client for the model alias of provider configured by cfg.
// It fails with an *UnsupportedProviderError, *llmconfig.ConfigValidationError
// or *registry.UnknownModelError, checked in that order.
func (f *Factory) Build(provider, alias string, cfg llmconfig.LLMConfig) (Client, error) {
	name, err := ParseName(provider)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	reg := f.Registry
	if reg == nil {
		reg = registry.Default()
	}
	d, err := reg.Resolve(string(name), alias)
	if err != nil {
		return nil, err
	}

	params := Resolve(name, d, cfg)
	if cfg.EnableReasoning && !params.Reasoning() {
		f.logger().Debug("model %s/%s does not support reasoning, effort %s ignored", name, alias, cfg.ReasoningEffort)
	}

	hc := retryingClient(f.HTTPClient, cfg.MaxRetries, f.logger())
	apiKey, baseURL := f.APIKeys[name], f.BaseURLs[name]

	var client Client
	switch name {
	case OpenAI:
		client = newOpenAIClient(d, params, apiKey, baseURL, hc)
	case Google:
		client = newGoogleClient(d, params, apiKey, baseURL, hc)
	case Ollama:
		client = newOllamaClient(d, params, baseURL, hc)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, name)
	}

	f.logger().Debug("built %s client for %s (model %s)", name, alias, d.ModelID)
	return client, nil
}

func (f *Factory) logger() log.Logger {
	if f.Logger == nil {
		return log.GetDefaultLogger()
	}
	return f.Logger
}
