// Package llmconfig defines the generation parameters shared by every provider.
package llmconfig

import "fmt"

// Effort is the requested reasoning effort.
type Effort string

const (
	EffortLow    Effort = "low"
	EffortMedium Effort = "medium"
	EffortHigh   Effort = "high"
)

// Valid reports whether e is low, medium or high.
func (e Effort) Valid() bool {
	switch e {
	case EffortLow, EffortMedium, EffortHigh:
		return true
	}
	return false
}

// Bounds for TopK. Zero leaves it unset.
const (
	MinTopK = 5
	MaxTopK = 50
)

// DefaultMaxRetries is the retry budget when none is configured.
const DefaultMaxRetries = 2

// LLMConfig holds the tunable generation parameters.
type LLMConfig struct {
	MaxTokens        int     `yaml:"max_tokens" json:"max_tokens"`
	Temperature      float64 `yaml:"temperature" json:"temperature"`
	TopP             float64 `yaml:"top_p" json:"top_p"`
	TopK             int     `yaml:"top_k" json:"top_k"`
	FrequencyPenalty float64 `yaml:"frequency_penalty" json:"frequency_penalty"`
	PresencePenalty  float64 `yaml:"presence_penalty" json:"presence_penalty"`

	// ReasoningEffort only applies when EnableReasoning is set and the model supports reasoning.
	EnableReasoning bool   `yaml:"enable_reasoning" json:"enable_reasoning"`
	ReasoningEffort Effort `yaml:"reasoning_effort" json:"reasoning_effort"`

	MaxRetries int `yaml:"max_retries" json:"max_retries"`
}

// Default returns a valid configuration.
func Default() LLMConfig {
	return LLMConfig{
		MaxTokens:       1024,
		Temperature:     0.7,
		TopP:            1,
		ReasoningEffort: EffortMedium,
		MaxRetries:      DefaultMaxRetries,
	}
}

// Validate returns a *ConfigValidationError for the first field out of range.
func (c LLMConfig) Validate() error {
	switch {
	case c.MaxTokens <= 0:
		return invalid("max_tokens", c.MaxTokens, "must be greater than 0")
	case c.Temperature < 0 || c.Temperature > 1:
		return invalid("temperature", c.Temperature, "must be between 0 and 1")
	case c.TopP < 0 || c.TopP > 1:
		return invalid("top_p", c.TopP, "must be between 0 and 1")
	case c.TopK != 0 && (c.TopK < MinTopK || c.TopK > MaxTopK):
		return invalid("top_k", c.TopK, fmt.Sprintf("must be 0 (unset) or between %d and %d", MinTopK, MaxTopK))
	case c.ReasoningEffort != "" && !c.ReasoningEffort.Valid():
		return invalid("reasoning_effort", c.ReasoningEffort, "must be one of low, medium, high")
	case c.EnableReasoning && c.ReasoningEffort == "":
		return invalid("reasoning_effort", c.ReasoningEffort, "is required when enable_reasoning is set")
	case c.MaxRetries < 0:
		return invalid("max_retries", c.MaxRetries, "must not be negative")
	}
	return nil
}

// Option mutates a configuration under construction.
type Option func(*LLMConfig)

// New applies opts over Default and validates the result.
func New(opts ...Option) (LLMConfig, error) {
	cfg := Default()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return LLMConfig{}, err
	}
	return cfg, nil
}

// WithMaxTokens sets the completion token limit.
func WithMaxTokens(n int) Option {
	return func(c *LLMConfig) { c.MaxTokens = n }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *LLMConfig) { c.Temperature = t }
}

// WithTopP sets nucleus sampling.
func WithTopP(p float64) Option {
	return func(c *LLMConfig) { c.TopP = p }
}

// WithTopK sets top-k. Zero unsets it.
func WithTopK(k int) Option {
	return func(c *LLMConfig) { c.TopK = k }
}

// WithFrequencyPenalty sets the frequency penalty. Zero leaves it unsent.
func WithFrequencyPenalty(p float64) Option {
	return func(c *LLMConfig) { c.FrequencyPenalty = p }
}

// WithPresencePenalty sets the presence penalty. Zero leaves it unsent.
func WithPresencePenalty(p float64) Option {
	return func(c *LLMConfig) { c.PresencePenalty = p }
}

// WithMaxRetries sets how often the provider client retries transient failures.
func WithMaxRetries(n int) Option {
	return func(c *LLMConfig) { c.MaxRetries = n }
}

// WithReasoning enables reasoning at the given effort.
func WithReasoning(effort Effort) Option {
	return func(c *LLMConfig) {
		c.EnableReasoning = true
		c.ReasoningEffort = effort
	}
}
