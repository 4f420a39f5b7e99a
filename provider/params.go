package provider

import (
	"github.com/codex-mohan/autonix/llmconfig"
	"github.com/codex-mohan/autonix/registry"
)

// MaxTopLogProbs is the largest top_logprobs OpenAI accepts.
const MaxTopLogProbs = 20

// Thinking budgets, in tokens, for Gemini reasoning efforts.
var thinkingBudgets = map[llmconfig.Effort]int{
	llmconfig.EffortLow:    1024,
	llmconfig.EffortMedium: 8192,
	llmconfig.EffortHigh:   24576,
}

// Param is one provider parameter.
type Param struct {
	Name  string
	Value any
}

// Params is the provider-specific parameter set of a client, in table order.
type Params struct {
	Provider Name
	Model    string
	values   []Param
}

// List returns a copy of the parameters.
func (p Params) List() []Param {
	return append([]Param(nil), p.values...)
}

// Map returns the parameters keyed by name.
func (p Params) Map() map[string]any {
	out := make(map[string]any, len(p.values))
	for _, v := range p.values {
		out[v.Name] = v.Value
	}
	return out
}

// Get returns the value of the named parameter.
func (p Params) Get(name string) (any, bool) {
	for _, v := range p.values {
		if v.Name == name {
			return v.Value, true
		}
	}
	return nil, false
}

// Has reports whether the named parameter is set.
func (p Params) Has(name string) bool {
	_, ok := p.Get(name)
	return ok
}

// Int returns the named parameter if it is set to an int.
func (p Params) Int(name string) (int, bool) {
	v, _ := p.Get(name)
	i, ok := v.(int)
	return i, ok
}

// Float returns the named parameter if it is set to a float64.
func (p Params) Float(name string) (float64, bool) {
	v, _ := p.Get(name)
	f, ok := v.(float64)
	return f, ok
}

// String returns the named parameter if it is set to a string.
func (p Params) String(name string) (string, bool) {
	v, _ := p.Get(name)
	s, ok := v.(string)
	return s, ok
}

// Bool reports whether the named parameter is set to true.
func (p Params) Bool(name string) bool {
	v, _ := p.Get(name)
	b, _ := v.(bool)
	return b
}

// Reasoning reports whether the params carry a reasoning setting.
func (p Params) Reasoning() bool {
	return p.Has("reasoning_effort") || p.Has("thinking_budget")
}

// paramRow maps one shared configuration field onto each provider's name for
// it. A provider without an entry ignores the field. value reports false when
// the field is unset.
type paramRow struct {
	field string
	names map[Name]string
	value func(n Name, cfg llmconfig.LLMConfig, reasoning bool) (any, bool)
}

var paramTable = []paramRow{
	{
		field: "max_tokens",
		names: map[Name]string{OpenAI: "max_completion_tokens", Google: "max_output_tokens", Ollama: "num_predict"},
		value: func(_ Name, cfg llmconfig.LLMConfig, _ bool) (any, bool) {
			return cfg.MaxTokens, true
		},
	},
	{
		field: "temperature",
		names: map[Name]string{OpenAI: "temperature", Google: "temperature", Ollama: "temperature"},
		value: func(_ Name, cfg llmconfig.LLMConfig, _ bool) (any, bool) {
			return cfg.Temperature, true
		},
	},
	{
		field: "top_p",
		names: map[Name]string{OpenAI: "top_p", Google: "top_p", Ollama: "top_p"},
		value: func(_ Name, cfg llmconfig.LLMConfig, _ bool) (any, bool) {
			return cfg.TopP, true
		},
	},
	{
		field: "top_k",
		names: map[Name]string{OpenAI: "top_logprobs", Google: "top_k"},
		value: func(n Name, cfg llmconfig.LLMConfig, _ bool) (any, bool) {
			if cfg.TopK == 0 {
				return nil, false
			}
			if n == OpenAI {
				return min(cfg.TopK, MaxTopLogProbs), true
			}
			return cfg.TopK, true
		},
	},
	{
		field: "frequency_penalty",
		names: map[Name]string{OpenAI: "frequency_penalty", Google: "frequency_penalty", Ollama: "frequency_penalty"},
		value: func(_ Name, cfg llmconfig.LLMConfig, _ bool) (any, bool) {
			return cfg.FrequencyPenalty, cfg.FrequencyPenalty != 0
		},
	},
	{
		field: "presence_penalty",
		names: map[Name]string{OpenAI: "presence_penalty", Google: "presence_penalty", Ollama: "presence_penalty"},
		value: func(_ Name, cfg llmconfig.LLMConfig, _ bool) (any, bool) {
			return cfg.PresencePenalty, cfg.PresencePenalty != 0
		},
	},
	{
		field: "reasoning_effort",
		names: map[Name]string{OpenAI: "reasoning_effort", Google: "thinking_budget"},
		value: func(n Name, cfg llmconfig.LLMConfig, reasoning bool) (any, bool) {
			if !reasoning {
				return nil, false
			}
			if n == Google {
				return thinkingBudgets[cfg.ReasoningEffort], true
			}
			return string(cfg.ReasoningEffort), true
		},
	},
	{
		field: "enable_reasoning",
		names: map[Name]string{Google: "include_thoughts"},
		value: func(_ Name, _ llmconfig.LLMConfig, reasoning bool) (any, bool) {
			return true, reasoning
		},
	},
	{
		field: "max_retries",
		names: map[Name]string{OpenAI: "max_retries", Google: "max_retries", Ollama: "max_retries"},
		value: func(_ Name, cfg llmconfig.LLMConfig, _ bool) (any, bool) {
			return cfg.MaxRetries, true
		},
	},
}

// Resolve maps cfg onto the parameters of provider n for model d.
// Reasoning applies only when both cfg.EnableReasoning and d.Reasoning are
// true. Otherwise the effort is dropped without error.
func Resolve(n Name, d registry.ModelDescriptor, cfg llmconfig.LLMConfig) Params {
	reasoning := cfg.EnableReasoning && d.Reasoning
	p := Params{Provider: n, Model: d.ModelID}
	for _, row := range paramTable {
		name, ok := row.names[n]
		if !ok {
			continue
		}
		v, ok := row.value(n, cfg, reasoning)
		if !ok {
			continue
		}
		p.values = append(p.values, Param{Name: name, Value: v})
	}
	return p
}
