package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codex-mohan/autonix/llmconfig"
	"github.com/codex-mohan/autonix/registry"
)

func descriptor(t *testing.T, n Name, alias string) registry.ModelDescriptor {
	t.Helper()
	d, err := registry.Default().Resolve(string(n), alias)
	require.NoError(t, err)
	return d
}

func TestResolve_ParameterNames(t *testing.T) {
	cfg := llmconfig.Default()
	cfg.TopK = 10
	cfg.FrequencyPenalty = 0.5
	cfg.PresencePenalty = -0.25

	tests := []struct {
		name  Name
		alias string
		want  []Param
	}{
		{
			name:  OpenAI,
			alias: "gpt-4",
			want: []Param{
				{"max_completion_tokens", 1024},
				{"temperature", 0.7},
				{"top_p", 1.0},
				{"top_logprobs", 10},
				{"frequency_penalty", 0.5},
				{"presence_penalty", -0.25},
				{"max_retries", 2},
			},
		},
		{
			name:  Google,
			alias: "gemini-2.5-flash",
			want: []Param{
				{"max_output_tokens", 1024},
				{"temperature", 0.7},
				{"top_p", 1.0},
				{"top_k", 10},
				{"frequency_penalty", 0.5},
				{"presence_penalty", -0.25},
				{"max_retries", 2},
			},
		},
		{
			name:  Ollama,
			alias: "llama3.1",
			want: []Param{
				{"num_predict", 1024},
				{"temperature", 0.7},
				{"top_p", 1.0},
				{"frequency_penalty", 0.5},
				{"presence_penalty", -0.25},
				{"max_retries", 2},
			},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.name), func(t *testing.T) {
			d := descriptor(t, tt.name, tt.alias)
			p := Resolve(tt.name, d, cfg)
			assert.Equal(t, tt.name, p.Provider)
			assert.Equal(t, d.ModelID, p.Model)
			assert.Equal(t, tt.want, p.List())
		})
	}
}

func TestResolve_UnsetFieldsAreOmitted(t *testing.T) {
	p := Resolve(OpenAI, descriptor(t, OpenAI, "gpt-4"), llmconfig.Default())
	assert.False(t, p.Has("top_logprobs"))
	assert.False(t, p.Has("frequency_penalty"))
	assert.False(t, p.Has("presence_penalty"))
	assert.False(t, p.Reasoning())
}

func TestResolve_TopLogProbsIsClamped(t *testing.T) {
	cfg := llmconfig.Default()
	cfg.TopK = 50

	p := Resolve(OpenAI, descriptor(t, OpenAI, "gpt-4"), cfg)
	v, ok := p.Int("top_logprobs")
	require.True(t, ok)
	assert.Equal(t, MaxTopLogProbs, v)
	assert.False(t, p.Has("top_k"))
}

func TestResolve_Reasoning(t *testing.T) {
	tests := []struct {
		name    string
		n       Name
		alias   string
		effort  llmconfig.Effort
		want    map[string]any
		absent  []string
		enabled bool
	}{
		{
			name:    "openai effort",
			n:       OpenAI,
			alias:   "gpt-4",
			effort:  llmconfig.EffortHigh,
			want:    map[string]any{"reasoning_effort": "high"},
			enabled: true,
		},
		{
			name:    "google low budget",
			n:       Google,
			alias:   "gemini-2.5-pro",
			effort:  llmconfig.EffortLow,
			want:    map[string]any{"thinking_budget": 1024, "include_thoughts": true},
			enabled: true,
		},
		{
			name:    "google medium budget",
			n:       Google,
			alias:   "gemini-2.5-flash",
			effort:  llmconfig.EffortMedium,
			want:    map[string]any{"thinking_budget": 8192, "include_thoughts": true},
			enabled: true,
		},
		{
			name:    "google high budget",
			n:       Google,
			alias:   "gemini-2.5-flash",
			effort:  llmconfig.EffortHigh,
			want:    map[string]any{"thinking_budget": 24576, "include_thoughts": true},
			enabled: true,
		},
		{
			name:   "google non-reasoning model drops effort",
			n:      Google,
			alias:  "gemini-2.0-flash-image-generation",
			effort: llmconfig.EffortHigh,
			absent: []string{"thinking_budget", "include_thoughts"},
		},
		{
			name:   "ollama non-reasoning model drops effort",
			n:      Ollama,
			alias:  "llama3.1",
			effort: llmconfig.EffortLow,
			absent: []string{"reasoning_effort", "thinking_budget"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := llmconfig.Default()
			cfg.EnableReasoning = true
			cfg.ReasoningEffort = tt.effort

			p := Resolve(tt.n, descriptor(t, tt.n, tt.alias), cfg)
			assert.Equal(t, tt.enabled, p.Reasoning())
			m := p.Map()
			for k, v := range tt.want {
				assert.Equal(t, v, m[k], k)
			}
			for _, k := range tt.absent {
				assert.NotContains(t, m, k)
			}
		})
	}
}

func TestResolve_ReasoningDisabledByConfig(t *testing.T) {
	cfg := llmconfig.Default()
	cfg.ReasoningEffort = llmconfig.EffortHigh

	p := Resolve(Google, descriptor(t, Google, "gemini-2.5-flash"), cfg)
	assert.False(t, p.Reasoning())
	assert.False(t, p.Bool("include_thoughts"))
}

func TestParamTable_CoversEveryProvider(t *testing.T) {
	for _, row := range paramTable {
		switch row.field {
		case "reasoning_effort", "enable_reasoning":
			continue
		}
		for _, n := range Names {
			assert.NotEmpty(t, row.names[n], "%s has no name for %s", row.field, n)
		}
	}
}
