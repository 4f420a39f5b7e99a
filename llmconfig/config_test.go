package llmconfig

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
}

func TestNew_AppliesOptions(t *testing.T) {
	cfg, err := New(
		WithMaxTokens(256),
		WithTemperature(0),
		WithTopK(10),
		WithReasoning(EffortHigh),
		WithMaxRetries(3),
		WithFrequencyPenalty(-0.5),
		WithPresencePenalty(1.5),
	)
	require.NoError(t, err)
	assert.Equal(t, 256, cfg.MaxTokens)
	assert.Equal(t, 0.0, cfg.Temperature)
	assert.Equal(t, 10, cfg.TopK)
	assert.True(t, cfg.EnableReasoning)
	assert.Equal(t, EffortHigh, cfg.ReasoningEffort)
	assert.Equal(t, 3, cfg.MaxRetries)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		opt   Option
		field string
	}{
		{"temperature too high", WithTemperature(1.5), "temperature"},
		{"negative temperature", WithTemperature(-0.1), "temperature"},
		{"negative top_p", WithTopP(-0.1), "top_p"},
		{"top_p too high", WithTopP(1.01), "top_p"},
		{"zero max tokens", WithMaxTokens(0), "max_tokens"},
		{"top_k below range", WithTopK(4), "top_k"},
		{"top_k above range", WithTopK(51), "top_k"},
		{"negative retries", WithMaxRetries(-1), "max_retries"},
		{"bad effort", WithReasoning("extreme"), "reasoning_effort"},
		{"missing effort", WithReasoning(""), "reasoning_effort"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opt)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfigValidation))

			var cve *ConfigValidationError
			require.True(t, errors.As(err, &cve))
			assert.Equal(t, tt.field, cve.Field)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidate_Boundaries(t *testing.T) {
	for _, opt := range []Option{
		WithTemperature(0), WithTemperature(1),
		WithTopP(0), WithTopP(1),
		WithTopK(0), WithTopK(MinTopK), WithTopK(MaxTopK),
		WithMaxRetries(0),
	} {
		_, err := New(opt)
		assert.NoError(t, err)
	}
}
