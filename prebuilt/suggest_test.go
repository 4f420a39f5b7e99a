package prebuilt

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codex-mohan/autonix/state"
)

func TestParseSuggestions(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int
		expect  []string
		wantGot int
		decode  bool
	}{
		{
			name:   "exact",
			raw:    `{"questions": ["What is a cache hit?", "What is eviction?", "What is TTL?"]}`,
			want:   3,
			expect: []string{"What is a cache hit?", "What is eviction?", "What is TTL?"},
		},
		{
			name:   "fenced",
			raw:    "```json\n{\"questions\": [\"a\", \"b\"]}\n```",
			want:   2,
			expect: []string{"a", "b"},
		},
		{
			name:   "blanks trimmed",
			raw:    `{"questions": ["  a ", "", "b"]}`,
			want:   2,
			expect: []string{"a", "b"},
		},
		{name: "too few", raw: `{"questions": ["a", "b"]}`, want: 3, wantGot: 2},
		{name: "too many", raw: `{"questions": ["a", "b", "c", "d"]}`, want: 3, wantGot: 4},
		{name: "not json", raw: "Here are some questions: ...", want: 3, decode: true},
		{name: "missing key", raw: `{"items": ["a"]}`, want: 1, decode: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSuggestions(tt.raw, tt.want)
			if tt.expect != nil {
				require.NoError(t, err)
				assert.Equal(t, tt.expect, got)
				return
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrStructuredOutputParse)
			var perr *StructuredOutputParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.raw, perr.Raw)
			assert.Equal(t, tt.want, perr.Expected)
			if tt.decode {
				assert.Error(t, perr.Err)
			} else {
				assert.Equal(t, tt.wantGot, perr.Got)
				assert.Contains(t, err.Error(), "expected 3 questions")
			}
		})
	}
}

func TestSuggestGraph(t *testing.T) {
	model := NewMockChatModel(state.AI(`{"questions": ["How does cache invalidation work?", "What is a CDN?", "What is write-through caching?"]}`))
	g, err := NewSuggestGraph(model)
	require.NoError(t, err)

	out, err := g.Invoke(context.Background(), SuggestState{Question: "What is caching?", NumQuestions: 3})
	require.NoError(t, err)
	assert.Len(t, out.Suggestions, 3)
	assert.Equal(t, "What is caching?", out.Question)

	require.Len(t, model.calls, 1)
	prompt := model.calls[0]
	require.Len(t, prompt, 2)
	assert.Equal(t, state.RoleSystem, prompt[0].Role)
	assert.Contains(t, prompt[0].Content, "suggests follow-up questions")
	assert.Equal(t, "Given the user's question, suggest 3 follow-up questions. User's question: What is caching?", prompt[1].Content)
	assert.True(t, model.options[0].JSON)
}

func TestSuggestGraph_DefaultCount(t *testing.T) {
	model := NewMockChatModel(state.AI(`{"questions": ["a", "b", "c"]}`))
	g, err := NewSuggestGraph(model)
	require.NoError(t, err)

	out, err := g.Invoke(context.Background(), SuggestState{Question: "What is caching?"})
	require.NoError(t, err)
	assert.Equal(t, DefaultNumQuestions, out.NumQuestions)
	assert.Len(t, out.Suggestions, DefaultNumQuestions)
}

func TestSuggestGraph_Errors(t *testing.T) {
	model := NewMockChatModel(state.AI(`{"questions": ["only one"]}`))
	g, err := NewSuggestGraph(model)
	require.NoError(t, err)

	_, err = g.Invoke(context.Background(), SuggestState{Question: "What is caching?", NumQuestions: 3})
	var perr *StructuredOutputParseError
	require.True(t, errors.As(err, &perr), err)
	assert.Equal(t, 1, perr.Got)

	_, err = g.Invoke(context.Background(), SuggestState{Question: "  "})
	assert.ErrorContains(t, err, "question is empty")

	failing := &MockChatModel{err: errors.New("rate limited")}
	g, err = NewSuggestGraph(failing)
	require.NoError(t, err)
	_, err = g.Invoke(context.Background(), SuggestState{Question: "What is caching?"})
	assert.ErrorContains(t, err, "rate limited")
	assert.False(t, errors.Is(err, ErrStructuredOutputParse))
}
