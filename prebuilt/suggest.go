package prebuilt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/codex-mohan/autonix/graph"
	"github.com/codex-mohan/autonix/llmconfig"
	"github.com/codex-mohan/autonix/provider"
	"github.com/codex-mohan/autonix/state"
)

// NodeSuggest is the only node of the suggest graph.
const NodeSuggest = "suggest_questions"

// DefaultNumQuestions is used when SuggestState.NumQuestions is not positive.
const DefaultNumQuestions = 3

const (
	suggestSystemPrompt = "You are a helpful assistant that suggests follow-up questions."
	suggestHumanPrompt  = "Given the user's question, suggest %d follow-up questions. User's question: %s"
	suggestFormat       = `Respond with a JSON object of the form {"questions": ["..."]} and nothing else.`
)

// SuggestLLMConfig returns the suggest graph's generation settings.
func SuggestLLMConfig() llmconfig.LLMConfig {
	cfg := llmconfig.Default()
	cfg.Temperature = 0
	return cfg
}

// NewDefaultSuggestModel builds the default suggest model.
func NewDefaultSuggestModel(models ModelBuilder) (provider.Client, error) {
	return models.Build(DefaultChatbotProvider, DefaultChatbotModel, SuggestLLMConfig())
}

// SuggestState is the input and output of the suggest graph.
type SuggestState struct {
	Question     string   `json:"question"`
	NumQuestions int      `json:"num_questions"`
	Suggestions  []string `json:"suggestions,omitempty"`
}

// ErrStructuredOutputParse matches every *StructuredOutputParseError.
var ErrStructuredOutputParse = errors.New("structured output parse failed")

// StructuredOutputParseError reports a model answer that is not the expected
// JSON object or holds the wrong number of questions.
type StructuredOutputParseError struct {
	Raw      string
	Expected int
	Got      int
	Err      error
}

func (e *StructuredOutputParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("structured output parse failed: %v", e.Err)
	}
	return fmt.Sprintf("structured output parse failed: expected %d questions, got %d", e.Expected, e.Got)
}

func (e *StructuredOutputParseError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrStructuredOutputParse.
func (e *StructuredOutputParseError) Is(target error) bool {
	return target == ErrStructuredOutputParse
}

type suggestedQuestions struct {
	Questions []string `json:"questions"`
}

// ParseSuggestions decodes a {"questions": [...]} answer holding exactly want
// non-empty questions. Markdown code fences around the object are ignored.
func ParseSuggestions(raw string, want int) ([]string, error) {
	var out suggestedQuestions
	if err := json.Unmarshal([]byte(stripFence(raw)), &out); err != nil {
		return nil, &StructuredOutputParseError{Raw: raw, Expected: want, Err: err}
	}
	if out.Questions == nil {
		return nil, &StructuredOutputParseError{Raw: raw, Expected: want, Err: errors.New(`missing "questions"`)}
	}

	questions := make([]string, 0, len(out.Questions))
	for _, q := range out.Questions {
		if q = strings.TrimSpace(q); q != "" {
			questions = append(questions, q)
		}
	}
	if len(questions) != want {
		return nil, &StructuredOutputParseError{Raw: raw, Expected: want, Got: len(questions)}
	}
	return questions, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// NewSuggestGraph compiles the single-node suggest graph.
func NewSuggestGraph(model provider.Client) (*graph.StateRunnable[SuggestState], error) {
	g := graph.NewStateGraph[SuggestState]()

	g.AddNode(NodeSuggest, "Suggest follow-up questions", func(ctx context.Context, s SuggestState) (SuggestState, error) {
		if strings.TrimSpace(s.Question) == "" {
			return s, errors.New("question is empty")
		}
		n := s.NumQuestions
		if n <= 0 {
			n = DefaultNumQuestions
		}

		reply, err := model.Invoke(ctx, []state.Message{
			state.System(suggestSystemPrompt + " " + suggestFormat),
			state.Human(fmt.Sprintf(suggestHumanPrompt, n, s.Question)),
		}, provider.WithJSONOutput())
		if err != nil {
			return s, err
		}

		questions, err := ParseSuggestions(reply.Content, n)
		if err != nil {
			return s, err
		}
		s.NumQuestions = n
		s.Suggestions = questions
		return s, nil
	})
	g.SetEntryPoint(NodeSuggest)
	g.AddEdge(NodeSuggest, graph.END)

	return g.Compile()
}
