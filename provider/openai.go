package provider

import (
	"context"
	"fmt"
	"math"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/codex-mohan/autonix/registry"
	"github.com/codex-mohan/autonix/state"
	"github.com/codex-mohan/autonix/tool"
)

type openAIClient struct {
	client     *openai.Client
	descriptor registry.ModelDescriptor
	params     Params
	tools      []tool.Definition
}

func newOpenAIClient(d registry.ModelDescriptor, p Params, apiKey, baseURL string, hc *http.Client) *openAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = hc
	return &openAIClient{
		client:     openai.NewClientWithConfig(cfg),
		descriptor: d,
		params:     p,
	}
}

func (c *openAIClient) Params() Params {
	return c.params
}

func (c *openAIClient) Descriptor() registry.ModelDescriptor {
	return c.descriptor
}

func (c *openAIClient) WithTools(defs ...tool.Definition) Client {
	cp := *c
	cp.tools = append([]tool.Definition(nil), defs...)
	return &cp
}

func (c *openAIClient) Invoke(ctx context.Context, messages []state.Message, opts ...CallOption) (state.Message, error) {
	req, err := c.request(messages, applyCallOptions(opts))
	if err != nil {
		return state.Message{}, err
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return state.Message{}, fmt.Errorf("%s chat completion: %w", c.params.Provider, err)
	}
	if len(resp.Choices) == 0 {
		return state.Message{}, fmt.Errorf("%s chat completion: no choices returned", c.params.Provider)
	}
	return fromOpenAIMessage(resp.Choices[0].Message), nil
}

func (c *openAIClient) request(messages []state.Message, o CallOptions) (openai.ChatCompletionRequest, error) {
	req := openai.ChatCompletionRequest{Model: c.params.Model}

	for _, m := range withExtraSystem(messages, o) {
		msg, err := toOpenAIMessage(m)
		if err != nil {
			return req, err
		}
		req.Messages = append(req.Messages, msg)
	}

	p := c.params
	if v, ok := p.Int("max_completion_tokens"); ok {
		req.MaxCompletionTokens = v
	}
	if v, ok := p.Int("num_predict"); ok {
		req.MaxTokens = v
	}
	if v, ok := p.Float("temperature"); ok {
		req.Temperature = nonZero(v)
	}
	if v, ok := p.Float("top_p"); ok {
		req.TopP = nonZero(v)
	}
	if v, ok := p.Int("top_logprobs"); ok {
		req.LogProbs = true
		req.TopLogProbs = v
	}
	if v, ok := p.Float("frequency_penalty"); ok {
		req.FrequencyPenalty = float32(v)
	}
	if v, ok := p.Float("presence_penalty"); ok {
		req.PresencePenalty = float32(v)
	}
	if v, ok := p.String("reasoning_effort"); ok {
		req.ReasoningEffort = v
	}

	for _, def := range c.tools {
		req.Tools = append(req.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}

	if o.JSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return req, nil
}

// nonZero keeps an explicit zero on the wire; go-openai omits zero-valued
// sampling fields.
func nonZero(v float64) float32 {
	if v == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(v)
}

func toOpenAIMessage(m state.Message) (openai.ChatCompletionMessage, error) {
	switch m.Role {
	case state.RoleSystem:
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: m.Content}, nil

	case state.RoleHuman:
		if len(m.Images) == 0 {
			return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: m.Content}, nil
		}
		parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: m.Content}}
		for _, img := range m.Images {
			parts = append(parts, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: img.DataURL()},
			})
		}
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts}, nil

	case state.RoleAI:
		msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Content}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		return msg, nil

	case state.RoleTool:
		return openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		}, nil
	}
	return openai.ChatCompletionMessage{}, fmt.Errorf("unknown role %q", m.Role)
}

func fromOpenAIMessage(msg openai.ChatCompletionMessage) state.Message {
	out := state.AI(msg.Content)
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, state.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out
}
