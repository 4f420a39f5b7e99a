package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/codex-mohan/autonix/registry"
	"github.com/codex-mohan/autonix/state"
	"github.com/codex-mohan/autonix/tool"
)

// genaiConn creates the Gemini client on first use so that building a Client
// neither needs a key nor dials out.
type genaiConn struct {
	config *genai.ClientConfig
	once   sync.Once
	client *genai.Client
	err    error
}

func (g *genaiConn) get(ctx context.Context) (*genai.Client, error) {
	g.once.Do(func() {
		g.client, g.err = genai.NewClient(ctx, g.config)
	})
	return g.client, g.err
}

type googleClient struct {
	conn       *genaiConn
	descriptor registry.ModelDescriptor
	params     Params
	tools      []tool.Definition
}

func newGoogleClient(d registry.ModelDescriptor, p Params, apiKey, baseURL string, hc *http.Client) *googleClient {
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: hc,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	return &googleClient{
		conn:       &genaiConn{config: cfg},
		descriptor: d,
		params:     p,
	}
}

func (c *googleClient) Params() Params {
	return c.params
}

func (c *googleClient) Descriptor() registry.ModelDescriptor {
	return c.descriptor
}

func (c *googleClient) WithTools(defs ...tool.Definition) Client {
	cp := *c
	cp.tools = append([]tool.Definition(nil), defs...)
	return &cp
}

func (c *googleClient) Invoke(ctx context.Context, messages []state.Message, opts ...CallOption) (state.Message, error) {
	contents, config, err := c.request(messages, applyCallOptions(opts))
	if err != nil {
		return state.Message{}, err
	}

	client, err := c.conn.get(ctx)
	if err != nil {
		return state.Message{}, fmt.Errorf("gemini client: %w", err)
	}

	resp, err := client.Models.GenerateContent(ctx, c.params.Model, contents, config)
	if err != nil {
		return state.Message{}, fmt.Errorf("gemini generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return state.Message{}, errors.New("gemini generate content: no candidates returned")
	}
	return fromGenaiContent(resp.Candidates[0].Content)
}

func (c *googleClient) request(messages []state.Message, o CallOptions) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	config := &genai.GenerateContentConfig{}
	var system []string
	var contents []*genai.Content

	for _, m := range withExtraSystem(messages, o) {
		if m.Role == state.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		content, err := toGenaiContent(m)
		if err != nil {
			return nil, nil, err
		}
		contents = append(contents, content)
	}
	if len(system) > 0 {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: strings.Join(system, "\n\n")}}}
	}

	p := c.params
	if v, ok := p.Int("max_output_tokens"); ok {
		config.MaxOutputTokens = int32(v)
	}
	if v, ok := p.Float("temperature"); ok {
		config.Temperature = genai.Ptr(float32(v))
	}
	if v, ok := p.Float("top_p"); ok {
		config.TopP = genai.Ptr(float32(v))
	}
	if v, ok := p.Int("top_k"); ok {
		config.TopK = genai.Ptr(float32(v))
	}
	if v, ok := p.Float("frequency_penalty"); ok {
		config.FrequencyPenalty = genai.Ptr(float32(v))
	}
	if v, ok := p.Float("presence_penalty"); ok {
		config.PresencePenalty = genai.Ptr(float32(v))
	}
	if v, ok := p.Int("thinking_budget"); ok {
		config.ThinkingConfig = &genai.ThinkingConfig{
			IncludeThoughts: p.Bool("include_thoughts"),
			ThinkingBudget:  genai.Ptr(int32(v)),
		}
	}

	if len(c.tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(c.tools))
		for _, def := range c.tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:                 def.Name,
				Description:          def.Description,
				ParametersJsonSchema: def.Parameters,
			})
		}
		config.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	if o.JSON {
		config.ResponseMIMEType = "application/json"
	}
	return contents, config, nil
}

func toGenaiContent(m state.Message) (*genai.Content, error) {
	switch m.Role {
	case state.RoleHuman:
		content := &genai.Content{Role: string(genai.RoleUser)}
		if m.Content != "" {
			content.Parts = append(content.Parts, &genai.Part{Text: m.Content})
		}
		for _, img := range m.Images {
			data, err := decodeImage(img)
			if err != nil {
				return nil, err
			}
			content.Parts = append(content.Parts, &genai.Part{
				InlineData: &genai.Blob{MIMEType: img.MIMEType, Data: data},
			})
		}
		return content, nil

	case state.RoleAI:
		content := &genai.Content{Role: string(genai.RoleModel)}
		if m.Content != "" {
			content.Parts = append(content.Parts, &genai.Part{Text: m.Content})
		}
		for _, tc := range m.ToolCalls {
			args := map[string]any{}
			if tc.Arguments != "" {
				if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
					return nil, fmt.Errorf("tool call %s arguments: %w", tc.ID, err)
				}
			}
			content.Parts = append(content.Parts, &genai.Part{
				FunctionCall: &genai.FunctionCall{ID: tc.ID, Name: tc.Name, Args: args},
			})
		}
		return content, nil

	case state.RoleTool:
		return &genai.Content{
			Role: string(genai.RoleUser),
			Parts: []*genai.Part{{
				FunctionResponse: &genai.FunctionResponse{
					ID:       m.ToolCallID,
					Name:     m.Name,
					Response: map[string]any{"output": m.Content},
				},
			}},
		}, nil
	}
	return nil, fmt.Errorf("unknown role %q", m.Role)
}

func fromGenaiContent(content *genai.Content) (state.Message, error) {
	out := state.AI("")
	var text, thoughts []string
	for _, part := range content.Parts {
		if part == nil {
			continue
		}
		switch {
		case part.FunctionCall != nil:
			args, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				return state.Message{}, fmt.Errorf("encode function call %s: %w", part.FunctionCall.Name, err)
			}
			id := part.FunctionCall.ID
			if id == "" {
				id = "call_" + uuid.NewString()
			}
			out.ToolCalls = append(out.ToolCalls, state.ToolCall{
				ID:        id,
				Name:      part.FunctionCall.Name,
				Arguments: string(args),
			})
		case part.Thought:
			thoughts = append(thoughts, part.Text)
		case part.Text != "":
			text = append(text, part.Text)
		}
	}
	out.Content = strings.Join(text, "")
	out.Reasoning = strings.Join(thoughts, "")
	return out, nil
}
