package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codex-mohan/autonix/llmconfig"
	"github.com/codex-mohan/autonix/log"
	"github.com/codex-mohan/autonix/state"
	"github.com/codex-mohan/autonix/tool"
)

type capturedRequest struct {
	path   string
	header http.Header
	body   map[string]any
}

func captureServer(t *testing.T, status int, response string, got *[]capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		var body map[string]any
		if len(data) > 0 {
			assert.NoError(t, json.Unmarshal(data, &body))
		}
		*got = append(*got, capturedRequest{path: r.URL.Path, header: r.Header.Clone(), body: body})

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv
}

const openAIToolCallResponse = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "model": "gpt-4.5-turbo",
  "choices": [{
    "index": 0,
    "finish_reason": "tool_calls",
    "message": {
      "role": "assistant",
      "content": "",
      "tool_calls": [
        {"id": "call_1", "type": "function", "function": {"name": "read_file", "arguments": "{\"path\":\"a.txt\"}"}},
        {"id": "call_2", "type": "function", "function": {"name": "shell", "arguments": "{\"input\":\"ls\"}"}}
      ]
    }
  }]
}`

func TestOpenAI_Invoke(t *testing.T) {
	var got []capturedRequest
	srv := captureServer(t, http.StatusOK, openAIToolCallResponse, &got)

	cfg, err := llmconfig.New(llmconfig.WithTopK(8), llmconfig.WithReasoning(llmconfig.EffortLow))
	require.NoError(t, err)

	f := NewFactory(
		WithLogger(&log.NoOpLogger{}),
		WithAPIKey(OpenAI, "sk-test"),
		WithBaseURL(OpenAI, srv.URL+"/v1"),
	)
	client, err := f.Build("openai", "gpt-4", cfg)
	require.NoError(t, err)
	assert.Empty(t, got, "construction must not call the server")

	client = client.WithTools(tool.Definition{
		Name:        "read_file",
		Description: "Read a file",
		Parameters:  map[string]any{"type": "object"},
	})

	msg, err := client.Invoke(context.Background(), []state.Message{
		state.System("be terse"),
		state.Human("what is in a.txt?"),
	}, WithJSONOutput(), WithExtraSystem("extra"))
	require.NoError(t, err)

	require.Len(t, got, 1)
	req := got[0]
	assert.Equal(t, "/v1/chat/completions", req.path)
	assert.Equal(t, "Bearer sk-test", req.header.Get("Authorization"))
	assert.Equal(t, "gpt-4.5-turbo", req.body["model"])
	assert.Equal(t, float64(1024), req.body["max_completion_tokens"])
	assert.Equal(t, 0.7, req.body["temperature"])
	assert.Equal(t, true, req.body["logprobs"])
	assert.Equal(t, float64(8), req.body["top_logprobs"])
	assert.Equal(t, "low", req.body["reasoning_effort"])
	assert.Equal(t, map[string]any{"type": "json_object"}, req.body["response_format"])
	assert.NotContains(t, req.body, "top_k")

	messages := req.body["messages"].([]any)
	require.Len(t, messages, 3)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "extra", messages[0].(map[string]any)["content"])
	assert.Equal(t, "user", messages[2].(map[string]any)["role"])

	tools := req.body["tools"].([]any)
	require.Len(t, tools, 1)
	assert.Equal(t, "read_file", tools[0].(map[string]any)["function"].(map[string]any)["name"])

	assert.Equal(t, state.RoleAI, msg.Role)
	require.Len(t, msg.ToolCalls, 2)
	assert.Equal(t, state.ToolCall{ID: "call_1", Name: "read_file", Arguments: `{"path":"a.txt"}`}, msg.ToolCalls[0])
	assert.Equal(t, "shell", msg.ToolCalls[1].Name)
}

func TestOpenAI_MessageMapping(t *testing.T) {
	call := state.ToolCall{ID: "c1", Name: "shell", Arguments: `{"input":"ls"}`}

	ai, err := toOpenAIMessage(state.AI("", call))
	require.NoError(t, err)
	require.Len(t, ai.ToolCalls, 1)
	assert.Equal(t, "c1", ai.ToolCalls[0].ID)
	assert.Equal(t, "shell", ai.ToolCalls[0].Function.Name)

	res, err := toOpenAIMessage(state.ToolResult(call, "file.txt"))
	require.NoError(t, err)
	assert.Equal(t, "tool", res.Role)
	assert.Equal(t, "c1", res.ToolCallID)

	img, err := toOpenAIMessage(state.Human("look", state.Image{MIMEType: "image/png", Data: "AAAA"}))
	require.NoError(t, err)
	assert.Empty(t, img.Content)
	require.Len(t, img.MultiContent, 2)
	assert.Equal(t, "data:image/png;base64,AAAA", img.MultiContent[1].ImageURL.URL)

	_, err = toOpenAIMessage(state.Message{Role: "narrator"})
	assert.Error(t, err)
}

func TestOpenAI_ServerError(t *testing.T) {
	var got []capturedRequest
	srv := captureServer(t, http.StatusBadRequest, `{"error":{"message":"bad request","type":"invalid_request_error"}}`, &got)

	f := NewFactory(WithLogger(&log.NoOpLogger{}), WithBaseURL(OpenAI, srv.URL+"/v1"))
	client, err := f.Build("openai", "gpt-4", llmconfig.Default())
	require.NoError(t, err)

	_, err = client.Invoke(context.Background(), []state.Message{state.Human("hi")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai chat completion")
	assert.Len(t, got, 1, "400 is not retried")
}

func TestOpenAI_ZeroSamplingIsSent(t *testing.T) {
	var got []capturedRequest
	srv := captureServer(t, http.StatusOK, openAIToolCallResponse, &got)

	cfg, err := llmconfig.New(llmconfig.WithTemperature(0), llmconfig.WithTopP(0))
	require.NoError(t, err)

	f := NewFactory(WithLogger(&log.NoOpLogger{}), WithBaseURL(OpenAI, srv.URL+"/v1"))
	client, err := f.Build("openai", "gpt-4", cfg)
	require.NoError(t, err)

	_, err = client.Invoke(context.Background(), []state.Message{state.Human("hi")})
	require.NoError(t, err)

	require.Len(t, got, 1)
	require.Contains(t, got[0].body, "temperature")
	require.Contains(t, got[0].body, "top_p")
	assert.InDelta(t, 0, got[0].body["temperature"], 1e-9)
	assert.InDelta(t, 0, got[0].body["top_p"], 1e-9)
}
