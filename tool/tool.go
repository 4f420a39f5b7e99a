package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/codex-mohan/autonix/state"
	"github.com/tmc/langchaingo/tools"
)

// Definition describes a tool to a chat model. Parameters is a JSON schema object.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Tool is a langchaingo tool that can describe its arguments.
type Tool interface {
	tools.Tool
	Definition() Definition
}

// stringParams builds an object schema where every property is a required string.
func stringParams(props ...[2]string) map[string]any {
	properties := make(map[string]any, len(props))
	required := make([]string, 0, len(props))
	for _, p := range props {
		properties[p[0]] = map[string]any{"type": "string", "description": p[1]}
		required = append(required, p[0])
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

// parseArgs decodes JSON arguments into dst. When input is not a JSON object
// and fallback is set, the whole input is stored in *fallback.
func parseArgs(input string, dst any, fallback *string) error {
	trimmed := strings.TrimSpace(input)
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal([]byte(trimmed), dst); err != nil {
			return fmt.Errorf("invalid arguments: %w", err)
		}
		return nil
	}
	if fallback == nil {
		return fmt.Errorf("invalid arguments: expected a JSON object")
	}
	*fallback = input
	return nil
}

// ErrToolExecution matches every ToolExecutionError.
var ErrToolExecution = errors.New("tool execution failed")

// ErrUnknownTool is wrapped when a model requests a tool that is not registered.
var ErrUnknownTool = errors.New("unknown tool")

// ToolExecutionError is a failed tool call.
type ToolExecutionError struct {
	Tool   string
	CallID string
	Err    error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrToolExecution.
func (e *ToolExecutionError) Is(target error) bool {
	return target == ErrToolExecution
}

// Executor runs tool calls by name.
type Executor struct {
	tools map[string]Tool
}

// NewExecutor registers ts. A later tool replaces an earlier one with the same name.
func NewExecutor(ts ...Tool) *Executor {
	e := &Executor{tools: make(map[string]Tool, len(ts))}
	for _, t := range ts {
		e.tools[t.Name()] = t
	}
	return e
}

// Definitions returns the registered tools sorted by name.
func (e *Executor) Definitions() []Definition {
	defs := make([]Definition, 0, len(e.tools))
	for _, t := range e.tools {
		defs = append(defs, t.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Tools returns the registered tools as langchaingo tools, sorted by name.
func (e *Executor) Tools() []tools.Tool {
	defs := e.Definitions()
	out := make([]tools.Tool, 0, len(defs))
	for _, d := range defs {
		out = append(out, e.tools[d.Name])
	}
	return out
}

// Execute runs call. Any failure is returned as *ToolExecutionError.
func (e *Executor) Execute(ctx context.Context, call state.ToolCall) (string, error) {
	t, ok := e.tools[call.Name]
	if !ok {
		return "", &ToolExecutionError{Tool: call.Name, CallID: call.ID, Err: ErrUnknownTool}
	}
	out, err := t.Call(ctx, call.Arguments)
	if err != nil {
		return out, &ToolExecutionError{Tool: call.Name, CallID: call.ID, Err: err}
	}
	return out, nil
}
