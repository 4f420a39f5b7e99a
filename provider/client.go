package provider

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/codex-mohan/autonix/registry"
	"github.com/codex-mohan/autonix/state"
	"github.com/codex-mohan/autonix/tool"
)

// Client is a chat model bound to one provider, model and parameter set.
type Client interface {
	// Invoke sends the conversation and returns the model's ai message.
	Invoke(ctx context.Context, messages []state.Message, opts ...CallOption) (state.Message, error)

	// Params returns the resolved provider parameters.
	Params() Params

	// Descriptor returns the registry entry of the model.
	Descriptor() registry.ModelDescriptor

	// WithTools returns a copy of the client that offers defs to the model.
	WithTools(defs ...tool.Definition) Client
}

// CallOptions are per-call settings.
type CallOptions struct {
	// JSON asks the model for a JSON object.
	JSON bool

	// ExtraSystem is sent as a system message ahead of the conversation.
	ExtraSystem string
}

// CallOption configures a single Invoke.
type CallOption func(*CallOptions)

// WithJSONOutput asks the model to answer with a JSON object.
func WithJSONOutput() CallOption {
	return func(o *CallOptions) {
		o.JSON = true
	}
}

// WithExtraSystem prepends a system instruction to the call.
func WithExtraSystem(text string) CallOption {
	return func(o *CallOptions) {
		o.ExtraSystem = text
	}
}

func applyCallOptions(opts []CallOption) CallOptions {
	var o CallOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// withExtraSystem returns messages with the extra system instruction first.
func withExtraSystem(messages []state.Message, o CallOptions) []state.Message {
	if o.ExtraSystem == "" {
		return messages
	}
	out := make([]state.Message, 0, len(messages)+1)
	out = append(out, state.System(o.ExtraSystem))
	return append(out, messages...)
}

func decodeImage(img state.Image) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(img.Data)
	if err != nil {
		return nil, fmt.Errorf("decode %s image: %w", img.MIMEType, err)
	}
	return data, nil
}
