package provider

import (
	"errors"
	"fmt"
	"strings"
)

// Name identifies a model provider.
type Name string

const (
	Google Name = "google"
	Ollama Name = "ollama"
	OpenAI Name = "openai"
)

// Names lists the supported providers.
var Names = []Name{Google, Ollama, OpenAI}

// ErrUnsupportedProvider matches every *UnsupportedProviderError.
var ErrUnsupportedProvider = errors.New("unsupported provider")

// UnsupportedProviderError names a provider outside Names.
type UnsupportedProviderError struct {
	Provider string
}

func (e *UnsupportedProviderError) Error() string {
	supported := make([]string, len(Names))
	for i, n := range Names {
		supported[i] = string(n)
	}
	return fmt.Sprintf("unsupported provider %q (supported: %s)", e.Provider, strings.Join(supported, ", "))
}

// Is reports whether target is ErrUnsupportedProvider.
func (e *UnsupportedProviderError) Is(target error) bool {
	return target == ErrUnsupportedProvider
}

// ParseName returns the provider for s. Matching ignores case and surrounding space.
func ParseName(s string) (Name, error) {
	n := Name(strings.ToLower(strings.TrimSpace(s)))
	switch n {
	case Google, Ollama, OpenAI:
		return n, nil
	}
	return "", &UnsupportedProviderError{Provider: s}
}
