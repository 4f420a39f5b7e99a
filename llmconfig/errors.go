package llmconfig

import (
	"errors"
	"fmt"
)

// ErrConfigValidation matches every ConfigValidationError.
var ErrConfigValidation = errors.New("invalid llm config")

// ConfigValidationError names the field that failed validation.
type ConfigValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigValidationError) Error() string {
	return fmt.Sprintf("invalid llm config: %s=%v %s", e.Field, e.Value, e.Reason)
}

// Is reports whether target is ErrConfigValidation.
func (e *ConfigValidationError) Is(target error) bool {
	return target == ErrConfigValidation
}

func invalid(field string, value any, reason string) error {
	return &ConfigValidationError{Field: field, Value: value, Reason: reason}
}
