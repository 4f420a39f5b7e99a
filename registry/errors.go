package registry

import (
	"errors"
	"fmt"
)

// ErrUnknownModel matches every UnknownModelError.
var ErrUnknownModel = errors.New("unknown model")

// UnknownModelError is returned when an alias is absent from a provider's catalog.
type UnknownModelError struct {
	Provider string
	Alias    string
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("unknown model %q for provider %q", e.Alias, e.Provider)
}

// Is reports whether target is ErrUnknownModel.
func (e *UnknownModelError) Is(target error) bool {
	return target == ErrUnknownModel
}
