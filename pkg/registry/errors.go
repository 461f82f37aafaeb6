package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownModel is returned when no model group or alias matches.
	ErrUnknownModel = errors.New("unknown model")

	// ErrUnknownDeployment is returned when a deployment id is not registered.
	ErrUnknownDeployment = errors.New("unknown deployment")

	// ErrInvalidRegistry is returned when registry input is inconsistent.
	ErrInvalidRegistry = errors.New("invalid registry")
)

// UnknownModelError carries the model name that failed to resolve.
type UnknownModelError struct {
	Model string
}

// Error implements the error interface.
func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("model %q is not configured", e.Model)
}

// Is implements error matching for errors.Is().
func (e *UnknownModelError) Is(target error) bool {
	return target == ErrUnknownModel
}
