package routing

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Common routing errors that can be checked with errors.Is().
var (
	// ErrNoEligibleDeployment is returned when every deployment in a model
	// group is open, probing or at capacity. The condition is transient.
	ErrNoEligibleDeployment = errors.New("no eligible deployment")

	// ErrInvalidStrategy is returned when an unknown routing strategy is configured.
	ErrInvalidStrategy = errors.New("invalid routing strategy")
)

// NoEligibleError is returned when no deployment of a model group can take
// a request right now.
type NoEligibleError struct {
	// Model is the model group name.
	Model string

	// Excluded maps deployment ids to the reason they were skipped.
	Excluded map[string]string
}

// Error implements the error interface.
func (e *NoEligibleError) Error() string {
	if len(e.Excluded) == 0 {
		return fmt.Sprintf("no eligible deployment for model %q", e.Model)
	}
	parts := make([]string, 0, len(e.Excluded))
	for id, reason := range e.Excluded {
		parts = append(parts, id+": "+reason)
	}
	sort.Strings(parts)
	return fmt.Sprintf("no eligible deployment for model %q (%s)", e.Model, strings.Join(parts, ", "))
}

// Is implements error matching for errors.Is().
func (e *NoEligibleError) Is(target error) bool {
	return target == ErrNoEligibleDeployment
}

// InvalidStrategyError is returned when the configured routing strategy
// is not recognized.
type InvalidStrategyError struct {
	// Strategy is the invalid strategy name.
	Strategy string

	// AvailableStrategies contains the valid strategy names.
	AvailableStrategies []string
}

// Error implements the error interface.
func (e *InvalidStrategyError) Error() string {
	return fmt.Sprintf("invalid routing strategy %q (available strategies: %s)",
		e.Strategy, strings.Join(e.AvailableStrategies, ", "))
}

// Is implements error matching for errors.Is().
func (e *InvalidStrategyError) Is(target error) bool {
	return target == ErrInvalidStrategy
}
