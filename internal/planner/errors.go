package planner

import (
	"errors"
	"fmt"
)

// ErrParse marks a structural failure extracting a plan from model output.
// It drives the repair loop and is never surfaced to callers directly.
var ErrParse = errors.New("parse failure")

// ErrValidation marks a domain-invariant violation in a parsed plan. Like
// ErrParse it feeds the repair loop rather than the caller.
var ErrValidation = errors.New("validation failure")

// PlanGenerationError is the terminal failure after repairs are exhausted.
// It carries the plan type and the last human-readable failure reason but
// never raw model output or prompts.
type PlanGenerationError struct {
	PlanType string
	Reason   string
	Attempts int
}

func (e *PlanGenerationError) Error() string {
	return fmt.Sprintf("failed to generate %s after %d attempts: %s", e.PlanType, e.Attempts, e.Reason)
}
