package weighting

import (
	"errors"
	"fmt"
)

var (
	// ErrTargetNotFound is returned when a path does not lead to a target.
	ErrTargetNotFound = errors.New("no weighting target for path")
	// ErrEmptyPath is returned when a concrete target was required but the path addresses the root.
	ErrEmptyPath = errors.New("inserting into the root is not valid; use the root entry point")
	// ErrMissingTargets is the validation failure for a plan without a target collection.
	ErrMissingTargets = errors.New("Weighting must contain targets")
)

// PathNotFoundError records where path resolution stopped.
type PathNotFoundError struct {
	SubsetID string
	Depth    int
	Step     TargetInstance
	// PlanFound is false when no plan at Depth weights on Step's variable.
	PlanFound bool
}

func (e *PathNotFoundError) Error() string {
	if !e.PlanFound {
		return fmt.Sprintf("subset %q: no plan for variable %q at depth %d", e.SubsetID, e.Step.FilterVariableName, e.Depth)
	}
	return fmt.Sprintf("subset %q: no target for %s=%d at depth %d", e.SubsetID, e.Step.FilterVariableName, e.Step.FilterInstanceID, e.Depth)
}

func (e *PathNotFoundError) Unwrap() error { return ErrTargetNotFound }
