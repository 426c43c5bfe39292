package orchestration

import (
	"fmt"

	"github.com/richinex/govsummary/model"
)

// PlanningError ends a run before any step executes: the plan came back
// empty.
type PlanningError struct {
	Reason string
}

func (e *PlanningError) Error() string {
	if e.Reason == "" {
		return "planning produced no steps"
	}
	return "planning produced no steps: " + e.Reason
}

// StepError is the failure of one plan step. It is recorded in the run
// state and the run continues.
type StepError struct {
	Index  int
	Action model.ActionType
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("Step %d (%s): %v", e.Index+1, e.Action, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
