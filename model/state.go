package model

import (
	"errors"
	"time"
)

// ErrFinalSummaryWritten is returned when a run tries to write its final
// summary a second time.
var ErrFinalSummaryWritten = errors.New("final summary already written")

// CompletedAction records one attempted step, successful or not.
type CompletedAction struct {
	Step     ActionStep    `json:"step"`
	Result   string        `json:"result,omitempty"`
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
	CostUsed int           `json:"cost_used,omitempty"`
	Duration time.Duration `json:"duration"`
}

// ExecutionState is the accumulated result of running a plan. It is owned by
// exactly one executor for the lifetime of a run.
type ExecutionState struct {
	RunID     string    `json:"run_id"`
	Input     string    `json:"input"`
	InputKind InputKind `json:"input_kind"`

	Plan             ActionPlan        `json:"plan"`
	Cursor           int               `json:"cursor"`
	CompletedActions []CompletedAction `json:"completed_actions"`

	DocumentSummaries []DocumentSummary `json:"document_summaries"`
	Overview          string            `json:"overview,omitempty"`
	FinalSummary      *string           `json:"final_summary,omitempty"`
	FinalizedSummary  string            `json:"finalized_summary,omitempty"`
	PublishResponse   string            `json:"publish_response,omitempty"`

	Errors []string `json:"errors"`
}

// NewExecutionState creates the state for a fresh run of plan.
func NewExecutionState(runID, input string, kind InputKind, plan ActionPlan) *ExecutionState {
	return &ExecutionState{
		RunID:             runID,
		Input:             input,
		InputKind:         kind,
		Plan:              plan,
		CompletedActions:  []CompletedAction{},
		DocumentSummaries: []DocumentSummary{},
		Errors:            []string{},
	}
}

// Done reports whether every step has been attempted.
func (s *ExecutionState) Done() bool {
	return s.Cursor >= len(s.Plan.Steps)
}

// Record appends the outcome of the step at the cursor and advances the
// cursor. errText is appended to Errors iff the action failed.
func (s *ExecutionState) Record(action CompletedAction, errText string) {
	s.CompletedActions = append(s.CompletedActions, action)
	if !action.Success {
		s.Errors = append(s.Errors, errText)
	}
	s.Cursor++
}

// AddDocumentSummary appends a document summary.
func (s *ExecutionState) AddDocumentSummary(summary DocumentSummary) {
	s.DocumentSummaries = append(s.DocumentSummaries, summary)
}

// SetFinalSummary writes the integrated summary. It may be written once.
func (s *ExecutionState) SetFinalSummary(text string) error {
	if s.FinalSummary != nil {
		return ErrFinalSummaryWritten
	}
	s.FinalSummary = &text
	return nil
}

// SummaryText returns the best available output text: the finalized summary
// if present, else the integrated summary.
func (s *ExecutionState) SummaryText() (string, bool) {
	if s.FinalizedSummary != "" {
		return s.FinalizedSummary, true
	}
	if s.FinalSummary != nil && *s.FinalSummary != "" {
		return *s.FinalSummary, true
	}
	return "", false
}

// FailedActions returns the number of failed attempts so far.
func (s *ExecutionState) FailedActions() int {
	n := 0
	for _, a := range s.CompletedActions {
		if !a.Success {
			n++
		}
	}
	return n
}
