package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		ref  string
		want InputKind
	}{
		{"https://example.go.jp/meeting/01.html", InputPage},
		{"https://example.go.jp/meeting/", InputPage},
		{"https://example.go.jp/doc/shiryou1.PDF", InputSingleDocument},
		{"https://example.go.jp/doc/shiryou1.pdf?download=1", InputSingleDocument},
		{"./local/report.pdf", InputSingleDocument},
	}
	for _, tt := range tests {
		if got := KindOf(tt.ref); got != tt.want {
			t.Errorf("KindOf(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestParseCategory(t *testing.T) {
	if got := ParseCategory("Executive-Summary"); got != CategoryExecutiveSummary {
		t.Errorf("expected executive_summary, got %q", got)
	}
	if got := ParseCategory(" minutes "); got != CategoryMinutes {
		t.Errorf("expected minutes, got %q", got)
	}
	if got := ParseCategory("appendix"); got != CategoryOther {
		t.Errorf("expected other for unknown category, got %q", got)
	}
	if !CategoryAgenda.IsPrimary() || !CategoryMinutes.IsPrimary() || CategoryMaterial.IsPrimary() {
		t.Error("only agenda and minutes should be primary")
	}
}

func TestNewActionPlanTotalsCost(t *testing.T) {
	plan := NewActionPlan([]ActionStep{
		{ActionType: ActionSummarizeDocument, EstimatedCost: 5000},
		{ActionType: ActionIntegrateSummaries, EstimatedCost: 2000},
		{ActionType: ActionFinalize, EstimatedCost: 500},
	}, "test")

	if plan.TotalEstimatedCost != 7500 {
		t.Errorf("expected total 7500, got %d", plan.TotalEstimatedCost)
	}
	if plan.IsEmpty() {
		t.Error("plan should not be empty")
	}
	if !EmptyPlan("nothing").IsEmpty() {
		t.Error("EmptyPlan should be empty")
	}
}

func TestActionPlanLevels(t *testing.T) {
	plan := NewActionPlan([]ActionStep{
		{Priority: 0}, {Priority: 0}, {Priority: 1}, {Priority: 2}, {Priority: 2}, {Priority: 2}, {Priority: 3},
	}, "")

	want := [][]int{{0, 1}, {2}, {3, 4, 5}, {6}}
	if diff := cmp.Diff(want, plan.Levels(0)); diff != "" {
		t.Errorf("Levels(0) mismatch (-want +got):\n%s", diff)
	}

	wantFrom4 := [][]int{{4, 5}, {6}}
	if diff := cmp.Diff(wantFrom4, plan.Levels(4)); diff != "" {
		t.Errorf("Levels(4) mismatch (-want +got):\n%s", diff)
	}

	if got := plan.Levels(7); len(got) != 0 {
		t.Errorf("expected no levels past the end, got %v", got)
	}
}

func TestActionStepParams(t *testing.T) {
	step := ActionStep{Params: map[string]string{
		ParamMaxChars: "300",
		ParamBatch:    "true",
		ParamName:     "minutes",
		"bad":         "x",
	}}

	if got := step.IntParam(ParamMaxChars, 2000); got != 300 {
		t.Errorf("expected 300, got %d", got)
	}
	if got := step.IntParam("bad", 7); got != 7 {
		t.Errorf("expected default for malformed value, got %d", got)
	}
	if got := step.IntParam("missing", 9); got != 9 {
		t.Errorf("expected default for missing value, got %d", got)
	}
	if !step.BoolParam(ParamBatch) {
		t.Error("expected batch=true")
	}
	if step.Param(ParamName) != "minutes" {
		t.Errorf("expected name param, got %q", step.Param(ParamName))
	}
}

func TestExecutionStateRecord(t *testing.T) {
	plan := NewActionPlan([]ActionStep{{ActionType: ActionFinalize}, {ActionType: ActionPublish}}, "")
	state := NewExecutionState("run-1", "in.pdf", InputSingleDocument, plan)

	state.Record(CompletedAction{Step: plan.Steps[0], Success: true}, "")
	state.Record(CompletedAction{Step: plan.Steps[1], Success: false, Error: "boom"}, "Step 2 (publish): boom")

	if state.Cursor != 2 || !state.Done() {
		t.Errorf("expected cursor 2 and done, got cursor %d", state.Cursor)
	}
	if len(state.Errors) != 1 || state.Errors[0] != "Step 2 (publish): boom" {
		t.Errorf("unexpected errors: %v", state.Errors)
	}
	if state.FailedActions() != 1 {
		t.Errorf("expected 1 failed action, got %d", state.FailedActions())
	}
}

func TestFinalSummaryWrittenOnce(t *testing.T) {
	state := NewExecutionState("run", "ref", InputPage, EmptyPlan(""))

	if _, ok := state.SummaryText(); ok {
		t.Error("expected no summary text on fresh state")
	}
	if err := state.SetFinalSummary("first"); err != nil {
		t.Fatalf("SetFinalSummary failed: %v", err)
	}
	if err := state.SetFinalSummary("second"); err != ErrFinalSummaryWritten {
		t.Errorf("expected ErrFinalSummaryWritten, got %v", err)
	}
	text, _ := state.SummaryText()
	if text != "first" {
		t.Errorf("expected 'first', got %q", text)
	}

	state.FinalizedSummary = "short"
	text, _ = state.SummaryText()
	if text != "short" {
		t.Errorf("expected finalized text to win, got %q", text)
	}
}
