package orchestration

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"pgregory.net/rapid"

	"github.com/richinex/govsummary/model"
	"github.com/richinex/govsummary/subagent"
)

const (
	pageURL = "https://www.example.go.jp/council/dai5/gijisidai.html"
	pdfURL  = "https://www.example.go.jp/council/dai5/siryou1.pdf"
)

type fakeDiscoverer struct {
	discovery subagent.Discovery
	err       error
	calls     int
}

func (d *fakeDiscoverer) Discover(ctx context.Context, url string) (subagent.Discovery, error) {
	d.calls++
	if d.err != nil {
		return subagent.Discovery{}, d.err
	}
	out := d.discovery
	out.PageURL = url
	return out, nil
}

// fakeScorer scores documents by URL; unknown URLs score zero.
type fakeScorer struct {
	scores map[string]float64
	err    error
	got    []model.DiscoveredDocument
}

func (s *fakeScorer) Score(ctx context.Context, meeting string, docs []model.DiscoveredDocument) ([]model.ScoredDocument, error) {
	s.got = docs
	if s.err != nil {
		return nil, s.err
	}
	scored := make([]model.ScoredDocument, len(docs))
	for i, d := range docs {
		scored[i] = model.ScoredDocument{DiscoveredDocument: d, Score: s.scores[d.URL], Reason: "test"}
	}
	return scored, nil
}

func doc(name string, category model.Category) model.DiscoveredDocument {
	return model.DiscoveredDocument{
		URL:      "https://www.example.go.jp/council/dai5/" + name + ".pdf",
		Name:     name,
		Category: category,
	}
}

func TestPlanSingleDocument(t *testing.T) {
	discoverer := &fakeDiscoverer{}
	planner := NewPlanner(discoverer, &fakeScorer{}, DefaultPlannerConfig())

	plan := planner.Plan(context.Background(), pdfURL, PlanOptions{})

	want := []model.ActionType{
		model.ActionSummarizeDocument,
		model.ActionIntegrateSummaries,
		model.ActionFinalize,
		model.ActionPublish,
	}
	if diff := cmp.Diff(want, plan.ActionTypes()); diff != "" {
		t.Errorf("action types mismatch (-want +got):\n%s", diff)
	}
	for i, step := range plan.Steps {
		if step.Priority != i {
			t.Errorf("step %d priority = %d, want %d", i, step.Priority, i)
		}
		if step.Target != pdfURL {
			t.Errorf("step %d target = %q, want %q", i, step.Target, pdfURL)
		}
	}
	if plan.TotalEstimatedCost != 6600 {
		t.Errorf("TotalEstimatedCost = %d, want 6600", plan.TotalEstimatedCost)
	}
	if discoverer.calls != 0 {
		t.Errorf("discoverer called %d times for a document", discoverer.calls)
	}
}

func TestPlanSingleDocumentSkipPublish(t *testing.T) {
	planner := NewPlanner(&fakeDiscoverer{}, &fakeScorer{}, DefaultPlannerConfig())

	plan := planner.Plan(context.Background(), pdfURL, PlanOptions{SkipPublish: true, Batch: true})

	want := []model.ActionType{model.ActionSummarizeDocument, model.ActionIntegrateSummaries, model.ActionFinalize}
	if diff := cmp.Diff(want, plan.ActionTypes()); diff != "" {
		t.Errorf("action types mismatch (-want +got):\n%s", diff)
	}
	finalize := plan.Steps[2]
	if finalize.Param(model.ParamMaxChars) != "2000" {
		t.Errorf("max_chars = %q, want 2000", finalize.Param(model.ParamMaxChars))
	}
	if !finalize.BoolParam(model.ParamBatch) {
		t.Error("batch param not set")
	}
}

func TestPlanPageWithoutDocuments(t *testing.T) {
	scorer := &fakeScorer{}
	discoverer := &fakeDiscoverer{discovery: subagent.Discovery{MainContent: "第5回 会議"}}
	planner := NewPlanner(discoverer, scorer, DefaultPlannerConfig())

	plan := planner.Plan(context.Background(), pageURL, PlanOptions{})

	want := []model.ActionType{
		model.ActionGenerateOverview,
		model.ActionIntegrateSummaries,
		model.ActionFinalize,
		model.ActionPublish,
	}
	if diff := cmp.Diff(want, plan.ActionTypes()); diff != "" {
		t.Errorf("action types mismatch (-want +got):\n%s", diff)
	}
	for i, step := range plan.Steps {
		if step.Priority != i {
			t.Errorf("step %d priority = %d, want %d", i, step.Priority, i)
		}
	}
	if got := plan.Steps[0].Param(model.ParamMainContent); got != "第5回 会議" {
		t.Errorf("main_content = %q", got)
	}
	if scorer.got != nil {
		t.Error("scorer called without documents")
	}
}

func TestPlanPage(t *testing.T) {
	agenda := doc("agenda", model.CategoryAgenda)
	minutes := doc("minutes", model.CategoryMinutes)
	others := []model.DiscoveredDocument{
		doc("siryou1", model.CategoryMaterial),
		doc("siryou2", model.CategoryMaterial),
		doc("siryou3", model.CategoryReference),
		doc("sankou1", model.CategoryReference),
		doc("meibo", model.CategoryParticipants),
	}
	scorer := &fakeScorer{scores: map[string]float64{
		others[0].URL: 50,
		others[1].URL: 95,
		others[2].URL: 49,
		others[3].URL: 80,
		others[4].URL: 10,
	}}
	discoverer := &fakeDiscoverer{discovery: subagent.Discovery{
		MainContent:    "第5回 会議",
		Documents:      append([]model.DiscoveredDocument{agenda, others[0], minutes}, others[1:]...),
		EmbeddedAgenda: "1. 開会",
	}}
	planner := NewPlanner(discoverer, scorer, DefaultPlannerConfig())

	plan := planner.Plan(context.Background(), pageURL, PlanOptions{})

	type row struct {
		Action   model.ActionType
		Target   string
		Priority int
	}
	var got []row
	for _, s := range plan.Steps {
		got = append(got, row{s.ActionType, s.Target, s.Priority})
	}
	want := []row{
		{model.ActionSummarizeDocument, agenda.URL, 0},
		{model.ActionSummarizeDocument, minutes.URL, 0},
		{model.ActionGenerateOverview, pageURL, 1},
		{model.ActionSummarizeDocument, others[1].URL, 2},
		{model.ActionSummarizeDocument, others[3].URL, 2},
		{model.ActionSummarizeDocument, others[0].URL, 2},
		{model.ActionIntegrateSummaries, pageURL, 3},
		{model.ActionFinalize, pageURL, 4},
		{model.ActionPublish, pageURL, 5},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff(others, scorer.got); diff != "" {
		t.Errorf("scored documents mismatch (-want +got):\n%s", diff)
	}

	first := plan.Steps[0]
	wantParams := map[string]string{
		model.ParamCategory:       "agenda",
		model.ParamName:           "agenda",
		model.ParamSourceURL:      pageURL,
		model.ParamDiscoveryIndex: "0",
	}
	if diff := cmp.Diff(wantParams, first.Params); diff != "" {
		t.Errorf("summarize params mismatch (-want +got):\n%s", diff)
	}
	var positions []string
	for _, s := range plan.Steps {
		if s.ActionType == model.ActionSummarizeDocument {
			positions = append(positions, s.Param(model.ParamDiscoveryIndex))
		}
	}
	if diff := cmp.Diff([]string{"0", "2", "3", "5", "1"}, positions); diff != "" {
		t.Errorf("discovery positions mismatch (-want +got):\n%s", diff)
	}
	if got := plan.Steps[2].Param(model.ParamEmbeddedAgenda); got != "1. 開会" {
		t.Errorf("embedded_agenda = %q", got)
	}
	wantCost := 5*CostSummarize + CostOverview + CostIntegrate + CostFinalize + CostPublish
	if plan.TotalEstimatedCost != wantCost {
		t.Errorf("TotalEstimatedCost = %d, want %d", plan.TotalEstimatedCost, wantCost)
	}
}

func TestPlanPageOverviewOnly(t *testing.T) {
	scorer := &fakeScorer{}
	discoverer := &fakeDiscoverer{discovery: subagent.Discovery{
		MainContent: "第5回 会議",
		Documents: []model.DiscoveredDocument{
			doc("agenda", model.CategoryAgenda),
			doc("siryou1", model.CategoryMaterial),
		},
	}}
	planner := NewPlanner(discoverer, scorer, DefaultPlannerConfig())

	plan := planner.Plan(context.Background(), pageURL, PlanOptions{OverviewOnly: true, SkipPublish: true})

	want := []model.ActionType{model.ActionGenerateOverview, model.ActionIntegrateSummaries, model.ActionFinalize}
	if diff := cmp.Diff(want, plan.ActionTypes()); diff != "" {
		t.Errorf("action types mismatch (-want +got):\n%s", diff)
	}
	if scorer.got != nil {
		t.Error("scorer called in overview-only mode")
	}
}

func TestPlanFailuresYieldEmptyPlan(t *testing.T) {
	docs := []model.DiscoveredDocument{doc("siryou1", model.CategoryMaterial)}

	tests := []struct {
		name       string
		discoverer *fakeDiscoverer
		scorer     *fakeScorer
		reasoning  string
	}{
		{
			name:       "page not readable",
			discoverer: &fakeDiscoverer{err: errors.New("fetch page: 404 Not Found")},
			scorer:     &fakeScorer{},
			reasoning:  "fetch page: 404 Not Found",
		},
		{
			name:       "no main content",
			discoverer: &fakeDiscoverer{err: subagent.ErrNoMainContent},
			scorer:     &fakeScorer{},
			reasoning:  "no main content",
		},
		{
			name:       "scoring failed",
			discoverer: &fakeDiscoverer{discovery: subagent.Discovery{MainContent: "会議", Documents: docs}},
			scorer:     &fakeScorer{err: errors.New("inference failed after 3 attempts")},
			reasoning:  "inference failed after 3 attempts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			planner := NewPlanner(tt.discoverer, tt.scorer, DefaultPlannerConfig())
			plan := planner.Plan(context.Background(), pageURL, PlanOptions{})
			if !plan.IsEmpty() {
				t.Fatalf("plan has %d steps, want none", len(plan.Steps))
			}
			if plan.Reasoning != tt.reasoning {
				t.Errorf("Reasoning = %q, want %q", plan.Reasoning, tt.reasoning)
			}
			if plan.TotalEstimatedCost != 0 {
				t.Errorf("TotalEstimatedCost = %d, want 0", plan.TotalEstimatedCost)
			}
		})
	}
}

func TestPlanProperties(t *testing.T) {
	categories := model.Categories

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 12).Draw(t, "documents")
		docs := make([]model.DiscoveredDocument, n)
		scores := map[string]float64{}
		for i := range docs {
			category := rapid.SampledFrom(categories).Draw(t, "category")
			docs[i] = doc(fmt.Sprintf("doc%d", i), category)
			scores[docs[i].URL] = float64(rapid.IntRange(0, 100).Draw(t, "score"))
		}
		opts := PlanOptions{
			OverviewOnly: rapid.Bool().Draw(t, "overview_only"),
			SkipPublish:  rapid.Bool().Draw(t, "skip_publish"),
			Batch:        rapid.Bool().Draw(t, "batch"),
		}

		planner := NewPlanner(
			&fakeDiscoverer{discovery: subagent.Discovery{MainContent: "会議", Documents: docs}},
			&fakeScorer{scores: scores},
			DefaultPlannerConfig(),
		)
		plan := planner.Plan(context.Background(), pageURL, opts)

		primary, summarize, total := 0, 0, 0
		for _, d := range docs {
			if d.Category.IsPrimary() {
				primary++
			}
		}
		for i, step := range plan.Steps {
			total += step.EstimatedCost
			if i > 0 && step.Priority < plan.Steps[i-1].Priority {
				t.Fatalf("priority decreases at step %d", i)
			}
			if step.ActionType == model.ActionSummarizeDocument {
				summarize++
			}
		}
		if total != plan.TotalEstimatedCost {
			t.Fatalf("TotalEstimatedCost = %d, sum of steps = %d", plan.TotalEstimatedCost, total)
		}
		if opts.OverviewOnly && summarize != 0 {
			t.Fatalf("overview-only plan has %d summarize steps", summarize)
		}
		if summarize > primary+DefaultPlannerConfig().MaxSelected {
			t.Fatalf("%d summarize steps for %d primary documents", summarize, primary)
		}
		last := plan.Steps[len(plan.Steps)-1].ActionType
		if opts.SkipPublish == (last == model.ActionPublish) {
			t.Fatalf("last step %s with skip_publish=%v", last, opts.SkipPublish)
		}
	})
}
