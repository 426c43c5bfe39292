// Planner - builds the action plan of a run.
//
// A meeting page is read once: its main content, related documents and any
// inline agenda or minutes decide which steps the plan contains. A
// standalone document always gets the same fixed plan.
//
// Information Hiding:
// - Partition of documents into primary and scored
// - Priority numbering and cost estimates
// - Conversion of discovery and scoring failures into empty plans

package orchestration

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/richinex/govsummary/model"
	"github.com/richinex/govsummary/subagent"
)

// Estimated cost of each step kind, in tokens.
const (
	CostSummarize       = 5000
	CostOverview        = 2000
	CostIntegrate       = 2000
	CostIntegrateSingle = 1000
	CostFinalize        = 500
	CostPublish         = 100
)

// PageDiscoverer reads a meeting page.
type PageDiscoverer interface {
	Discover(ctx context.Context, pageURL string) (subagent.Discovery, error)
}

// Scorer rates documents against a meeting description.
type Scorer interface {
	Score(ctx context.Context, meeting string, docs []model.DiscoveredDocument) ([]model.ScoredDocument, error)
}

// PlanOptions are the user's choices for one run.
type PlanOptions struct {
	OverviewOnly bool
	SkipPublish  bool
	Batch        bool
}

// PlannerConfig holds the planning limits.
type PlannerConfig struct {
	ScoreThreshold  float64
	MaxSelected     int
	MaxSummaryChars int
}

// DefaultPlannerConfig returns the default planning limits.
func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		ScoreThreshold:  50,
		MaxSelected:     5,
		MaxSummaryChars: 2000,
	}
}

// Planner produces action plans. It never fails: problems yield an empty
// plan whose reasoning says what went wrong.
type Planner struct {
	discoverer PageDiscoverer
	scorer     Scorer
	config     PlannerConfig
	logger     *slog.Logger
}

// NewPlanner creates a planner.
func NewPlanner(discoverer PageDiscoverer, scorer Scorer, config PlannerConfig) *Planner {
	return &Planner{
		discoverer: discoverer,
		scorer:     scorer,
		config:     config,
		logger:     slog.New(slog.DiscardHandler),
	}
}

// WithLogger sets the logger.
func (p *Planner) WithLogger(logger *slog.Logger) *Planner {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// Plan builds the plan for ref.
func (p *Planner) Plan(ctx context.Context, ref string, opts PlanOptions) model.ActionPlan {
	var plan model.ActionPlan
	switch model.KindOf(ref) {
	case model.InputSingleDocument:
		plan = p.planDocument(ref, opts)
	default:
		plan = p.planPage(ctx, ref, opts)
	}

	p.logger.Info("plan created",
		"input", ref,
		"steps", len(plan.Steps),
		"estimated_cost", plan.TotalEstimatedCost,
		"reasoning", plan.Reasoning,
	)
	for i, step := range plan.Steps {
		p.logger.Debug("planned step", "step", i+1, "action", step.ActionType, "target", step.Target, "priority", step.Priority)
	}
	return plan
}

func (p *Planner) planDocument(ref string, opts PlanOptions) model.ActionPlan {
	steps := []model.ActionStep{
		{ActionType: model.ActionSummarizeDocument, Target: ref, Params: map[string]string{}, Priority: 0, EstimatedCost: CostSummarize},
		{ActionType: model.ActionIntegrateSummaries, Target: ref, Params: map[string]string{}, Priority: 1, EstimatedCost: CostIntegrateSingle},
		p.finalizeStep(ref, 2, opts),
	}
	if !opts.SkipPublish {
		steps = append(steps, publishStep(ref, 3))
	}
	return model.NewActionPlan(steps, "single document: summarize, integrate, finalize")
}

func (p *Planner) planPage(ctx context.Context, ref string, opts PlanOptions) model.ActionPlan {
	discovery, err := p.discoverer.Discover(ctx, ref)
	if err != nil {
		p.logger.Warn("discovery failed", "url", ref, "error", err)
		return model.EmptyPlan(err.Error())
	}

	order := make(map[string]int, len(discovery.Documents))
	for i, doc := range discovery.Documents {
		if _, seen := order[doc.URL]; !seen {
			order[doc.URL] = i
		}
	}

	var primary, others []model.DiscoveredDocument
	if !opts.OverviewOnly {
		for _, doc := range discovery.Documents {
			if doc.Category.IsPrimary() {
				primary = append(primary, doc)
			} else {
				others = append(others, doc)
			}
		}
		p.logger.Info("documents partitioned", "primary", len(primary), "other", len(others))
	}

	var steps []model.ActionStep
	priority := 0

	for _, doc := range primary {
		steps = append(steps, summarizeStep(doc, ref, priority, order[doc.URL]))
	}
	if len(primary) > 0 {
		priority++
	}

	steps = append(steps, model.ActionStep{
		ActionType: model.ActionGenerateOverview,
		Target:     ref,
		Params: map[string]string{
			model.ParamMainContent:     discovery.MainContent,
			model.ParamEmbeddedAgenda:  discovery.EmbeddedAgenda,
			model.ParamEmbeddedMinutes: discovery.EmbeddedMinutes,
		},
		Priority:      priority,
		EstimatedCost: CostOverview,
	})
	priority++

	reasoning := fmt.Sprintf("meeting page with %d documents (%d primary)", len(discovery.Documents), len(primary))
	if opts.OverviewOnly {
		reasoning = fmt.Sprintf("overview only: meeting page with %d documents", len(discovery.Documents))
	}
	if len(others) > 0 {
		scored, err := p.scorer.Score(ctx, discovery.MainContent, others)
		if err != nil {
			p.logger.Warn("document scoring failed", "url", ref, "error", err)
			return model.EmptyPlan(err.Error())
		}
		selected := subagent.SelectDocuments(scored, p.config.ScoreThreshold, p.config.MaxSelected)
		for _, doc := range selected {
			p.logger.Info("document selected", "name", doc.Name, "score", doc.Score, "reason", doc.Reason)
			steps = append(steps, summarizeStep(doc.DiscoveredDocument, ref, priority, order[doc.URL]))
		}
		if len(selected) > 0 {
			priority++
		}
		reasoning += fmt.Sprintf(", %d of %d others selected", len(selected), len(others))
	}

	steps = append(steps, model.ActionStep{
		ActionType:    model.ActionIntegrateSummaries,
		Target:        ref,
		Params:        map[string]string{},
		Priority:      priority,
		EstimatedCost: CostIntegrate,
	})
	priority++
	steps = append(steps, p.finalizeStep(ref, priority, opts))
	priority++
	if !opts.SkipPublish {
		steps = append(steps, publishStep(ref, priority))
	}
	return model.NewActionPlan(steps, reasoning)
}

// summarizeStep plans one document. index is the document's position on
// the page, which orders it in the integrated summary.
func summarizeStep(doc model.DiscoveredDocument, source string, priority, index int) model.ActionStep {
	return model.ActionStep{
		ActionType: model.ActionSummarizeDocument,
		Target:     doc.URL,
		Params: map[string]string{
			model.ParamCategory:       string(doc.Category),
			model.ParamName:           doc.Name,
			model.ParamSourceURL:      source,
			model.ParamDiscoveryIndex: strconv.Itoa(index),
		},
		Priority:      priority,
		EstimatedCost: CostSummarize,
	}
}

func (p *Planner) finalizeStep(ref string, priority int, opts PlanOptions) model.ActionStep {
	return model.ActionStep{
		ActionType: model.ActionFinalize,
		Target:     ref,
		Params: map[string]string{
			model.ParamMaxChars: strconv.Itoa(p.config.MaxSummaryChars),
			model.ParamBatch:    strconv.FormatBool(opts.Batch),
		},
		Priority:      priority,
		EstimatedCost: CostFinalize,
	}
}

func publishStep(ref string, priority int) model.ActionStep {
	return model.ActionStep{
		ActionType:    model.ActionPublish,
		Target:        ref,
		Params:        map[string]string{},
		Priority:      priority,
		EstimatedCost: CostPublish,
	}
}
