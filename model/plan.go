package model

import (
	"strconv"
)

// ActionType identifies which sub-agent a step is dispatched to.
type ActionType string

const (
	ActionSummarizeDocument  ActionType = "summarize_document"
	ActionGenerateOverview   ActionType = "generate_overview"
	ActionIntegrateSummaries ActionType = "integrate_summaries"
	ActionFinalize           ActionType = "finalize"
	ActionPublish            ActionType = "publish"
)

// Well-known step parameter keys.
const (
	ParamCategory        = "category"
	ParamName            = "name"
	ParamMainContent     = "main_content"
	ParamEmbeddedAgenda  = "embedded_agenda"
	ParamEmbeddedMinutes = "embedded_minutes"
	ParamMaxChars        = "max_chars"
	ParamBatch           = "batch"
	ParamSourceURL       = "source_url"
	ParamDiscoveryIndex  = "discovery_index"
)

// ActionStep is one unit of work in a plan. Steps sharing a priority are
// independent of each other; a step never starts before every step with a
// lower priority number has been attempted.
type ActionStep struct {
	ActionType    ActionType        `json:"action_type"`
	Target        string            `json:"target"`
	Params        map[string]string `json:"params,omitempty"`
	Priority      int               `json:"priority"`
	EstimatedCost int               `json:"estimated_cost"`
}

// Param returns a string parameter, or "" when absent.
func (s ActionStep) Param(key string) string {
	return s.Params[key]
}

// IntParam returns an integer parameter, or def when absent or malformed.
func (s ActionStep) IntParam(key string, def int) int {
	v, ok := s.Params[key]
	if !ok {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// BoolParam returns a boolean parameter, or false when absent or malformed.
func (s ActionStep) BoolParam(key string) bool {
	b, _ := strconv.ParseBool(s.Params[key])
	return b
}

// ActionPlan is the ordered list of steps produced once per run.
type ActionPlan struct {
	Steps              []ActionStep `json:"steps"`
	Reasoning          string       `json:"reasoning"`
	TotalEstimatedCost int          `json:"total_estimated_cost"`
}

// NewActionPlan builds a plan and computes its total estimated cost.
func NewActionPlan(steps []ActionStep, reasoning string) ActionPlan {
	total := 0
	for _, s := range steps {
		total += s.EstimatedCost
	}
	return ActionPlan{
		Steps:              steps,
		Reasoning:          reasoning,
		TotalEstimatedCost: total,
	}
}

// EmptyPlan returns a plan with no steps, carrying the reason it is empty.
func EmptyPlan(reasoning string) ActionPlan {
	return ActionPlan{Steps: []ActionStep{}, Reasoning: reasoning}
}

// IsEmpty reports whether the plan has no steps.
func (p ActionPlan) IsEmpty() bool {
	return len(p.Steps) == 0
}

// ActionTypes returns the action type of every step, in plan order.
func (p ActionPlan) ActionTypes() []ActionType {
	types := make([]ActionType, len(p.Steps))
	for i, s := range p.Steps {
		types[i] = s.ActionType
	}
	return types
}

// Levels groups the step indices from start onward into runs of consecutive
// steps sharing a priority. Each run may execute concurrently; runs execute
// strictly one after another.
func (p ActionPlan) Levels(start int) [][]int {
	var levels [][]int
	for i := start; i < len(p.Steps); i++ {
		if len(levels) > 0 {
			last := levels[len(levels)-1]
			if p.Steps[last[0]].Priority == p.Steps[i].Priority {
				levels[len(levels)-1] = append(last, i)
				continue
			}
		}
		levels = append(levels, []int{i})
	}
	return levels
}
