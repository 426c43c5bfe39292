// Package orchestration plans and executes summarization runs.
//
// Types describing the outcome of a run.
package orchestration

import (
	"fmt"
	"time"

	"github.com/richinex/govsummary/llm"
	"github.com/richinex/govsummary/model"
	"github.com/richinex/govsummary/subagent"
)

// CompletionStatusType represents how far a run got.
type CompletionStatusType int

const (
	StatusComplete CompletionStatusType = iota
	StatusPartial
	StatusCancelled
	StatusFailed
)

func (s CompletionStatusType) String() string {
	switch s {
	case StatusComplete:
		return "complete"
	case StatusPartial:
		return "partial"
	case StatusCancelled:
		return "cancelled"
	default:
		return "failed"
	}
}

// Status classifies a run: failed without a summary, cancelled when steps
// remain, partial when some step failed, complete otherwise.
func Status(state *model.ExecutionState) CompletionStatusType {
	if text, ok := state.SummaryText(); !ok || text == subagent.NoSummary {
		return StatusFailed
	}
	if !state.Done() {
		return StatusCancelled
	}
	if len(state.Errors) > 0 {
		return StatusPartial
	}
	return StatusComplete
}

// TokenStats tracks token usage across a run.
type TokenStats struct {
	PromptTokens     uint32 `json:"prompt_tokens"`
	CompletionTokens uint32 `json:"completion_tokens"`
	TotalTokens      uint32 `json:"total_tokens"`
	LLMCalls         int    `json:"llm_calls"`
}

// AddUsage adds token usage from an LLM call.
func (ts *TokenStats) AddUsage(usage *llm.TokenUsage) {
	if usage == nil {
		return
	}
	ts.PromptTokens += usage.PromptTokens
	ts.CompletionTokens += usage.CompletionTokens
	ts.TotalTokens += usage.TotalTokens
}

// RunStats describes an executed run.
type RunStats struct {
	Attempted     int           `json:"attempted"`
	Failed        int           `json:"failed"`
	Levels        int           `json:"levels"`
	Duration      time.Duration `json:"duration"`
	EstimatedCost int           `json:"estimated_cost"`
	Tokens        TokenStats    `json:"tokens"`
}

// WithClientUsage fills in the token usage accumulated by client.
func (rs RunStats) WithClientUsage(client *llm.Client) RunStats {
	if client == nil {
		return rs
	}
	usage, calls := client.Usage()
	rs.Tokens = TokenStats{}
	rs.Tokens.AddUsage(&usage)
	rs.Tokens.LLMCalls = calls
	return rs
}

func (rs RunStats) String() string {
	return fmt.Sprintf("%d steps (%d failed) in %d levels, %s, %d tokens over %d calls",
		rs.Attempted, rs.Failed, rs.Levels, rs.Duration.Round(time.Millisecond), rs.Tokens.TotalTokens, rs.Tokens.LLMCalls)
}
