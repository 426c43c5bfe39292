package subagent

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/richinex/govsummary/llm"
	"github.com/richinex/govsummary/model"
)

// scoreContextChars bounds the page context sent with the document list.
const scoreContextChars = 5000

const taskScoreDocuments = "## Task: score related documents"

type documentScore struct {
	Index  int     `json:"index" jsonschema:"description=Number of the document in the list (1-based)"`
	Score  float64 `json:"score" jsonschema:"minimum=0,maximum=100"`
	Reason string  `json:"reason"`
}

type documentScores struct {
	Documents []documentScore `json:"documents"`
}

// DocumentScorer rates discovered documents 0-100 for relevance to a meeting.
type DocumentScorer struct {
	client *llm.Client
	logger *slog.Logger
}

// NewDocumentScorer creates a scorer using client.
func NewDocumentScorer(client *llm.Client) *DocumentScorer {
	return &DocumentScorer{client: client, logger: discardLogger()}
}

// WithLogger sets the logger.
func (s *DocumentScorer) WithLogger(logger *slog.Logger) *DocumentScorer {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Score rates docs against the meeting content. The result keeps discovery
// order; documents the model skipped score 0.
func (s *DocumentScorer) Score(ctx context.Context, meeting string, docs []model.DiscoveredDocument) ([]model.ScoredDocument, error) {
	if len(docs) == 0 {
		return []model.ScoredDocument{}, nil
	}

	var list strings.Builder
	for i, d := range docs {
		fmt.Fprintf(&list, "%d. [%s] %s: %s\n", i+1, d.Category, d.Name, d.URL)
	}
	if strings.TrimSpace(meeting) == "" {
		meeting = "(no overview)"
	}
	prompt := fmt.Sprintf(scorePrompt, truncateRunes(meeting, scoreContextChars), list.String())

	validate := func(r documentScores) error {
		for _, d := range r.Documents {
			if d.Index < 1 || d.Index > len(docs) {
				return fmt.Errorf("document index %d out of range 1-%d", d.Index, len(docs))
			}
			if d.Score < 0 || d.Score > 100 {
				return fmt.Errorf("score %g for document %d out of range", d.Score, d.Index)
			}
		}
		return nil
	}

	result, err := llm.GenerateStructured(ctx, s.client, "document_scores", prompt, validate)
	if err != nil {
		return nil, fmt.Errorf("failed to score documents: %w", err)
	}

	scored := make([]model.ScoredDocument, len(docs))
	for i, d := range docs {
		scored[i] = model.ScoredDocument{DiscoveredDocument: d, Reason: "not scored"}
	}
	for _, r := range result.Documents {
		scored[r.Index-1].Score = r.Score
		scored[r.Index-1].Reason = r.Reason
	}

	for _, d := range scored {
		s.logger.Debug("document scored", "name", d.Name, "score", d.Score, "reason", d.Reason)
	}
	return scored, nil
}

// SelectDocuments returns the documents scoring at least threshold, highest
// first, at most limit of them. Equal scores keep their discovery order.
func SelectDocuments(scored []model.ScoredDocument, threshold float64, limit int) []model.ScoredDocument {
	ranked := make([]model.ScoredDocument, 0, len(scored))
	for _, d := range scored {
		if d.Score >= threshold {
			ranked = append(ranked, d)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if limit >= 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

const scorePrompt = taskScoreDocuments + `
You judge how important each document of a government meeting is for a
summary of that meeting. Give every document an integer score from 0 to 100:

- documents on the main agenda items: 80-100
- policy or strategy documents: 70-90
- data and statistics: 60-80
- reference and background material: 40-60
- material submitted by individual members: 30-50
- rosters, seating charts and other formalities: 0-20

Score every document in the list and refer to it by its number.

# Meeting
%s

# Documents
%s`
