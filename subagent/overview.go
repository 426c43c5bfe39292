package subagent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/richinex/govsummary/internal/lang"
	"github.com/richinex/govsummary/llm"
	"github.com/richinex/govsummary/model"
)

const (
	overviewMainContentChars = 8000
	overviewContextChars     = 15000

	// NoContent stands in for an overview when the page offered nothing.
	NoContent = "(no content)"
)

const taskOverview = "## Task: write the meeting overview"

// OverviewInput is everything the overview is written from.
type OverviewInput struct {
	PageURL         string
	MainContent     string
	EmbeddedAgenda  string
	EmbeddedMinutes string
	// Summaries of already processed documents; only agenda and minutes
	// are used.
	Summaries []model.DocumentSummary
}

// OverviewContext assembles the prompt context: main content capped at
// 8000 characters, inline agenda and minutes, then agenda and minutes
// document summaries, all capped at 15000 characters. It returns "" when
// there is nothing to say.
func OverviewContext(in OverviewInput) string {
	var parts []string
	if s := strings.TrimSpace(in.MainContent); s != "" {
		parts = append(parts, "# Meeting page\n\n"+truncateRunes(s, overviewMainContentChars))
	}
	if s := strings.TrimSpace(in.EmbeddedAgenda); s != "" {
		parts = append(parts, "# Agenda (on page)\n\n"+s)
	}
	if s := strings.TrimSpace(in.EmbeddedMinutes); s != "" {
		parts = append(parts, "# Minutes (on page)\n\n"+s)
	}
	for _, doc := range in.Summaries {
		label := ""
		switch doc.Category {
		case model.CategoryAgenda:
			label = "Agenda"
		case model.CategoryMinutes:
			label = "Minutes"
		default:
			continue
		}
		parts = append(parts, fmt.Sprintf("# %s (document: %s)\n\n%s", label, doc.Name, doc.SummaryText))
	}
	return truncateRunes(strings.Join(parts, "\n\n"), overviewContextChars)
}

// OverviewGenerator writes the meeting overview.
type OverviewGenerator struct {
	client *llm.Client
	logger *slog.Logger
}

// NewOverviewGenerator creates a generator using client.
func NewOverviewGenerator(client *llm.Client) *OverviewGenerator {
	return &OverviewGenerator{client: client, logger: discardLogger()}
}

// WithLogger sets the logger.
func (g *OverviewGenerator) WithLogger(logger *slog.Logger) *OverviewGenerator {
	if logger != nil {
		g.logger = logger
	}
	return g
}

// Generate writes the overview. With no context at all it returns NoContent
// without calling the model.
func (g *OverviewGenerator) Generate(ctx context.Context, in OverviewInput) (string, error) {
	meeting := OverviewContext(in)
	if meeting == "" {
		g.logger.Warn("no content available for overview", "url", in.PageURL)
		return NoContent, nil
	}

	overview, err := g.client.Generate(ctx, fmt.Sprintf(overviewPrompt, in.PageURL, meeting, lang.Instruction(meeting)))
	if err != nil {
		return "", fmt.Errorf("failed to generate overview: %w", err)
	}
	overview = strings.TrimSpace(overview)
	g.logger.Info("overview generated", "chars", len([]rune(overview)))
	return overview, nil
}

const overviewPrompt = taskOverview + `
You summarize government meetings. Write an overview of the meeting below:
its name and organizing body, date and place, the topics, the main points
discussed, decisions and next steps. State what kind of meeting it is.
Use only the information given. Output plain prose of 500-1500 characters
without markdown headings.

Page URL: %s

# Meeting information
%s

%s`
