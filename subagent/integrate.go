package subagent

import (
	"fmt"
	"strings"

	"github.com/richinex/govsummary/model"
)

// NoSummary is the integrated text of a run that produced nothing.
const NoSummary = "(no summary)"

// Ellipsis marks a truncated summary.
const Ellipsis = "..."

// Integrate joins the overview and the document summaries, in the order
// given, under fixed headers.
func Integrate(overview string, summaries []model.DocumentSummary) string {
	var parts []string
	if strings.TrimSpace(overview) != "" {
		parts = append(parts, overview)
	}
	if len(summaries) > 0 {
		parts = append(parts, "\n\n---\n\n## Related documents")
		for _, doc := range summaries {
			parts = append(parts, fmt.Sprintf("\n\n### %s", doc.Name))
			if doc.DocumentType != "" {
				parts = append(parts, fmt.Sprintf("\n(%s)", doc.DocumentType))
			}
			parts = append(parts, "\n\n"+doc.SummaryText)
		}
	}
	if len(parts) == 0 {
		return NoSummary
	}
	return strings.Join(parts, "\n")
}

// Truncate cuts text to at most maxChars characters. A cut text ends in
// an ellipsis that counts toward the limit.
func Truncate(text string, maxChars int) string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	keep := maxChars - len(Ellipsis)
	if keep < 0 {
		return string(runes[:max(maxChars, 0)])
	}
	return string(runes[:keep]) + Ellipsis
}
