// Package subagent holds the single-purpose workers the executor dispatches
// to: page discovery, document scoring, type detection, the slide and
// outline summarizers, and overview generation.
//
// Information Hiding:
// - Prompt wording and response schemas
// - Page batching and page-number bookkeeping
// - Fallbacks applied when a structured call gives up
package subagent

import (
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/richinex/govsummary/model"
)

// Summary is the result of one summarizer run.
type Summary struct {
	Title string
	Text  string
	Type  model.DocumentType
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// labelPages renders pages[from:to] with 1-based "--- page N ---" headers.
func labelPages(pages []string, from, to int) string {
	if to > len(pages) {
		to = len(pages)
	}
	var b strings.Builder
	for i := from; i < to; i++ {
		if i > from {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "--- page %d ---\n%s", i+1, pages[i])
	}
	return b.String()
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if n < 0 {
		n = 0
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// titleFromRef derives a display name from the last path element of a
// reference, without a .pdf extension.
func titleFromRef(ref string) string {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	base := path.Base(strings.TrimRight(ref, "/"))
	if strings.HasSuffix(strings.ToLower(base), ".pdf") {
		base = base[:len(base)-len(".pdf")]
	}
	if base == "." || base == "/" {
		return ref
	}
	return base
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
