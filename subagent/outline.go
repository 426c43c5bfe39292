package subagent

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/richinex/govsummary/internal/lang"
	"github.com/richinex/govsummary/llm"
	"github.com/richinex/govsummary/model"
)

const (
	outlineTitlePages = 5
	outlineTOCPages   = 10
	outlineReadPages  = 20
	// outlineChunkPages is the map step size of the full-text path.
	outlineChunkPages = 10

	// NoTOC is the sentinel the model answers when there is no table of
	// contents.
	NoTOC = "none"
)

const (
	taskOutlineTitle   = "## Task: extract the document title"
	taskExtractTOC     = "## Task: extract the table of contents"
	taskScoreSections  = "## Task: score table of contents sections"
	taskOutlineSummary = "## Task: summarize from the table of contents"
	taskChunkSummary   = "## Task: summarize a part of the document"
	taskReduceSummary  = "## Task: combine partial summaries"
)

type tocSection struct {
	Title  string `json:"section_title"`
	Page   *int   `json:"page_number,omitempty" jsonschema:"description=Page number from the table of contents if listed"`
	Score  int    `json:"score" jsonschema:"minimum=1,maximum=5"`
	Reason string `json:"reason"`
}

type tocSections struct {
	Sections []tocSection `json:"sections"`
}

// OutlineSummarizer summarizes text documents. When the document has a
// table of contents the summary is built from it, otherwise from the full
// text.
type OutlineSummarizer struct {
	client *llm.Client
	logger *slog.Logger
}

// NewOutlineSummarizer creates an outline summarizer using client.
func NewOutlineSummarizer(client *llm.Client) *OutlineSummarizer {
	return &OutlineSummarizer{client: client, logger: discardLogger()}
}

// WithLogger sets the logger.
func (s *OutlineSummarizer) WithLogger(logger *slog.Logger) *OutlineSummarizer {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Summarize extracts the title and table of contents, then takes the TOC
// branch or the full-text branch.
func (s *OutlineSummarizer) Summarize(ctx context.Context, pages []string) (Summary, error) {
	if len(pages) == 0 {
		return Summary{}, fmt.Errorf("no pages to summarize")
	}
	language := lang.Instruction(strings.Join(pages[:min(3, len(pages))], "\n"))

	title, err := s.client.Generate(ctx, fmt.Sprintf(outlineTitlePrompt, labelPages(pages, 0, outlineTitlePages)))
	if err != nil {
		return Summary{}, fmt.Errorf("failed to extract title: %w", err)
	}
	title = strings.Trim(strings.TrimSpace(title), "「」\"")

	toc, err := s.client.Generate(ctx, fmt.Sprintf(tocPrompt, labelPages(pages, 0, outlineTOCPages)))
	if err != nil {
		return Summary{}, fmt.Errorf("failed to extract table of contents: %w", err)
	}
	toc = strings.TrimSpace(toc)

	var text string
	if IsNoTOC(toc) {
		s.logger.Info("no table of contents, summarizing full text", "pages", len(pages))
		text, err = s.fullText(ctx, title, pages, language)
	} else {
		s.logger.Info("table of contents found", "title", title)
		text, err = s.fromTOC(ctx, title, toc, pages, language)
	}
	if err != nil {
		return Summary{}, err
	}
	return Summary{Title: title, Text: text, Type: model.DocumentWord}, nil
}

// IsNoTOC reports whether a table-of-contents answer means "none".
func IsNoTOC(toc string) bool {
	t := strings.ToLower(strings.Trim(toc, " \t\r\n`.\"'"))
	return t == "" || t == NoTOC
}

func (s *OutlineSummarizer) fromTOC(ctx context.Context, title, toc string, pages []string, language string) (string, error) {
	var content string
	sections, err := llm.GenerateStructured(ctx, s.client, "toc_sections", fmt.Sprintf(scoreSectionsPrompt, len(pages), toc), validateSections)
	if err != nil {
		s.logger.Warn("section scoring failed, summarizing from table of contents only", "error", err)
	} else if read := pagesToRead(sections.Sections, len(pages)); len(read) > 0 {
		s.logger.Info("reading important pages", "pages", read)
		var b strings.Builder
		for i, p := range read {
			if i > 0 {
				b.WriteString("\n\n")
			}
			fmt.Fprintf(&b, "--- page %d ---\n%s", p, pages[p-1])
		}
		content = b.String()
	} else {
		s.logger.Warn("no page numbers in table of contents, summarizing from it alone")
	}

	if content == "" {
		content = "(none; use the table of contents alone)"
	}
	text, err := s.client.Generate(ctx, fmt.Sprintf(outlineSummaryPrompt, title, toc, content, language))
	if err != nil {
		return "", fmt.Errorf("failed to summarize from table of contents: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func validateSections(t tocSections) error {
	for _, s := range t.Sections {
		if s.Score < 1 || s.Score > 5 {
			return fmt.Errorf("score %d for section %q out of range", s.Score, s.Title)
		}
	}
	return nil
}

// pagesToRead returns the pages around the important sections: those
// scored 4 or higher, or 3 or higher when none reach 4. Each listed page is
// widened by one page either side, clamped to the document, and the result
// is capped at the first 20 pages in ascending order.
func pagesToRead(sections []tocSection, totalPages int) []int {
	important := filterSections(sections, 4)
	if len(important) == 0 {
		important = filterSections(sections, 3)
	}

	set := make(map[int]bool)
	for _, sec := range important {
		if sec.Page == nil {
			continue
		}
		for p := *sec.Page - 1; p <= *sec.Page+1; p++ {
			if p >= 1 && p <= totalPages {
				set[p] = true
			}
		}
	}

	read := make([]int, 0, len(set))
	for p := range set {
		read = append(read, p)
	}
	sort.Ints(read)
	if len(read) > outlineReadPages {
		read = read[:outlineReadPages]
	}
	return read
}

func filterSections(sections []tocSection, minScore int) []tocSection {
	var out []tocSection
	for _, s := range sections {
		if s.Score >= minScore {
			out = append(out, s)
		}
	}
	return out
}

// fullText summarizes every page: chunks are summarized one by one and the
// partial summaries combined. A document that fits one chunk takes one call.
func (s *OutlineSummarizer) fullText(ctx context.Context, title string, pages []string, language string) (string, error) {
	if len(pages) <= outlineChunkPages {
		text, err := s.client.Generate(ctx, fmt.Sprintf(chunkSummaryPrompt, title, labelPages(pages, 0, len(pages)), language))
		if err != nil {
			return "", fmt.Errorf("failed to summarize full text: %w", err)
		}
		return strings.TrimSpace(text), nil
	}

	var partials []string
	for start := 0; start < len(pages); start += outlineChunkPages {
		end := min(start+outlineChunkPages, len(pages))
		text, err := s.client.Generate(ctx, fmt.Sprintf(chunkSummaryPrompt, title, labelPages(pages, start, end), language))
		if err != nil {
			return "", fmt.Errorf("failed to summarize pages %d-%d: %w", start+1, end, err)
		}
		partials = append(partials, fmt.Sprintf("[pages %d-%d]\n%s", start+1, end, strings.TrimSpace(text)))
	}
	s.logger.Debug("partial summaries written", "chunks", len(partials))

	text, err := s.client.Generate(ctx, fmt.Sprintf(reducePrompt, title, strings.Join(partials, "\n\n"), language))
	if err != nil {
		return "", fmt.Errorf("failed to combine partial summaries: %w", err)
	}
	return strings.TrimSpace(text), nil
}

const outlineTitlePrompt = taskOutlineTitle + `
Extract the title of the document from its first pages. Leave out the
subtitle, organization and date. Output the title only.

%s`

const tocPrompt = taskExtractTOC + `
Find the table of contents in the pages below (look for 目次, Contents,
もくじ or a hierarchical list of chapters and sections). Reproduce it with
its hierarchy and keep every page number, one entry per line, for example:

1. はじめに ...... 1
2. 背景 ...... 3
  2.1 現状の課題 ...... 3

Write "(no page)" for entries without a page number. If the pages contain no
table of contents, answer exactly ` + NoTOC + `.

%s`

const scoreSectionsPrompt = taskScoreSections + `
Score every section of the table of contents below from 1 to 5 for how much
it contributes to a summary of the document (%d pages in total):

5: conclusions, recommendations, basic policy, goals, future direction
4: background, issues, outline of main measures, results, key points
3: analysis of the current state, highlights of individual measures
2: details of individual measures, glossaries
1: appendices, acknowledgements, contacts, the table of contents itself

Give the page number of each section when the table lists one.

# Table of contents
%s`

const outlineSummaryPrompt = taskOutlineSummary + `
You summarize documents. Write a detailed summary of the document titled
"%s" from its table of contents and the important pages below: purpose and
background, main issues, policy and goals, concrete measures, results and
conclusions. Use only what is given and keep numbers and proper nouns
exact. Output prose only, 500-3000 characters.

# Table of contents
%s

# Important pages
%s

%s`

const chunkSummaryPrompt = taskChunkSummary + `
Summarize the following pages of the document titled "%s" in detail. Keep
numbers and proper nouns exact and use only what the pages say.

%s

%s`

const reducePrompt = taskReduceSummary + `
Combine the partial summaries of the document titled "%s" below into one
coherent summary of 500-5000 characters. Remove repetition and keep every
important figure and conclusion.

%s

%s`
