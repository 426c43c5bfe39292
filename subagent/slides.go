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
	// DefaultSlideBatchSize is how many pages are scored per call.
	DefaultSlideBatchSize = 20

	slideTitlePages  = 3
	slideExtraPicks  = 2
	slideKeywordBase = 4
)

const (
	taskSlideTitle   = "## Task: extract the presentation title"
	taskScoreSlides  = "## Task: score slide importance"
	taskSlideSummary = "## Task: summarize the selected slides"
)

// BasicKeywords mark slide titles that are worth reading next to the
// top-scored slides.
var BasicKeywords = []string{"概要", "基本方針", "ポイント", "要求", "予算", "全体", "総額", "方針", "要点", "まとめ"}

// titleKeywords adds keywords when the deck title contains a trigger.
var titleKeywords = []struct {
	triggers []string
	keywords []string
}{
	{[]string{"予算"}, []string{"概算要求", "要求額", "府省庁別", "要求"}},
	{[]string{"国土強靱化"}, []string{"国土強靱化", "防災", "強靱化"}},
	{[]string{"施策", "政策"}, []string{"施策", "政策", "取組", "対策"}},
}

// Keywords returns the basic keywords, those implied by the deck title and
// any extra ones, without duplicates.
func Keywords(title string, extra []string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(words ...string) {
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" && !seen[w] {
				seen[w] = true
				out = append(out, w)
			}
		}
	}
	add(BasicKeywords...)
	lower := strings.ToLower(title)
	for _, tk := range titleKeywords {
		for _, trigger := range tk.triggers {
			if strings.Contains(lower, trigger) {
				add(tk.keywords...)
				break
			}
		}
	}
	add(extra...)
	return out
}

// SelectSlides picks the pages to summarize from: every slide at the top
// score, plus up to two more slides scoring 4 or higher whose title contains
// a keyword. Pages are returned in ascending order. With no scored slides
// every page 1..totalPages is returned.
func SelectSlides(slides []model.SlideInfo, keywords []string, totalPages int) []int {
	valid := make([]model.SlideInfo, 0, len(slides))
	seen := make(map[int]bool)
	for _, s := range slides {
		if s.Page < 1 || s.Page > totalPages || seen[s.Page] {
			continue
		}
		seen[s.Page] = true
		valid = append(valid, s)
	}

	if len(valid) == 0 {
		pages := make([]int, totalPages)
		for i := range pages {
			pages[i] = i + 1
		}
		return pages
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Score > valid[j].Score
	})
	top := valid[0].Score

	var pages []int
	extra := 0
	for _, s := range valid {
		switch {
		case s.Score == top:
			pages = append(pages, s.Page)
		case extra < slideExtraPicks && s.Score >= slideKeywordBase && matchesAny(s.Title, keywords):
			pages = append(pages, s.Page)
			extra++
		}
	}
	sort.Ints(pages)
	return pages
}

func matchesAny(title string, keywords []string) bool {
	lower := strings.ToLower(title)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// BatchObserver is told about every scored slide batch.
type BatchObserver interface {
	ObserveSlideBatch(err error)
}

type slideBatch struct {
	Slides []model.SlideInfo `json:"slides"`
}

// SlideSummarizer summarizes presentation decks from their most important
// slides.
type SlideSummarizer struct {
	client    *llm.Client
	batchSize int
	extra     []string
	observer  BatchObserver
	logger    *slog.Logger
}

// NewSlideSummarizer creates a slide summarizer using client.
func NewSlideSummarizer(client *llm.Client) *SlideSummarizer {
	return &SlideSummarizer{
		client:    client,
		batchSize: DefaultSlideBatchSize,
		logger:    discardLogger(),
	}
}

// WithBatchSize sets how many pages are scored per call.
func (s *SlideSummarizer) WithBatchSize(n int) *SlideSummarizer {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

// WithKeywords adds importance keywords.
func (s *SlideSummarizer) WithKeywords(extra []string) *SlideSummarizer {
	s.extra = extra
	return s
}

// WithObserver sets an observer notified after every batch.
func (s *SlideSummarizer) WithObserver(observer BatchObserver) *SlideSummarizer {
	s.observer = observer
	return s
}

// WithLogger sets the logger.
func (s *SlideSummarizer) WithLogger(logger *slog.Logger) *SlideSummarizer {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// ScoreSlides rates every page 1-5 in batches. Each batch must describe
// each of its pages exactly once; a batch that still fails after retries is
// skipped, so the result may cover only part of the deck.
func (s *SlideSummarizer) ScoreSlides(ctx context.Context, pages []string) []model.SlideInfo {
	var scored []model.SlideInfo
	for start := 0; start < len(pages); start += s.batchSize {
		end := min(start+s.batchSize, len(pages))

		batch, err := s.scoreBatch(ctx, pages, start, end)
		if s.observer != nil {
			s.observer.ObserveSlideBatch(err)
		}
		if err != nil {
			s.logger.Warn("slide batch failed, skipping", "first_page", start+1, "last_page", end, "error", err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		scored = append(scored, batch...)
	}
	s.logger.Info("slides scored", "scored", len(scored), "pages", len(pages))
	return scored
}

func (s *SlideSummarizer) scoreBatch(ctx context.Context, pages []string, start, end int) ([]model.SlideInfo, error) {
	validate := func(b slideBatch) error {
		if len(b.Slides) != end-start {
			return fmt.Errorf("expected %d slides, got %d", end-start, len(b.Slides))
		}
		seen := make(map[int]bool, len(b.Slides))
		for _, slide := range b.Slides {
			if slide.Page < start+1 || slide.Page > end {
				return fmt.Errorf("page %d outside batch %d-%d", slide.Page, start+1, end)
			}
			if seen[slide.Page] {
				return fmt.Errorf("page %d scored twice", slide.Page)
			}
			seen[slide.Page] = true
			if slide.Score < 1 || slide.Score > 5 {
				return fmt.Errorf("score %d for page %d out of range", slide.Score, slide.Page)
			}
		}
		return nil
	}

	prompt := fmt.Sprintf(scoreSlidesPrompt, start+1, end, labelPages(pages, start, end))
	batch, err := llm.GenerateStructured(ctx, s.client, "slide_scores", prompt, validate)
	if err != nil {
		return nil, err
	}
	return batch.Slides, nil
}

// Summarize extracts the deck title, scores and selects slides, and writes
// a summary from the selected pages.
func (s *SlideSummarizer) Summarize(ctx context.Context, pages []string) (Summary, error) {
	if len(pages) == 0 {
		return Summary{}, fmt.Errorf("no pages to summarize")
	}

	n := min(slideTitlePages, len(pages))
	title, err := s.client.Generate(ctx, fmt.Sprintf(slideTitlePrompt, labelPages(pages, 0, n)))
	if err != nil {
		return Summary{}, fmt.Errorf("failed to extract title: %w", err)
	}
	title = strings.Trim(strings.TrimSpace(title), "「」\"")

	slides := s.ScoreSlides(ctx, pages)
	selected := SelectSlides(slides, Keywords(title, s.extra), len(pages))
	s.logger.Info("slides selected", "title", title, "pages", selected, "total", len(pages))

	byPage := make(map[int]model.SlideInfo, len(slides))
	for _, slide := range slides {
		byPage[slide.Page] = slide
	}
	var content strings.Builder
	for i, p := range selected {
		if i > 0 {
			content.WriteString("\n\n")
		}
		if slide, ok := byPage[p]; ok {
			fmt.Fprintf(&content, "--- page %d (%s, score %d) ---\n%s", p, slide.Title, slide.Score, pages[p-1])
		} else {
			fmt.Fprintf(&content, "--- page %d ---\n%s", p, pages[p-1])
		}
	}

	text, err := s.client.Generate(ctx, fmt.Sprintf(slideSummaryPrompt, title, content.String(), lang.Instruction(content.String())))
	if err != nil {
		return Summary{}, fmt.Errorf("failed to summarize slides: %w", err)
	}
	return Summary{Title: title, Text: strings.TrimSpace(text), Type: model.DocumentPowerPoint}, nil
}

const slideTitlePrompt = taskSlideTitle + `
Extract the formal title of the presentation from its first pages. Include a
subtitle if there is one; leave out the organization, date and page numbers.
Do not reword the title. Output the title only, on one line.

%s`

const scoreSlidesPrompt = taskScoreSlides + `
For every page from %d to %d below, extract the slide title (or a short
description of its subject) and rate its importance for a summary:

5: agenda, table of contents, section headings, main issues, conclusions
4: overview, basic policy, key points, priority issues, schedule, content
   directly about the deck title
3: background, problems, analysis, outline of individual measures
2: detailed explanations, case studies, supplementary material
1: cover page, administrative notes

Return exactly one entry per page with its page number, title, score and a
short reason.

%s`

const slideSummaryPrompt = taskSlideSummary + `
You summarize presentation material. Write a detailed summary of the deck
titled "%s" from the important slides below: purpose and structure, the
main issues or measures, every figure (targets, budgets, counts, dates) and
the conclusions or next steps. Use only what the slides say and keep proper
nouns and numbers exact. Output prose only, without headings, 1000-3000
characters.

# Selected slides
%s

%s`
