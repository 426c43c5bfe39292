package subagent

import (
	"context"
	"log/slog"
	"strings"

	"github.com/richinex/govsummary/loader"
	"github.com/richinex/govsummary/model"
)

// Summarizer turns the pages of one document into a summary.
type Summarizer interface {
	Summarize(ctx context.Context, pages []string) (Summary, error)
}

// DocumentSummarizer loads a document, detects its type and hands it to the
// matching summarizer.
type DocumentSummarizer struct {
	pages    loader.PageLoader
	detector *TypeDetector
	slides   Summarizer
	outline  Summarizer
	logger   *slog.Logger
}

// NewDocumentSummarizer wires the loading, detection and summarizing steps.
func NewDocumentSummarizer(pages loader.PageLoader, detector *TypeDetector, slides, outline Summarizer) *DocumentSummarizer {
	return &DocumentSummarizer{
		pages:    pages,
		detector: detector,
		slides:   slides,
		outline:  outline,
		logger:   discardLogger(),
	}
}

// WithLogger sets the logger.
func (s *DocumentSummarizer) WithLogger(logger *slog.Logger) *DocumentSummarizer {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Summarize produces the summary of the document at ref. Documents
// discovered as agenda are passed through as raw text. Otherwise
// presentation decks go to the slide summarizer and everything else,
// detected agendas included, to the outline summarizer. name is used when
// no title is found.
func (s *DocumentSummarizer) Summarize(ctx context.Context, ref string, category model.Category, name string) (model.DocumentSummary, error) {
	pages, err := s.pages.LoadPages(ctx, ref)
	if err != nil {
		return model.DocumentSummary{}, err
	}
	s.logger.Info("document loaded", "ref", ref, "pages", len(pages), "category", category)

	if category == model.CategoryAgenda {
		return passthrough(ref, category, pages), nil
	}

	detection := s.detector.Detect(ctx, pages)

	summarizer := s.outline
	if detection.Type == model.DocumentPowerPoint {
		summarizer = s.slides
	}

	summary, err := summarizer.Summarize(ctx, pages)
	if err != nil {
		return model.DocumentSummary{}, err
	}

	result := model.DocumentSummary{
		URL:          ref,
		Name:         firstNonEmpty(summary.Title, name, titleFromRef(ref)),
		SummaryText:  summary.Text,
		DocumentType: detection.Type.Label(),
		Category:     category,
	}
	s.logger.Info("document summarized", "summary", result.String())
	return result, nil
}

// passthrough uses an agenda's own text as its summary.
func passthrough(ref string, category model.Category, pages []string) model.DocumentSummary {
	return model.DocumentSummary{
		URL:          ref,
		Name:         titleFromRef(ref),
		SummaryText:  strings.Join(pages, "\n\n"),
		DocumentType: model.DocumentAgenda.Label(),
		Category:     category,
	}
}
