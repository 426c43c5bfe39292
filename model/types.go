// Package model provides domain types shared across packages.
package model

import (
	"fmt"
	"strings"
)

// InputKind distinguishes a meeting page from a standalone document.
type InputKind string

const (
	InputPage           InputKind = "page"
	InputSingleDocument InputKind = "single_document"
)

// KindOf infers the input kind from a reference. References ending in .pdf
// are single documents, everything else is treated as a page.
func KindOf(reference string) InputKind {
	ref := strings.ToLower(reference)
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	if strings.HasSuffix(ref, ".pdf") {
		return InputSingleDocument
	}
	return InputPage
}

// Category classifies a document linked from a meeting page.
type Category string

const (
	CategoryAgenda           Category = "agenda"
	CategoryMinutes          Category = "minutes"
	CategoryExecutiveSummary Category = "executive_summary"
	CategoryMaterial         Category = "material"
	CategoryReference        Category = "reference"
	CategoryParticipants     Category = "participants"
	CategorySeating          Category = "seating"
	CategoryOther            Category = "other"
)

// Categories lists every discovery category.
var Categories = []Category{
	CategoryAgenda,
	CategoryMinutes,
	CategoryExecutiveSummary,
	CategoryMaterial,
	CategoryReference,
	CategoryParticipants,
	CategorySeating,
	CategoryOther,
}

// ParseCategory maps free-form model output onto the closed category set.
// Unknown values become CategoryOther.
func ParseCategory(s string) Category {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for _, c := range Categories {
		if string(c) == normalized {
			return c
		}
	}
	return CategoryOther
}

// IsPrimary reports whether documents of this category are always summarized.
func (c Category) IsPrimary() bool {
	return c == CategoryAgenda || c == CategoryMinutes
}

// DocumentType is the detected layout/genre of a document.
type DocumentType string

const (
	DocumentWord         DocumentType = "word"
	DocumentPowerPoint   DocumentType = "powerpoint"
	DocumentAgenda       DocumentType = "agenda"
	DocumentParticipants DocumentType = "participants"
	DocumentNews         DocumentType = "news"
	DocumentSurvey       DocumentType = "survey"
	DocumentOther        DocumentType = "other"
)

// DocumentTypes lists all document types in tie-break order: when two types
// receive the same detection score, the earlier one wins.
var DocumentTypes = []DocumentType{
	DocumentWord,
	DocumentPowerPoint,
	DocumentAgenda,
	DocumentParticipants,
	DocumentNews,
	DocumentSurvey,
	DocumentOther,
}

// Label returns the human-readable name used in integrated summaries.
func (d DocumentType) Label() string {
	switch d {
	case DocumentWord:
		return "Word"
	case DocumentPowerPoint:
		return "PowerPoint"
	case DocumentAgenda:
		return "Agenda"
	case DocumentParticipants:
		return "Participants"
	case DocumentNews:
		return "News"
	case DocumentSurvey:
		return "Survey"
	default:
		return "Other"
	}
}

// DiscoveredDocument is a related-document link found on a meeting page.
type DiscoveredDocument struct {
	URL      string   `json:"url"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
}

// ScoredDocument is a discovered document with a relevance score (0-100).
type ScoredDocument struct {
	DiscoveredDocument
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// SlideInfo is the importance assessment of one page of a slide deck.
type SlideInfo struct {
	Page   int    `json:"page"`
	Title  string `json:"title"`
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

// DocumentSummary is the summary of a single document. Category is the
// discovery category the document was planned under, empty for a
// standalone document.
type DocumentSummary struct {
	URL          string   `json:"url"`
	Name         string   `json:"name"`
	SummaryText  string   `json:"summary_text"`
	DocumentType string   `json:"document_type"`
	Category     Category `json:"category,omitempty"`
}

// String returns a short description for logging.
func (d DocumentSummary) String() string {
	return fmt.Sprintf("%s (%s, %d chars)", d.Name, d.DocumentType, len([]rune(d.SummaryText)))
}
