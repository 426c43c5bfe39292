package subagent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/richinex/govsummary/llm"
	"github.com/richinex/govsummary/model"
)

// detectPages is how many leading pages the detector reads.
const detectPages = 10

const taskDetectType = "## Task: classify the document type"

type typeAssessment struct {
	Score    int    `json:"score" jsonschema:"minimum=1,maximum=5,description=How strongly the document shows this type's traits (1-5)"`
	Reason   string `json:"reason" jsonschema:"description=Why this score was given"`
	Evidence string `json:"evidence" jsonschema:"description=Text quoted from the document"`
}

type typeAnalysis struct {
	Word         typeAssessment `json:"word"`
	PowerPoint   typeAssessment `json:"powerpoint"`
	Agenda       typeAssessment `json:"agenda"`
	Participants typeAssessment `json:"participants"`
	News         typeAssessment `json:"news"`
	Survey       typeAssessment `json:"survey"`
	Other        typeAssessment `json:"other"`
	Conclusion   string         `json:"conclusion" jsonschema:"description=The most likely type name"`
}

func (a typeAnalysis) byType() map[model.DocumentType]typeAssessment {
	return map[model.DocumentType]typeAssessment{
		model.DocumentWord:         a.Word,
		model.DocumentPowerPoint:   a.PowerPoint,
		model.DocumentAgenda:       a.Agenda,
		model.DocumentParticipants: a.Participants,
		model.DocumentNews:         a.News,
		model.DocumentSurvey:       a.Survey,
		model.DocumentOther:        a.Other,
	}
}

func validateTypeAnalysis(a typeAnalysis) error {
	for t, assessment := range a.byType() {
		if assessment.Score < 1 || assessment.Score > 5 {
			return fmt.Errorf("score for %s out of range: %d", t, assessment.Score)
		}
	}
	return nil
}

// Detection is the outcome of type detection. Confidence holds score/5 for
// every type; it is empty when detection fell back.
type Detection struct {
	Type       model.DocumentType
	Scores     map[model.DocumentType]int
	Confidence map[model.DocumentType]float64
	Reason     string
}

// TypeDetector classifies a document into one of the seven document types.
type TypeDetector struct {
	client *llm.Client
	logger *slog.Logger
}

// NewTypeDetector creates a detector using client.
func NewTypeDetector(client *llm.Client) *TypeDetector {
	return &TypeDetector{client: client, logger: discardLogger()}
}

// WithLogger sets the logger.
func (d *TypeDetector) WithLogger(logger *slog.Logger) *TypeDetector {
	if logger != nil {
		d.logger = logger
	}
	return d
}

// Detect scores every type from the first pages and returns the best one.
// It never fails: when the model cannot produce a valid analysis the result
// is DocumentOther with zero confidence.
func (d *TypeDetector) Detect(ctx context.Context, pages []string) Detection {
	fallback := Detection{
		Type:       model.DocumentOther,
		Scores:     map[model.DocumentType]int{},
		Confidence: map[model.DocumentType]float64{},
	}
	if len(pages) == 0 {
		fallback.Reason = "no pages"
		return fallback
	}

	n := min(detectPages, len(pages))
	prompt := fmt.Sprintf(detectPrompt, len(pages), n, labelPages(pages, 0, n))

	analysis, err := llm.GenerateStructured(ctx, d.client, "document_type_analysis", prompt, validateTypeAnalysis)
	if err != nil {
		d.logger.Warn("type detection failed, using other", "error", err)
		fallback.Reason = err.Error()
		return fallback
	}

	detection := decide(analysis)
	d.logger.Info("document type detected", "type", detection.Type, "scores", detection.Scores)
	return detection
}

// decide picks the highest-scoring type; ties go to the type listed first
// in model.DocumentTypes.
func decide(a typeAnalysis) Detection {
	assessments := a.byType()
	detection := Detection{
		Type:       model.DocumentOther,
		Scores:     make(map[model.DocumentType]int, len(assessments)),
		Confidence: make(map[model.DocumentType]float64, len(assessments)),
	}

	best := 0
	for _, t := range model.DocumentTypes {
		assessment := assessments[t]
		detection.Scores[t] = assessment.Score
		detection.Confidence[t] = float64(assessment.Score) / 5
		if assessment.Score > best {
			best = assessment.Score
			detection.Type = t
			detection.Reason = assessment.Reason
		}
	}
	return detection
}

const detectPrompt = taskDetectType + `
You classify government PDF documents. Score the text below against each of
the seven types from 1 (no traits) to 5 (many clear traits).

1. word: full sentences in paragraphs; reports, minutes, guidelines.
2. powerpoint: one titled slide per page, bullet points, noun-phrase endings.
3. agenda: list of meeting items, date and place, list of handouts.
4. participants: member or attendee roster making up most of the content.
5. news: press release with date, department and contact details.
6. survey: questions with tabulated answers and statistics.
7. other: none of the above.

When deciding between powerpoint and word: mostly bullets or clear page
titles means powerpoint; runs of three or more full sentences mean word.
Avoid giving several types the same top score.

Total pages: %d
Pages analysed: first %d

%s`
