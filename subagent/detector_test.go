package subagent

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/richinex/govsummary/model"
	"pgregory.net/rapid"
)

func TestDetectPicksHighestScore(t *testing.T) {
	p, client := scriptedFor(t)
	p.On(taskDetectType, typeScores(t, map[string]int{"powerpoint": 5, "word": 3}))

	detection := NewTypeDetector(client).Detect(context.Background(), pagesOf(3, "slide %d"))
	if detection.Type != model.DocumentPowerPoint {
		t.Errorf("expected powerpoint, got %s", detection.Type)
	}
	if detection.Confidence[model.DocumentPowerPoint] != 1.0 {
		t.Errorf("expected confidence 1.0, got %v", detection.Confidence[model.DocumentPowerPoint])
	}
	if detection.Confidence[model.DocumentWord] != 0.6 {
		t.Errorf("expected word confidence 0.6, got %v", detection.Confidence[model.DocumentWord])
	}
}

func TestDetectTieBreak(t *testing.T) {
	tests := []struct {
		name   string
		scores map[string]int
		want   model.DocumentType
	}{
		{"word beats powerpoint", map[string]int{"word": 4, "powerpoint": 4}, model.DocumentWord},
		{"powerpoint beats agenda", map[string]int{"agenda": 5, "powerpoint": 5}, model.DocumentPowerPoint},
		{"news beats survey", map[string]int{"survey": 3, "news": 3}, model.DocumentNews},
		{"all equal", map[string]int{}, model.DocumentWord},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, client := scriptedFor(t)
			p.On(taskDetectType, typeScores(t, tt.scores))

			if got := NewTypeDetector(client).Detect(context.Background(), []string{"text"}).Type; got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestDetectReadsAtMostTenPages(t *testing.T) {
	p, client := scriptedFor(t)
	p.On(taskDetectType, typeScores(t, map[string]int{"word": 5}))

	NewTypeDetector(client).Detect(context.Background(), pagesOf(30, "body of page %d"))

	prompt := p.Calls()[0]
	if !strings.Contains(prompt, "--- page 10 ---") || strings.Contains(prompt, "--- page 11 ---") {
		t.Error("expected exactly the first 10 pages in the prompt")
	}
}

func TestDetectFallsBackToOther(t *testing.T) {
	p, client := scriptedFor(t)
	p.On(taskDetectType, "I think this is a slide deck.")

	detection := NewTypeDetector(client).Detect(context.Background(), []string{"text"})
	if detection.Type != model.DocumentOther {
		t.Errorf("expected other, got %s", detection.Type)
	}
	if len(detection.Confidence) != 0 {
		t.Errorf("expected zero confidence, got %v", detection.Confidence)
	}
	if got := p.CallsMatching(taskDetectType); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestDetectRejectsOutOfRangeScores(t *testing.T) {
	p, client := scriptedFor(t)
	p.On(taskDetectType,
		typeScores(t, map[string]int{"word": 9}),
		typeScores(t, map[string]int{"survey": 4}),
	)

	detection := NewTypeDetector(client).Detect(context.Background(), []string{"text"})
	if detection.Type != model.DocumentSurvey {
		t.Errorf("expected the retried answer to win, got %s", detection.Type)
	}
}

func TestDecideAlwaysReturnsKnownType(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		draw := func(name string) typeAssessment {
			return typeAssessment{Score: rapid.IntRange(1, 5).Draw(rt, name)}
		}
		analysis := typeAnalysis{
			Word: draw("word"), PowerPoint: draw("powerpoint"), Agenda: draw("agenda"),
			Participants: draw("participants"), News: draw("news"), Survey: draw("survey"), Other: draw("other"),
		}

		detection := decide(analysis)
		if !slices.Contains(model.DocumentTypes, detection.Type) {
			rt.Fatalf("unknown type %q", detection.Type)
		}

		best := 0
		for _, typ := range model.DocumentTypes {
			best = max(best, detection.Scores[typ])
		}
		if detection.Scores[detection.Type] != best {
			rt.Fatalf("%s scored %d but best is %d", detection.Type, detection.Scores[detection.Type], best)
		}
		for _, typ := range model.DocumentTypes {
			if typ == detection.Type {
				break
			}
			if detection.Scores[typ] == best {
				rt.Fatalf("%s should have won the tie over %s", typ, detection.Type)
			}
		}
	})
}
