package subagent

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/richinex/govsummary/model"
)

func intPtr(i int) *int { return &i }

func TestIsNoTOC(t *testing.T) {
	for _, s := range []string{"none", "None", " NONE.\n", "```none```", ""} {
		if !IsNoTOC(s) {
			t.Errorf("IsNoTOC(%q) = false, want true", s)
		}
	}
	if IsNoTOC("1. はじめに ...... 1") {
		t.Error("a real table of contents was taken for none")
	}
}

func TestPagesToRead(t *testing.T) {
	tests := []struct {
		name     string
		sections []tocSection
		total    int
		want     []int
	}{
		{
			name: "high scores widened by one page",
			sections: []tocSection{
				{Title: "はじめに", Page: intPtr(1), Score: 2},
				{Title: "基本方針", Page: intPtr(5), Score: 5},
				{Title: "主な施策", Page: intPtr(6), Score: 4},
				{Title: "まとめ", Page: intPtr(12), Score: 5},
			},
			total: 12,
			want:  []int{4, 5, 6, 7, 11, 12},
		},
		{
			name: "falls back to score 3",
			sections: []tocSection{
				{Title: "現状", Page: intPtr(3), Score: 3},
				{Title: "付録", Page: intPtr(9), Score: 1},
			},
			total: 10,
			want:  []int{2, 3, 4},
		},
		{
			name: "sections without page numbers",
			sections: []tocSection{
				{Title: "まとめ", Score: 5},
			},
			total: 10,
			want:  []int{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, pagesToRead(tt.sections, tt.total)); diff != "" {
				t.Errorf("pages mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPagesToReadCapsAtTwenty(t *testing.T) {
	var sections []tocSection
	for p := 2; p <= 60; p += 3 {
		sections = append(sections, tocSection{Page: intPtr(p), Score: 5})
	}
	read := pagesToRead(sections, 60)
	if len(read) != 20 || read[0] != 1 || read[19] != 20 {
		t.Errorf("expected pages 1-20, got %v", read)
	}
}

func TestOutlineSummarizeWithTOC(t *testing.T) {
	p, client := scriptedFor(t)
	p.On(taskOutlineTitle, "デジタル社会の実現に向けた重点計画")
	p.On(taskExtractTOC, "1. はじめに ...... 1\n2. 基本方針 ...... 3\n3. 付録 ...... 8")
	p.On(taskScoreSections, `{"sections": [
		{"section_title": "はじめに", "page_number": 1, "score": 2, "reason": "intro"},
		{"section_title": "基本方針", "page_number": 3, "score": 5, "reason": "policy"},
		{"section_title": "付録", "page_number": 8, "score": 1, "reason": "appendix"}
	]}`)
	p.On(taskOutlineSummary, "The plan sets out the basic policy.")

	summary, err := NewOutlineSummarizer(client).Summarize(context.Background(), pagesOf(10, "body %d"))
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if summary.Text != "The plan sets out the basic policy." || summary.Type != model.DocumentWord {
		t.Errorf("unexpected summary %+v", summary)
	}

	calls := p.Calls()
	final := calls[len(calls)-1]
	for _, want := range []string{"--- page 2 ---", "--- page 3 ---", "--- page 4 ---"} {
		if !strings.Contains(final, want) {
			t.Errorf("expected %q in the summary prompt", want)
		}
	}
	if strings.Contains(final, "--- page 8 ---") {
		t.Error("low-scored section pages should not be read")
	}
	if p.CallsMatching(taskChunkSummary) != 0 {
		t.Error("the TOC branch must not run the full-text path")
	}
}

func TestOutlineSummarizeTOCOnlyWhenScoringFails(t *testing.T) {
	p, client := scriptedFor(t)
	p.On(taskOutlineTitle, "Guideline")
	p.On(taskExtractTOC, "1. Scope\n2. Rules")
	p.On(taskScoreSections, "sorry")
	p.On(taskOutlineSummary, "TOC-based summary")

	summary, err := NewOutlineSummarizer(client).Summarize(context.Background(), pagesOf(4, "body %d"))
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if summary.Text != "TOC-based summary" {
		t.Errorf("unexpected summary %q", summary.Text)
	}
	calls := p.Calls()
	if strings.Contains(calls[len(calls)-1], "--- page") {
		t.Error("expected no body pages when section scoring failed")
	}
}

func TestOutlineSummarizeFullText(t *testing.T) {
	p, client := scriptedFor(t)
	p.On(taskOutlineTitle, "Notice")
	p.On(taskExtractTOC, "none")
	p.On(taskChunkSummary, "short document summary")

	summary, err := NewOutlineSummarizer(client).Summarize(context.Background(), pagesOf(6, "body %d"))
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if summary.Text != "short document summary" {
		t.Errorf("unexpected summary %q", summary.Text)
	}
	if p.CallsMatching(taskChunkSummary) != 1 || p.CallsMatching(taskReduceSummary) != 0 {
		t.Error("a short document should take a single full-text call")
	}
}

func TestOutlineSummarizeMapReduce(t *testing.T) {
	p, client := scriptedFor(t)
	p.On(taskOutlineTitle, "Long report")
	p.On(taskExtractTOC, "none")
	p.On(taskChunkSummary, "part")
	p.On(taskReduceSummary, "combined")

	summary, err := NewOutlineSummarizer(client).Summarize(context.Background(), pagesOf(25, "body %d"))
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if summary.Text != "combined" {
		t.Errorf("unexpected summary %q", summary.Text)
	}
	if got := p.CallsMatching(taskChunkSummary); got != 3 {
		t.Errorf("expected 3 chunk calls for 25 pages, got %d", got)
	}
	calls := p.Calls()
	reduce := calls[len(calls)-1]
	if !strings.Contains(reduce, "[pages 21-25]") {
		t.Errorf("expected chunk ranges in the reduce prompt:\n%s", reduce)
	}
}

func TestOutlineSummarizePropagatesProviderError(t *testing.T) {
	p, client := scriptedFor(t)
	p.On(taskOutlineTitle, "Doc")
	p.On(taskExtractTOC, "none")
	p.Fail(taskChunkSummary, context.DeadlineExceeded)

	if _, err := NewOutlineSummarizer(client).Summarize(context.Background(), []string{"x"}); err == nil {
		t.Fatal("expected error")
	}
}
