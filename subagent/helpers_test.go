package subagent

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/cenkalti/backoff/v5"
	"github.com/richinex/govsummary/llm"
	"github.com/richinex/govsummary/llm/llmtest"
	"github.com/richinex/govsummary/loader"
)

func newTestClient(p llm.Provider) *llm.Client {
	return llm.NewClient(p).WithRetryPolicy(llm.RetryPolicy{
		MaxAttempts: 3,
		NewBackOff:  func() backoff.BackOff { return &backoff.ZeroBackOff{} },
	})
}

func mustJSON(t testing.TB, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	return string(b)
}

// typeScores renders a detector answer with the given score per type key.
func typeScores(t testing.TB, scores map[string]int) string {
	t.Helper()
	answer := map[string]any{"conclusion": "n/a"}
	for _, key := range []string{"word", "powerpoint", "agenda", "participants", "news", "survey", "other"} {
		score := scores[key]
		if score == 0 {
			score = 1
		}
		answer[key] = map[string]any{"score": score, "reason": key + " traits", "evidence": "..."}
	}
	return mustJSON(t, answer)
}

func pagesOf(n int, format string) []string {
	pages := make([]string, n)
	for i := range pages {
		pages[i] = fmt.Sprintf(format, i+1)
	}
	return pages
}

// fakeLoader serves fixed pages, text and links per reference.
type fakeLoader struct {
	pages map[string][]string
	links map[string][]loader.Link
	err   error
	loads int
}

func (f *fakeLoader) LoadPages(_ context.Context, ref string) ([]string, error) {
	f.loads++
	if f.err != nil {
		return nil, &loader.LoadError{Ref: ref, Err: f.err}
	}
	pages, ok := f.pages[ref]
	if !ok {
		return nil, &loader.LoadError{Ref: ref, Err: fmt.Errorf("not found")}
	}
	return pages, nil
}

func (f *fakeLoader) LoadText(ctx context.Context, ref string) (string, error) {
	pages, err := f.LoadPages(ctx, ref)
	if err != nil {
		return "", err
	}
	text := ""
	for _, p := range pages {
		text += p + "\n\n"
	}
	return text, nil
}

func (f *fakeLoader) Links(_ context.Context, ref string) ([]loader.Link, error) {
	return f.links[ref], nil
}

var (
	_ loader.Loader     = (*fakeLoader)(nil)
	_ loader.LinkLoader = (*fakeLoader)(nil)
)

// scriptedFor builds a provider and client pair for one test.
func scriptedFor(t testing.TB) (*llmtest.Scripted, *llm.Client) {
	t.Helper()
	p := llmtest.New()
	return p, newTestClient(p)
}
