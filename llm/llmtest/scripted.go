// Package llmtest provides a scripted llm.Provider for tests.
package llmtest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/richinex/govsummary/llm"
)

// ErrNoScript is returned when no rule matches a prompt.
var ErrNoScript = errors.New("llmtest: no scripted response")

type rule struct {
	marker    string
	responses []string
	err       error
	reply     func(prompt string) (string, error)
	served    int
}

// Scripted replays canned responses. A rule matches when the prompt contains
// its marker; rules are checked in registration order. Each rule serves its
// responses in order and then keeps repeating the last one.
type Scripted struct {
	mu    sync.Mutex
	rules []*rule
	calls []string
}

// New creates an empty scripted provider.
func New() *Scripted {
	return &Scripted{}
}

// On registers responses for prompts containing marker.
func (s *Scripted) On(marker string, responses ...string) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, &rule{marker: marker, responses: responses})
	return s
}

// Fail makes prompts containing marker fail with err.
func (s *Scripted) Fail(marker string, err error) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, &rule{marker: marker, err: err})
	return s
}

// Func answers prompts containing marker with fn.
func (s *Scripted) Func(marker string, fn func(prompt string) (string, error)) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, &rule{marker: marker, reply: fn})
	return s
}

// Calls returns every prompt received so far.
func (s *Scripted) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// CallsMatching counts prompts containing marker.
func (s *Scripted) CallsMatching(marker string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if strings.Contains(c, marker) {
			n++
		}
	}
	return n
}

// Name returns the provider name.
func (s *Scripted) Name() string { return "scripted" }

// Model returns the model name.
func (s *Scripted) Model() string { return "scripted-model" }

// Chat answers the last user message.
func (s *Scripted) Chat(ctx context.Context, messages []llm.ChatMessage) (llm.LLMResponse, error) {
	return s.ChatWithFormat(ctx, messages, nil)
}

// ChatWithFormat answers the last user message; format is ignored.
func (s *Scripted) ChatWithFormat(ctx context.Context, messages []llm.ChatMessage, _ *llm.ResponseFormat) (llm.LLMResponse, error) {
	if err := ctx.Err(); err != nil {
		return llm.LLMResponse{}, err
	}

	prompt := ""
	if len(messages) > 0 {
		prompt = messages[len(messages)-1].Content
	}

	s.mu.Lock()
	s.calls = append(s.calls, prompt)
	var matched *rule
	for _, r := range s.rules {
		if strings.Contains(prompt, r.marker) {
			matched = r
			break
		}
	}
	var content string
	var err error
	var reply func(string) (string, error)
	switch {
	case matched == nil:
		err = fmt.Errorf("%w for prompt %.60q", ErrNoScript, prompt)
	case matched.err != nil:
		err = matched.err
	case matched.reply != nil:
		reply = matched.reply
	case len(matched.responses) > 0:
		i := matched.served
		if i >= len(matched.responses) {
			i = len(matched.responses) - 1
		}
		content = matched.responses[i]
		matched.served++
	}
	s.mu.Unlock()

	if reply != nil {
		content, err = reply(prompt)
	}
	if err != nil {
		return llm.LLMResponse{}, err
	}
	return llm.LLMResponse{
		Content: content,
		Usage:   &llm.TokenUsage{PromptTokens: uint32(len(prompt)), CompletionTokens: uint32(len(content)), TotalTokens: uint32(len(prompt) + len(content))},
	}, nil
}

var _ llm.Provider = (*Scripted)(nil)
