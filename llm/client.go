// LLMClient - inference facade used by every sub-agent.
//
// Information Hiding:
// - Prompt-to-message conversion
// - JSON schema reflection and extraction from free-form output
// - Bounded retry of structured calls
// - Token usage accounting across concurrent callers

package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	ijson "github.com/richinex/govsummary/internal/json"
)

// Observer receives one notification per provider call.
type Observer interface {
	ObserveInference(kind string, err error)
}

// Client wraps a Provider with generate/generate-structured operations.
// It is safe for concurrent use.
type Client struct {
	provider Provider
	system   string
	retry    RetryPolicy
	logger   *slog.Logger
	observer Observer

	mu    sync.Mutex
	usage TokenUsage
	calls int
}

// NewClient creates a new LLM client from a provider.
func NewClient(provider Provider) *Client {
	return &Client{
		provider: provider,
		retry:    RetryPolicy{MaxAttempts: DefaultMaxAttempts},
		logger:   slog.New(slog.DiscardHandler),
	}
}

// WithSystemPrompt sets a system prompt sent with every request.
func (c *Client) WithSystemPrompt(system string) *Client {
	c.system = system
	return c
}

// WithRetryPolicy sets the retry policy for structured calls.
func (c *Client) WithRetryPolicy(policy RetryPolicy) *Client {
	c.retry = policy
	return c
}

// WithLogger sets the logger.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// WithObserver sets an observer notified after every provider call.
func (c *Client) WithObserver(observer Observer) *Client {
	c.observer = observer
	return c
}

// Provider returns the underlying provider.
func (c *Client) Provider() Provider {
	return c.provider
}

// Usage returns the accumulated token usage and number of provider calls.
func (c *Client) Usage() (TokenUsage, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage, c.calls
}

// Generate sends prompt as a single user turn and returns the text reply.
// Failures are returned as *ProviderError and are not retried.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.call(ctx, "text", prompt, nil)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// GenerateStructured asks for a JSON reply decoded into T. The schema for T
// is reflected and sent both as a response format and inside the prompt.
// validate, if non-nil, may reject a decoded value; a rejection counts as a
// schema mismatch and is retried with the other failures up to the client's
// attempt limit.
func GenerateStructured[T any](ctx context.Context, c *Client, name, prompt string, validate func(T) error) (T, error) {
	var zero T

	schema, err := SchemaFor[T]()
	if err != nil {
		return zero, err
	}
	format := NewJSONSchemaFormat(name, schema)
	fullPrompt := fmt.Sprintf("%s\n\n# Output format\nRespond with one JSON value conforming to this JSON schema:\n%s", prompt, schema)

	policy := c.retry
	if policy.OnRetry == nil {
		policy.OnRetry = func(err error, wait time.Duration) {
			c.logger.Warn("structured call failed, retrying", "schema", name, "error", err, "wait", wait)
		}
	}

	return Retry(ctx, policy, func(ctx context.Context) (T, error) {
		resp, err := c.call(ctx, "structured", fullPrompt, format)
		if err != nil {
			return zero, err
		}

		value, err := ijson.ExtractJSONFromResponse[T](resp.Content)
		if err != nil {
			return zero, &SchemaMismatchError{Schema: name, Raw: resp.Content, Err: err}
		}
		if validate != nil {
			if err := validate(value); err != nil {
				return zero, &SchemaMismatchError{Schema: name, Raw: resp.Content, Err: err}
			}
		}
		return value, nil
	})
}

func (c *Client) call(ctx context.Context, kind, prompt string, format *ResponseFormat) (LLMResponse, error) {
	messages := make([]ChatMessage, 0, 2)
	if c.system != "" {
		messages = append(messages, SystemMessage(c.system))
	}
	messages = append(messages, UserMessage(prompt))

	start := time.Now()
	resp, err := c.provider.ChatWithFormat(ctx, messages, format)
	if c.observer != nil {
		c.observer.ObserveInference(kind, err)
	}
	if err != nil {
		c.logger.Debug("inference failed", "provider", c.provider.Name(), "kind", kind, "error", err)
		return LLMResponse{}, &ProviderError{Provider: c.provider.Name(), Err: err}
	}

	c.mu.Lock()
	c.usage.Add(resp.Usage)
	c.calls++
	c.mu.Unlock()

	c.logger.Debug("inference completed",
		"provider", c.provider.Name(),
		"kind", kind,
		"prompt_chars", len(prompt),
		"response_chars", len(resp.Content),
		"duration", time.Since(start),
	)
	return resp, nil
}
