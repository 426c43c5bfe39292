// Package llm provides LLM provider abstractions.
//
// LLM Provider interface - the abstract interface for inference backends.
// Each provider implementation hides:
// - API client initialization and authentication
// - Request/response format conversion
// - Provider-specific structured output support
//
// Orchestration code never talks to a Provider directly; it goes through
// Client, which adds bounded retry and schema validation.

package llm

import (
	"context"
)

// Provider defines the abstract interface for LLM providers.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the current model being used.
	Model() string

	// Chat sends a chat completion request.
	Chat(ctx context.Context, messages []ChatMessage) (LLMResponse, error)

	// ChatWithFormat sends a chat completion request with response format.
	// Providers without native structured output treat format as a hint.
	ChatWithFormat(ctx context.Context, messages []ChatMessage, format *ResponseFormat) (LLMResponse, error)
}
