// DeepSeek and Ollama Provider implementations using go-openai library.
//
// Information Hiding:
// - Both use the OpenAI-compatible API with a different base URL
// - DeepSeek only understands json_object, so schema formats are downgraded
// - Ollama runs locally and accepts any API key

package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

const (
	deepseekBaseURL      = "https://api.deepseek.com/v1"
	defaultOllamaBaseURL = "http://localhost:11434/v1"
)

// DeepSeekProvider implements the Provider interface for DeepSeek.
type DeepSeekProvider struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewDeepSeekProvider creates a new DeepSeek provider.
func NewDeepSeekProvider(apiKey, model string, maxTokens uint32, temperature float32) *DeepSeekProvider {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = deepseekBaseURL

	return &DeepSeekProvider{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		maxTokens:   int(maxTokens),
		temperature: temperature,
	}
}

// Name returns the provider name.
func (p *DeepSeekProvider) Name() string {
	return "deepseek"
}

// Model returns the current model.
func (p *DeepSeekProvider) Model() string {
	return p.model
}

// Chat sends a chat completion request.
func (p *DeepSeekProvider) Chat(ctx context.Context, messages []ChatMessage) (LLMResponse, error) {
	return p.ChatWithFormat(ctx, messages, nil)
}

// ChatWithFormat sends a chat completion request with optional response format.
func (p *DeepSeekProvider) ChatWithFormat(ctx context.Context, messages []ChatMessage, format *ResponseFormat) (LLMResponse, error) {
	if format.IsJSON() {
		format = NewJSONObjectFormat()
	}
	return createCompletion(ctx, p.client, openai.ChatCompletionRequest{
		Model:          p.model,
		Messages:       convertToOpenAIMessages(messages),
		MaxTokens:      p.maxTokens,
		Temperature:    p.temperature,
		ResponseFormat: convertToOpenAIFormat(format),
	})
}

// OllamaProvider implements the Provider interface for a local Ollama server.
type OllamaProvider struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewOllamaProvider creates a provider for the Ollama server at baseURL.
// An empty baseURL selects the default local endpoint.
func NewOllamaProvider(baseURL, apiKey, model string, maxTokens uint32, temperature float32) *OllamaProvider {
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	if apiKey == "" {
		apiKey = "ollama"
	}
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL

	return &OllamaProvider{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		maxTokens:   int(maxTokens),
		temperature: temperature,
	}
}

// Name returns the provider name.
func (p *OllamaProvider) Name() string {
	return "ollama"
}

// Model returns the current model.
func (p *OllamaProvider) Model() string {
	return p.model
}

// Chat sends a chat completion request.
func (p *OllamaProvider) Chat(ctx context.Context, messages []ChatMessage) (LLMResponse, error) {
	return p.ChatWithFormat(ctx, messages, nil)
}

// ChatWithFormat sends a chat completion request with optional response format.
func (p *OllamaProvider) ChatWithFormat(ctx context.Context, messages []ChatMessage, format *ResponseFormat) (LLMResponse, error) {
	if format.IsJSON() {
		format = NewJSONObjectFormat()
	}
	return createCompletion(ctx, p.client, openai.ChatCompletionRequest{
		Model:          p.model,
		Messages:       convertToOpenAIMessages(messages),
		MaxTokens:      p.maxTokens,
		Temperature:    p.temperature,
		ResponseFormat: convertToOpenAIFormat(format),
	})
}

var (
	_ Provider = (*DeepSeekProvider)(nil)
	_ Provider = (*OllamaProvider)(nil)
)
