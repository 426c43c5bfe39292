// OpenAI Provider implementation using go-openai library.
//
// Information Hiding:
// - API endpoint and authentication
// - Request/response format for OpenAI Chat Completions API
// - json_schema response format mapping
//
// DeepSeek and Ollama expose the same API and reuse createCompletion.

package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements the Provider interface for OpenAI.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(apiKey, model string, maxTokens uint32, temperature float32) *OpenAIProvider {
	return &OpenAIProvider{
		client:      openai.NewClient(apiKey),
		model:       model,
		maxTokens:   int(maxTokens),
		temperature: temperature,
	}
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Model returns the current model.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// Chat sends a chat completion request.
func (p *OpenAIProvider) Chat(ctx context.Context, messages []ChatMessage) (LLMResponse, error) {
	return p.ChatWithFormat(ctx, messages, nil)
}

// ChatWithFormat sends a chat completion request with optional response format.
func (p *OpenAIProvider) ChatWithFormat(ctx context.Context, messages []ChatMessage, format *ResponseFormat) (LLMResponse, error) {
	return createCompletion(ctx, p.client, openai.ChatCompletionRequest{
		Model:          p.model,
		Messages:       convertToOpenAIMessages(messages),
		MaxTokens:      p.maxTokens,
		Temperature:    p.temperature,
		ResponseFormat: convertToOpenAIFormat(format),
	})
}

// createCompletion runs a non-streaming completion against any
// OpenAI-compatible endpoint.
func createCompletion(ctx context.Context, client *openai.Client, req openai.ChatCompletionRequest) (LLMResponse, error) {
	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return LLMResponse{}, fmt.Errorf("chat completion failed: %w", err)
	}

	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}

	usage := &TokenUsage{
		PromptTokens:     uint32(resp.Usage.PromptTokens),
		CompletionTokens: uint32(resp.Usage.CompletionTokens),
		TotalTokens:      uint32(resp.Usage.TotalTokens),
	}

	return LLMResponse{Content: content, Usage: usage}, nil
}

// convertToOpenAIMessages converts our ChatMessage to openai.ChatCompletionMessage
func convertToOpenAIMessages(messages []ChatMessage) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		result[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}
	return result
}

// convertToOpenAIFormat maps our response format onto the OpenAI request.
func convertToOpenAIFormat(format *ResponseFormat) *openai.ChatCompletionResponseFormat {
	if format == nil {
		return nil
	}

	out := &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatType(format.Type),
	}
	if format.Type == ResponseFormatJSONSchema && format.JSONSchema != nil {
		out.JSONSchema = &openai.ChatCompletionResponseFormatJSONSchema{
			Name:        format.JSONSchema.Name,
			Description: format.JSONSchema.Description,
			Schema:      format.JSONSchema.Schema,
			Strict:      format.JSONSchema.Strict,
		}
	}
	return out
}

// Verify OpenAIProvider implements Provider
var _ Provider = (*OpenAIProvider)(nil)
