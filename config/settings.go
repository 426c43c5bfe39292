// Package config provides application settings loaded from environment variables.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Provider-specific configuration lookup
//
// A YAML overlay (see overlay.go) may adjust workflow settings afterwards.

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Settings holds all application configuration.
type Settings struct {
	LLM      LLMConfig
	Workflow WorkflowConfig
	Loader   LoaderConfig
	Storage  StorageConfig
	Publish  PublishConfig
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Provider    string
	Model       string
	BaseURL     string
	MaxTokens   uint32
	Temperature float64
}

// WorkflowConfig holds planning and execution limits.
type WorkflowConfig struct {
	MaxSummaryChars   int           `yaml:"max_summary_chars"`
	SlideBatchSize    int           `yaml:"slide_batch_size"`
	DocScoreThreshold float64       `yaml:"doc_score_threshold"`
	DocMaxSelected    int           `yaml:"doc_max_selected"`
	StepTimeout       time.Duration `yaml:"step_timeout"`
	MaxParallelSteps  int           `yaml:"max_parallel_steps"`
	MaxAttempts       uint          `yaml:"max_attempts"`
	ExtraKeywords     []string      `yaml:"extra_keywords"`
}

// LoaderConfig holds document fetching configuration.
type LoaderConfig struct {
	HTTPTimeout time.Duration
	UserAgent   string
	CacheSize   int
}

// StorageConfig holds checkpoint storage configuration.
type StorageConfig struct {
	DBPath string
}

// PublishConfig holds social publishing configuration.
type PublishConfig struct {
	SskyUser  string
	SskyImage string
}

const defaultUserAgent = "Mozilla/5.0 (compatible; govsummary/1.0; +https://github.com/richinex/govsummary)"

// providerInfo holds configuration for a specific LLM provider.
type providerInfo struct {
	modelEnv     string
	defaultModel string
	apiKeyEnv    string
}

// Supported providers and their configuration.
var providers = map[string]providerInfo{
	"openai":    {"OPENAI_MODEL", "gpt-4o-mini", "OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_MODEL", "claude-sonnet-4-20250514", "ANTHROPIC_API_KEY"},
	"deepseek":  {"DEEPSEEK_MODEL", "deepseek-chat", "DEEPSEEK_API_KEY"},
	"gemini":    {"GEMINI_MODEL", "gemini-2.5-flash", "GEMINI_API_KEY"},
	"ollama":    {"OLLAMA_MODEL", "llama3.1", "OLLAMA_API_KEY"},
}

// Provider aliases map to canonical names.
var providerAliases = map[string]string{
	"claude": "anthropic",
	"google": "gemini",
	"gpt":    "openai",
	"local":  "ollama",
}

// New creates settings for the specified provider, loading values from environment variables.
// An empty provider falls back to LLM_PROVIDER, then openai.
// Returns an error if the provider is unknown or environment variables contain invalid values.
func New(provider string) (Settings, error) {
	if provider == "" {
		provider = os.Getenv("LLM_PROVIDER")
	}
	if provider == "" {
		provider = "openai"
	}
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return Settings{}, err
	}

	var s Settings
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	s.LLM = LLMConfig{
		Provider: provider,
		Model:    getEnvString(info.modelEnv, info.defaultModel),
		BaseURL:  os.Getenv("OLLAMA_BASE_URL"),
	}
	s.LLM.MaxTokens, err = getEnvUint32("LLM_MAX_TOKENS", 4096)
	collect(err)
	s.LLM.Temperature, err = getEnvFloat64("LLM_TEMPERATURE", 0.2)
	collect(err)

	s.Workflow.MaxSummaryChars, err = getEnvInt("SUMMARY_MAX_CHARS", 2000)
	collect(err)
	s.Workflow.SlideBatchSize, err = getEnvInt("SLIDE_BATCH_SIZE", 20)
	collect(err)
	s.Workflow.DocScoreThreshold, err = getEnvFloat64("DOC_SCORE_THRESHOLD", 50)
	collect(err)
	s.Workflow.DocMaxSelected, err = getEnvInt("DOC_MAX_SELECTED", 5)
	collect(err)
	s.Workflow.StepTimeout, err = getEnvDuration("STEP_TIMEOUT", 5*time.Minute)
	collect(err)
	s.Workflow.MaxParallelSteps, err = getEnvInt("MAX_PARALLEL_STEPS", 3)
	collect(err)
	attempts, err := getEnvUint32("STRUCTURED_MAX_ATTEMPTS", 3)
	collect(err)
	s.Workflow.MaxAttempts = uint(attempts)

	s.Loader.HTTPTimeout, err = getEnvDuration("HTTP_TIMEOUT", 60*time.Second)
	collect(err)
	s.Loader.UserAgent = getEnvString("LOADER_USER_AGENT", defaultUserAgent)
	s.Loader.CacheSize, err = getEnvInt("LOADER_CACHE_SIZE", 128)
	collect(err)

	s.Storage.DBPath = getEnvString("GOVSUMMARY_DB", ".govsummary/runs.db")

	s.Publish.SskyUser = os.Getenv("SSKY_USER")
	s.Publish.SskyImage = getEnvString("SSKY_MCP_IMAGE", "ghcr.io/simpleskyclient/ssky-mcp")

	if len(errs) > 0 {
		return Settings{}, errs[0]
	}
	if err := s.Workflow.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// MustNew creates settings for the specified provider.
// Panics if the provider is unknown or environment variables are invalid.
// Use this only when configuration errors should be fatal.
func MustNew(provider string) Settings {
	settings, err := New(provider)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

// Validate rejects workflow limits that would make a run meaningless.
func (w WorkflowConfig) Validate() error {
	switch {
	case w.MaxSummaryChars <= 3:
		return fmt.Errorf("max summary chars must be greater than 3, got %d", w.MaxSummaryChars)
	case w.SlideBatchSize <= 0:
		return fmt.Errorf("slide batch size must be positive, got %d", w.SlideBatchSize)
	case w.DocScoreThreshold < 0 || w.DocScoreThreshold > 100:
		return fmt.Errorf("document score threshold must be within 0-100, got %g", w.DocScoreThreshold)
	case w.DocMaxSelected < 0:
		return fmt.Errorf("document selection cap must not be negative, got %d", w.DocMaxSelected)
	case w.MaxParallelSteps <= 0:
		return fmt.Errorf("max parallel steps must be positive, got %d", w.MaxParallelSteps)
	case w.MaxAttempts == 0:
		return fmt.Errorf("max attempts must be positive")
	}
	return nil
}

// normalizeProvider converts provider aliases to canonical names.
func normalizeProvider(provider string) string {
	provider = strings.ToLower(provider)
	if canonical, ok := providerAliases[provider]; ok {
		return canonical
	}
	return provider
}

// getProviderInfo returns configuration for a provider.
func getProviderInfo(provider string) (providerInfo, error) {
	info, ok := providers[provider]
	if !ok {
		return providerInfo{}, fmt.Errorf("unknown provider: %q", provider)
	}
	return info, nil
}

// APIKeyFor returns the API key for a provider from environment variables.
func APIKeyFor(provider string) (string, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return "", err
	}

	key := os.Getenv(info.apiKeyEnv)
	if key == "" && provider != "ollama" {
		return "", fmt.Errorf("%s environment variable not set", info.apiKeyEnv)
	}
	return key, nil
}

// SupportedProviders returns the list of supported provider names.
func SupportedProviders() []string {
	result := make([]string, 0, len(providers))
	for name := range providers {
		result = append(result, name)
	}
	return result
}

// Environment variable helpers with proper error handling

func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvUint32(key string, defaultVal uint32) (uint32, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return uint32(i), nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return d, nil
}
