package llm

import (
	"fmt"
	"time"
)

// Config selects and configures the question generator backend.
type Config struct {
	// Provider is one of "openai", "gemini", "anthropic" or "mock".
	Provider  string
	OpenAI    OpenAIConfig
	Gemini    GeminiConfig
	Anthropic AnthropicConfig
	Retry     RetryConfig
	// Timeout bounds one generation call including retries.
	Timeout time.Duration
}

// OpenAIConfig also covers Ollama and other compatible servers via BaseURL.
type OpenAIConfig struct {
	APIKey       string
	Model        string
	BaseURL      string
	StrictSchema bool
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type AnthropicConfig struct {
	APIKey string
	Model  string
}

// RetryConfig controls backoff for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultConfig targets a local Ollama server, matching the serve defaults.
func DefaultConfig() Config {
	return Config{
		Provider: "openai",
		OpenAI: OpenAIConfig{
			Model:   "qwen2.5:7b",
			BaseURL: "http://localhost:11434/v1",
		},
		Gemini:    GeminiConfig{Model: "gemini-flash"},
		Anthropic: AnthropicConfig{Model: "claude-haiku"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2,
		},
		Timeout: 2 * time.Minute,
	}
}

// Validate checks that the selected provider has what it needs.
func (c Config) Validate() error {
	switch c.Provider {
	case "openai":
		if c.OpenAI.BaseURL == "" && c.OpenAI.APIKey == "" {
			return fmt.Errorf("openai provider needs an API key or a base URL")
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("gemini provider needs an API key")
		}
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("anthropic provider needs an API key")
		}
	case "mock":
	default:
		return fmt.Errorf("unknown LLM provider %q", c.Provider)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry attempts must be at least 1")
	}
	return nil
}
