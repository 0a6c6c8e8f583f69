// Package llm implements the SQL and answer synthesizers on top of hosted language models.
//
// Both synthesizers are thin prompt wrappers around a Completer, so the provider
// (Anthropic or Gemini) is chosen independently from the prompting logic.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Supported providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Completer sends one system + user prompt pair and returns the model's text reply.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f(ctx, systemPrompt, userPrompt)
}

// Config selects and parameterizes a provider.
type Config struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	MaxTokens int64  `yaml:"max_tokens"`
}

// ErrNoText is returned when a model reply carries no text content.
var ErrNoText = errors.New("no text content in response")

// New builds the Completer for cfg.Provider.
func New(ctx context.Context, cfg Config) (Completer, error) {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	switch cfg.Provider {
	case ProviderAnthropic, "":
		return NewAnthropic(cfg), nil
	case ProviderGemini:
		return NewGemini(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
