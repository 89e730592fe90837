// Package llm provides the language-model clients that narrate dashboard data.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/credit-dashboard/internal/config"
	"github.com/sirupsen/logrus"
)

// Narrator turns a prompt into prose
type Narrator interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Provider() string
	Model() string
}

// Options are the generation parameters shared by all providers
type Options struct {
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// New builds the narrator selected by the configuration. It returns nil when
// no provider is configured, which disables the narrative feature.
func New(ctx context.Context, cfg *config.Config, log *logrus.Logger) (Narrator, error) {
	opts := Options{
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: cfg.LLMTemperature,
		Timeout:     cfg.LLMTimeout,
	}
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		return NewOpenAIClient(OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Options: opts,
		}, log), nil
	case config.ProviderGemini:
		client, err := NewGeminiClient(ctx, GeminiConfig{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			Options: opts,
		}, log)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.ProviderNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
}
