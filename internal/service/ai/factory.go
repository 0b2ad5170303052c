package ai

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"

	"github.com/zhouzirui/expert-panel/backend/internal/config"
)

// ErrNoProvider means no completion provider has credentials configured.
var ErrNoProvider = errors.New("ai: no provider configured")

// NewBackend builds the backend for the configured provider. It returns
// ErrNoProvider when nothing is configured so callers can run canned-only.
func NewBackend(ctx context.Context, cfg config.AIConfig) (Backend, string, error) {
	provider, err := cfg.ResolveProvider()
	if err != nil {
		return nil, "", err
	}

	switch provider {
	case "":
		return nil, "", ErrNoProvider

	case config.ProviderGemini:
		client, err := NewGeminiClient(ctx, cfg.Gemini.APIKey)
		if err != nil {
			return nil, "", err
		}
		return NewGeminiBackend(client.Models, cfg.Gemini.Model, GenerationParams{
			Temperature: cfg.Temperature32(),
			TopP:        cfg.TopP32(),
			MaxTokens:   cfg.MaxTokensPtr(),
		}), provider, nil

	default:
		chatModel, err := cfg.NewChatModel(ctx, provider)
		if err != nil {
			return nil, "", err
		}
		backend, err := NewChainBackend(ctx, chatModel)
		if err != nil {
			return nil, "", goerr.Wrap(err, "failed to build chain backend", goerr.V("provider", provider))
		}
		return backend, provider, nil
	}
}
