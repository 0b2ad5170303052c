package ai

import (
	"context"
	"iter"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

// GeminiModels is the subset of *genai.Models the Gemini backend needs.
type GeminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// GenerationParams are the sampling settings shared by all backends.
type GenerationParams struct {
	Temperature *float32
	TopP        *float32
	MaxTokens   *int
}

// GeminiBackend talks to the Gemini API directly through genai.
type GeminiBackend struct {
	models GeminiModels
	model  string
	params GenerationParams
}

// NewGeminiClient creates a Gemini API client for apiKey.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}
	return client, nil
}

// NewGeminiBackend wraps a genai model service.
func NewGeminiBackend(models GeminiModels, modelName string, params GenerationParams) *GeminiBackend {
	return &GeminiBackend{models: models, model: modelName, params: params}
}

func (b *GeminiBackend) Generate(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	resp, err := b.models.GenerateContent(ctx, b.model, userContents(userMessage), b.config(systemPrompt))
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate content", goerr.V("model", b.model))
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (b *GeminiBackend) Stream(ctx context.Context, systemPrompt, userMessage string) (*schema.StreamReader[string], error) {
	seq := b.models.GenerateContentStream(ctx, b.model, userContents(userMessage), b.config(systemPrompt))
	reader, writer := schema.Pipe[string](8)

	go func() {
		defer writer.Close()
		for resp, err := range seq {
			if err != nil {
				writer.Send("", goerr.Wrap(err, "gemini stream failed", goerr.V("model", b.model)))
				return
			}
			if resp == nil {
				continue
			}
			if text := resp.Text(); text != "" {
				if closed := writer.Send(text, nil); closed {
					return
				}
			}
		}
	}()

	return reader, nil
}

func (b *GeminiBackend) config(systemPrompt string) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, ""),
		Temperature:       b.params.Temperature,
		TopP:              b.params.TopP,
	}
	if b.params.MaxTokens != nil {
		cfg.MaxOutputTokens = int32(*b.params.MaxTokens)
	}
	return cfg
}

func userContents(userMessage string) []*genai.Content {
	return []*genai.Content{genai.NewContentFromText(userMessage, genai.RoleUser)}
}
