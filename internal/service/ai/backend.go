package ai

import (
	"context"
	"errors"

	"github.com/cloudwego/eino/schema"
)

// ErrEmptyResponse is returned when the model answers with no text.
var ErrEmptyResponse = errors.New("ai: empty response")

// Backend is the text-generation capability: a system instruction plus one
// user turn in, text out.
type Backend interface {
	Generate(ctx context.Context, systemPrompt, userMessage string) (string, error)
	// Stream yields text fragments; io.EOF marks the end.
	Stream(ctx context.Context, systemPrompt, userMessage string) (*schema.StreamReader[string], error)
}
