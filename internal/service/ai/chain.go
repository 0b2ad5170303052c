package ai

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/m-mizutani/goerr/v2"
)

// ChainBackend runs a prompt-template -> chat-model eino chain. It serves any
// eino chat model (Ark, OpenAI compatible endpoints).
type ChainBackend struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewChainBackend compiles the chain around chatModel.
func NewChainBackend(ctx context.Context, chatModel model.BaseChatModel) (*ChainBackend, error) {
	if chatModel == nil {
		return nil, goerr.New("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to compile chat chain")
	}

	return &ChainBackend{chain: runnable}, nil
}

// Generate returns the whole completion.
func (b *ChainBackend) Generate(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	response, err := b.chain.Invoke(ctx, chainInput(systemPrompt, userMessage))
	if err != nil {
		return "", goerr.Wrap(err, "failed to run chat chain")
	}
	if response == nil || strings.TrimSpace(response.Content) == "" {
		return "", ErrEmptyResponse
	}
	return response.Content, nil
}

// Stream returns the completion as text fragments.
func (b *ChainBackend) Stream(ctx context.Context, systemPrompt, userMessage string) (*schema.StreamReader[string], error) {
	stream, err := b.chain.Stream(ctx, chainInput(systemPrompt, userMessage))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to stream chat chain output")
	}

	return schema.StreamReaderWithConvert(stream, func(msg *schema.Message) (string, error) {
		if msg == nil || msg.Content == "" {
			return "", schema.ErrNoValue
		}
		return msg.Content, nil
	}), nil
}

func chainInput(systemPrompt, userMessage string) map[string]any {
	return map[string]any{
		"system": systemPrompt,
		"query":  userMessage,
	}
}
