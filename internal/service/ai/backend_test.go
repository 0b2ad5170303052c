package ai_test

import (
	"context"
	"errors"
	"io"
	"iter"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/zhouzirui/expert-panel/backend/internal/config"
	"github.com/zhouzirui/expert-panel/backend/internal/service/ai"
)

type fakeChatModel struct {
	reply  string
	chunks []string
	err    error

	lastInput []*schema.Message
}

func (m *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.lastInput = input
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *fakeChatModel) Stream(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	m.lastInput = input
	if m.err != nil {
		return nil, m.err
	}
	msgs := make([]*schema.Message, 0, len(m.chunks))
	for _, c := range m.chunks {
		msgs = append(msgs, schema.AssistantMessage(c, nil))
	}
	return schema.StreamReaderFromArray(msgs), nil
}

func drain(t *testing.T, sr *schema.StreamReader[string]) ([]string, error) {
	t.Helper()
	defer sr.Close()

	var out []string
	for {
		chunk, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, chunk)
	}
}

func TestChainBackendGenerate(t *testing.T) {
	ctx := context.Background()
	cm := &fakeChatModel{reply: "Use a multi-stage build."}

	backend, err := ai.NewChainBackend(ctx, cm)
	require.NoError(t, err)

	got, err := backend.Generate(ctx, "You are {not a placeholder}", "how do I shrink images?")
	require.NoError(t, err)
	assert.Equal(t, "Use a multi-stage build.", got)

	require.Len(t, cm.lastInput, 2)
	assert.Equal(t, schema.System, cm.lastInput[0].Role)
	assert.Equal(t, "You are {not a placeholder}", cm.lastInput[0].Content)
	assert.Equal(t, schema.User, cm.lastInput[1].Role)
	assert.Equal(t, "how do I shrink images?", cm.lastInput[1].Content)
}

func TestChainBackendEmptyAndError(t *testing.T) {
	ctx := context.Background()

	backend, err := ai.NewChainBackend(ctx, &fakeChatModel{reply: "   "})
	require.NoError(t, err)
	_, err = backend.Generate(ctx, "sys", "q")
	assert.ErrorIs(t, err, ai.ErrEmptyResponse)

	boom := errors.New("upstream down")
	backend, err = ai.NewChainBackend(ctx, &fakeChatModel{err: boom})
	require.NoError(t, err)
	_, err = backend.Generate(ctx, "sys", "q")
	assert.ErrorIs(t, err, boom)

	_, err = ai.NewChainBackend(ctx, nil)
	assert.Error(t, err)
}

func TestChainBackendStreamSkipsEmptyChunks(t *testing.T) {
	ctx := context.Background()
	backend, err := ai.NewChainBackend(ctx, &fakeChatModel{chunks: []string{"Index", "", " the", " column"}})
	require.NoError(t, err)

	sr, err := backend.Stream(ctx, "sys", "slow query")
	require.NoError(t, err)

	chunks, err := drain(t, sr)
	require.NoError(t, err)
	assert.Equal(t, "Index the column", strings.Join(chunks, ""))
	assert.NotContains(t, chunks, "")
}

type fakeGemini struct {
	text    string
	chunks  []string
	err     error
	config  *genai.GenerateContentConfig
	model   string
	content []*genai.Content
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(text, genai.RoleModel)}},
	}
}

func (f *fakeGemini) GenerateContent(_ context.Context, modelName string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model, f.content, f.config = modelName, contents, cfg
	if f.err != nil {
		return nil, f.err
	}
	return textResponse(f.text), nil
}

func (f *fakeGemini) GenerateContentStream(_ context.Context, modelName string, contents []*genai.Content, cfg *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	f.model, f.content, f.config = modelName, contents, cfg
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, c := range f.chunks {
			if !yield(textResponse(c), nil) {
				return
			}
		}
		if f.err != nil {
			yield(nil, f.err)
		}
	}
}

func TestGeminiBackendGenerate(t *testing.T) {
	maxTokens := 300
	fake := &fakeGemini{text: "Shard by tenant."}
	backend := ai.NewGeminiBackend(fake, "gemini-2.5-flash", ai.GenerationParams{MaxTokens: &maxTokens})

	got, err := backend.Generate(context.Background(), "You are Ashar", "how to scale?")
	require.NoError(t, err)
	assert.Equal(t, "Shard by tenant.", got)

	assert.Equal(t, "gemini-2.5-flash", fake.model)
	require.Len(t, fake.content, 1)
	assert.Equal(t, string(genai.RoleUser), fake.content[0].Role)
	assert.Equal(t, "how to scale?", fake.content[0].Parts[0].Text)
	require.NotNil(t, fake.config.SystemInstruction)
	assert.Equal(t, "You are Ashar", fake.config.SystemInstruction.Parts[0].Text)
	assert.Equal(t, int32(300), fake.config.MaxOutputTokens)
}

func TestGeminiBackendGenerateEmpty(t *testing.T) {
	backend := ai.NewGeminiBackend(&fakeGemini{text: " "}, "m", ai.GenerationParams{})
	_, err := backend.Generate(context.Background(), "sys", "q")
	assert.ErrorIs(t, err, ai.ErrEmptyResponse)
}

func TestGeminiBackendStream(t *testing.T) {
	backend := ai.NewGeminiBackend(&fakeGemini{chunks: []string{"Use", " TLS"}}, "m", ai.GenerationParams{})

	sr, err := backend.Stream(context.Background(), "sys", "q")
	require.NoError(t, err)

	chunks, err := drain(t, sr)
	require.NoError(t, err)
	assert.Equal(t, []string{"Use", " TLS"}, chunks)
}

func TestGeminiBackendStreamError(t *testing.T) {
	boom := errors.New("quota")
	backend := ai.NewGeminiBackend(&fakeGemini{chunks: []string{"partial"}, err: boom}, "m", ai.GenerationParams{})

	sr, err := backend.Stream(context.Background(), "sys", "q")
	require.NoError(t, err)

	chunks, err := drain(t, sr)
	assert.Equal(t, []string{"partial"}, chunks)
	assert.ErrorIs(t, err, boom)
}

func TestNewBackendWithoutProvider(t *testing.T) {
	_, _, err := ai.NewBackend(context.Background(), config.AIConfig{})
	assert.ErrorIs(t, err, ai.ErrNoProvider)
}
