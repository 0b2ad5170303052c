package gateway_test

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/zhouzirui/expert-panel/backend/internal/model/persona"
	"github.com/zhouzirui/expert-panel/backend/internal/service/gateway"
)

func TestMain(m *testing.M) {
	// go.opencensus.io (via genai's auth dependency) starts a worker in init.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

type fakeBackend struct {
	text      string
	err       error
	chunks    []string
	streamErr error // returned after chunks
	openErr   error

	lastSystem string
	lastUser   string
}

func (b *fakeBackend) Generate(_ context.Context, systemPrompt, userMessage string) (string, error) {
	b.lastSystem, b.lastUser = systemPrompt, userMessage
	return b.text, b.err
}

func (b *fakeBackend) Stream(_ context.Context, systemPrompt, userMessage string) (*schema.StreamReader[string], error) {
	b.lastSystem, b.lastUser = systemPrompt, userMessage
	if b.openErr != nil {
		return nil, b.openErr
	}

	reader, writer := schema.Pipe[string](len(b.chunks) + 1)
	for _, c := range b.chunks {
		writer.Send(c, nil)
	}
	if b.streamErr != nil {
		writer.Send("", b.streamErr)
	}
	writer.Close()
	return reader, nil
}

var dbExpert = persona.Persona{
	ID:        "expert-database",
	Name:      "Ashar Khan",
	Expertise: persona.Database,
	Prompt:    "You are a database specialist.",
}

func newGateway(backend *fakeBackend, opts ...gateway.Option) *gateway.Gateway {
	opts = append([]gateway.Option{
		gateway.WithReplayDelay(0, 0),
		gateway.WithRand(rand.New(rand.NewPCG(1, 2))),
	}, opts...)
	if backend == nil {
		return gateway.New(nil, opts...)
	}
	return gateway.New(backend, opts...)
}

func collect(t *testing.T, sr *schema.StreamReader[string]) ([]string, error) {
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

func TestRespondReturnsBackendText(t *testing.T) {
	backend := &fakeBackend{text: "Add a composite index."}
	g := newGateway(backend)

	got := g.Respond(context.Background(), dbExpert, "slow joins", "You: slow joins")
	assert.Equal(t, "Add a composite index.", got)
	assert.Equal(t, "slow joins", backend.lastUser)
	assert.Contains(t, backend.lastSystem, "You are a database specialist.")
	assert.Contains(t, backend.lastSystem, "**Previous Conversation Context:**\nYou: slow joins")
}

func TestRespondFallsBackToCannedPool(t *testing.T) {
	for name, backend := range map[string]*fakeBackend{
		"error": {err: errors.New("503")},
		"empty": {text: "  \n"},
		"nil":   nil,
	} {
		t.Run(name, func(t *testing.T) {
			g := newGateway(backend)
			got := g.Respond(context.Background(), dbExpert, "q", "")
			assert.Contains(t, gateway.CannedPool(persona.Database), got)
		})
	}
}

func TestRespondFallbackSentenceWhenCannedDisabled(t *testing.T) {
	g := newGateway(&fakeBackend{err: errors.New("boom")}, gateway.WithCannedFallback(false))

	got := g.Respond(context.Background(), dbExpert, "q", "")
	assert.Equal(t, gateway.FallbackSentence(persona.Database), got)

	pm := persona.Persona{ID: "pm", Name: "Sarah Chen", Expertise: persona.ProductManager, Prompt: "pm"}
	got = g.Respond(context.Background(), pm, "q", "")
	assert.Equal(t, "I'd be happy to help with questions in my area of expertise.", got)
}

func TestCannedPoolUnknownTagUsesBackendPool(t *testing.T) {
	assert.Equal(t, gateway.CannedPool(persona.Backend), gateway.CannedPool(persona.Expertise("quantum")))
	for _, tag := range persona.AllExpertise() {
		assert.NotEmpty(t, gateway.CannedPool(tag), tag)
	}
}

func TestRespondStreamForwardsFragments(t *testing.T) {
	backend := &fakeBackend{chunks: []string{"Use", "", " EXPLAIN", " ANALYZE"}}
	g := newGateway(backend)

	chunks, err := collect(t, g.RespondStream(context.Background(), dbExpert, "slow", ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"Use", " EXPLAIN", " ANALYZE"}, chunks)
	assert.NotContains(t, backend.lastSystem, "Previous Conversation Context")
}

func TestRespondStreamReplaysFallbackBeforeFirstFragment(t *testing.T) {
	cases := map[string]*fakeBackend{
		"open error":  {openErr: errors.New("dial")},
		"first recv":  {streamErr: errors.New("reset")},
		"zero output": {chunks: []string{"", ""}},
		"no backend":  nil,
	}
	for name, backend := range cases {
		t.Run(name, func(t *testing.T) {
			g := newGateway(backend)

			chunks, err := collect(t, g.RespondStream(context.Background(), dbExpert, "q", ""))
			require.NoError(t, err)
			require.NotEmpty(t, chunks)

			assert.False(t, strings.HasPrefix(chunks[0], " "))
			for _, c := range chunks[1:] {
				assert.True(t, strings.HasPrefix(c, " "), c)
			}
			assert.Contains(t, gateway.CannedPool(persona.Database), strings.Join(chunks, ""))
		})
	}
}

func TestRespondStreamReplaysFallbackAfterFragments(t *testing.T) {
	g := newGateway(&fakeBackend{chunks: []string{"Partial"}, streamErr: errors.New("connection reset")})

	chunks, err := collect(t, g.RespondStream(context.Background(), dbExpert, "q", ""))
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	assert.Equal(t, "Partial", chunks[0])

	// canned words continue the partial text, each with a leading space
	for _, c := range chunks[1:] {
		assert.True(t, strings.HasPrefix(c, " "), c)
	}
	assert.Contains(t, gateway.CannedPool(persona.Database), strings.TrimPrefix(strings.Join(chunks[1:], ""), " "))
}

func TestRespondStreamFallbackSentenceAfterFragments(t *testing.T) {
	g := newGateway(&fakeBackend{chunks: []string{"Partial"}, streamErr: errors.New("reset")}, gateway.WithCannedFallback(false))

	chunks, err := collect(t, g.RespondStream(context.Background(), dbExpert, "q", ""))
	require.NoError(t, err)
	assert.Equal(t, "Partial "+gateway.FallbackSentence(persona.Database), strings.Join(chunks, ""))
}

func TestRespondStreamReplayHonoursCancellation(t *testing.T) {
	g := newGateway(nil, gateway.WithReplayDelay(time.Hour, time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	sr := g.RespondStream(ctx, dbExpert, "q", "")
	defer sr.Close()

	first, err := sr.Recv()
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	cancel()
	_, err = sr.Recv()
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRespondStreamReaderClosedEarly(t *testing.T) {
	g := newGateway(nil)

	sr := g.RespondStream(context.Background(), dbExpert, "q", "")
	_, err := sr.Recv()
	require.NoError(t, err)
	sr.Close()
	// goleak in TestMain verifies the replay goroutine exits.
}

func TestSystemPrompt(t *testing.T) {
	got := gateway.SystemPrompt(dbExpert, "")
	assert.True(t, strings.HasPrefix(got, dbExpert.Prompt))
	assert.Contains(t, got, "Your name is exactly Ashar Khan and your expertise is exactly database")
	assert.NotContains(t, got, "Previous Conversation Context")
	assert.Contains(t, got, "first person")

	got = gateway.SystemPrompt(dbExpert, "You: hi\n\n**Current Discussion:**\nNoreen Jamil: hello")
	assert.Contains(t, got, "**Previous Conversation Context:**\nYou: hi\n\n**Current Discussion:**\nNoreen Jamil: hello")
}
