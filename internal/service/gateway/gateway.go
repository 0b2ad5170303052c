// Package gateway turns a persona and a user message into expert text. Backend
// failures never reach the caller: they are replaced by canned replies, and in
// streaming mode the canned reply is replayed word by word.
package gateway

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/m-mizutani/goerr/v2"
	"go.uber.org/zap"

	"github.com/zhouzirui/expert-panel/backend/internal/model/persona"
	"github.com/zhouzirui/expert-panel/backend/internal/service/ai"
)

const (
	defaultReplayDelayMin = 50 * time.Millisecond
	defaultReplayDelayMax = 100 * time.Millisecond
)

// Gateway wraps an ai.Backend with prompt assembly and the fallback policy.
type Gateway struct {
	backend ai.Backend
	logger  *zap.Logger

	cannedFallback bool
	delayMin       time.Duration
	delayMax       time.Duration

	randMu sync.Mutex
	rand   *rand.Rand
}

// Option customises a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger used for recovered backend failures.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithCannedFallback selects between the canned pool (true) and the single
// per-tag fallback sentence (false) when the backend fails.
func WithCannedFallback(enabled bool) Option {
	return func(g *Gateway) { g.cannedFallback = enabled }
}

// WithReplayDelay sets the per-word delay range of simulated streams.
func WithReplayDelay(lo, hi time.Duration) Option {
	return func(g *Gateway) {
		if lo < 0 {
			lo = 0
		}
		if hi < lo {
			hi = lo
		}
		g.delayMin, g.delayMax = lo, hi
	}
}

// WithRand fixes the random source, mostly for tests.
func WithRand(r *rand.Rand) Option {
	return func(g *Gateway) {
		if r != nil {
			g.rand = r
		}
	}
}

// New creates a gateway. A nil backend serves canned replies only.
func New(backend ai.Backend, opts ...Option) *Gateway {
	g := &Gateway{
		backend:        backend,
		logger:         zap.NewNop(),
		cannedFallback: true,
		delayMin:       defaultReplayDelayMin,
		delayMax:       defaultReplayDelayMax,
		rand:           rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.Named("gateway")
	return g
}

// Respond returns the persona's whole answer. It never fails: backend errors
// and empty answers are replaced by a fallback reply.
func (g *Gateway) Respond(ctx context.Context, p persona.Persona, userMessage, discussion string) string {
	if g.backend == nil {
		return g.canned(p.Expertise)
	}

	text, err := g.backend.Generate(ctx, SystemPrompt(p, discussion), userMessage)
	if err == nil && strings.TrimSpace(text) != "" {
		return text
	}

	g.logger.Warn("completion failed, using fallback",
		zap.String("persona", p.ID), zap.Error(errOrEmpty(err)))
	return g.fallback(p.Expertise)
}

// RespondStream returns the persona's answer as text fragments. io.EOF ends
// the stream. Backend failures are never passed on: the fallback reply is
// replayed instead, after any fragments already delivered. The stream only
// ends in an error when ctx is done. Callers must Close the reader.
func (g *Gateway) RespondStream(ctx context.Context, p persona.Persona, userMessage, discussion string) *schema.StreamReader[string] {
	reader, writer := schema.Pipe[string](1)

	if g.backend == nil {
		go func() {
			defer writer.Close()
			g.replay(ctx, writer, g.canned(p.Expertise), false)
		}()
		return reader
	}

	upstream, err := g.backend.Stream(ctx, SystemPrompt(p, discussion), userMessage)
	if err != nil {
		g.logger.Warn("completion stream failed to open, replaying fallback",
			zap.String("persona", p.ID), zap.Error(err))
		go func() {
			defer writer.Close()
			g.replay(ctx, writer, g.fallback(p.Expertise), false)
		}()
		return reader
	}

	go func() {
		defer writer.Close()
		defer upstream.Close()
		g.forward(ctx, p, upstream, writer)
	}()
	return reader
}

func (g *Gateway) forward(ctx context.Context, p persona.Persona, upstream *schema.StreamReader[string], writer *schema.StreamWriter[string]) {
	delivered := false
	for {
		chunk, err := upstream.Recv()
		if errors.Is(err, io.EOF) {
			if !delivered {
				g.logger.Warn("completion stream was empty, replaying fallback", zap.String("persona", p.ID))
				g.replay(ctx, writer, g.fallback(p.Expertise), false)
			}
			return
		}
		if err != nil {
			g.logger.Warn("completion stream failed, replaying fallback",
				zap.String("persona", p.ID), zap.Bool("partial", delivered),
				zap.Error(goerr.Wrap(err, "completion stream interrupted", goerr.V("persona", p.ID))))
			g.replay(ctx, writer, g.fallback(p.Expertise), delivered)
			return
		}
		if chunk == "" {
			continue
		}

		delivered = true
		if closed := writer.Send(chunk, nil); closed {
			return
		}
	}
}

// replay emits text as a simulated token stream: the first word bare, later
// words with a leading space, with a random pause between words. When
// continued is set the text follows fragments already sent, so the first
// word gets a leading space too.
func (g *Gateway) replay(ctx context.Context, writer *schema.StreamWriter[string], text string, continued bool) {
	words := strings.Split(text, " ")
	for i, word := range words {
		fragment := word
		if i > 0 || continued {
			fragment = " " + word
		}
		if closed := writer.Send(fragment, nil); closed {
			return
		}
		if i == len(words)-1 {
			return
		}

		if delay := g.replayDelay(); delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				writer.Send("", ctx.Err())
				return
			case <-timer.C:
			}
		} else if ctx.Err() != nil {
			writer.Send("", ctx.Err())
			return
		}
	}
}

func (g *Gateway) fallback(tag persona.Expertise) string {
	if g.cannedFallback {
		return g.canned(tag)
	}
	return FallbackSentence(tag)
}

func (g *Gateway) canned(tag persona.Expertise) string {
	pool := CannedPool(tag)
	if len(pool) == 0 {
		return defaultFallback
	}

	g.randMu.Lock()
	idx := g.rand.IntN(len(pool))
	g.randMu.Unlock()
	return pool[idx]
}

func (g *Gateway) replayDelay() time.Duration {
	if g.delayMax <= g.delayMin {
		return g.delayMin
	}

	g.randMu.Lock()
	jitter := g.rand.Int64N(int64(g.delayMax - g.delayMin))
	g.randMu.Unlock()
	return g.delayMin + time.Duration(jitter)
}

func errOrEmpty(err error) error {
	if err != nil {
		return err
	}
	return ai.ErrEmptyResponse
}
