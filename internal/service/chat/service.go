// Package chat runs conversation turns: it resolves the session, records the
// user message, asks the classifier which experts answer and collects their
// replies, whole or streamed.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/expert-panel/backend/internal/analysis/expertise"
	"github.com/zhouzirui/expert-panel/backend/internal/model/chat"
	"github.com/zhouzirui/expert-panel/backend/internal/model/persona"
	"github.com/zhouzirui/expert-panel/backend/internal/store"
)

// ErrEmptyContent rejects blank user messages before any state changes.
var ErrEmptyContent = errors.New("message content is required")

const (
	defaultHistoryLimit = 5
	currentDiscussion   = "\n\n**Current Discussion:**\n"
)

// Responder produces expert replies. *gateway.Gateway implements it.
type Responder interface {
	Respond(ctx context.Context, p persona.Persona, userMessage, discussion string) string
	RespondStream(ctx context.Context, p persona.Persona, userMessage, discussion string) *schema.StreamReader[string]
}

// Config tunes the orchestrator.
type Config struct {
	// HistoryLimit is how many recent session messages form the discussion context.
	HistoryLimit int
}

// TurnResult is the outcome of a non-streamed turn.
type TurnResult struct {
	Message         chat.Message   `json:"message"`
	ExpertResponses []chat.Message `json:"expertResponses"`
	SessionID       string         `json:"sessionId"`
}

// Service orchestrates conversation turns.
type Service struct {
	sessions   store.Store
	personas   persona.Store
	classifier *expertise.Classifier
	responder  Responder
	logger     *zap.Logger
	history    int

	locksMu sync.Mutex
	locks   map[string]*sessionLock // dropped when the last holder unlocks

	now func() time.Time
}

// NewService wires the orchestrator. The classifier is built from the persona registry.
func NewService(sessions store.Store, personas persona.Store, responder Responder, logger *zap.Logger, cfg Config) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.HistoryLimit < 1 {
		cfg.HistoryLimit = defaultHistoryLimit
	}

	return &Service{
		sessions:   sessions,
		personas:   personas,
		classifier: expertise.New(personas.List()),
		responder:  responder,
		logger:     logger.Named("chat"),
		history:    cfg.HistoryLimit,
		locks:      make(map[string]*sessionLock),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Personas lists the registry.
func (s *Service) Personas() []persona.Persona {
	return s.personas.List()
}

// Messages returns a session's transcript in order. Unknown sessions yield an
// empty list.
func (s *Service) Messages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	messages, err := s.sessions.Messages(ctx, sessionID)
	if errors.Is(err, store.ErrSessionNotFound) {
		return []chat.Message{}, nil
	}
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// SendMessage runs a whole turn. Experts answer concurrently from the same
// discussion context; their replies are returned in classifier order.
func (s *Service) SendMessage(ctx context.Context, content, sessionID string) (*TurnResult, error) {
	turn, err := s.begin(ctx, content, sessionID)
	if err != nil {
		return nil, err
	}
	defer turn.unlock()

	experts := s.selectExperts(content)
	replies := make([]*chat.Message, len(experts))

	var g errgroup.Group
	for i, p := range experts {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("expert reply panicked",
						zap.String("persona", p.ID), zap.Any("panic", r))
				}
			}()

			text := s.responder.Respond(ctx, p, content, turn.history)
			if strings.TrimSpace(text) == "" {
				s.logger.Warn("expert produced no reply", zap.String("persona", p.ID))
				return nil
			}
			msg := s.expertMessage(uuid.NewString(), p, text)
			replies[i] = &msg
			return nil
		})
	}
	_ = g.Wait()

	responses := make([]chat.Message, 0, len(replies))
	for _, reply := range replies {
		if reply != nil {
			responses = append(responses, *reply)
		}
	}

	if len(responses) > 0 {
		if err := s.sessions.Append(ctx, turn.session.ID, responses...); err != nil {
			return nil, goerr.Wrap(err, "failed to store expert replies", goerr.V("session_id", turn.session.ID))
		}
	}
	if err := s.finish(ctx, turn.session.ID); err != nil {
		return nil, err
	}

	s.logger.Info("turn complete",
		zap.String("session_id", turn.session.ID),
		zap.Int("experts", len(experts)),
		zap.Int("replies", len(responses)))

	return &TurnResult{
		Message:         turn.user,
		ExpertResponses: responses,
		SessionID:       turn.session.ID,
	}, nil
}

// StreamMessage runs a turn and emits its frames to sink. Experts answer one
// after another, each seeing the full replies given earlier in the turn.
// Errors returned before the first frame are validation or storage failures;
// later errors mean the turn was aborted and the caller should send
// ErrorEvent.
func (s *Service) StreamMessage(ctx context.Context, content, sessionID string, sink EventSink) error {
	turn, err := s.begin(ctx, content, sessionID)
	if err != nil {
		return err
	}
	defer turn.unlock()

	user := turn.user
	if err := sink.Emit(Event{Type: EventUserMessage, Message: &user, SessionID: turn.session.ID}); err != nil {
		return goerr.Wrap(err, "failed to emit user message")
	}

	var earlier []string
	for _, p := range s.selectExperts(content) {
		if ctx.Err() != nil {
			s.logger.Info("turn cancelled, skipping remaining experts", zap.String("session_id", turn.session.ID))
			break
		}

		messageID := uuid.NewString()
		start := Event{
			Type:      EventExpertStart,
			MessageID: messageID,
			Expert:    &ExpertRef{ID: p.ID, Name: p.Name, Expertise: p.Expertise, Avatar: p.Avatar},
		}
		if err := sink.Emit(start); err != nil {
			return goerr.Wrap(err, "failed to emit expert start", goerr.V("persona", p.ID))
		}

		discussion := turn.history
		if len(earlier) > 0 {
			discussion += currentDiscussion + strings.Join(earlier, "\n\n")
		}

		text, genErr, sinkErr := s.relay(ctx, p, messageID, discussion, content, sink)
		if sinkErr != nil {
			return sinkErr
		}
		if genErr == nil && text == "" {
			genErr = goerr.New("expert produced no reply")
		}
		if genErr != nil {
			s.logger.Warn("expert stream failed", zap.String("persona", p.ID), zap.Error(genErr))
			failed := Event{
				Type:      EventExpertError,
				MessageID: messageID,
				Error:     fmt.Sprintf("Failed to generate response from %s", p.Name),
			}
			if err := sink.Emit(failed); err != nil {
				return goerr.Wrap(err, "failed to emit expert error", goerr.V("persona", p.ID))
			}
			continue
		}

		// A reply that streamed completely is kept even if the client left meanwhile.
		msg := s.expertMessage(messageID, p, text)
		if err := s.sessions.Append(context.WithoutCancel(ctx), turn.session.ID, msg); err != nil {
			return goerr.Wrap(err, "failed to store expert reply", goerr.V("session_id", turn.session.ID))
		}
		earlier = append(earlier, p.Name+": "+text)

		if err := sink.Emit(Event{Type: EventExpertComplete, MessageID: messageID, Message: &msg}); err != nil {
			return goerr.Wrap(err, "failed to emit expert complete", goerr.V("persona", p.ID))
		}
	}

	if err := s.finish(ctx, turn.session.ID); err != nil {
		return err
	}
	if err := sink.Emit(Event{Type: EventComplete, SessionID: turn.session.ID}); err != nil {
		return goerr.Wrap(err, "failed to emit complete")
	}

	s.logger.Info("streamed turn complete",
		zap.String("session_id", turn.session.ID), zap.Int("replies", len(earlier)))
	return nil
}

// relay forwards one expert's fragments to sink and returns the full text.
func (s *Service) relay(ctx context.Context, p persona.Persona, messageID, discussion, content string, sink EventSink) (string, error, error) {
	sr := s.responder.RespondStream(ctx, p, content, discussion)
	defer sr.Close()

	ref := &ExpertRef{ID: p.ID, Name: p.Name}
	var full strings.Builder
	for {
		chunk, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			return full.String(), nil, nil
		}
		if err != nil {
			return full.String(), err, nil
		}
		if chunk == "" {
			continue
		}

		full.WriteString(chunk)
		if err := sink.Emit(Event{Type: EventExpertChunk, MessageID: messageID, Chunk: chunk, Expert: ref}); err != nil {
			return full.String(), nil, goerr.Wrap(err, "failed to emit expert chunk", goerr.V("persona", p.ID))
		}
	}
}

type turn struct {
	session chat.Session
	user    chat.Message
	history string
	unlock  func()
}

// begin validates the content, resolves the session, records the user
// message and snapshots the discussion history. The session lock is held
// until turn.unlock is called.
func (s *Service) begin(ctx context.Context, content, sessionID string) (*turn, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	session, err := s.resolveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	unlock := s.lock(session.ID)
	user := chat.Message{
		ID:        uuid.NewString(),
		Content:   content,
		Timestamp: s.now(),
		Sender:    chat.UserSender,
	}
	if err := s.sessions.Append(ctx, session.ID, user); err != nil {
		unlock()
		return nil, goerr.Wrap(err, "failed to store user message", goerr.V("session_id", session.ID))
	}

	history, err := s.recentHistory(ctx, session.ID)
	if err != nil {
		unlock()
		return nil, err
	}

	return &turn{session: session, user: user, history: history, unlock: unlock}, nil
}

func (s *Service) resolveSession(ctx context.Context, sessionID string) (chat.Session, error) {
	if sessionID != "" {
		session, err := s.sessions.Get(ctx, sessionID)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, store.ErrSessionNotFound) {
			return chat.Session{}, goerr.Wrap(err, "failed to load session", goerr.V("session_id", sessionID))
		}
	}

	session, err := s.sessions.Create(ctx)
	if err != nil {
		return chat.Session{}, goerr.Wrap(err, "failed to create session")
	}
	s.logger.Debug("session created", zap.String("session_id", session.ID))
	return session, nil
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// lock serialises turns on one session. The returned func releases it.
func (s *Service) lock(sessionID string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		s.locks[sessionID] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, sessionID)
		}
		s.locksMu.Unlock()
	}
}

// recentHistory renders the last messages as "name: content" lines.
func (s *Service) recentHistory(ctx context.Context, sessionID string) (string, error) {
	messages, err := s.sessions.Messages(ctx, sessionID)
	if err != nil {
		return "", goerr.Wrap(err, "failed to load history", goerr.V("session_id", sessionID))
	}
	if len(messages) > s.history {
		messages = messages[len(messages)-s.history:]
	}

	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		lines = append(lines, msg.Sender.Name+": "+msg.Content)
	}
	return strings.Join(lines, "\n"), nil
}

// selectExperts maps classifier tags to personas; tags without a persona are skipped.
func (s *Service) selectExperts(content string) []persona.Persona {
	tags := s.classifier.Classify(content)
	experts := make([]persona.Persona, 0, len(tags))
	for _, tag := range tags {
		p, ok := s.personas.FindByExpertise(tag)
		if !ok {
			s.logger.Debug("no persona for expertise", zap.String("expertise", string(tag)))
			continue
		}
		experts = append(experts, p)
	}
	return experts
}

func (s *Service) expertMessage(id string, p persona.Persona, text string) chat.Message {
	return chat.Message{
		ID:        id,
		Content:   text,
		Timestamp: s.now(),
		Sender: chat.Sender{
			ID:        p.ID,
			Name:      p.Name,
			Type:      chat.SenderExpert,
			Expertise: string(p.Expertise),
			Avatar:    p.Avatar,
		},
	}
}

// finish stamps the session; it runs even when ctx was cancelled mid-turn.
func (s *Service) finish(ctx context.Context, sessionID string) error {
	if err := s.sessions.Touch(context.WithoutCancel(ctx), sessionID, s.now()); err != nil {
		return goerr.Wrap(err, "failed to update session", goerr.V("session_id", sessionID))
	}
	return nil
}
