// Package store persists chat sessions and their append-only transcripts.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/zhouzirui/expert-panel/backend/internal/model/chat"
)

// ErrSessionNotFound is returned for unknown session ids.
var ErrSessionNotFound = errors.New("store: session not found")

// Store is the session persistence contract. Messages are returned in
// insertion order.
type Store interface {
	Create(ctx context.Context) (chat.Session, error)
	Get(ctx context.Context, sessionID string) (chat.Session, error)
	Append(ctx context.Context, sessionID string, messages ...chat.Message) error
	Touch(ctx context.Context, sessionID string, at time.Time) error
	Messages(ctx context.Context, sessionID string) ([]chat.Message, error)
	Close() error
}

// NewSession returns a fresh session record with the default title.
func NewSession(id string, now time.Time) chat.Session {
	now = now.UTC()
	return chat.Session{
		ID:        id,
		Title:     chat.DefaultTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
