// Package postgres is a store.Store backed by PostgreSQL through pgxpool.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"

	"github.com/zhouzirui/expert-panel/backend/internal/model/chat"
	"github.com/zhouzirui/expert-panel/backend/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS chat_sessions (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
	seq         INTEGER NOT NULL,
	content     TEXT NOT NULL,
	sent_at     TIMESTAMPTZ NOT NULL,
	sender_id   TEXT NOT NULL,
	sender_name TEXT NOT NULL,
	sender_type TEXT NOT NULL,
	expertise   TEXT NOT NULL DEFAULT '',
	avatar      TEXT NOT NULL DEFAULT '',
	UNIQUE (session_id, seq)
);`

// PGStore persists sessions in PostgreSQL.
type PGStore struct {
	db *pgxpool.Pool
}

var _ store.Store = (*PGStore)(nil)

// Open connects to dsn and applies the schema.
func Open(ctx context.Context, dsn string) (*PGStore, error) {
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create postgres pool")
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, goerr.Wrap(err, "failed to reach postgres")
	}

	s := New(db)
	if err := s.CreateSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing pool. The caller owns the schema.
func New(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// CreateSchema creates the session tables if they do not exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return goerr.Wrap(err, "failed to create schema")
	}
	return nil
}

// DropSchema removes the session tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		DROP TABLE IF EXISTS chat_messages CASCADE;
		DROP TABLE IF EXISTS chat_sessions CASCADE;
	`)
	return err
}

func (s *PGStore) Close() error {
	s.db.Close()
	return nil
}

func (s *PGStore) Create(ctx context.Context) (chat.Session, error) {
	session := store.NewSession(uuid.NewString(), time.Now())

	_, err := s.db.Exec(ctx,
		`INSERT INTO chat_sessions (id, title, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		session.ID, session.Title, session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return chat.Session{}, goerr.Wrap(err, "failed to create session")
	}
	return session, nil
}

func (s *PGStore) Get(ctx context.Context, sessionID string) (chat.Session, error) {
	session := chat.Session{ID: sessionID}

	err := s.db.QueryRow(ctx,
		`SELECT title, created_at, updated_at FROM chat_sessions WHERE id = $1`,
		sessionID,
	).Scan(&session.Title, &session.CreatedAt, &session.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return chat.Session{}, store.ErrSessionNotFound
	}
	if err != nil {
		return chat.Session{}, goerr.Wrap(err, "failed to get session", goerr.V("session_id", sessionID))
	}

	session.CreatedAt = session.CreatedAt.UTC()
	session.UpdatedAt = session.UpdatedAt.UTC()
	return session, nil
}

// Append inserts messages with increasing seq numbers. The session row is
// locked for the duration so concurrent appends cannot collide on seq.
func (s *PGStore) Append(ctx context.Context, sessionID string, messages ...chat.Message) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to begin append")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var locked string
	err = tx.QueryRow(ctx, `SELECT id FROM chat_sessions WHERE id = $1 FOR UPDATE`, sessionID).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrSessionNotFound
	}
	if err != nil {
		return goerr.Wrap(err, "failed to lock session", goerr.V("session_id", sessionID))
	}

	for _, msg := range messages {
		_, err := tx.Exec(ctx,
			`INSERT INTO chat_messages
			 (id, session_id, seq, content, sent_at, sender_id, sender_name, sender_type, expertise, avatar)
			 VALUES ($1, $2, COALESCE((SELECT MAX(seq) FROM chat_messages WHERE session_id = $2), 0) + 1,
			         $3, $4, $5, $6, $7, $8, $9)`,
			msg.ID, sessionID, msg.Content, msg.Timestamp,
			msg.Sender.ID, msg.Sender.Name, string(msg.Sender.Type), msg.Sender.Expertise, msg.Sender.Avatar,
		)
		if err != nil {
			return goerr.Wrap(err, "failed to append message",
				goerr.V("session_id", sessionID), goerr.V("message_id", msg.ID))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return goerr.Wrap(err, "failed to commit append")
	}
	return nil
}

func (s *PGStore) Touch(ctx context.Context, sessionID string, at time.Time) error {
	tag, err := s.db.Exec(ctx, `UPDATE chat_sessions SET updated_at = $1 WHERE id = $2`, at.UTC(), sessionID)
	if err != nil {
		return goerr.Wrap(err, "failed to touch session", goerr.V("session_id", sessionID))
	}
	if tag.RowsAffected() == 0 {
		return store.ErrSessionNotFound
	}
	return nil
}

func (s *PGStore) Messages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	if _, err := s.Get(ctx, sessionID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, content, sent_at, sender_id, sender_name, sender_type, expertise, avatar
		 FROM chat_messages WHERE session_id = $1 ORDER BY seq ASC`,
		sessionID,
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list messages", goerr.V("session_id", sessionID))
	}
	defer rows.Close()

	messages := make([]chat.Message, 0)
	for rows.Next() {
		var (
			msg        chat.Message
			senderType string
		)
		if err := rows.Scan(&msg.ID, &msg.Content, &msg.Timestamp, &msg.Sender.ID, &msg.Sender.Name,
			&senderType, &msg.Sender.Expertise, &msg.Sender.Avatar); err != nil {
			return nil, goerr.Wrap(err, "failed to scan message")
		}
		msg.Timestamp = msg.Timestamp.UTC()
		msg.Sender.Type = chat.SenderType(senderType)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to list messages", goerr.V("session_id", sessionID))
	}

	return messages, nil
}
