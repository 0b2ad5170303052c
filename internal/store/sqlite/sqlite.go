// Package sqlite is a store.Store backed by a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	_ "modernc.org/sqlite"

	"github.com/zhouzirui/expert-panel/backend/internal/model/chat"
	"github.com/zhouzirui/expert-panel/backend/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS chat_sessions (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_messages (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    content TEXT NOT NULL,
    sent_at INTEGER NOT NULL,
    sender_id TEXT NOT NULL,
    sender_name TEXT NOT NULL,
    sender_type TEXT NOT NULL,
    expertise TEXT NOT NULL DEFAULT '',
    avatar TEXT NOT NULL DEFAULT '',
    UNIQUE(session_id, seq)
);
`

// Store persists sessions in SQLite. Timestamps are stored as unix nanoseconds.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, goerr.New("sqlite path is required")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, goerr.Wrap(err, "failed to create db dir", goerr.V("dir", dir))
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open sqlite", goerr.V("path", path))
	}
	// One writer keeps appends ordered and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=3000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, goerr.Wrap(err, "failed to set pragma", goerr.V("pragma", p))
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to init schema")
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Create(ctx context.Context) (chat.Session, error) {
	session := store.NewSession(uuid.NewString(), time.Now())

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		session.ID, session.Title, session.CreatedAt.UnixNano(), session.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return chat.Session{}, goerr.Wrap(err, "failed to create session")
	}
	return session, nil
}

func (s *Store) Get(ctx context.Context, sessionID string) (chat.Session, error) {
	var (
		session          chat.Session
		created, updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, created_at, updated_at FROM chat_sessions WHERE id = ?`, sessionID,
	).Scan(&session.ID, &session.Title, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return chat.Session{}, store.ErrSessionNotFound
	}
	if err != nil {
		return chat.Session{}, goerr.Wrap(err, "failed to get session", goerr.V("session_id", sessionID))
	}

	session.CreatedAt = fromNanos(created)
	session.UpdatedAt = fromNanos(updated)
	return session, nil
}

func (s *Store) Append(ctx context.Context, sessionID string, messages ...chat.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin append")
	}
	defer func() { _ = tx.Rollback() }()

	var seq int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE((SELECT MAX(seq) FROM chat_messages WHERE session_id = ?), 0)
		 FROM chat_sessions WHERE id = ?`, sessionID, sessionID,
	).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrSessionNotFound
	}
	if err != nil {
		return goerr.Wrap(err, "failed to read message seq", goerr.V("session_id", sessionID))
	}

	for _, msg := range messages {
		seq++
		_, err := tx.ExecContext(ctx,
			`INSERT INTO chat_messages
			 (id, session_id, seq, content, sent_at, sender_id, sender_name, sender_type, expertise, avatar)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			msg.ID, sessionID, seq, msg.Content, msg.Timestamp.UnixNano(),
			msg.Sender.ID, msg.Sender.Name, string(msg.Sender.Type), msg.Sender.Expertise, msg.Sender.Avatar,
		)
		if err != nil {
			return goerr.Wrap(err, "failed to append message",
				goerr.V("session_id", sessionID), goerr.V("message_id", msg.ID))
		}
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit append")
	}
	return nil
}

func (s *Store) Touch(ctx context.Context, sessionID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE chat_sessions SET updated_at = ? WHERE id = ?`, at.UTC().UnixNano(), sessionID,
	)
	if err != nil {
		return goerr.Wrap(err, "failed to touch session", goerr.V("session_id", sessionID))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrSessionNotFound
	}
	return nil
}

func (s *Store) Messages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	if _, err := s.Get(ctx, sessionID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, sent_at, sender_id, sender_name, sender_type, expertise, avatar
		 FROM chat_messages WHERE session_id = ? ORDER BY seq ASC`, sessionID,
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list messages", goerr.V("session_id", sessionID))
	}
	defer rows.Close()

	messages := make([]chat.Message, 0)
	for rows.Next() {
		var (
			msg        chat.Message
			sentAt     int64
			senderType string
		)
		if err := rows.Scan(&msg.ID, &msg.Content, &sentAt, &msg.Sender.ID, &msg.Sender.Name,
			&senderType, &msg.Sender.Expertise, &msg.Sender.Avatar); err != nil {
			return nil, goerr.Wrap(err, "failed to scan message")
		}
		msg.Timestamp = fromNanos(sentAt)
		msg.Sender.Type = chat.SenderType(senderType)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to list messages", goerr.V("session_id", sessionID))
	}

	return messages, nil
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
