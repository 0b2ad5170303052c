// Package storetest holds the contract every store.Store implementation must
// satisfy.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/expert-panel/backend/internal/model/chat"
	"github.com/zhouzirui/expert-panel/backend/internal/store"
)

// Run exercises the store contract. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("create and get", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		session, err := s.Create(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, session.ID)
		assert.Equal(t, chat.DefaultTitle, session.Title)
		assert.False(t, session.CreatedAt.IsZero())
		assert.True(t, session.CreatedAt.Equal(session.UpdatedAt))

		got, err := s.Get(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, session.ID, got.ID)
		assert.Equal(t, session.Title, got.Title)
		assert.WithinDuration(t, session.CreatedAt, got.CreatedAt, time.Millisecond)

		other, err := s.Create(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, session.ID, other.ID)
	})

	t.Run("unknown session", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		missing := uuid.NewString()

		_, err := s.Get(ctx, missing)
		assert.ErrorIs(t, err, store.ErrSessionNotFound)
		_, err = s.Messages(ctx, missing)
		assert.ErrorIs(t, err, store.ErrSessionNotFound)
		assert.ErrorIs(t, s.Append(ctx, missing, userMessage("hi")), store.ErrSessionNotFound)
		assert.ErrorIs(t, s.Touch(ctx, missing, time.Now()), store.ErrSessionNotFound)
	})

	t.Run("append keeps insertion order", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		session, err := s.Create(ctx)
		require.NoError(t, err)

		messages, err := s.Messages(ctx, session.ID)
		require.NoError(t, err)
		assert.Empty(t, messages)

		first := userMessage("how do I index this?")
		second := expertMessage("Add a composite index.")
		third := expertMessage("Also watch the write amplification.")
		require.NoError(t, s.Append(ctx, session.ID, first))
		require.NoError(t, s.Append(ctx, session.ID, second, third))

		messages, err = s.Messages(ctx, session.ID)
		require.NoError(t, err)
		require.Len(t, messages, 3)
		assertMessage(t, first, messages[0])
		assertMessage(t, second, messages[1])
		assertMessage(t, third, messages[2])
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		a, err := s.Create(ctx)
		require.NoError(t, err)
		b, err := s.Create(ctx)
		require.NoError(t, err)

		require.NoError(t, s.Append(ctx, a.ID, userMessage("only in a")))

		messages, err := s.Messages(ctx, b.ID)
		require.NoError(t, err)
		assert.Empty(t, messages)
	})

	t.Run("touch updates timestamp", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		session, err := s.Create(ctx)
		require.NoError(t, err)

		later := session.UpdatedAt.Add(time.Minute)
		require.NoError(t, s.Touch(ctx, session.ID, later))

		got, err := s.Get(ctx, session.ID)
		require.NoError(t, err)
		assert.WithinDuration(t, later, got.UpdatedAt, time.Millisecond)
		assert.WithinDuration(t, session.CreatedAt, got.CreatedAt, time.Millisecond)
	})

	t.Run("concurrent appends", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		session, err := s.Create(ctx)
		require.NoError(t, err)

		const writers = 8
		var wg sync.WaitGroup
		for i := range writers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, s.Append(ctx, session.ID, userMessage(fmt.Sprintf("message %d", i))))
			}()
		}
		wg.Wait()

		messages, err := s.Messages(ctx, session.ID)
		require.NoError(t, err)
		assert.Len(t, messages, writers)
	})
}

func userMessage(content string) chat.Message {
	return chat.Message{
		ID:        uuid.NewString(),
		Content:   content,
		Timestamp: time.Now().UTC(),
		Sender:    chat.UserSender,
	}
}

func expertMessage(content string) chat.Message {
	return chat.Message{
		ID:        uuid.NewString(),
		Content:   content,
		Timestamp: time.Now().UTC(),
		Sender: chat.Sender{
			ID:        "expert-database",
			Name:      "Ashar Khan",
			Type:      chat.SenderExpert,
			Expertise: "database",
			Avatar:    "🗄️",
		},
	}
}

func assertMessage(t *testing.T, want, got chat.Message) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Content, got.Content)
	assert.Equal(t, want.Sender, got.Sender)
	assert.WithinDuration(t, want.Timestamp, got.Timestamp, time.Millisecond)
}
