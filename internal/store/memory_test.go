package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/expert-panel/backend/internal/model/chat"
	"github.com/zhouzirui/expert-panel/backend/internal/store"
	"github.com/zhouzirui/expert-panel/backend/internal/store/storetest"
)

func TestMemoryContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return store.NewMemory()
	})
}

func TestMemoryMessagesReturnsCopy(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()

	session, err := s.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, session.ID, chat.Message{ID: "m1", Content: "original", Sender: chat.UserSender}))

	messages, err := s.Messages(ctx, session.ID)
	require.NoError(t, err)
	messages[0].Content = "mutated"

	again, err := s.Messages(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", again[0].Content)
}
