package chat

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreEvictsOldestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(4)
	conv, err := store.CreateConversation(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultTitle, conv.Title)

	for i := 0; i < 6; i++ {
		require.NoError(t, store.Append(ctx, Message{ConversationID: conv.ID, Role: RoleUser, Content: fmt.Sprintf("m%d", i)}))
	}

	msgs, err := store.History(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, "m2", msgs[0].Content)
	assert.Equal(t, "m5", msgs[3].Content)
	for _, m := range msgs {
		assert.NotEqual(t, uuid.Nil, m.ID)
		assert.False(t, m.CreatedAt.IsZero())
	}
}

func TestMemoryStoreUnknownConversation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10)
	id := uuid.New()

	_, err := store.History(ctx, id)
	assert.ErrorIs(t, err, ErrConversationNotFound)
	assert.ErrorIs(t, store.Append(ctx, Message{ConversationID: id}), ErrConversationNotFound)
	assert.ErrorIs(t, store.Clear(ctx, id), ErrConversationNotFound)
	assert.ErrorIs(t, store.SetTitle(ctx, id, "x"), ErrConversationNotFound)
	_, err = store.GetConversation(ctx, id)
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestMemoryStoreClearAndTitle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10)
	conv, err := store.CreateConversation(ctx)
	require.NoError(t, err)

	require.NoError(t, store.Append(ctx, Message{ConversationID: conv.ID, Role: RoleUser, Content: "hi"}))
	require.NoError(t, store.SetTitle(ctx, conv.ID, "RSI Strategies"))
	require.NoError(t, store.Clear(ctx, conv.ID))

	msgs, err := store.History(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	got, err := store.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "RSI Strategies", got.Title)
}

func TestMemoryStoreListsMostRecentlyUpdatedFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10)
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	first, err := store.CreateConversation(ctx)
	require.NoError(t, err)
	second, err := store.CreateConversation(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, Message{ConversationID: first.ID, Role: RoleUser, Content: "bump"}))

	convs, err := store.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, first.ID, convs[0].ID)
	assert.Equal(t, second.ID, convs[1].ID)
}

func TestMemoryStoreListBreaksTiesByNewestCreated(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10)
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		conv, err := store.CreateConversation(ctx)
		require.NoError(t, err)
		ids = append(ids, conv.ID)
	}

	convs, err := store.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 3)
	assert.Equal(t, []uuid.UUID{ids[2], ids[1], ids[0]}, []uuid.UUID{convs[0].ID, convs[1].ID, convs[2].ID})
}
