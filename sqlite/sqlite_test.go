package sqlite_test

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/drip"
	"github.com/fwojciec/drip/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "drip.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	var tick atomic.Int64
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	sqlite.SetNow(s, func() time.Time {
		return base.Add(time.Duration(tick.Add(1)) * time.Second)
	})
	return s
}

func TestStore_CreateAndLoad(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openStore(t)

	conv, err := s.CreateConversation(ctx, "gpt-4o")
	require.NoError(t, err)
	require.NotEmpty(t, conv.ID)

	got, err := s.Conversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, got.ID)
	assert.Equal(t, "gpt-4o", got.Model)
	assert.False(t, got.DiscardTokenLimits)
	assert.True(t, conv.CreatedAt.Equal(got.CreatedAt))
	assert.Empty(t, got.Messages)
}

func TestStore_ConversationNotFound(t *testing.T) {
	t.Parallel()
	s := openStore(t)
	_, err := s.Conversation(context.Background(), "missing")
	assert.ErrorIs(t, err, drip.ErrConversationNotFound)
}

func TestStore_SaveMessage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openStore(t)

	conv, err := s.CreateConversation(ctx, "gpt-4o")
	require.NoError(t, err)

	require.NoError(t, s.SaveMessage(ctx, "Hi there", drip.CompletionParams{
		Conversation: conv,
		Message:      drip.Message{ID: "m1", Prompt: "Hello"},
	}))
	require.NoError(t, s.SaveMessage(ctx, "Fine", drip.CompletionParams{
		Conversation: conv,
		Message:      drip.Message{ID: "m2", Prompt: "How are you?"},
	}))

	got, err := s.Conversation(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "m1", got.Messages[0].ID)
	assert.Equal(t, "Hello", got.Messages[0].Prompt)
	assert.Equal(t, "Hi there", got.Messages[0].Response)
	assert.Equal(t, "m2", got.Messages[1].ID)
	assert.Equal(t, "Hello\nHi there\nHow are you?\nFine", got.Text())
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))
}

func TestStore_SaveMessageReplacesResponse(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openStore(t)
	conv := &drip.Conversation{ID: "adhoc", Model: "claude-sonnet-4"}

	params := drip.CompletionParams{Conversation: conv, Message: drip.Message{ID: "m1", Prompt: "q"}}
	require.NoError(t, s.SaveMessage(ctx, "partial", params))
	require.NoError(t, s.SaveMessage(ctx, "final", params))

	got, err := s.Conversation(ctx, "adhoc")
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4", got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "final", got.Messages[0].Response)
}

func TestStore_SaveMessageRequiresConversation(t *testing.T) {
	t.Parallel()
	s := openStore(t)
	err := s.SaveMessage(context.Background(), "x", drip.CompletionParams{})
	assert.ErrorIs(t, err, drip.ErrValidation)
}

func TestStore_DiscardTokenLimits(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openStore(t)

	conv, err := s.CreateConversation(ctx, "gpt-4")
	require.NoError(t, err)
	require.NoError(t, s.DiscardTokenLimits(ctx, conv))

	got, err := s.Conversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.True(t, got.DiscardTokenLimits)

	err = s.DiscardTokenLimits(ctx, &drip.Conversation{ID: "missing"})
	assert.ErrorIs(t, err, drip.ErrConversationNotFound)
}

func TestStore_Reopen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "drip.db")

	s, err := sqlite.Open(path)
	require.NoError(t, err)
	conv, err := s.CreateConversation(ctx, "gpt-4o")
	require.NoError(t, err)
	require.NoError(t, s.SaveMessage(ctx, "a", drip.CompletionParams{Conversation: conv, Message: drip.Message{Prompt: "q"}}))
	require.NoError(t, s.Close())

	s, err = sqlite.Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Conversation(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.NotEmpty(t, got.Messages[0].ID)
}
