package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/LudoUniloan/unibot1-vercel-chatfuel/models"
)

func TestChatRepository(t *testing.T) {
	t.Run("messages are stored per user in order", func(t *testing.T) {
		repo := NewChatRepository()
		now := time.Now()

		assert.NoError(t, repo.SaveMessage(models.ChatMessage{UserID: "u1", Role: "user", Content: "Bonjour", Timestamp: now}))
		assert.NoError(t, repo.SaveMessage(models.ChatMessage{UserID: "u1", Role: "assistant", Content: "Salut !", Timestamp: now}))
		assert.NoError(t, repo.SaveMessage(models.ChatMessage{UserID: "u2", Role: "user", Content: "Hello", Timestamp: now}))

		msgs, err := repo.GetMessagesByUserID("u1")
		assert.NoError(t, err)
		assert.Len(t, msgs, 2)
		assert.Equal(t, "Bonjour", msgs[0].Content)
		assert.Equal(t, uint(1), msgs[0].ID)
		assert.Equal(t, "Salut !", msgs[1].Content)
		assert.Equal(t, uint(2), msgs[1].ID)
	})

	t.Run("unknown user yields an empty slice", func(t *testing.T) {
		repo := NewChatRepository()
		msgs, err := repo.GetMessagesByUserID("nobody")
		assert.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("empty user ID is rejected", func(t *testing.T) {
		repo := NewChatRepository()
		assert.Error(t, repo.SaveMessage(models.ChatMessage{Content: "orphan"}))
	})

	t.Run("returned slice is a copy", func(t *testing.T) {
		repo := NewChatRepository()
		repo.SaveMessage(models.ChatMessage{UserID: "u1", Role: "user", Content: "original"})

		msgs, _ := repo.GetMessagesByUserID("u1")
		msgs[0].Content = "tampered"

		fresh, _ := repo.GetMessagesByUserID("u1")
		assert.Equal(t, "original", fresh[0].Content)
	})
}

func TestMemoryLastSeenStore(t *testing.T) {
	store := NewMemoryLastSeenStore()
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	previous := store.Touch("u1", base)
	assert.True(t, previous.IsZero(), "a user never seen has no previous contact")

	previous = store.Touch("u1", base.Add(10*time.Minute))
	assert.Equal(t, base, previous)

	// Other users are independent.
	previous = store.Touch("u2", base)
	assert.True(t, previous.IsZero())
}
