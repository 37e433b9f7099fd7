package repository

import (
	"errors"
	"sync"

	"github.com/LudoUniloan/unibot1-vercel-chatfuel/models"
)

// ChatRepository stores per-user chat transcripts in process memory.
// The transcript feeds context to the stateless completion fallback and
// is lost on restart, like the rest of the conversation state.
type ChatRepository interface {
	SaveMessage(message models.ChatMessage) error
	GetMessagesByUserID(userID string) ([]models.ChatMessage, error)
}

type chatRepository struct {
	messages map[string][]models.ChatMessage
	mu       sync.RWMutex
}

// NewChatRepository creates an in-memory chat repository.
func NewChatRepository() ChatRepository {
	return &chatRepository{
		messages: make(map[string][]models.ChatMessage),
	}
}

func (r *chatRepository) SaveMessage(message models.ChatMessage) error {
	if message.UserID == "" {
		return errors.New("cannot save message: user ID is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	userMessages := r.messages[message.UserID]
	message.ID = uint(len(userMessages) + 1) // per-user monotonically increasing
	r.messages[message.UserID] = append(userMessages, message)
	return nil
}

func (r *chatRepository) GetMessagesByUserID(userID string) ([]models.ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userMessages, exists := r.messages[userID]
	if !exists || len(userMessages) == 0 {
		// No messages is an empty result, not an error.
		return []models.ChatMessage{}, nil
	}

	// Copy so callers cannot mutate internal storage.
	result := make([]models.ChatMessage, len(userMessages))
	copy(result, userMessages)
	return result, nil
}
