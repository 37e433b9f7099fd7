package repository

import (
	"sync"
	"time"
)

// LastSeenStore records the moment of each user's latest contact.
// Touch returns the previous timestamp (zero for a user never seen) so
// the idle check always compares against the prior contact, not the
// one being recorded.
type LastSeenStore interface {
	Touch(userID string, now time.Time) time.Time
}

type memoryLastSeenStore struct {
	seen map[string]time.Time
	mu   sync.Mutex
}

// NewMemoryLastSeenStore creates the in-process last-seen store.
func NewMemoryLastSeenStore() LastSeenStore {
	return &memoryLastSeenStore{
		seen: make(map[string]time.Time),
	}
}

func (s *memoryLastSeenStore) Touch(userID string, now time.Time) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.seen[userID]
	s.seen[userID] = now
	return previous
}
