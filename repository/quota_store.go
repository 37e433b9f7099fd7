package repository

import (
	"errors"
	"sync"

	"github.com/LudoUniloan/unibot1-vercel-chatfuel/models"
)

// QuotaStore is the storage contract behind the daily quota tracker.
// Get returns a zero-count entry (never an error) for unknown users so
// callers can treat "no record" and "new day" uniformly. The store only
// guarantees that individual Get/Put calls are safe; the
// read-evaluate-write sequence in the quota service is deliberately not
// atomic across concurrent requests for the same user. That benign race
// can let a count slip slightly past the limit and is an accepted
// property of this soft anti-abuse guard, not a bug to lock away.
type QuotaStore interface {
	Get(userID string) (*models.UserQuota, error)
	Put(quota *models.UserQuota) error
}

type memoryQuotaStore struct {
	entries map[string]models.UserQuota
	mu      sync.RWMutex
}

// NewMemoryQuotaStore creates the default in-process quota store.
// Entries are never evicted; inactive users linger until restart.
func NewMemoryQuotaStore() QuotaStore {
	return &memoryQuotaStore{
		entries: make(map[string]models.UserQuota),
	}
}

func (s *memoryQuotaStore) Get(userID string) (*models.UserQuota, error) {
	if userID == "" {
		return nil, errors.New("user ID cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if entry, ok := s.entries[userID]; ok {
		// Return a copy so callers cannot mutate the stored entry.
		out := entry
		return &out, nil
	}
	return &models.UserQuota{UserID: userID}, nil
}

func (s *memoryQuotaStore) Put(quota *models.UserQuota) error {
	if quota == nil || quota.UserID == "" {
		return errors.New("quota entry must carry a user ID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[quota.UserID] = *quota
	return nil
}
