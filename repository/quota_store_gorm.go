package repository

import (
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/LudoUniloan/unibot1-vercel-chatfuel/models"
)

// gormQuotaStore implements QuotaStore on a SQL database. It exists to
// demonstrate the store swap the in-memory default documents: same
// contract, same soft-limiter semantics, selected via database.dsn.
type gormQuotaStore struct {
	db *gorm.DB
}

// NewGormQuotaStore creates a QuotaStore backed by the given database.
func NewGormQuotaStore(db *gorm.DB) QuotaStore {
	return &gormQuotaStore{db: db}
}

func (s *gormQuotaStore) Get(userID string) (*models.UserQuota, error) {
	if userID == "" {
		return nil, errors.New("user ID cannot be empty")
	}

	var quota models.UserQuota
	err := s.db.First(&quota, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.UserQuota{UserID: userID}, nil
		}
		log.Printf("ERROR: [QuotaStore] Failed to fetch quota for user %s: %v", userID, err)
		return nil, fmt.Errorf("failed to fetch quota for user %s: %w", userID, err)
	}
	return &quota, nil
}

func (s *gormQuotaStore) Put(quota *models.UserQuota) error {
	if quota == nil || quota.UserID == "" {
		return errors.New("quota entry must carry a user ID")
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"day_key", "count", "updated_at"}),
	}).Create(quota).Error
	if err != nil {
		log.Printf("ERROR: [QuotaStore] Failed to upsert quota for user %s: %v", quota.UserID, err)
		return fmt.Errorf("failed to upsert quota for user %s: %w", quota.UserID, err)
	}
	return nil
}
