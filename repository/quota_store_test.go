package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/LudoUniloan/unibot1-vercel-chatfuel/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&models.UserQuota{}))
	return db
}

// Both implementations must honor the same contract; run the shared
// suite against each.
func TestQuotaStores(t *testing.T) {
	stores := map[string]func(t *testing.T) QuotaStore{
		"memory": func(t *testing.T) QuotaStore { return NewMemoryQuotaStore() },
		"gorm":   func(t *testing.T) QuotaStore { return NewGormQuotaStore(openTestDB(t)) },
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			t.Run("unknown user yields a zero entry, not an error", func(t *testing.T) {
				store := newStore(t)
				quota, err := store.Get("nobody")
				assert.NoError(t, err)
				assert.Equal(t, "nobody", quota.UserID)
				assert.Equal(t, 0, quota.Count)
				assert.Empty(t, quota.DayKey)
			})

			t.Run("put then get round-trips", func(t *testing.T) {
				store := newStore(t)
				assert.NoError(t, store.Put(&models.UserQuota{UserID: "u1", DayKey: "2025-03-10", Count: 3}))

				quota, err := store.Get("u1")
				assert.NoError(t, err)
				assert.Equal(t, "2025-03-10", quota.DayKey)
				assert.Equal(t, 3, quota.Count)
			})

			t.Run("put overwrites the existing entry", func(t *testing.T) {
				store := newStore(t)
				assert.NoError(t, store.Put(&models.UserQuota{UserID: "u1", DayKey: "2025-03-10", Count: 3}))
				assert.NoError(t, store.Put(&models.UserQuota{UserID: "u1", DayKey: "2025-03-11", Count: 1}))

				quota, err := store.Get("u1")
				assert.NoError(t, err)
				assert.Equal(t, "2025-03-11", quota.DayKey)
				assert.Equal(t, 1, quota.Count)
			})

			t.Run("empty user ID is rejected", func(t *testing.T) {
				store := newStore(t)
				_, err := store.Get("")
				assert.Error(t, err)
				assert.Error(t, store.Put(&models.UserQuota{}))
			})
		})
	}
}

func TestMemoryQuotaStore_GetReturnsACopy(t *testing.T) {
	store := NewMemoryQuotaStore()
	assert.NoError(t, store.Put(&models.UserQuota{UserID: "u1", DayKey: "2025-03-10", Count: 3}))

	quota, _ := store.Get("u1")
	quota.Count = 99

	fresh, _ := store.Get("u1")
	assert.Equal(t, 3, fresh.Count, "mutating a returned entry must not affect the store")
}
