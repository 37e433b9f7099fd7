package models

import "time"

// UserQuota tracks how many chat messages a user has sent during one
// calendar day. DayKey is a "YYYY-MM-DD" string in UTC; a stored entry
// whose DayKey differs from today is stale and restarts from zero.
type UserQuota struct {
	UserID    string    `gorm:"primaryKey"`
	DayKey    string    `gorm:"index"`
	Count     int       `gorm:"default:0"`
	CreatedAt time.Time // Automatically managed by GORM
	UpdatedAt time.Time // Automatically managed by GORM
}

// TableName specifies the table name for UserQuota model.
func (UserQuota) TableName() string {
	return "user_quotas"
}
