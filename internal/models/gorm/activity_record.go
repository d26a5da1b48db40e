package gorm

import (
	"time"

	"github.com/SamSjosten/FitChallenge-sub003/internal/constants"
	gormlib "gorm.io/gorm"
)

// ActivityRecord is the canonical persisted form of a provider sample.
// ExternalID is the content hash; (UserID, ExternalID) is the idempotency key.
type ActivityRecord struct {
	ID           string                 `gorm:"column:id;primaryKey;type:uuid"`
	UserID       string                 `gorm:"column:user_id;type:uuid;not null;index:idx_activity_records_user_recorded,priority:1;uniqueIndex:idx_activity_records_user_external,priority:1"`
	ChallengeID  *string                `gorm:"column:challenge_id;type:uuid;index"`
	ActivityType constants.ActivityType `gorm:"column:activity_type;type:varchar(32);not null"`
	Value        int64                  `gorm:"column:value;not null"`
	Unit         string                 `gorm:"column:unit;type:varchar(16);not null"`
	Source       string                 `gorm:"column:source;type:varchar(32);not null"`
	ExternalID   string                 `gorm:"column:external_id;type:char(64);not null;uniqueIndex:idx_activity_records_user_external,priority:2"`
	RecordedAt   time.Time              `gorm:"column:recorded_at;not null;index:idx_activity_records_user_recorded,priority:2"`
	CreatedAt    time.Time              `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM
func (ActivityRecord) TableName() string {
	return "activity_records"
}

func (r *ActivityRecord) BeforeCreate(tx *gormlib.DB) error {
	newID(&r.ID)
	return nil
}
