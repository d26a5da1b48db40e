package gorm

import (
	"time"

	"github.com/SamSjosten/FitChallenge-sub003/internal/constants"
	"gorm.io/datatypes"
	gormlib "gorm.io/gorm"
)

// HealthSyncLog is the durable record of one sync cycle.
// Status only ever moves from in_progress to a single terminal state.
type HealthSyncLog struct {
	ID                  string               `gorm:"column:id;primaryKey;type:uuid"`
	UserID              string               `gorm:"column:user_id;type:uuid;not null;index:idx_health_sync_logs_user_provider,priority:1"`
	Provider            string               `gorm:"column:provider;type:varchar(32);not null;index:idx_health_sync_logs_user_provider,priority:2"`
	SyncType            constants.SyncType   `gorm:"column:sync_type;type:varchar(16);not null"`
	Status              constants.SyncStatus `gorm:"column:status;type:varchar(16);not null;index"`
	StartedAt           time.Time            `gorm:"column:started_at;not null"`
	CompletedAt         *time.Time           `gorm:"column:completed_at"`
	RecordsProcessed    int                  `gorm:"column:records_processed;not null;default:0"`
	RecordsInserted     int                  `gorm:"column:records_inserted;not null;default:0"`
	RecordsDeduplicated int                  `gorm:"column:records_deduplicated;not null;default:0"`
	ErrorMessage        *string              `gorm:"column:error_message"`
	Metadata            datatypes.JSONMap    `gorm:"column:metadata"`
}

// TableName specifies the table name for GORM
func (HealthSyncLog) TableName() string {
	return "health_sync_logs"
}

func (l *HealthSyncLog) BeforeCreate(tx *gormlib.DB) error {
	newID(&l.ID)
	return nil
}
