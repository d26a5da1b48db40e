package gorm

import (
	"time"

	"github.com/SamSjosten/FitChallenge-sub003/internal/constants"
	"gorm.io/datatypes"
	gormlib "gorm.io/gorm"
)

// HealthConnection links a user to a provider. One row per (user, provider).
type HealthConnection struct {
	ID                 string                                       `gorm:"column:id;primaryKey;type:uuid"`
	UserID             string                                       `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_health_connections_user_provider,priority:1"`
	Provider           string                                       `gorm:"column:provider;type:varchar(32);not null;uniqueIndex:idx_health_connections_user_provider,priority:2"`
	ConnectedAt        time.Time                                    `gorm:"column:connected_at;not null"`
	LastSyncAt         *time.Time                                   `gorm:"column:last_sync_at"`
	PermissionsGranted datatypes.JSONSlice[constants.PermissionTag] `gorm:"column:permissions_granted"`
	IsActive           bool                                         `gorm:"column:is_active;not null"`
	DisconnectedAt     *time.Time                                   `gorm:"column:disconnected_at"`
	UpdatedAt          time.Time                                    `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (HealthConnection) TableName() string {
	return "health_connections"
}

func (c *HealthConnection) BeforeCreate(tx *gormlib.DB) error {
	newID(&c.ID)
	return nil
}
