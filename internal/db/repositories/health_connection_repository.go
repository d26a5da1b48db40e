package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/SamSjosten/FitChallenge-sub003/internal/constants"
	"github.com/SamSjosten/FitChallenge-sub003/internal/models/gorm"

	"gorm.io/datatypes"
	gormlib "gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HealthConnectionRepo handles health_connections table operations
type HealthConnectionRepo struct {
	db *gormlib.DB
}

// NewHealthConnectionRepo creates a new connection repository
func NewHealthConnectionRepo(db *gormlib.DB) *HealthConnectionRepo {
	return &HealthConnectionRepo{db: db}
}

// Get returns the connection for (user, provider), or nil
func (r *HealthConnectionRepo) Get(ctx context.Context, userID, provider string) (*gorm.HealthConnection, error) {
	var conn gorm.HealthConnection

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider).
		First(&conn).Error

	if err != nil {
		if err == gormlib.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get health connection: %w", err)
	}

	return &conn, nil
}

// Connect creates or reactivates the connection with the granted permissions.
// ON CONFLICT (user_id, provider) DO UPDATE
func (r *HealthConnectionRepo) Connect(ctx context.Context, userID, provider string, permissions []constants.PermissionTag, at time.Time) (*gorm.HealthConnection, error) {
	conn := gorm.HealthConnection{
		UserID:             userID,
		Provider:           provider,
		ConnectedAt:        at.UTC(),
		PermissionsGranted: datatypes.JSONSlice[constants.PermissionTag](permissions),
		IsActive:           true,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"},
				{Name: "provider"},
			},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"connected_at":        conn.ConnectedAt,
				"permissions_granted": conn.PermissionsGranted,
				"is_active":           true,
				"disconnected_at":     nil,
				"updated_at":          at.UTC(),
			}),
		}).
		Create(&conn).Error
	if err != nil {
		return nil, fmt.Errorf("upsert health connection: %w", err)
	}

	return r.Get(ctx, userID, provider)
}

// Disconnect deactivates the connection. Records and logs are kept.
func (r *HealthConnectionRepo) Disconnect(ctx context.Context, userID, provider string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&gorm.HealthConnection{}).
		Where("user_id = ? AND provider = ? AND is_active = ?", userID, provider, true).
		Updates(map[string]interface{}{
			"is_active":       false,
			"disconnected_at": at.UTC(),
		}).Error
}

// TouchLastSync advances last_sync_at after a completed or partial cycle
func (r *HealthConnectionRepo) TouchLastSync(ctx context.Context, userID, provider string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&gorm.HealthConnection{}).
		Where("user_id = ? AND provider = ?", userID, provider).
		Update("last_sync_at", at.UTC()).Error
}
