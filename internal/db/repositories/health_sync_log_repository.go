package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SamSjosten/FitChallenge-sub003/internal/constants"
	"github.com/SamSjosten/FitChallenge-sub003/internal/models/gorm"

	"gorm.io/datatypes"
	gormlib "gorm.io/gorm"
)

var (
	// ErrSyncLogClosed is returned when closing a log that already reached a terminal state
	ErrSyncLogClosed = errors.New("sync log already closed")
	// ErrSyncLogNotFound is returned when the log id does not exist
	ErrSyncLogNotFound = errors.New("sync log not found")
)

// SyncLogOutcome carries the terminal values written when a log is closed
type SyncLogOutcome struct {
	Status              constants.SyncStatus
	RecordsProcessed    int
	RecordsInserted     int
	RecordsDeduplicated int
	ErrorMessage        *string
	Metadata            map[string]interface{}
}

// HealthSyncLogRepo handles sync log lifecycle operations
type HealthSyncLogRepo struct {
	db *gormlib.DB
}

// NewHealthSyncLogRepo creates a new sync log repository
func NewHealthSyncLogRepo(db *gormlib.DB) *HealthSyncLogRepo {
	return &HealthSyncLogRepo{db: db}
}

// Open inserts a new in_progress log and returns it
func (r *HealthSyncLogRepo) Open(ctx context.Context, userID, provider string, syncType constants.SyncType, startedAt time.Time, metadata map[string]interface{}) (*gorm.HealthSyncLog, error) {
	if !syncType.IsValid() {
		return nil, fmt.Errorf("unknown sync type %q", syncType)
	}

	log := gorm.HealthSyncLog{
		UserID:    userID,
		Provider:  provider,
		SyncType:  syncType,
		Status:    constants.SyncStatusInProgress,
		StartedAt: startedAt.UTC(),
		Metadata:  datatypes.JSONMap(metadata),
	}

	if err := r.db.WithContext(ctx).Create(&log).Error; err != nil {
		return nil, fmt.Errorf("open sync log: %w", err)
	}
	return &log, nil
}

// Close moves an in_progress log to a terminal state. The update is guarded
// on status so a log can only be closed once.
func (r *HealthSyncLogRepo) Close(ctx context.Context, logID string, completedAt time.Time, outcome SyncLogOutcome) error {
	if !outcome.Status.IsTerminal() {
		return fmt.Errorf("cannot close sync log with non-terminal status %q", outcome.Status)
	}

	updates := map[string]interface{}{
		"status":               outcome.Status,
		"completed_at":         completedAt.UTC(),
		"records_processed":    outcome.RecordsProcessed,
		"records_inserted":     outcome.RecordsInserted,
		"records_deduplicated": outcome.RecordsDeduplicated,
		"error_message":        outcome.ErrorMessage,
	}
	if outcome.Metadata != nil {
		updates["metadata"] = datatypes.JSONMap(outcome.Metadata)
	}

	tx := r.db.WithContext(ctx).
		Model(&gorm.HealthSyncLog{}).
		Where("id = ? AND status = ?", logID, constants.SyncStatusInProgress).
		Updates(updates)
	if tx.Error != nil {
		return fmt.Errorf("close sync log: %w", tx.Error)
	}
	if tx.RowsAffected == 1 {
		return nil
	}

	existing, err := r.FindByID(ctx, logID)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrSyncLogNotFound
	}
	return ErrSyncLogClosed
}

// FindByID returns nil when the log does not exist
func (r *HealthSyncLogRepo) FindByID(ctx context.Context, logID string) (*gorm.HealthSyncLog, error) {
	var log gorm.HealthSyncLog

	err := r.db.WithContext(ctx).
		Where("id = ?", logID).
		First(&log).Error

	if err != nil {
		if err == gormlib.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("find sync log: %w", err)
	}

	return &log, nil
}

// FindInProgress returns the open log for (user, provider), or nil
func (r *HealthSyncLogRepo) FindInProgress(ctx context.Context, userID, provider string) (*gorm.HealthSyncLog, error) {
	var log gorm.HealthSyncLog

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND provider = ? AND status = ?", userID, provider, constants.SyncStatusInProgress).
		Order("started_at DESC").
		First(&log).Error

	if err != nil {
		if err == gormlib.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("find in-progress sync log: %w", err)
	}

	return &log, nil
}

// ListRecent returns the most recent logs for (user, provider), newest first
func (r *HealthSyncLogRepo) ListRecent(ctx context.Context, userID, provider string, limit int) ([]gorm.HealthSyncLog, error) {
	var logs []gorm.HealthSyncLog

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider).
		Order("started_at DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("list sync logs: %w", err)
	}

	return logs, nil
}

// MarkStaleFailed fails every in_progress log started before cutoff and returns how many were closed
func (r *HealthSyncLogRepo) MarkStaleFailed(ctx context.Context, cutoff time.Time, now time.Time) (int64, error) {
	message := constants.SyncAbandonedMessage

	tx := r.db.WithContext(ctx).
		Model(&gorm.HealthSyncLog{}).
		Where("status = ? AND started_at < ?", constants.SyncStatusInProgress, cutoff.UTC()).
		Updates(map[string]interface{}{
			"status":        constants.SyncStatusFailed,
			"completed_at":  now.UTC(),
			"error_message": &message,
		})
	if tx.Error != nil {
		return 0, fmt.Errorf("mark stale sync logs: %w", tx.Error)
	}

	return tx.RowsAffected, nil
}
