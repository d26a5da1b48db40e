package repositories

import (
	"context"
	"fmt"
	"regexp"

	"github.com/SamSjosten/FitChallenge-sub003/internal/models/dtos"
	"github.com/SamSjosten/FitChallenge-sub003/internal/models/gorm"

	gormlib "gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var externalIDPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// BatchInsertResult is the outcome of one InsertRecordsBatch call
type BatchInsertResult struct {
	Inserted       int
	Deduplicated   int
	TotalProcessed int
	Errors         []dtos.BatchError
}

// ActivityRecordRepo handles activity_records table operations
type ActivityRecordRepo struct {
	db *gormlib.DB
}

// NewActivityRecordRepo creates a new activity record repository
func NewActivityRecordRepo(db *gormlib.DB) *ActivityRecordRepo {
	return &ActivityRecordRepo{db: db}
}

// InsertRecordsBatch inserts records, skipping any the same user already stored.
// ON CONFLICT (user_id, external_id) DO NOTHING
//
// Rows that fail validation are reported individually and the rest are still
// written. A returned error means the whole batch failed.
func (r *ActivityRecordRepo) InsertRecordsBatch(ctx context.Context, records []gorm.ActivityRecord) (*BatchInsertResult, error) {
	result := &BatchInsertResult{TotalProcessed: len(records)}

	valid := make([]gorm.ActivityRecord, 0, len(records))
	for _, rec := range records {
		if msg := validateRecord(&rec); msg != "" {
			result.Errors = append(result.Errors, dtos.BatchError{ExternalID: rec.ExternalID, Message: msg})
			continue
		}
		valid = append(valid, rec)
	}

	if len(valid) == 0 {
		return result, nil
	}

	tx := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "external_id"}},
			DoNothing: true,
		}).
		Create(&valid)
	if tx.Error != nil {
		return nil, fmt.Errorf("insert activity records: %w", tx.Error)
	}

	result.Inserted = int(tx.RowsAffected)
	result.Deduplicated = len(valid) - result.Inserted
	return result, nil
}

func validateRecord(rec *gorm.ActivityRecord) string {
	switch {
	case !externalIDPattern.MatchString(rec.ExternalID):
		return "external_id must be 64 lowercase hex characters"
	case rec.UserID == "":
		return "user_id is required"
	case !rec.ActivityType.IsValid():
		return fmt.Sprintf("unknown activity type %q", rec.ActivityType)
	case rec.Value < 0:
		return "value must not be negative"
	case rec.Source == "":
		return "source is required"
	}
	return ""
}

// ListRecent returns a page of the user's records, newest recorded_at first, plus the total count
func (r *ActivityRecordRepo) ListRecent(ctx context.Context, userID string, limit, offset int) ([]gorm.ActivityRecord, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&gorm.ActivityRecord{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count activity records: %w", err)
	}

	var records []gorm.ActivityRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("recorded_at DESC").
		Order("id").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list activity records: %w", err)
	}

	return records, total, nil
}
