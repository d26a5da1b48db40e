package dtos

import (
	"time"

	"github.com/SamSjosten/FitChallenge-sub003/internal/constants"
)

// SyncRequest configures one sync trigger. Zero values select defaults.
type SyncRequest struct {
	SyncType      constants.SyncType       `json:"sync_type"`
	LookbackDays  int                      `json:"lookback_days,omitempty"`
	ActivityTypes []constants.ActivityType `json:"activity_types,omitempty"`
	Force         bool                     `json:"force,omitempty"`
}

// BatchError is one error entry from a record batch. ExternalID is empty
// when the failure covers the whole batch.
type BatchError struct {
	ExternalID string `json:"external_id,omitempty"`
	Message    string `json:"message"`
}

// SyncResult is the structured outcome of one sync cycle
type SyncResult struct {
	Success             bool                 `json:"success"`
	LogID               string               `json:"log_id"`
	Status              constants.SyncStatus `json:"status"`
	RecordsProcessed    int                  `json:"records_processed"`
	RecordsInserted     int                  `json:"records_inserted"`
	RecordsDeduplicated int                  `json:"records_deduplicated"`
	Errors              []BatchError         `json:"errors"`
	Duration            time.Duration        `json:"duration_ns"`
}

// SyncLogView is the API shape of a sync log row
type SyncLogView struct {
	ID                  string                 `json:"id"`
	Provider            string                 `json:"provider"`
	SyncType            constants.SyncType     `json:"sync_type"`
	Status              constants.SyncStatus   `json:"status"`
	StartedAt           time.Time              `json:"started_at"`
	CompletedAt         *time.Time             `json:"completed_at,omitempty"`
	RecordsProcessed    int                    `json:"records_processed"`
	RecordsInserted     int                    `json:"records_inserted"`
	RecordsDeduplicated int                    `json:"records_deduplicated"`
	ErrorMessage        *string                `json:"error_message,omitempty"`
	Metadata            map[string]interface{} `json:"metadata,omitempty"`
}

// ActivityRecordView is the API shape of a persisted activity record
type ActivityRecordView struct {
	ID           string                 `json:"id"`
	ActivityType constants.ActivityType `json:"activity_type"`
	Value        int64                  `json:"value"`
	Unit         string                 `json:"unit"`
	Source       string                 `json:"source"`
	ExternalID   string                 `json:"external_id"`
	RecordedAt   string                 `json:"recorded_at"`
	ChallengeID  *string                `json:"challenge_id,omitempty"`
}

// RecordsPage is one page of recent activity records
type RecordsPage struct {
	Records []ActivityRecordView `json:"records"`
	Total   int64                `json:"total"`
	Limit   int                  `json:"limit"`
	Offset  int                  `json:"offset"`
}
