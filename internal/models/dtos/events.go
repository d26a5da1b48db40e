package dtos

import (
	"time"

	"github.com/SamSjosten/FitChallenge-sub003/internal/constants"
)

// SyncCompletedEvent is published once a sync log reaches a terminal state
type SyncCompletedEvent struct {
	EventID             string               `json:"event_id"`
	EventType           string               `json:"event_type"`
	LogID               string               `json:"log_id"`
	UserID              string               `json:"user_id"`
	Provider            string               `json:"provider"`
	SyncType            constants.SyncType   `json:"sync_type"`
	Status              constants.SyncStatus `json:"status"`
	RecordsProcessed    int                  `json:"records_processed"`
	RecordsInserted     int                  `json:"records_inserted"`
	RecordsDeduplicated int                  `json:"records_deduplicated"`
	CompletedAt         time.Time            `json:"completed_at"`
}
