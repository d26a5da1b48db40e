package constants

import "time"

// SyncType identifies what triggered a sync cycle.
type SyncType string

const (
	SyncTypeBackground SyncType = "background"
	SyncTypeManual     SyncType = "manual"
	SyncTypeInitial    SyncType = "initial"
)

// IsValid reports whether s belongs to the vocabulary.
func (s SyncType) IsValid() bool {
	switch s {
	case SyncTypeBackground, SyncTypeManual, SyncTypeInitial:
		return true
	}
	return false
}

// DefaultLookbackDays is the window size used when the caller gives no override.
func (s SyncType) DefaultLookbackDays() int {
	switch s {
	case SyncTypeBackground:
		return 3
	case SyncTypeInitial:
		return 30
	default:
		return 7
	}
}

// SyncStatus is the lifecycle state of a sync log.
type SyncStatus string

const (
	SyncStatusInProgress SyncStatus = "in_progress"
	SyncStatusCompleted  SyncStatus = "completed"
	SyncStatusFailed     SyncStatus = "failed"
	SyncStatusPartial    SyncStatus = "partial"
)

// IsTerminal reports whether the status closes a sync log.
func (s SyncStatus) IsTerminal() bool {
	switch s {
	case SyncStatusCompleted, SyncStatusFailed, SyncStatusPartial:
		return true
	}
	return false
}

const (
	// MaxFetchWindow bounds a single provider query.
	MaxFetchWindow = 365 * 24 * time.Hour

	// DefaultBatchSize is the number of records submitted per insert call.
	DefaultBatchSize = 100

	// EventSyncCompleted is published once a sync log reaches a terminal state.
	EventSyncCompleted = "health.sync.completed"

	// SyncAbandonedMessage is written to logs retired by the stale sweep.
	SyncAbandonedMessage = "sync abandoned"
)

// Provider tags written to ProcessedRecord.source and SyncLog.provider.
const (
	ProviderAppleHealth   = "apple_health"
	ProviderHealthConnect = "health_connect"
	ProviderMock          = "mock"
)
