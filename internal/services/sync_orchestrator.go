package services

import (
	"context"
	"fmt"
	"time"

	"github.com/SamSjosten/FitChallenge-sub003/internal/constants"
	"github.com/SamSjosten/FitChallenge-sub003/internal/db/repositories"
	"github.com/SamSjosten/FitChallenge-sub003/internal/logging"
	"github.com/SamSjosten/FitChallenge-sub003/internal/metrics"
	"github.com/SamSjosten/FitChallenge-sub003/internal/models/dtos"
	"github.com/SamSjosten/FitChallenge-sub003/internal/models/entities"
	"github.com/SamSjosten/FitChallenge-sub003/internal/models/gorm"
	"github.com/SamSjosten/FitChallenge-sub003/internal/providers"
)

// SyncLogStore opens and closes sync logs
type SyncLogStore interface {
	Open(ctx context.Context, userID, provider string, syncType constants.SyncType, startedAt time.Time, metadata map[string]interface{}) (*gorm.HealthSyncLog, error)
	Close(ctx context.Context, logID string, completedAt time.Time, outcome repositories.SyncLogOutcome) error
}

// ChallengeSource reads the challenge snapshots used for attribution
type ChallengeSource interface {
	GetActiveSnapshots(ctx context.Context, userID string) ([]entities.ChallengeSnapshot, error)
}

// SyncOptions configures one orchestrated cycle
type SyncOptions struct {
	UserID        string
	SyncType      constants.SyncType
	LookbackDays  int // 0 selects the sync type default
	ActivityTypes []constants.ActivityType // empty selects every type
}

// SyncOrchestrator runs one sync cycle end to end and owns the sync log state machine.
// Availability, authorization and the one-cycle-per-user guard are the caller's job.
type SyncOrchestrator struct {
	logs        SyncLogStore
	challenges  ChallengeSource
	transformer *SampleTransformer
	persister   *BatchPersister
	metrics     *metrics.MetricsRegistry
	now         func() time.Time
}

func NewSyncOrchestrator(
	logs SyncLogStore,
	challenges ChallengeSource,
	transformer *SampleTransformer,
	persister *BatchPersister,
	m *metrics.MetricsRegistry,
	now func() time.Time,
) *SyncOrchestrator {
	if now == nil {
		now = time.Now
	}
	return &SyncOrchestrator{
		logs:        logs,
		challenges:  challenges,
		transformer: transformer,
		persister:   persister,
		metrics:     m,
		now:         now,
	}
}

// LookbackWindow returns [start-of-day UTC of now - days, now]
func LookbackWindow(now time.Time, syncType constants.SyncType, lookbackDays int) (time.Time, time.Time) {
	if lookbackDays <= 0 {
		lookbackDays = syncType.DefaultLookbackDays()
	}
	end := now.UTC()
	start := end.AddDate(0, 0, -lookbackDays).Truncate(24 * time.Hour)
	return start, end
}

// Run executes one cycle. An invalid window is rejected with a *providers.RangeError
// before any log is written. Once the log is open the returned result is never
// nil: a failed cycle returns both the result and the error that failed it.
func (o *SyncOrchestrator) Run(ctx context.Context, provider providers.SampleProvider, opts SyncOptions) (*dtos.SyncResult, error) {
	if !opts.SyncType.IsValid() {
		return nil, fmt.Errorf("unknown sync type %q", opts.SyncType)
	}
	for _, t := range opts.ActivityTypes {
		if !t.IsValid() {
			return nil, fmt.Errorf("unknown activity type %q", t)
		}
	}

	if len(opts.ActivityTypes) == 0 {
		opts.ActivityTypes = constants.AllActivityTypes
	}

	providerTag := provider.GetProviderType()
	startedAt := o.now()
	start, end := LookbackWindow(startedAt, opts.SyncType, opts.LookbackDays)
	if err := providers.ValidateWindow(start, end); err != nil {
		return nil, err
	}

	metadata := map[string]interface{}{
		"window_start":   FormatTimestamp(start),
		"window_end":     FormatTimestamp(end),
		"activity_types": opts.ActivityTypes,
	}
	syncLog, err := o.logs.Open(ctx, opts.UserID, providerTag, opts.SyncType, startedAt, metadata)
	if err != nil {
		return nil, fmt.Errorf("open sync log: %w", err)
	}

	logger := logging.WithSync(syncLog.ID, opts.UserID, providerTag).With("component", "sync_orchestrator")
	logger.Infow("Sync cycle started",
		"sync_type", string(opts.SyncType),
		"window_start", FormatTimestamp(start),
		"window_end", FormatTimestamp(end),
	)

	result := &dtos.SyncResult{
		LogID:  syncLog.ID,
		Status: constants.SyncStatusInProgress,
		Errors: []dtos.BatchError{},
	}

	defer func() {
		if r := recover(); r != nil {
			o.fail(ctx, syncLog.ID, opts, providerTag, startedAt, result, fmt.Errorf("panic: %v", r))
			panic(r)
		}
	}()

	fetchCtx, report := providers.WithFetchReport(ctx)
	samples, err := provider.FetchSamples(fetchCtx, start, end, opts.ActivityTypes)
	if err != nil {
		return result, o.fail(ctx, syncLog.ID, opts, providerTag, startedAt, result, fmt.Errorf("fetch samples: %w", err))
	}

	// Absorbed per-type failures keep the status but are recorded on the log
	var closeMetadata map[string]interface{}
	if failures := report.Failures(); len(failures) > 0 {
		messages := make([]string, len(failures))
		for i, f := range failures {
			messages[i] = f.Error()
		}
		metadata["failed_activity_types"] = report.FailedTypes()
		metadata["fetch_errors"] = messages
		closeMetadata = metadata
		logger.Warnw("Fetch failures absorbed", "failed_activity_types", report.FailedTypes())
	}

	if len(samples) == 0 {
		logger.Infow("No samples in window")
		return o.finish(ctx, syncLog.ID, opts, providerTag, startedAt, result, PersistResult{}, closeMetadata)
	}

	records, err := o.transformer.TransformAll(ctx, samples, opts.UserID, providerTag)
	if err != nil {
		return result, o.fail(ctx, syncLog.ID, opts, providerTag, startedAt, result, fmt.Errorf("transform samples: %w", err))
	}

	snapshots, err := o.challenges.GetActiveSnapshots(ctx, opts.UserID)
	if err != nil {
		return result, o.fail(ctx, syncLog.ID, opts, providerTag, startedAt, result, fmt.Errorf("read challenges: %w", err))
	}
	attributed := NewChallengeAttributor(snapshots).AttributeAll(records)

	logger.Debugw("Records prepared",
		"samples", len(samples),
		"challenges", len(snapshots),
		"attributed", attributed,
	)

	persisted := o.persister.Persist(ctx, records)
	persisted.TotalProcessed = len(records)
	return o.finish(ctx, syncLog.ID, opts, providerTag, startedAt, result, persisted, closeMetadata)
}

// finish closes the log as completed, or partial when any record or batch errored
func (o *SyncOrchestrator) finish(
	ctx context.Context,
	logID string,
	opts SyncOptions,
	providerTag string,
	startedAt time.Time,
	result *dtos.SyncResult,
	persisted PersistResult,
	metadata map[string]interface{}, // nil keeps the metadata written at open
) (*dtos.SyncResult, error) {
	status := constants.SyncStatusCompleted
	var errorMessage *string
	if len(persisted.Errors) > 0 {
		status = constants.SyncStatusPartial
		msg := fmt.Sprintf("%d record errors, first: %s", len(persisted.Errors), persisted.Errors[0].Message)
		errorMessage = &msg
	}

	completedAt := o.now()
	err := o.logs.Close(context.WithoutCancel(ctx), logID, completedAt, repositories.SyncLogOutcome{
		Status:              status,
		RecordsProcessed:    persisted.TotalProcessed,
		RecordsInserted:     persisted.Inserted,
		RecordsDeduplicated: persisted.Deduplicated,
		ErrorMessage:        errorMessage,
		Metadata:            metadata,
	})
	if err != nil {
		return result, fmt.Errorf("close sync log %s: %w", logID, err)
	}

	result.Success = status == constants.SyncStatusCompleted
	result.Status = status
	result.RecordsProcessed = persisted.TotalProcessed
	result.RecordsInserted = persisted.Inserted
	result.RecordsDeduplicated = persisted.Deduplicated
	if persisted.Errors != nil {
		result.Errors = persisted.Errors
	}
	result.Duration = completedAt.Sub(startedAt)

	o.metrics.ObserveSyncCycle(providerTag, string(opts.SyncType), string(status),
		persisted.Inserted, persisted.Deduplicated, len(persisted.Errors), result.Duration)

	logging.WithSync(logID, opts.UserID, providerTag).Infow("Sync cycle finished",
		"status", string(status),
		"processed", persisted.TotalProcessed,
		"inserted", persisted.Inserted,
		"deduplicated", persisted.Deduplicated,
		"errors", len(persisted.Errors),
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

// fail records cause on the log and returns it. A close failure is logged, never
// substituted for cause.
func (o *SyncOrchestrator) fail(
	ctx context.Context,
	logID string,
	opts SyncOptions,
	providerTag string,
	startedAt time.Time,
	result *dtos.SyncResult,
	cause error,
) error {
	logger := logging.WithSync(logID, opts.UserID, providerTag)
	message := cause.Error()
	completedAt := o.now()

	if err := o.logs.Close(context.WithoutCancel(ctx), logID, completedAt, repositories.SyncLogOutcome{
		Status:       constants.SyncStatusFailed,
		ErrorMessage: &message,
	}); err != nil {
		logger.Errorw("Failed to close sync log as failed", "error", err, "cause", message)
	}

	result.Success = false
	result.Status = constants.SyncStatusFailed
	result.Errors = []dtos.BatchError{{Message: message}}
	result.Duration = completedAt.Sub(startedAt)

	o.metrics.ObserveSyncCycle(providerTag, string(opts.SyncType), string(constants.SyncStatusFailed), 0, 0, 0, result.Duration)
	logger.Errorw("Sync cycle failed", "error", cause)
	return cause
}
