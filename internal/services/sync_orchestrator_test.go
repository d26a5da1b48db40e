package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlib "gorm.io/gorm"

	"github.com/SamSjosten/FitChallenge-sub003/internal/constants"
	"github.com/SamSjosten/FitChallenge-sub003/internal/db/repositories"
	"github.com/SamSjosten/FitChallenge-sub003/internal/metrics"
	"github.com/SamSjosten/FitChallenge-sub003/internal/models/entities"
	"github.com/SamSjosten/FitChallenge-sub003/internal/models/gorm"
	"github.com/SamSjosten/FitChallenge-sub003/internal/providers"
	dbtest "github.com/SamSjosten/FitChallenge-sub003/internal/testutil"
)

// syncStack is an orchestrator over a real in-memory database
type syncStack struct {
	db           *gormlib.DB
	clock        *dbtest.FakeClock
	metrics      *metrics.MetricsRegistry
	logs         *repositories.HealthSyncLogRepo
	records      *repositories.ActivityRecordRepo
	connections  *repositories.HealthConnectionRepo
	orchestrator *SyncOrchestrator
}

func newSyncStack(t *testing.T, batchSize int) *syncStack {
	t.Helper()
	gdb, sdb := dbtest.NewTestDB(t)
	clock := dbtest.NewFakeClock(time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC))
	m := metrics.NewMetricsRegistry(prometheus.NewRegistry())

	logs := repositories.NewHealthSyncLogRepo(gdb)
	records := repositories.NewActivityRecordRepo(gdb)
	return &syncStack{
		db:          gdb,
		clock:       clock,
		metrics:     m,
		logs:        logs,
		records:     records,
		connections: repositories.NewHealthConnectionRepo(gdb),
		orchestrator: NewSyncOrchestrator(
			logs,
			repositories.NewChallengeRepository(sdb),
			NewSampleTransformer(4),
			NewBatchPersister(records, batchSize),
			m,
			clock.Now,
		),
	}
}

// joinStepsChallenge enrols testUserID in an active steps challenge covering April
func (s *syncStack) joinStepsChallenge(t *testing.T) string {
	t.Helper()
	challenge := gorm.Challenge{
		Title:         "April steps",
		ChallengeType: constants.ActivitySteps,
		GoalValue:     250000,
		StartDate:     time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, 4, 30, 23, 59, 59, 0, time.UTC),
		IsActive:      true,
	}
	require.NoError(t, s.db.Create(&challenge).Error)
	require.NoError(t, s.db.Create(&gorm.ChallengeParticipant{ChallengeID: challenge.ID, UserID: testUserID}).Error)
	return challenge.ID
}

func stepsOnly() []constants.ActivityType {
	return []constants.ActivityType{constants.ActivitySteps}
}

func TestLookbackWindow(t *testing.T) {
	now := time.Date(2026, 4, 15, 12, 30, 0, 0, time.UTC)

	start, end := LookbackWindow(now, constants.SyncTypeManual, 0)
	assert.Equal(t, time.Date(2026, 4, 8, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, now, end)

	start, _ = LookbackWindow(now, constants.SyncTypeInitial, 0)
	assert.Equal(t, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), start)

	start, _ = LookbackWindow(now, constants.SyncTypeBackground, 1)
	assert.Equal(t, time.Date(2026, 4, 14, 0, 0, 0, 0, time.UTC), start)
}

func TestSyncOrchestrator_SevenDaySyncAttributesEveryRecord(t *testing.T) {
	stack := newSyncStack(t, 100)
	challengeID := stack.joinStepsChallenge(t)
	provider := providers.NewMockProvider(providers.DefaultMockConfig())
	ctx := context.Background()

	result, err := stack.orchestrator.Run(ctx, provider, SyncOptions{
		UserID:        testUserID,
		SyncType:      constants.SyncTypeManual,
		LookbackDays:  7,
		ActivityTypes: stepsOnly(),
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, constants.SyncStatusCompleted, result.Status)
	assert.Equal(t, 7, result.RecordsProcessed)
	assert.Equal(t, 7, result.RecordsInserted)
	assert.Equal(t, 0, result.RecordsDeduplicated)
	assert.Empty(t, result.Errors)

	stored, total, err := stack.records.ListRecent(ctx, testUserID, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(7), total)
	for _, rec := range stored {
		require.NotNil(t, rec.ChallengeID)
		assert.Equal(t, challengeID, *rec.ChallengeID)
		assert.Equal(t, constants.ProviderMock, rec.Source)
	}

	log, err := stack.logs.FindByID(ctx, result.LogID)
	require.NoError(t, err)
	require.NotNil(t, log)
	assert.Equal(t, constants.SyncStatusCompleted, log.Status)
	assert.NotNil(t, log.CompletedAt)
	assert.Equal(t, 7, log.RecordsInserted)
	assert.Equal(t, "2026-04-08T00:00:00.000Z", log.Metadata["window_start"])

	assert.Equal(t, float64(1), testutil.ToFloat64(stack.metrics.SyncCyclesTotal.WithLabelValues(constants.ProviderMock, "manual", "completed")))
	assert.Equal(t, float64(7), testutil.ToFloat64(stack.metrics.RecordsInsertedTotal.WithLabelValues(constants.ProviderMock)))
}

func TestSyncOrchestrator_ResyncIsIdempotent(t *testing.T) {
	stack := newSyncStack(t, 3)
	provider := providers.NewMockProvider(providers.DefaultMockConfig())
	opts := SyncOptions{UserID: testUserID, SyncType: constants.SyncTypeManual, LookbackDays: 7, ActivityTypes: stepsOnly()}

	first, err := stack.orchestrator.Run(context.Background(), provider, opts)
	require.NoError(t, err)
	assert.Equal(t, 7, first.RecordsInserted)

	stack.clock.Advance(10 * time.Minute)
	second, err := stack.orchestrator.Run(context.Background(), provider, opts)
	require.NoError(t, err)

	assert.Equal(t, constants.SyncStatusCompleted, second.Status)
	assert.Equal(t, 7, second.RecordsProcessed)
	assert.Equal(t, 0, second.RecordsInserted)
	assert.Equal(t, 7, second.RecordsDeduplicated)
	assert.NotEqual(t, first.LogID, second.LogID)

	var count int64
	require.NoError(t, stack.db.Model(&gorm.ActivityRecord{}).Count(&count).Error)
	assert.Equal(t, int64(7), count)
}

func TestSyncOrchestrator_OverlappingWindowsDeduplicate(t *testing.T) {
	stack := newSyncStack(t, 100)
	provider := providers.NewMockProvider(providers.DefaultMockConfig())
	ctx := context.Background()

	// Apr 8 through Apr 14
	manual, err := stack.orchestrator.Run(ctx, provider, SyncOptions{
		UserID: testUserID, SyncType: constants.SyncTypeManual, ActivityTypes: stepsOnly(),
	})
	require.NoError(t, err)
	assert.Equal(t, 7, manual.RecordsInserted)

	// Apr 13 through Apr 15, of which Apr 13 and 14 are already stored
	stack.clock.Advance(24 * time.Hour)
	background, err := stack.orchestrator.Run(ctx, provider, SyncOptions{
		UserID: testUserID, SyncType: constants.SyncTypeBackground, ActivityTypes: stepsOnly(),
	})
	require.NoError(t, err)
	assert.Equal(t, constants.SyncStatusCompleted, background.Status)
	assert.Equal(t, 3, background.RecordsProcessed)
	assert.Equal(t, 1, background.RecordsInserted)
	assert.Equal(t, 2, background.RecordsDeduplicated)

	_, total, err := stack.records.ListRecent(ctx, testUserID, 50, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 8, total)
}

func TestSyncOrchestrator_UsersDoNotShareRecords(t *testing.T) {
	stack := newSyncStack(t, 100)
	provider := providers.NewMockProvider(providers.DefaultMockConfig())
	ctx := context.Background()
	const otherUserID = "3c9d2e41-7b5a-4e0f-8a6d-2f1b9c8e7d60"

	for _, userID := range []string{testUserID, otherUserID} {
		result, err := stack.orchestrator.Run(ctx, provider, SyncOptions{
			UserID: userID, SyncType: constants.SyncTypeManual, ActivityTypes: stepsOnly(),
		})
		require.NoError(t, err)
		assert.Equal(t, 7, result.RecordsInserted, userID)
		assert.Equal(t, 0, result.RecordsDeduplicated, userID)

		_, total, err := stack.records.ListRecent(ctx, userID, 50, 0)
		require.NoError(t, err)
		assert.EqualValues(t, 7, total, userID)
	}
}

func TestSyncOrchestrator_EmptyWindowCompletes(t *testing.T) {
	stack := newSyncStack(t, 100)
	cfg := providers.DefaultMockConfig()
	cfg.Generator = providers.StaticGenerator()
	provider := providers.NewMockProvider(cfg)

	result, err := stack.orchestrator.Run(context.Background(), provider, SyncOptions{
		UserID: testUserID, SyncType: constants.SyncTypeBackground, ActivityTypes: stepsOnly(),
	})
	require.NoError(t, err)
	assert.Equal(t, constants.SyncStatusCompleted, result.Status)
	assert.Zero(t, result.RecordsProcessed)
}

func TestSyncOrchestrator_FetchFailureClosesLogAsFailed(t *testing.T) {
	stack := newSyncStack(t, 100)
	cfg := providers.DefaultMockConfig()
	cfg.FailFetch = true
	cfg.ErrorMessage = "bridge offline"
	provider := providers.NewMockProvider(cfg)

	result, err := stack.orchestrator.Run(context.Background(), provider, SyncOptions{
		UserID: testUserID, SyncType: constants.SyncTypeManual, ActivityTypes: stepsOnly(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bridge offline")

	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Equal(t, constants.SyncStatusFailed, result.Status)
	assert.Zero(t, result.RecordsProcessed)
	require.Len(t, result.Errors, 1)

	log, err := stack.logs.FindByID(context.Background(), result.LogID)
	require.NoError(t, err)
	assert.Equal(t, constants.SyncStatusFailed, log.Status)
	assert.Equal(t, 0, log.RecordsProcessed)
	require.NotNil(t, log.ErrorMessage)
	assert.Contains(t, *log.ErrorMessage, "bridge offline")
}

func TestSyncOrchestrator_RecordsAbsorbedFetchFailures(t *testing.T) {
	t.Run("every type failed", func(t *testing.T) {
		stack := newSyncStack(t, 100)
		cfg := providers.DefaultMockConfig()
		cfg.FailTypes = stepsOnly()
		ctx := context.Background()

		result, err := stack.orchestrator.Run(ctx, providers.NewMockProvider(cfg), SyncOptions{
			UserID: testUserID, SyncType: constants.SyncTypeManual, ActivityTypes: stepsOnly(),
		})
		require.NoError(t, err)
		assert.Equal(t, constants.SyncStatusCompleted, result.Status)
		assert.Zero(t, result.RecordsProcessed)

		log, err := stack.logs.FindByID(ctx, result.LogID)
		require.NoError(t, err)
		assert.Equal(t, []interface{}{"steps"}, log.Metadata["failed_activity_types"])
		assert.Len(t, log.Metadata["fetch_errors"], 1)
		assert.Equal(t, "2026-04-08T00:00:00.000Z", log.Metadata["window_start"])
	})

	t.Run("one type failed", func(t *testing.T) {
		stack := newSyncStack(t, 100)
		cfg := providers.DefaultMockConfig()
		cfg.FailTypes = []constants.ActivityType{constants.ActivityCalories}
		ctx := context.Background()

		result, err := stack.orchestrator.Run(ctx, providers.NewMockProvider(cfg), SyncOptions{
			UserID:        testUserID,
			SyncType:      constants.SyncTypeManual,
			ActivityTypes: []constants.ActivityType{constants.ActivitySteps, constants.ActivityCalories},
		})
		require.NoError(t, err)
		assert.Equal(t, 7, result.RecordsInserted)

		log, err := stack.logs.FindByID(ctx, result.LogID)
		require.NoError(t, err)
		assert.Equal(t, []interface{}{"calories"}, log.Metadata["failed_activity_types"])
	})

	t.Run("no failures", func(t *testing.T) {
		stack := newSyncStack(t, 100)
		ctx := context.Background()

		result, err := stack.orchestrator.Run(ctx, providers.NewMockProvider(providers.DefaultMockConfig()), SyncOptions{
			UserID: testUserID, SyncType: constants.SyncTypeManual, ActivityTypes: stepsOnly(),
		})
		require.NoError(t, err)

		log, err := stack.logs.FindByID(ctx, result.LogID)
		require.NoError(t, err)
		assert.NotContains(t, log.Metadata, "failed_activity_types")
	})
}

func TestSyncOrchestrator_RangeErrorWritesNoLog(t *testing.T) {
	for _, days := range []int{400, 365} {
		t.Run(fmt.Sprintf("%d days", days), func(t *testing.T) {
			stack := newSyncStack(t, 100)
			provider := providers.NewMockProvider(providers.DefaultMockConfig())

			result, err := stack.orchestrator.Run(context.Background(), provider, SyncOptions{
				UserID: testUserID, SyncType: constants.SyncTypeManual, LookbackDays: days, ActivityTypes: stepsOnly(),
			})
			require.Error(t, err)
			assert.True(t, providers.IsRangeError(err))
			assert.Nil(t, result)
			assert.Equal(t, 0, provider.FetchCalls())

			logs, err := stack.logs.ListRecent(context.Background(), testUserID, constants.ProviderMock, 10)
			require.NoError(t, err)
			assert.Empty(t, logs)
		})
	}
}

type failingChallengeSource struct{}

func (failingChallengeSource) GetActiveSnapshots(context.Context, string) ([]entities.ChallengeSnapshot, error) {
	return nil, errors.New("challenge store down")
}

func TestSyncOrchestrator_FailedAndPartialOutcomes(t *testing.T) {
	stack := newSyncStack(t, 100)
	store := &mockRecordStore{}
	store.InsertFunc = func(ctx context.Context, records []gorm.ActivityRecord) (*repositories.BatchInsertResult, error) {
		return stack.records.InsertRecordsBatch(ctx, records)
	}

	start := time.Date(2026, 4, 14, 8, 0, 0, 0, time.UTC)
	cfg := providers.DefaultMockConfig()
	cfg.Generator = providers.StaticGenerator(
		providers.Sample{ID: "ok", Type: constants.ActivitySteps, Value: 100, StartDate: start, EndDate: start.Add(time.Hour)},
		providers.Sample{ID: "ok-2", Type: constants.ActivitySteps, Value: 200, StartDate: start.Add(2 * time.Hour), EndDate: start.Add(3 * time.Hour)},
	)
	provider := providers.NewMockProvider(cfg)

	orchestrator := NewSyncOrchestrator(stack.logs, failingChallengeSource{}, NewSampleTransformer(1),
		NewBatchPersister(store, 1), stack.metrics, stack.clock.Now)
	result, err := orchestrator.Run(context.Background(), provider, SyncOptions{
		UserID: testUserID, SyncType: constants.SyncTypeManual, ActivityTypes: stepsOnly(),
	})
	require.Error(t, err, "a challenge read failure fails the cycle")
	assert.Equal(t, constants.SyncStatusFailed, result.Status)

	// Second batch fails outright: the cycle is partial, not failed
	calls := 0
	store.InsertFunc = func(ctx context.Context, records []gorm.ActivityRecord) (*repositories.BatchInsertResult, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("deadlock detected")
		}
		return stack.records.InsertRecordsBatch(ctx, records)
	}
	orchestrator = NewSyncOrchestrator(stack.logs, &emptyChallengeSource{}, NewSampleTransformer(1),
		NewBatchPersister(store, 1), stack.metrics, stack.clock.Now)

	result, err = orchestrator.Run(context.Background(), provider, SyncOptions{
		UserID: testUserID, SyncType: constants.SyncTypeManual, ActivityTypes: stepsOnly(),
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, constants.SyncStatusPartial, result.Status)
	assert.Equal(t, 2, result.RecordsProcessed)
	assert.Equal(t, 1, result.RecordsInserted)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "batch 2 of 2 failed: deadlock detected", result.Errors[0].Message)

	log, err := stack.logs.FindByID(context.Background(), result.LogID)
	require.NoError(t, err)
	assert.Equal(t, constants.SyncStatusPartial, log.Status)
	require.NotNil(t, log.ErrorMessage)
	assert.Contains(t, *log.ErrorMessage, "1 record errors")
}

type emptyChallengeSource struct{}

func (*emptyChallengeSource) GetActiveSnapshots(context.Context, string) ([]entities.ChallengeSnapshot, error) {
	return nil, nil
}

type panickingProvider struct {
	*providers.MockProvider
}

func (panickingProvider) FetchSamples(context.Context, time.Time, time.Time, []constants.ActivityType) ([]providers.Sample, error) {
	panic("driver bug")
}

func TestSyncOrchestrator_PanicClosesLog(t *testing.T) {
	stack := newSyncStack(t, 100)
	provider := panickingProvider{providers.NewMockProvider(providers.DefaultMockConfig())}

	assert.PanicsWithValue(t, "driver bug", func() {
		_, _ = stack.orchestrator.Run(context.Background(), provider, SyncOptions{
			UserID: testUserID, SyncType: constants.SyncTypeManual, ActivityTypes: stepsOnly(),
		})
	})

	logs, err := stack.logs.ListRecent(context.Background(), testUserID, constants.ProviderMock, 1)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, constants.SyncStatusFailed, logs[0].Status)
}
