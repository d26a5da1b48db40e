package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SamSjosten/FitChallenge-sub003/internal/common"
	"github.com/SamSjosten/FitChallenge-sub003/internal/constants"
	"github.com/SamSjosten/FitChallenge-sub003/internal/models/dtos"
	"github.com/SamSjosten/FitChallenge-sub003/internal/providers"
)

type recordingPublisher struct {
	mu     sync.Mutex
	err    error
	events []dtos.SyncCompletedEvent
	keys   []string
}

func (p *recordingPublisher) Publish(ctx context.Context, eventType string, key string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, payload.(dtos.SyncCompletedEvent))
	p.keys = append(p.keys, key)
	return nil
}

func (p *recordingPublisher) Sink() string { return "recording" }

func (p *recordingPublisher) Close() error { return nil }

type serviceFixture struct {
	*syncStack
	provider  *providers.MockProvider
	publisher *recordingPublisher
	cache     *common.CacheService
	service   *HealthSyncService
}

func newServiceFixture(t *testing.T, cfg providers.MockConfig) *serviceFixture {
	t.Helper()
	stack := newSyncStack(t, 100)
	provider := providers.NewMockProvider(cfg)
	publisher := &recordingPublisher{}
	cache := common.NewCacheService(time.Minute, 0)

	return &serviceFixture{
		syncStack: stack,
		provider:  provider,
		publisher: publisher,
		cache:     cache,
		service: NewHealthSyncService(HealthSyncServiceDeps{
			Provider:     provider,
			Orchestrator: stack.orchestrator,
			Connections:  stack.connections,
			Logs:         stack.logs,
			Records:      stack.records,
			Cache:        cache,
			Events:       publisher,
			Metrics:      stack.metrics,
			MinInterval:  5 * time.Minute,
			Now:          stack.clock.Now,
		}),
	}
}

func (f *serviceFixture) connect(t *testing.T) {
	t.Helper()
	status, err := f.service.Connect(context.Background(), testUserID, dtos.ConnectRequest{})
	require.NoError(t, err)
	require.Equal(t, dtos.ConnectionConnected, status.Status)
}

func stepsRequest() dtos.SyncRequest {
	return dtos.SyncRequest{ActivityTypes: stepsOnly()}
}

func TestHealthSyncService_FirstSyncIsInitialAndPublishes(t *testing.T) {
	f := newServiceFixture(t, providers.DefaultMockConfig())
	f.connect(t)
	ctx := context.Background()

	result, err := f.service.TriggerSync(ctx, testUserID, stepsRequest())
	require.NoError(t, err)
	assert.Equal(t, constants.SyncStatusCompleted, result.Status)
	assert.Equal(t, 30, result.RecordsInserted)

	log, err := f.logs.FindByID(ctx, result.LogID)
	require.NoError(t, err)
	assert.Equal(t, constants.SyncTypeInitial, log.SyncType)

	conn, err := f.connections.Get(ctx, testUserID, constants.ProviderMock)
	require.NoError(t, err)
	require.NotNil(t, conn.LastSyncAt)
	assert.True(t, conn.LastSyncAt.Equal(f.clock.Now()))

	require.Len(t, f.publisher.events, 1)
	event := f.publisher.events[0]
	assert.Equal(t, constants.EventSyncCompleted, event.EventType)
	assert.Equal(t, result.LogID, event.LogID)
	assert.Equal(t, constants.SyncStatusCompleted, event.Status)
	assert.Equal(t, 30, event.RecordsInserted)
	assert.Equal(t, testUserID, f.publisher.keys[0])
}

func TestHealthSyncService_TooSoonUnlessForced(t *testing.T) {
	f := newServiceFixture(t, providers.DefaultMockConfig())
	f.connect(t)
	ctx := context.Background()

	_, err := f.service.TriggerSync(ctx, testUserID, stepsRequest())
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	_, err = f.service.TriggerSync(ctx, testUserID, stepsRequest())
	assert.ErrorIs(t, err, ErrSyncTooSoon)

	forced := stepsRequest()
	forced.Force = true
	result, err := f.service.TriggerSync(ctx, testUserID, forced)
	require.NoError(t, err)
	assert.Equal(t, 0, result.RecordsInserted)
	assert.Equal(t, 7, result.RecordsDeduplicated, "a manual resync covers the last seven days")

	f.clock.Advance(10 * time.Minute)
	_, err = f.service.TriggerSync(ctx, testUserID, stepsRequest())
	assert.NoError(t, err)
}

func TestHealthSyncService_RejectsWhileInProgress(t *testing.T) {
	f := newServiceFixture(t, providers.DefaultMockConfig())
	f.connect(t)
	ctx := context.Background()

	_, err := f.logs.Open(ctx, testUserID, constants.ProviderMock, constants.SyncTypeBackground, f.clock.Now(), nil)
	require.NoError(t, err)

	_, err = f.service.TriggerSync(ctx, testUserID, stepsRequest())
	assert.ErrorIs(t, err, ErrSyncInProgress)
	assert.Equal(t, 0, f.provider.FetchCalls())

	f.service.Reset()
	status, err := f.service.GetConnectionStatus(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, dtos.ConnectionSyncing, status.Status)
}

func TestHealthSyncService_Preconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("not connected", func(t *testing.T) {
		f := newServiceFixture(t, providers.DefaultMockConfig())
		_, err := f.service.TriggerSync(ctx, testUserID, stepsRequest())
		assert.ErrorIs(t, err, ErrNotConnected)
	})

	t.Run("disconnected", func(t *testing.T) {
		f := newServiceFixture(t, providers.DefaultMockConfig())
		f.connect(t)
		require.NoError(t, f.service.Disconnect(ctx, testUserID))
		_, err := f.service.TriggerSync(ctx, testUserID, stepsRequest())
		assert.ErrorIs(t, err, ErrNotConnected)
	})

	t.Run("unavailable", func(t *testing.T) {
		cfg := providers.DefaultMockConfig()
		cfg.Available = false
		f := newServiceFixture(t, cfg)

		_, err := f.service.Connect(ctx, testUserID, dtos.ConnectRequest{})
		assert.ErrorIs(t, err, providers.ErrCapabilityUnavailable)
		_, err = f.service.TriggerSync(ctx, testUserID, stepsRequest())
		assert.ErrorIs(t, err, providers.ErrCapabilityUnavailable)
	})

	t.Run("requested type denied", func(t *testing.T) {
		cfg := providers.DefaultMockConfig()
		cfg.GrantedPermissions = nil
		cfg.DeniedPermissions = []constants.PermissionTag{constants.PermissionSteps}
		f := newServiceFixture(t, cfg)
		f.connect(t)

		_, err := f.service.TriggerSync(ctx, testUserID, stepsRequest())
		assert.ErrorIs(t, err, providers.ErrAuthorizationDenied)
		assert.Equal(t, 0, f.provider.FetchCalls())
	})

	t.Run("everything denied", func(t *testing.T) {
		cfg := providers.DefaultMockConfig()
		cfg.GrantedPermissions = nil
		cfg.DeniedPermissions = constants.AllPermissions
		f := newServiceFixture(t, cfg)

		_, err := f.service.Connect(ctx, testUserID, dtos.ConnectRequest{})
		assert.ErrorIs(t, err, providers.ErrAuthorizationDenied)
	})

	t.Run("invalid request", func(t *testing.T) {
		f := newServiceFixture(t, providers.DefaultMockConfig())
		f.connect(t)

		_, err := f.service.TriggerSync(ctx, testUserID, dtos.SyncRequest{SyncType: "hourly"})
		assert.ErrorIs(t, err, ErrInvalidSyncRequest)
		_, err = f.service.TriggerSync(ctx, testUserID, dtos.SyncRequest{ActivityTypes: []constants.ActivityType{"swimming"}})
		assert.ErrorIs(t, err, ErrInvalidSyncRequest)
		_, err = f.service.TriggerSync(ctx, testUserID, dtos.SyncRequest{LookbackDays: 1000})
		assert.ErrorIs(t, err, ErrInvalidSyncRequest)
	})
}

func TestHealthSyncService_LongestLookbackFitsFetchWindow(t *testing.T) {
	f := newServiceFixture(t, providers.DefaultMockConfig())
	f.connect(t)
	ctx := context.Background()

	_, err := f.service.TriggerSync(ctx, testUserID, dtos.SyncRequest{LookbackDays: MaxLookbackDays + 1, ActivityTypes: stepsOnly()})
	assert.ErrorIs(t, err, ErrInvalidSyncRequest)
	logs, err := f.logs.ListRecent(ctx, testUserID, constants.ProviderMock, 10)
	require.NoError(t, err)
	assert.Empty(t, logs)

	result, err := f.service.TriggerSync(ctx, testUserID, dtos.SyncRequest{LookbackDays: MaxLookbackDays, ActivityTypes: stepsOnly()})
	require.NoError(t, err)
	assert.Equal(t, constants.SyncStatusCompleted, result.Status)
	assert.Equal(t, MaxLookbackDays, result.RecordsInserted)
}

func TestHealthSyncService_DefaultTypesNarrowToGranted(t *testing.T) {
	cfg := providers.DefaultMockConfig()
	cfg.GrantedPermissions = nil
	f := newServiceFixture(t, cfg)

	_, err := f.service.Connect(context.Background(), testUserID, dtos.ConnectRequest{
		Permissions: []constants.PermissionTag{constants.PermissionSteps, constants.PermissionCalories},
	})
	require.NoError(t, err)

	result, err := f.service.TriggerSync(context.Background(), testUserID, dtos.SyncRequest{SyncType: constants.SyncTypeManual})
	require.NoError(t, err)
	assert.Equal(t, 14, result.RecordsInserted)

	page, err := f.service.GetRecentRecords(context.Background(), testUserID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(14), page.Total)
	assert.Equal(t, DefaultRecordsLimit, page.Limit)
	for _, rec := range page.Records {
		assert.Contains(t, []constants.ActivityType{constants.ActivitySteps, constants.ActivityCalories}, rec.ActivityType)
	}
}

func TestHealthSyncService_PublishFailureIsCounted(t *testing.T) {
	f := newServiceFixture(t, providers.DefaultMockConfig())
	f.connect(t)
	f.publisher.err = errors.New("broker unreachable")

	result, err := f.service.TriggerSync(context.Background(), testUserID, stepsRequest())
	require.NoError(t, err)
	assert.Equal(t, constants.SyncStatusCompleted, result.Status)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.EventPublishFailures.WithLabelValues("recording")))
}

func TestHealthSyncService_FailedCycleIsPublishedWithoutAdvancingLastSync(t *testing.T) {
	cfg := providers.DefaultMockConfig()
	cfg.FailFetch = true
	f := newServiceFixture(t, cfg)
	f.connect(t)

	result, err := f.service.TriggerSync(context.Background(), testUserID, stepsRequest())
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Equal(t, constants.SyncStatusFailed, result.Status)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, constants.SyncStatusFailed, f.publisher.events[0].Status)

	conn, err := f.connections.Get(context.Background(), testUserID, constants.ProviderMock)
	require.NoError(t, err)
	assert.Nil(t, conn.LastSyncAt)
}

func TestHealthSyncService_ConnectionStatusCache(t *testing.T) {
	f := newServiceFixture(t, providers.DefaultMockConfig())

	status, err := f.service.GetConnectionStatus(context.Background(), testUserID)
	require.NoError(t, err)
	assert.Equal(t, dtos.ConnectionDisconnected, status.Status)
	assert.Nil(t, status.Connection)

	_, cached := f.cache.Get(string(constants.CachePrefixConnectionStatus) + testUserID + ":" + constants.ProviderMock)
	assert.True(t, cached)

	f.connect(t)
	status, err = f.service.GetConnectionStatus(context.Background(), testUserID)
	require.NoError(t, err)
	assert.Equal(t, dtos.ConnectionConnected, status.Status)
	require.NotNil(t, status.Connection)
	assert.ElementsMatch(t, constants.PermissionsFor(constants.AllActivityTypes), status.Connection.PermissionsGranted)

	_, err = f.service.TriggerSync(context.Background(), testUserID, stepsRequest())
	require.NoError(t, err)
	status, err = f.service.GetConnectionStatus(context.Background(), testUserID)
	require.NoError(t, err)
	require.NotNil(t, status.LastSync)
	assert.Equal(t, constants.SyncStatusCompleted, status.LastSync.Status)

	f.service.Reset()
	_, cached = f.cache.Get(string(constants.CachePrefixConnectionStatus) + testUserID + ":" + constants.ProviderMock)
	assert.False(t, cached)
}

func TestHealthSyncService_SyncHistoryLimits(t *testing.T) {
	f := newServiceFixture(t, providers.DefaultMockConfig())
	f.connect(t)

	for i := 0; i < 3; i++ {
		_, err := f.service.TriggerSync(context.Background(), testUserID, dtos.SyncRequest{ActivityTypes: stepsOnly(), Force: true})
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}

	history, err := f.service.GetSyncHistory(context.Background(), testUserID, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].StartedAt.After(history[1].StartedAt))

	history, err = f.service.GetSyncHistory(context.Background(), testUserID, 0)
	require.NoError(t, err)
	assert.Len(t, history, 3)
}
