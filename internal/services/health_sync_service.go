package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SamSjosten/FitChallenge-sub003/internal/common"
	"github.com/SamSjosten/FitChallenge-sub003/internal/constants"
	"github.com/SamSjosten/FitChallenge-sub003/internal/logging"
	"github.com/SamSjosten/FitChallenge-sub003/internal/metrics"
	"github.com/SamSjosten/FitChallenge-sub003/internal/models/dtos"
	"github.com/SamSjosten/FitChallenge-sub003/internal/models/gorm"
	"github.com/SamSjosten/FitChallenge-sub003/internal/providers"
)

var (
	ErrSyncInProgress     = errors.New("a sync is already in progress for this provider")
	ErrSyncTooSoon        = errors.New("last sync was too recent, retry later or force")
	ErrNotConnected       = errors.New("health provider is not connected")
	ErrInvalidSyncRequest = errors.New("invalid sync request")
)

const (
	connectionStatusTTL = 30 * time.Second

	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100
	DefaultRecordsLimit = 50
	MaxRecordsLimit     = 200
	MaxLookbackDays     = 364 // the window start is pulled back to midnight, so 365 would exceed MaxFetchWindow
)

// ConnectionStore reads and writes provider connections
type ConnectionStore interface {
	Get(ctx context.Context, userID, provider string) (*gorm.HealthConnection, error)
	Connect(ctx context.Context, userID, provider string, permissions []constants.PermissionTag, at time.Time) (*gorm.HealthConnection, error)
	Disconnect(ctx context.Context, userID, provider string, at time.Time) error
	TouchLastSync(ctx context.Context, userID, provider string, at time.Time) error
}

// SyncHistoryStore reads sync logs
type SyncHistoryStore interface {
	FindInProgress(ctx context.Context, userID, provider string) (*gorm.HealthSyncLog, error)
	ListRecent(ctx context.Context, userID, provider string, limit int) ([]gorm.HealthSyncLog, error)
}

// RecordReader pages through persisted activity records
type RecordReader interface {
	ListRecent(ctx context.Context, userID string, limit, offset int) ([]gorm.ActivityRecord, int64, error)
}

// HealthSyncServiceDeps wires a HealthSyncService
type HealthSyncServiceDeps struct {
	Provider     providers.SampleProvider
	Orchestrator *SyncOrchestrator
	Connections  ConnectionStore
	Logs         SyncHistoryStore
	Records      RecordReader
	Cache        common.CacheInterface
	Events       common.EventPublisher
	Metrics      *metrics.MetricsRegistry
	MinInterval  time.Duration
	Now          func() time.Time
}

// HealthSyncService is the entry point for connection management and sync triggers.
// It checks every precondition the orchestrator assumes before a log is opened.
type HealthSyncService struct {
	provider     providers.SampleProvider
	orchestrator *SyncOrchestrator
	connections  ConnectionStore
	logs         SyncHistoryStore
	records      RecordReader
	cache        common.CacheInterface
	events       common.EventPublisher
	metrics      *metrics.MetricsRegistry
	minInterval  time.Duration
	now          func() time.Time

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewHealthSyncService(deps HealthSyncServiceDeps) *HealthSyncService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Events == nil {
		deps.Events = common.NoopPublisher{}
	}
	if deps.Cache == nil {
		deps.Cache = common.NewCacheService(connectionStatusTTL, time.Minute)
	}
	return &HealthSyncService{
		provider:     deps.Provider,
		orchestrator: deps.Orchestrator,
		connections:  deps.Connections,
		logs:         deps.Logs,
		records:      deps.Records,
		cache:        deps.Cache,
		events:       deps.Events,
		metrics:      deps.Metrics,
		minInterval:  deps.MinInterval,
		now:          deps.Now,
		inFlight:     make(map[string]bool),
	}
}

// ProviderType returns the tag of the configured provider
func (s *HealthSyncService) ProviderType() string {
	return s.provider.GetProviderType()
}

func (s *HealthSyncService) statusCacheKey(userID string) string {
	return fmt.Sprintf("%s%s:%s", constants.CachePrefixConnectionStatus, userID, s.provider.GetProviderType())
}

func (s *HealthSyncService) invalidateStatus(userID string) {
	key := s.statusCacheKey(userID)
	s.cache.Delete(key)
}

// GetConnectionStatus reports whether the user is connected, syncing or unable to connect
func (s *HealthSyncService) GetConnectionStatus(ctx context.Context, userID string) (*dtos.ConnectionStatusResponse, error) {
	key := s.statusCacheKey(userID)
	if cached, ok := s.cache.Get(key); ok {
		var resp dtos.ConnectionStatusResponse
		if err := common.DecodeCached(cached, &resp); err == nil {
			return &resp, nil
		}
		s.cache.Delete(key)
	}

	resp, err := s.loadConnectionStatus(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, resp, connectionStatusTTL)
	return resp, nil
}

func (s *HealthSyncService) loadConnectionStatus(ctx context.Context, userID string) (*dtos.ConnectionStatusResponse, error) {
	providerTag := s.provider.GetProviderType()
	resp := &dtos.ConnectionStatusResponse{Status: dtos.ConnectionDisconnected}

	conn, err := s.connections.Get(ctx, userID, providerTag)
	if err != nil {
		return nil, err
	}
	if conn != nil {
		resp.Connection = toConnectionView(conn)
	}

	recent, err := s.logs.ListRecent(ctx, userID, providerTag, 1)
	if err != nil {
		return nil, err
	}
	if len(recent) > 0 {
		view := toSyncLogView(recent[0])
		resp.LastSync = &view
	}

	switch {
	case !s.provider.IsAvailable(ctx):
		resp.Status = dtos.ConnectionUnavailable
	case conn == nil || !conn.IsActive:
		resp.Status = dtos.ConnectionDisconnected
	case len(recent) > 0 && recent[0].Status == constants.SyncStatusInProgress:
		resp.Status = dtos.ConnectionSyncing
	default:
		resp.Status = dtos.ConnectionConnected
	}
	return resp, nil
}

// Connect checks availability, requests authorization and records the connection.
// Requesting nothing asks for every permission the activity vocabulary needs.
func (s *HealthSyncService) Connect(ctx context.Context, userID string, req dtos.ConnectRequest) (*dtos.ConnectionStatusResponse, error) {
	logger := logging.With("user_id", userID, "provider", s.provider.GetProviderType())

	if !s.provider.IsAvailable(ctx) {
		return nil, providers.ErrCapabilityUnavailable
	}

	requested := req.Permissions
	if len(requested) == 0 {
		requested = constants.PermissionsFor(constants.AllActivityTypes)
	}
	for _, p := range requested {
		if !p.IsValid() {
			return nil, fmt.Errorf("%w: unknown permission %q", ErrInvalidSyncRequest, p)
		}
	}

	status, err := s.provider.RequestAuthorization(ctx, requested)
	if err != nil {
		return nil, fmt.Errorf("request authorization: %w", err)
	}

	var granted []constants.PermissionTag
	for _, p := range requested {
		if status.IsGranted(p) {
			granted = append(granted, p)
		}
	}
	if len(granted) == 0 {
		return nil, providers.ErrAuthorizationDenied
	}

	if _, err := s.connections.Connect(ctx, userID, s.provider.GetProviderType(), granted, s.now()); err != nil {
		return nil, err
	}

	if deliverer, ok := s.provider.(providers.BackgroundDeliverer); ok {
		enabled := deliverer.EnableBackgroundDelivery(ctx, grantedTypes(granted))
		logger.Infow("Background delivery requested", "enabled", enabled)
	}

	logger.Infow("Health provider connected", "granted", granted)
	s.invalidateStatus(userID)
	return s.GetConnectionStatus(ctx, userID)
}

// Disconnect deactivates the connection. Persisted records and logs stay.
func (s *HealthSyncService) Disconnect(ctx context.Context, userID string) error {
	if err := s.connections.Disconnect(ctx, userID, s.provider.GetProviderType(), s.now()); err != nil {
		return err
	}
	s.invalidateStatus(userID)
	logging.Info("Health provider disconnected", "user_id", userID, "provider", s.provider.GetProviderType())
	return nil
}

// TriggerSync validates preconditions and runs one sync cycle.
//
// An omitted sync type is initial for a connection that never synced and manual
// otherwise. Force skips only the minimum interval between syncs.
func (s *HealthSyncService) TriggerSync(ctx context.Context, userID string, req dtos.SyncRequest) (*dtos.SyncResult, error) {
	providerTag := s.provider.GetProviderType()

	if req.SyncType != "" && !req.SyncType.IsValid() {
		return nil, fmt.Errorf("%w: unknown sync type %q", ErrInvalidSyncRequest, req.SyncType)
	}
	if req.LookbackDays < 0 || req.LookbackDays > MaxLookbackDays {
		return nil, fmt.Errorf("%w: lookback_days must be between 1 and %d", ErrInvalidSyncRequest, MaxLookbackDays)
	}
	for _, t := range req.ActivityTypes {
		if !t.IsValid() {
			return nil, fmt.Errorf("%w: unknown activity type %q", ErrInvalidSyncRequest, t)
		}
	}

	if !s.provider.IsAvailable(ctx) {
		return nil, providers.ErrCapabilityUnavailable
	}

	conn, err := s.connections.Get(ctx, userID, providerTag)
	if err != nil {
		return nil, err
	}
	if conn == nil || !conn.IsActive {
		return nil, ErrNotConnected
	}

	types, err := s.authorizedTypes(ctx, req.ActivityTypes)
	if err != nil {
		return nil, err
	}

	syncType := req.SyncType
	if syncType == "" {
		syncType = constants.SyncTypeManual
		if conn.LastSyncAt == nil {
			syncType = constants.SyncTypeInitial
		}
	}

	if !req.Force && syncType != constants.SyncTypeInitial && conn.LastSyncAt != nil && s.minInterval > 0 {
		if since := s.now().Sub(*conn.LastSyncAt); since < s.minInterval {
			return nil, fmt.Errorf("%w (last sync %s ago)", ErrSyncTooSoon, since.Round(time.Second))
		}
	}

	release, err := s.acquire(ctx, userID, providerTag)
	if err != nil {
		return nil, err
	}
	defer release()

	s.invalidateStatus(userID)
	result, runErr := s.orchestrator.Run(ctx, s.provider, SyncOptions{
		UserID:        userID,
		SyncType:      syncType,
		LookbackDays:  req.LookbackDays,
		ActivityTypes: types,
	})
	s.invalidateStatus(userID)

	if result == nil {
		return nil, runErr
	}

	if result.Status == constants.SyncStatusCompleted || result.Status == constants.SyncStatusPartial {
		if err := s.connections.TouchLastSync(context.WithoutCancel(ctx), userID, providerTag, s.now()); err != nil {
			logging.Error("Failed to advance last sync time", "user_id", userID, "provider", providerTag, "error", err)
		}
	}

	if result.Status.IsTerminal() {
		s.publishCompleted(ctx, userID, providerTag, syncType, result)
	}

	return result, runErr
}

// acquire holds the per-(user, provider) guard. The in-process map closes the gap
// between reading the log table and opening a new log.
func (s *HealthSyncService) acquire(ctx context.Context, userID, providerTag string) (func(), error) {
	key := userID + ":" + providerTag

	s.mu.Lock()
	if s.inFlight[key] {
		s.mu.Unlock()
		return nil, ErrSyncInProgress
	}
	s.inFlight[key] = true
	s.mu.Unlock()

	release := func() {
		s.mu.Lock()
		delete(s.inFlight, key)
		s.mu.Unlock()
	}

	open, err := s.logs.FindInProgress(ctx, userID, providerTag)
	if err != nil {
		release()
		return nil, err
	}
	if open != nil {
		release()
		return nil, fmt.Errorf("%w (log %s)", ErrSyncInProgress, open.ID)
	}
	return release, nil
}

// authorizedTypes keeps explicitly requested types strict: any missing permission
// rejects the sync. With no request it narrows the vocabulary to granted types.
func (s *HealthSyncService) authorizedTypes(ctx context.Context, requested []constants.ActivityType) ([]constants.ActivityType, error) {
	status, err := s.provider.GetAuthorizationStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("read authorization status: %w", err)
	}

	if len(requested) > 0 {
		if missing := status.Missing(constants.PermissionsFor(requested)); len(missing) > 0 {
			return nil, fmt.Errorf("%w: missing %v", providers.ErrAuthorizationDenied, missing)
		}
		return requested, nil
	}

	var types []constants.ActivityType
	for _, t := range constants.AllActivityTypes {
		if p, ok := t.Permission(); ok && status.IsGranted(p) {
			types = append(types, t)
		}
	}
	if len(types) == 0 {
		return nil, providers.ErrAuthorizationDenied
	}
	return types, nil
}

func (s *HealthSyncService) publishCompleted(ctx context.Context, userID, providerTag string, syncType constants.SyncType, result *dtos.SyncResult) {
	event := dtos.SyncCompletedEvent{
		EventID:             uuid.NewString(),
		EventType:           constants.EventSyncCompleted,
		LogID:               result.LogID,
		UserID:              userID,
		Provider:            providerTag,
		SyncType:            syncType,
		Status:              result.Status,
		RecordsProcessed:    result.RecordsProcessed,
		RecordsInserted:     result.RecordsInserted,
		RecordsDeduplicated: result.RecordsDeduplicated,
		CompletedAt:         s.now().UTC(),
	}

	if err := s.events.Publish(context.WithoutCancel(ctx), constants.EventSyncCompleted, userID, event); err != nil {
		logging.Warn("Failed to publish sync event",
			"sink", s.events.Sink(),
			"log_id", result.LogID,
			"error", err,
		)
		if s.metrics != nil {
			s.metrics.EventPublishFailures.WithLabelValues(s.events.Sink()).Inc()
		}
	}
}

// GetSyncHistory returns the most recent sync logs, newest first
func (s *HealthSyncService) GetSyncHistory(ctx context.Context, userID string, limit int) ([]dtos.SyncLogView, error) {
	limit = clampLimit(limit, DefaultHistoryLimit, MaxHistoryLimit)

	logs, err := s.logs.ListRecent(ctx, userID, s.provider.GetProviderType(), limit)
	if err != nil {
		return nil, err
	}

	views := make([]dtos.SyncLogView, 0, len(logs))
	for _, l := range logs {
		views = append(views, toSyncLogView(l))
	}
	return views, nil
}

// GetRecentRecords pages through the user's persisted records, newest first
func (s *HealthSyncService) GetRecentRecords(ctx context.Context, userID string, limit, offset int) (*dtos.RecordsPage, error) {
	limit = clampLimit(limit, DefaultRecordsLimit, MaxRecordsLimit)
	if offset < 0 {
		offset = 0
	}

	records, total, err := s.records.ListRecent(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	page := &dtos.RecordsPage{
		Records: make([]dtos.ActivityRecordView, 0, len(records)),
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	}
	for _, r := range records {
		page.Records = append(page.Records, dtos.ActivityRecordView{
			ID:           r.ID,
			ActivityType: r.ActivityType,
			Value:        r.Value,
			Unit:         r.Unit,
			Source:       r.Source,
			ExternalID:   r.ExternalID,
			RecordedAt:   FormatTimestamp(r.RecordedAt),
			ChallengeID:  r.ChallengeID,
		})
	}
	return page, nil
}

// Reset clears the in-process sync guard and every cached connection status
func (s *HealthSyncService) Reset() {
	s.mu.Lock()
	s.inFlight = make(map[string]bool)
	s.mu.Unlock()

	s.InvalidateCachedStatuses()
}

// InvalidateCachedStatuses drops every cached connection status, including ones other replicas wrote to a shared cache
func (s *HealthSyncService) InvalidateCachedStatuses() {
	s.cache.DeletePrefix(string(constants.CachePrefixConnectionStatus))
}

func clampLimit(limit, fallback, max int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > max {
		return max
	}
	return limit
}

func grantedTypes(granted []constants.PermissionTag) []constants.ActivityType {
	set := make(map[constants.PermissionTag]bool, len(granted))
	for _, p := range granted {
		set[p] = true
	}
	var types []constants.ActivityType
	for _, t := range constants.AllActivityTypes {
		if p, ok := t.Permission(); ok && set[p] {
			types = append(types, t)
		}
	}
	return types
}

func toConnectionView(c *gorm.HealthConnection) *dtos.ConnectionView {
	return &dtos.ConnectionView{
		Provider:           c.Provider,
		ConnectedAt:        c.ConnectedAt,
		LastSyncAt:         c.LastSyncAt,
		PermissionsGranted: []constants.PermissionTag(c.PermissionsGranted),
		IsActive:           c.IsActive,
		DisconnectedAt:     c.DisconnectedAt,
	}
}

func toSyncLogView(l gorm.HealthSyncLog) dtos.SyncLogView {
	return dtos.SyncLogView{
		ID:                  l.ID,
		Provider:            l.Provider,
		SyncType:            l.SyncType,
		Status:              l.Status,
		StartedAt:           l.StartedAt,
		CompletedAt:         l.CompletedAt,
		RecordsProcessed:    l.RecordsProcessed,
		RecordsInserted:     l.RecordsInserted,
		RecordsDeduplicated: l.RecordsDeduplicated,
		ErrorMessage:        l.ErrorMessage,
		Metadata:            l.Metadata,
	}
}
