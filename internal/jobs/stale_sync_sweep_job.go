package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/SamSjosten/FitChallenge-sub003/internal/logging"
	"github.com/SamSjosten/FitChallenge-sub003/internal/metrics"
)

// StaleLogStore retires sync logs that never reached a terminal state
type StaleLogStore interface {
	MarkStaleFailed(ctx context.Context, cutoff time.Time, now time.Time) (int64, error)
}

// StaleSyncSweepJob fails in_progress sync logs older than staleAfter.
// A cycle killed mid-flight leaves its log open, and an open log blocks
// every later sync for that user and provider.
type StaleSyncSweepJob struct {
	logs       StaleLogStore
	staleAfter time.Duration
	metrics    *metrics.MetricsRegistry
	now        func() time.Time
	onSwept    func(count int64)
}

// NewStaleSyncSweepJob creates a sweep job. onSwept may be nil.
func NewStaleSyncSweepJob(
	logs StaleLogStore,
	staleAfter time.Duration,
	m *metrics.MetricsRegistry,
	now func() time.Time,
	onSwept func(count int64),
) *StaleSyncSweepJob {
	if now == nil {
		now = time.Now
	}
	return &StaleSyncSweepJob{
		logs:       logs,
		staleAfter: staleAfter,
		metrics:    m,
		now:        now,
		onSwept:    onSwept,
	}
}

// Run executes one sweep and returns how many logs were failed
func (j *StaleSyncSweepJob) Run(ctx context.Context) (int64, error) {
	now := j.now()
	cutoff := now.Add(-j.staleAfter)

	swept, err := j.logs.MarkStaleFailed(ctx, cutoff, now)
	if err != nil {
		return 0, fmt.Errorf("sweep stale sync logs: %w", err)
	}

	if swept > 0 {
		logging.Warn("Retired abandoned sync logs",
			"job", "stale_sync_sweep",
			"count", swept,
			"cutoff", cutoff.UTC().Format(time.RFC3339),
		)
		if j.metrics != nil {
			j.metrics.StaleLogsSweptTotal.Add(float64(swept))
		}
		if j.onSwept != nil {
			j.onSwept(swept)
		}
	}
	return swept, nil
}

// RunScheduled sweeps once immediately, then on every tick until ctx is done
func (j *StaleSyncSweepJob) RunScheduled(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if _, err := j.Run(ctx); err != nil {
		logging.Error("Error in initial stale sync sweep", "error", err)
	}

	for {
		select {
		case <-ticker.C:
			if _, err := j.Run(ctx); err != nil {
				logging.Error("Error in scheduled stale sync sweep", "error", err)
			}
		case <-ctx.Done():
			logging.Info("Shutting down stale sync sweep")
			return
		}
	}
}
