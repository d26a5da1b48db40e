package jobs

import (
	"context"
	"time"

	"github.com/SamSjosten/FitChallenge-sub003/internal/metrics"
)

// InitializeJobs starts every background job and returns the sweep job for manual triggering
func InitializeJobs(
	ctx context.Context,
	logs StaleLogStore,
	staleAfter time.Duration,
	sweepInterval time.Duration,
	m *metrics.MetricsRegistry,
	onSwept func(count int64),
) *StaleSyncSweepJob {
	sweep := NewStaleSyncSweepJob(logs, staleAfter, m, time.Now, onSwept)

	go sweep.RunScheduled(ctx, sweepInterval)

	return sweep
}
