package providers

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/SamSjosten/FitChallenge-sub003/internal/constants"
)

type fetchReportKey struct{}

// FetchReport collects the per-type failures a provider absorbed during one FetchSamples call
type FetchReport struct {
	mu       sync.Mutex
	failures []TransportError
}

// WithFetchReport returns a context that providers record absorbed failures into
func WithFetchReport(ctx context.Context) (context.Context, *FetchReport) {
	report := &FetchReport{}
	return context.WithValue(ctx, fetchReportKey{}, report), report
}

// reportAbsorbed records err when the caller asked for a report. Other errors are ignored.
func reportAbsorbed(ctx context.Context, err error) {
	report, _ := ctx.Value(fetchReportKey{}).(*FetchReport)
	var transportErr *TransportError
	if report == nil || !errors.As(err, &transportErr) {
		return
	}
	report.mu.Lock()
	report.failures = append(report.failures, *transportErr)
	report.mu.Unlock()
}

// Failures returns the absorbed failures ordered by activity type
func (r *FetchReport) Failures() []TransportError {
	r.mu.Lock()
	out := append([]TransportError(nil), r.failures...)
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ActivityType < out[j].ActivityType })
	return out
}

// FailedTypes lists the activity types that returned nothing because their fetch failed
func (r *FetchReport) FailedTypes() []constants.ActivityType {
	failures := r.Failures()
	types := make([]constants.ActivityType, len(failures))
	for i, f := range failures {
		types[i] = f.ActivityType
	}
	return types
}
