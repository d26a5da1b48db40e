package providers

import (
	"sort"
	"time"

	"github.com/SamSjosten/FitChallenge-sub003/internal/constants"
	"github.com/SamSjosten/FitChallenge-sub003/internal/logging"
)

// ValidateWindow rejects start > end and windows longer than 365 days
func ValidateWindow(start, end time.Time) error {
	if start.After(end) {
		return &RangeError{Start: start, End: end, Reason: "start is after end"}
	}
	if end.Sub(start) > constants.MaxFetchWindow {
		return &RangeError{Start: start, End: end, Reason: "window exceeds 365 days"}
	}
	return nil
}

// normalizeSamples keeps only requested types, drops malformed samples,
// removes repeated sample ids (first wins) and sorts by start date.
func normalizeSamples(providerTag string, samples []Sample, types []constants.ActivityType) []Sample {
	wanted := make(map[constants.ActivityType]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}

	seen := make(map[string]bool, len(samples))
	out := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if !wanted[s.Type] {
			continue
		}
		if s.ID == "" || s.Value < 0 || s.StartDate.After(s.EndDate) {
			logging.Warn("Dropping malformed sample",
				"provider", providerTag,
				"sample_id", s.ID,
				"activity_type", string(s.Type),
			)
			continue
		}
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartDate.Before(out[j].StartDate)
	})
	return out
}
