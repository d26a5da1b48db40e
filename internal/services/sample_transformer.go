package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SamSjosten/FitChallenge-sub003/internal/models/gorm"
	"github.com/SamSjosten/FitChallenge-sub003/internal/providers"
)

// CanonicalTimeLayout is the only layout used when a timestamp feeds the record hash
const CanonicalTimeLayout = "2006-01-02T15:04:05.000Z"

const hashSeparator = "|"

// FormatTimestamp renders t in UTC with fixed millisecond precision
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(CanonicalTimeLayout)
}

// HashSample returns the SHA-256 content hash of a sample as 64 lowercase hex characters.
// The field order is fixed: type, value, unit, start, end, source id, sample id.
func HashSample(sample providers.Sample) string {
	parts := []string{
		string(sample.Type),
		strconv.FormatFloat(sample.Value, 'f', -1, 64),
		sample.Unit,
		FormatTimestamp(sample.StartDate),
		FormatTimestamp(sample.EndDate),
		sample.SourceID,
		sample.ID,
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, hashSeparator)))
	return hex.EncodeToString(sum[:])
}

// SampleTransformer maps provider samples to canonical activity records.
// It holds no per-sample state, so samples are transformed in parallel.
type SampleTransformer struct {
	workers int
}

func NewSampleTransformer(workers int) *SampleTransformer {
	if workers <= 0 {
		workers = 4
	}
	return &SampleTransformer{workers: workers}
}

// Transform builds the record for one sample
func (t *SampleTransformer) Transform(sample providers.Sample, userID, providerTag string) (gorm.ActivityRecord, error) {
	if !sample.Type.IsValid() {
		return gorm.ActivityRecord{}, fmt.Errorf("sample %s: unknown activity type %q", sample.ID, sample.Type)
	}
	if sample.Value < 0 || math.IsNaN(sample.Value) || math.IsInf(sample.Value, 0) {
		return gorm.ActivityRecord{}, fmt.Errorf("sample %s: invalid value %v", sample.ID, sample.Value)
	}
	if sample.StartDate.After(sample.EndDate) {
		return gorm.ActivityRecord{}, fmt.Errorf("sample %s: start date after end date", sample.ID)
	}

	unit := sample.Unit
	if unit == "" {
		unit = sample.Type.DefaultUnit()
	}

	return gorm.ActivityRecord{
		UserID:       userID,
		ActivityType: sample.Type,
		Value:        int64(math.Round(sample.Value)),
		Unit:         unit,
		Source:       providerTag,
		ExternalID:   HashSample(sample),
		RecordedAt:   sample.StartDate.UTC().Truncate(time.Millisecond),
	}, nil
}

// TransformAll transforms every sample, keeping input order. The first failure cancels the rest.
func (t *SampleTransformer) TransformAll(ctx context.Context, samples []providers.Sample, userID, providerTag string) ([]gorm.ActivityRecord, error) {
	records := make([]gorm.ActivityRecord, len(samples))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.workers)
	for i, sample := range samples {
		i, sample := i, sample
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := t.Transform(sample, userID, providerTag)
			if err != nil {
				return err
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}
