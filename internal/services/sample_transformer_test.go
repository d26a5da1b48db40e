package services

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SamSjosten/FitChallenge-sub003/internal/constants"
	"github.com/SamSjosten/FitChallenge-sub003/internal/providers"
)

const testUserID = "8a1f7f0e-4d8c-4f39-9d2b-1c5b2f0e9a11"

func baseSample() providers.Sample {
	start := time.Date(2026, 4, 10, 7, 30, 0, 0, time.UTC)
	return providers.Sample{
		ID:        "sample-1",
		Type:      constants.ActivitySteps,
		Value:     5234.6,
		Unit:      "count",
		StartDate: start,
		EndDate:   start.Add(30 * time.Minute),
		SourceID:  "com.apple.health.watch",
	}
}

func TestHashSample_Deterministic(t *testing.T) {
	a := baseSample()
	b := baseSample()
	b.SourceName = "Someone's Watch"
	b.Metadata = map[string]interface{}{"ignored": true}

	hash := HashSample(a)
	assert.Len(t, hash, 64)
	assert.Regexp(t, "^[0-9a-f]{64}$", hash)
	assert.Equal(t, hash, HashSample(b), "display name and metadata do not feed the hash")

	// Same instant expressed in another zone
	loc := time.FixedZone("UTC+2", 2*60*60)
	c := baseSample()
	c.StartDate = c.StartDate.In(loc)
	c.EndDate = c.EndDate.In(loc)
	assert.Equal(t, hash, HashSample(c))
}

func TestHashSample_EachFieldChangesHash(t *testing.T) {
	original := HashSample(baseSample())

	mutations := map[string]func(s *providers.Sample){
		"type":      func(s *providers.Sample) { s.Type = constants.ActivityDistance },
		"value":     func(s *providers.Sample) { s.Value = 5234.7 },
		"unit":      func(s *providers.Sample) { s.Unit = "steps" },
		"start":     func(s *providers.Sample) { s.StartDate = s.StartDate.Add(time.Millisecond) },
		"end":       func(s *providers.Sample) { s.EndDate = s.EndDate.Add(time.Second) },
		"source_id": func(s *providers.Sample) { s.SourceID = "com.apple.health.phone" },
		"id":        func(s *providers.Sample) { s.ID = "sample-2" },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			s := baseSample()
			mutate(&s)
			assert.NotEqual(t, original, HashSample(s))
		})
	}
}

func TestSampleTransformer_Transform(t *testing.T) {
	transformer := NewSampleTransformer(2)
	sample := baseSample()
	sample.Unit = ""
	sample.StartDate = sample.StartDate.Add(1500 * time.Microsecond)

	rec, err := transformer.Transform(sample, testUserID, constants.ProviderMock)
	require.NoError(t, err)

	assert.Equal(t, testUserID, rec.UserID)
	assert.Equal(t, constants.ActivitySteps, rec.ActivityType)
	assert.Equal(t, int64(5235), rec.Value)
	assert.Equal(t, constants.ActivitySteps.DefaultUnit(), rec.Unit)
	assert.Equal(t, constants.ProviderMock, rec.Source)
	assert.Equal(t, HashSample(sample), rec.ExternalID)
	assert.Nil(t, rec.ChallengeID)
	assert.Equal(t, time.UTC, rec.RecordedAt.Location())
	assert.Equal(t, 1*time.Millisecond, time.Duration(rec.RecordedAt.Nanosecond()))
}

func TestSampleTransformer_RejectsInvalidSamples(t *testing.T) {
	transformer := NewSampleTransformer(1)

	cases := map[string]func(s *providers.Sample){
		"negative value": func(s *providers.Sample) { s.Value = -1 },
		"nan value":      func(s *providers.Sample) { s.Value = math.NaN() },
		"unknown type":   func(s *providers.Sample) { s.Type = "swimming" },
		"inverted dates": func(s *providers.Sample) { s.EndDate = s.StartDate.Add(-time.Second) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := baseSample()
			mutate(&s)
			_, err := transformer.Transform(s, testUserID, constants.ProviderMock)
			assert.Error(t, err)
		})
	}
}

func TestSampleTransformer_TransformAllKeepsOrder(t *testing.T) {
	transformer := NewSampleTransformer(3)

	var samples []providers.Sample
	for i := 0; i < 20; i++ {
		s := baseSample()
		s.ID = s.ID + string(rune('a'+i))
		s.Value = float64(i)
		samples = append(samples, s)
	}

	records, err := transformer.TransformAll(context.Background(), samples, testUserID, constants.ProviderMock)
	require.NoError(t, err)
	require.Len(t, records, len(samples))
	for i, rec := range records {
		assert.Equal(t, int64(i), rec.Value)
		assert.Equal(t, HashSample(samples[i]), rec.ExternalID)
	}

	samples[7].Value = -3
	_, err = transformer.TransformAll(context.Background(), samples, testUserID, constants.ProviderMock)
	assert.Error(t, err)
}
