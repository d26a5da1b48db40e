package providers

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/SamSjosten/FitChallenge-sub003/internal/constants"
)

// SampleGenerator produces synthetic samples for a window and type set
type SampleGenerator func(start, end time.Time, types []constants.ActivityType) []Sample

// MockConfig parameterizes the deterministic mock provider
type MockConfig struct {
	ProviderTag        string
	Available          bool
	GrantedPermissions []constants.PermissionTag
	DeniedPermissions  []constants.PermissionTag
	FailAuthorization  bool
	FailFetch          bool
	FailTypes          []constants.ActivityType // fetched as absorbed per-type transport failures
	ErrorMessage       string
	Generator          SampleGenerator
	Delay              time.Duration
}

// DefaultMockConfig is available, fully granted and emits daily samples
func DefaultMockConfig() MockConfig {
	return MockConfig{
		ProviderTag:        constants.ProviderMock,
		Available:          true,
		GrantedPermissions: append([]constants.PermissionTag(nil), constants.AllPermissions...),
		Generator:          DailyGenerator(),
	}
}

// MockProvider is a deterministic, fault-injecting SampleProvider for tests and local runs
type MockProvider struct {
	mu         sync.Mutex
	cfg        MockConfig
	granted    map[constants.PermissionTag]bool
	denied     map[constants.PermissionTag]bool
	fetchCalls int
	hub        *updateHub
}

// NewMockProvider creates a mock provider from cfg
func NewMockProvider(cfg MockConfig) *MockProvider {
	if cfg.ProviderTag == "" {
		cfg.ProviderTag = constants.ProviderMock
	}
	if cfg.Generator == nil {
		cfg.Generator = func(time.Time, time.Time, []constants.ActivityType) []Sample { return nil }
	}

	p := &MockProvider{
		cfg:     cfg,
		granted: make(map[constants.PermissionTag]bool),
		denied:  make(map[constants.PermissionTag]bool),
		hub:     newUpdateHub(),
	}
	for _, perm := range cfg.GrantedPermissions {
		p.granted[perm] = true
	}
	for _, perm := range cfg.DeniedPermissions {
		p.denied[perm] = true
	}
	return p
}

func (p *MockProvider) GetProviderType() string {
	return p.cfg.ProviderTag
}

func (p *MockProvider) IsAvailable(ctx context.Context) bool {
	return p.cfg.Available
}

func (p *MockProvider) GetAuthorizationStatus(ctx context.Context) (*AuthorizationStatus, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return newAuthorizationStatus(p.granted, p.denied), nil
}

// RequestAuthorization grants every requested permission that is not configured as denied
func (p *MockProvider) RequestAuthorization(ctx context.Context, permissions []constants.PermissionTag) (*AuthorizationStatus, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	if p.cfg.FailAuthorization {
		return nil, &ProviderError{
			Code:    constants.ErrCodeAuthorizationFailed,
			Message: p.errorMessage("mock authorization failure"),
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, perm := range permissions {
		if !perm.IsValid() {
			return nil, &ProviderError{
				Code:    constants.ErrCodeUnknownPermission,
				Message: constants.GetErrorMessage(constants.ErrCodeUnknownPermission),
				Details: string(perm),
			}
		}
		if !p.denied[perm] {
			p.granted[perm] = true
		}
	}
	return newAuthorizationStatus(p.granted, p.denied), nil
}

// FetchSamples validates the window before anything else, so a rejected
// range never counts as a fetch call.
func (p *MockProvider) FetchSamples(ctx context.Context, start, end time.Time, types []constants.ActivityType) ([]Sample, error) {
	if err := ValidateWindow(start, end); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.fetchCalls++
	p.mu.Unlock()

	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	if p.cfg.FailFetch {
		return nil, errors.New(p.errorMessage("mock fetch failure"))
	}

	served := make([]constants.ActivityType, 0, len(types))
	for _, t := range types {
		if slices.Contains(p.cfg.FailTypes, t) {
			reportAbsorbed(ctx, &TransportError{ActivityType: t, Err: errors.New(p.errorMessage("mock transport failure"))})
			continue
		}
		served = append(served, t)
	}

	return normalizeSamples(p.cfg.ProviderTag, p.cfg.Generator(start, end, served), served), nil
}

// FetchCalls returns how many fetches passed window validation
func (p *MockProvider) FetchCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetchCalls
}

func (p *MockProvider) SubscribeToUpdates(types []constants.ActivityType, cb UpdateCallback) func() {
	return p.hub.subscribe(types, cb)
}

// EmitUpdate simulates a push from the device and returns the number of callbacks invoked
func (p *MockProvider) EmitUpdate(samples []Sample) int {
	return p.hub.publish(samples)
}

func (p *MockProvider) EnableBackgroundDelivery(ctx context.Context, types []constants.ActivityType) bool {
	return p.cfg.Available && !p.cfg.FailAuthorization
}

func (p *MockProvider) wait(ctx context.Context) error {
	if p.cfg.Delay <= 0 {
		return nil
	}
	timer := time.NewTimer(p.cfg.Delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *MockProvider) errorMessage(fallback string) string {
	if p.cfg.ErrorMessage != "" {
		return p.cfg.ErrorMessage
	}
	return fallback
}

// dailyRanges bounds the synthetic value per day for each type
var dailyRanges = map[constants.ActivityType][2]int{
	constants.ActivitySteps:         {2000, 15000},
	constants.ActivityActiveMinutes: {10, 120},
	constants.ActivityWorkouts:      {0, 90},
	constants.ActivityDistance:      {1500, 12000},
	constants.ActivityCalories:      {150, 900},
	constants.ActivityCustom:        {1, 10},
}

// DailyGenerator emits one sample per type for every whole UTC day inside
// the window. The partial current day is left out. Values are a pure
// function of the day and type.
func DailyGenerator() SampleGenerator {
	return func(start, end time.Time, types []constants.ActivityType) []Sample {
		var samples []Sample
		day := start.UTC().Truncate(24 * time.Hour)
		if day.Before(start.UTC()) {
			day = day.Add(24 * time.Hour)
		}
		for ; !day.Add(24 * time.Hour).After(end.UTC()); day = day.Add(24 * time.Hour) {
			for _, t := range types {
				bounds, ok := dailyRanges[t]
				if !ok {
					continue
				}
				span := bounds[1] - bounds[0] + 1
				seed := day.YearDay()*7919 + day.Year()*31 + len(t)*104729
				samples = append(samples, Sample{
					ID:         fmt.Sprintf("mock-%s-%s", t, day.Format("20060102")),
					Type:       t,
					Value:      float64(bounds[0] + seed%span),
					Unit:       t.DefaultUnit(),
					StartDate:  day,
					EndDate:    day.Add(24*time.Hour - time.Millisecond),
					SourceName: "Mock Device",
					SourceID:   "com.fitchallenge.mock",
				})
			}
		}
		return samples
	}
}

// StaticGenerator always returns the same samples regardless of the window
func StaticGenerator(samples ...Sample) SampleGenerator {
	return func(time.Time, time.Time, []constants.ActivityType) []Sample {
		out := make([]Sample, len(samples))
		copy(out, samples)
		return out
	}
}
