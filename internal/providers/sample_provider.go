package providers

import (
	"context"
	"time"

	"github.com/SamSjosten/FitChallenge-sub003/internal/constants"
)

// SampleProvider defines the interface for on-device health data sources
type SampleProvider interface {
	// IsAvailable reports whether the data source exists on this device.
	// Returns false whenever the capability cannot be determined.
	IsAvailable(ctx context.Context) bool

	// GetAuthorizationStatus partitions the permission vocabulary into granted, denied and not determined
	GetAuthorizationStatus(ctx context.Context) (*AuthorizationStatus, error)

	// RequestAuthorization asks for the given permissions. Re-requesting a granted permission is a no-op
	RequestAuthorization(ctx context.Context, permissions []constants.PermissionTag) (*AuthorizationStatus, error)

	// FetchSamples returns samples of the requested types within [start, end],
	// deduplicated by sample id and sorted by start date
	FetchSamples(ctx context.Context, start, end time.Time, types []constants.ActivityType) ([]Sample, error)

	// GetProviderType returns the provider tag written to records and sync logs
	GetProviderType() string
}

// UpdateCallback receives samples pushed by a provider
type UpdateCallback func(samples []Sample)

// UpdateSubscriber is implemented by providers that can push new samples
type UpdateSubscriber interface {
	// SubscribeToUpdates registers cb for the given types and returns a function that removes it
	SubscribeToUpdates(types []constants.ActivityType, cb UpdateCallback) (unsubscribe func())
}

// BackgroundDeliverer is implemented by providers that can wake the app for new data
type BackgroundDeliverer interface {
	EnableBackgroundDelivery(ctx context.Context, types []constants.ActivityType) bool
}

// Sample is a raw activity measurement reported by a provider. It is never persisted directly.
type Sample struct {
	ID         string                 `json:"id"`          // Unique within the provider
	Type       constants.ActivityType `json:"type"`        // Activity vocabulary entry
	Value      float64                `json:"value"`       // Always >= 0
	Unit       string                 `json:"unit"`        // May be empty; defaulted by the transformer
	StartDate  time.Time              `json:"start_date"`  // StartDate <= EndDate
	EndDate    time.Time              `json:"end_date"`    //
	SourceName string                 `json:"source_name"` // Human-readable device or app name
	SourceID   string                 `json:"source_id"`   // Device or app bundle identifier
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// AuthorizationStatus partitions the permission vocabulary
type AuthorizationStatus struct {
	Granted       []constants.PermissionTag `json:"granted"`
	Denied        []constants.PermissionTag `json:"denied"`
	NotDetermined []constants.PermissionTag `json:"not_determined"`
}

// IsGranted reports whether p is in the granted partition
func (s *AuthorizationStatus) IsGranted(p constants.PermissionTag) bool {
	if s == nil {
		return false
	}
	for _, g := range s.Granted {
		if g == p {
			return true
		}
	}
	return false
}

// Missing returns the required permissions that are not granted
func (s *AuthorizationStatus) Missing(required []constants.PermissionTag) []constants.PermissionTag {
	var missing []constants.PermissionTag
	for _, p := range required {
		if !s.IsGranted(p) {
			missing = append(missing, p)
		}
	}
	return missing
}

// newAuthorizationStatus builds a full partition from the granted and denied sets.
// Anything in neither set is not determined.
func newAuthorizationStatus(granted, denied map[constants.PermissionTag]bool) *AuthorizationStatus {
	status := &AuthorizationStatus{
		Granted:       []constants.PermissionTag{},
		Denied:        []constants.PermissionTag{},
		NotDetermined: []constants.PermissionTag{},
	}
	for _, p := range constants.AllPermissions {
		switch {
		case granted[p]:
			status.Granted = append(status.Granted, p)
		case denied[p]:
			status.Denied = append(status.Denied, p)
		default:
			status.NotDetermined = append(status.NotDetermined, p)
		}
	}
	return status
}
