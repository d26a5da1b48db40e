package providers

import (
	"errors"
	"fmt"
	"time"

	"github.com/SamSjosten/FitChallenge-sub003/internal/constants"
)

var (
	// ErrCapabilityUnavailable is returned when the provider is absent on this device
	ErrCapabilityUnavailable = errors.New(constants.GetErrorMessage(constants.ErrCodeCapabilityUnavailable))
	// ErrAuthorizationDenied is returned when required permissions are not granted
	ErrAuthorizationDenied = errors.New(constants.GetErrorMessage(constants.ErrCodeAuthorizationDenied))
)

// ProviderError represents a provider-specific error
type ProviderError struct {
	Code    string
	Message string
	Details string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// RangeError rejects an invalid or oversized fetch window before any I/O
type RangeError struct {
	Start  time.Time
	End    time.Time
	Reason string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid sample range %s to %s: %s",
		e.Start.UTC().Format(time.RFC3339), e.End.UTC().Format(time.RFC3339), e.Reason)
}

// TransportError is a failed fetch for one activity type. Providers absorb it.
type TransportError struct {
	ActivityType constants.ActivityType
	Err          error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch %s samples: %v", e.ActivityType, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsRangeError reports whether err is or wraps a *RangeError
func IsRangeError(err error) bool {
	var rangeErr *RangeError
	return errors.As(err, &rangeErr)
}
