package constants

// Sample Provider Error Codes
// These constants define specific error scenarios for health sample providers

// Capability and authorization errors
const (
	ErrCodeCapabilityUnavailable = "CAPABILITY_UNAVAILABLE"
	ErrCodeAuthorizationDenied   = "AUTHORIZATION_DENIED"
	ErrCodeAuthorizationFailed   = "AUTHORIZATION_FAILED"
	ErrCodeInvalidBridgeToken    = "INVALID_BRIDGE_TOKEN"
)

// Transport errors
const (
	ErrCodeNetworkError = "NETWORK_ERROR"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeFetchFailed  = "FETCH_FAILED"
)

// Data validation errors
const (
	ErrCodeInvalidRange       = "INVALID_RANGE"
	ErrCodeInvalidDataFormat  = "INVALID_DATA_FORMAT"
	ErrCodeUnknownPermission  = "UNKNOWN_PERMISSION"
	ErrCodeUnknownActivity    = "UNKNOWN_ACTIVITY_TYPE"
	ErrCodeBackgroundDelivery = "BACKGROUND_DELIVERY_FAILED"
)

// Error Messages
// Human-readable messages corresponding to error codes

var DataProviderErrorMessages = map[string]string{
	ErrCodeCapabilityUnavailable: "Health data is not available on this device",
	ErrCodeAuthorizationDenied:   "Access to the requested health data was denied",
	ErrCodeAuthorizationFailed:   "Requesting health data authorization failed",
	ErrCodeInvalidBridgeToken:    "The sensor bridge rejected the access token",

	ErrCodeNetworkError: "Unable to reach the sensor bridge",
	ErrCodeRateLimited:  "Sensor bridge rate limit exceeded. Please try again later",
	ErrCodeFetchFailed:  "Fetching samples from the provider failed",

	ErrCodeInvalidRange:       "The requested date range is invalid",
	ErrCodeInvalidDataFormat:  "The provider returned data in an unexpected format",
	ErrCodeUnknownPermission:  "The permission is not part of the supported vocabulary",
	ErrCodeUnknownActivity:    "The activity type is not part of the supported vocabulary",
	ErrCodeBackgroundDelivery: "Background delivery could not be enabled",
}

// GetErrorMessage returns the human-readable message for an error code
func GetErrorMessage(code string) string {
	if msg, exists := DataProviderErrorMessages[code]; exists {
		return msg
	}
	return "An unknown error occurred"
}
