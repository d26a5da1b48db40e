package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/SamSjosten/FitChallenge-sub003/internal/constants"
	"github.com/SamSjosten/FitChallenge-sub003/internal/logging"
	"github.com/SamSjosten/FitChallenge-sub003/internal/metrics"
)

// LiveSensorConfig configures the HTTP bridge to the on-device health store
type LiveSensorConfig struct {
	BaseURL           string
	Token             string
	ProviderTag       string
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxConcurrency    int
}

// LiveSensorProvider talks to the companion sensor bridge that fronts the
// device health store (HealthKit or Health Connect).
type LiveSensorProvider struct {
	BaseURL     string
	Token       string
	ProviderTag string
	Client      *http.Client

	limiter        *rate.Limiter
	maxConcurrency int
	metrics        *metrics.MetricsRegistry
	hub            *updateHub
}

// NewLiveSensorProvider creates a bridge-backed provider. m may be nil.
func NewLiveSensorProvider(cfg LiveSensorConfig, m *metrics.MetricsRegistry) *LiveSensorProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 3
	}
	if cfg.ProviderTag == "" {
		cfg.ProviderTag = constants.ProviderAppleHealth
	}

	return &LiveSensorProvider{
		BaseURL:        cfg.BaseURL,
		Token:          cfg.Token,
		ProviderTag:    cfg.ProviderTag,
		Client:         &http.Client{Timeout: cfg.Timeout},
		limiter:        rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), int(cfg.RequestsPerSecond)+1),
		maxConcurrency: cfg.MaxConcurrency,
		metrics:        m,
		hub:            newUpdateHub(),
	}
}

// GetProviderType returns the provider type identifier
func (p *LiveSensorProvider) GetProviderType() string {
	return p.ProviderTag
}

type capabilitiesResponse struct {
	Available bool `json:"available"`
}

type authorizationRequest struct {
	Permissions []constants.PermissionTag `json:"permissions"`
}

type samplesResponse struct {
	Samples []Sample `json:"samples"`
}

type backgroundDeliveryRequest struct {
	Types []constants.ActivityType `json:"types"`
}

type backgroundDeliveryResponse struct {
	Enabled bool `json:"enabled"`
}

// IsAvailable never fails. Any bridge error reads as unavailable.
func (p *LiveSensorProvider) IsAvailable(ctx context.Context) bool {
	var caps capabilitiesResponse
	if _, err := p.doGET(ctx, "/v1/capabilities", &caps); err != nil {
		logging.Debug("Sensor bridge capability check failed", "provider", p.ProviderTag, "error", err)
		return false
	}
	return caps.Available
}

// GetAuthorizationStatus reads the permission partition from the bridge
func (p *LiveSensorProvider) GetAuthorizationStatus(ctx context.Context) (*AuthorizationStatus, error) {
	var status AuthorizationStatus
	if _, err := p.doGET(ctx, "/v1/authorization", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// RequestAuthorization asks the bridge to prompt for the given permissions
func (p *LiveSensorProvider) RequestAuthorization(ctx context.Context, permissions []constants.PermissionTag) (*AuthorizationStatus, error) {
	for _, perm := range permissions {
		if !perm.IsValid() {
			return nil, &ProviderError{
				Code:    constants.ErrCodeUnknownPermission,
				Message: constants.GetErrorMessage(constants.ErrCodeUnknownPermission),
				Details: string(perm),
			}
		}
	}

	var status AuthorizationStatus
	if _, err := p.doPost(ctx, "/v1/authorization", authorizationRequest{Permissions: permissions}, &status); err != nil {
		return nil, &ProviderError{
			Code:    constants.ErrCodeAuthorizationFailed,
			Message: constants.GetErrorMessage(constants.ErrCodeAuthorizationFailed),
			Err:     err,
		}
	}
	return &status, nil
}

// FetchSamples fetches each type concurrently. A failed type contributes no
// samples; the other types are still returned.
func (p *LiveSensorProvider) FetchSamples(ctx context.Context, start, end time.Time, types []constants.ActivityType) ([]Sample, error) {
	if err := ValidateWindow(start, end); err != nil {
		return nil, err
	}
	if len(types) == 0 {
		return []Sample{}, nil
	}

	perType := make([][]Sample, len(types))
	var g errgroup.Group
	g.SetLimit(p.maxConcurrency)

	for i, activityType := range types {
		i, activityType := i, activityType
		g.Go(func() error {
			samples, err := p.fetchType(ctx, start, end, activityType)
			if err != nil {
				logging.Warn("Sample fetch failed, continuing with remaining types",
					"provider", p.ProviderTag,
					"activity_type", string(activityType),
					"error", err,
				)
				p.metrics.ObserveFetchFailure(p.ProviderTag, string(activityType))
				reportAbsorbed(ctx, err)
				return nil
			}
			perType[i] = samples
			return nil
		})
	}
	_ = g.Wait()

	var merged []Sample
	for _, samples := range perType {
		merged = append(merged, samples...)
	}
	return normalizeSamples(p.ProviderTag, merged, types), nil
}

func (p *LiveSensorProvider) fetchType(ctx context.Context, start, end time.Time, activityType constants.ActivityType) ([]Sample, error) {
	query := url.Values{}
	query.Set("type", string(activityType))
	query.Set("start", start.UTC().Format(time.RFC3339Nano))
	query.Set("end", end.UTC().Format(time.RFC3339Nano))

	var resp samplesResponse
	if _, err := p.doGET(ctx, "/v1/samples?"+query.Encode(), &resp); err != nil {
		return nil, &TransportError{ActivityType: activityType, Err: err}
	}
	return resp.Samples, nil
}

// SubscribeToUpdates registers a callback for samples the bridge pushes
func (p *LiveSensorProvider) SubscribeToUpdates(types []constants.ActivityType, cb UpdateCallback) func() {
	return p.hub.subscribe(types, cb)
}

// DeliverUpdate fans samples pushed by the bridge out to subscribers
func (p *LiveSensorProvider) DeliverUpdate(samples []Sample) int {
	return p.hub.publish(samples)
}

// EnableBackgroundDelivery reports whether the bridge accepted the request
func (p *LiveSensorProvider) EnableBackgroundDelivery(ctx context.Context, types []constants.ActivityType) bool {
	var resp backgroundDeliveryResponse
	if _, err := p.doPost(ctx, "/v1/background-delivery", backgroundDeliveryRequest{Types: types}, &resp); err != nil {
		logging.Warn(constants.GetErrorMessage(constants.ErrCodeBackgroundDelivery),
			"provider", p.ProviderTag,
			"error", err,
		)
		return false
	}
	return resp.Enabled
}

// ============================================================================
// HTTP Helper Methods
// ============================================================================

// doGET performs a GET request with authentication
func (p *LiveSensorProvider) doGET(ctx context.Context, endpoint string, result interface{}) (int, error) {
	return p.do(ctx, http.MethodGet, endpoint, nil, result)
}

// doPost performs a POST request with authentication and JSON body
func (p *LiveSensorProvider) doPost(ctx context.Context, endpoint string, payload interface{}, result interface{}) (int, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return 0, &ProviderError{
			Code:    constants.ErrCodeInvalidDataFormat,
			Message: "Failed to marshal request body",
			Err:     err,
		}
	}
	return p.do(ctx, http.MethodPost, endpoint, payloadBytes, result)
}

func (p *LiveSensorProvider) do(ctx context.Context, method, endpoint string, body []byte, result interface{}) (int, error) {
	if p.Token == "" {
		return 0, &ProviderError{
			Code:    constants.ErrCodeInvalidBridgeToken,
			Message: "SENSOR_BRIDGE_TOKEN is not set",
		}
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return 0, &ProviderError{
				Code:    constants.ErrCodeRateLimited,
				Message: constants.GetErrorMessage(constants.ErrCodeRateLimited),
				Err:     err,
			}
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.BaseURL+endpoint, reader)
	if err != nil {
		return 0, &ProviderError{
			Code:    constants.ErrCodeNetworkError,
			Message: "Failed to create request",
			Err:     err,
		}
	}

	req.Header.Set("Authorization", "Bearer "+p.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return 0, &ProviderError{
			Code:    constants.ErrCodeNetworkError,
			Message: constants.GetErrorMessage(constants.ErrCodeNetworkError),
			Err:     err,
		}
	}
	defer resp.Body.Close()

	bodyBytes, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return resp.StatusCode, &ProviderError{
			Code:    constants.ErrCodeNetworkError,
			Message: "Failed to read response body",
			Err:     readErr,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, p.buildHTTPError(resp.StatusCode, endpoint, string(bodyBytes))
	}

	if err := json.Unmarshal(bodyBytes, result); err != nil {
		return resp.StatusCode, &ProviderError{
			Code:    constants.ErrCodeInvalidDataFormat,
			Message: "Failed to decode response",
			Details: string(bodyBytes),
			Err:     err,
		}
	}

	return resp.StatusCode, nil
}

// buildHTTPError creates appropriate error based on status code
func (p *LiveSensorProvider) buildHTTPError(statusCode int, endpoint string, body string) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return &ProviderError{
			Code:    constants.ErrCodeInvalidBridgeToken,
			Message: fmt.Sprintf("Authentication failed for endpoint %s", endpoint),
			Details: body,
		}
	case http.StatusForbidden:
		return &ProviderError{
			Code:    constants.ErrCodeAuthorizationDenied,
			Message: constants.GetErrorMessage(constants.ErrCodeAuthorizationDenied),
			Details: body,
			Err:     ErrAuthorizationDenied,
		}
	case http.StatusServiceUnavailable:
		return &ProviderError{
			Code:    constants.ErrCodeCapabilityUnavailable,
			Message: constants.GetErrorMessage(constants.ErrCodeCapabilityUnavailable),
			Details: body,
			Err:     ErrCapabilityUnavailable,
		}
	case http.StatusTooManyRequests:
		return &ProviderError{
			Code:    constants.ErrCodeRateLimited,
			Message: constants.GetErrorMessage(constants.ErrCodeRateLimited),
			Details: body,
		}
	case http.StatusBadRequest:
		return &ProviderError{
			Code:    constants.ErrCodeInvalidDataFormat,
			Message: fmt.Sprintf("Bad request to %s", endpoint),
			Details: body,
		}
	default:
		return &ProviderError{
			Code:    constants.ErrCodeFetchFailed,
			Message: fmt.Sprintf("HTTP %d from %s", statusCode, endpoint),
			Details: body,
		}
	}
}
