package providers

import (
	"fmt"

	"github.com/SamSjosten/FitChallenge-sub003/internal/metrics"
)

const (
	ModeLive = "live"
	ModeMock = "mock"
)

// NewSampleProvider selects the provider implementation for mode
func NewSampleProvider(mode string, live LiveSensorConfig, mock MockConfig, m *metrics.MetricsRegistry) (SampleProvider, error) {
	switch mode {
	case ModeLive:
		if live.BaseURL == "" {
			return nil, fmt.Errorf("live provider requires SENSOR_BRIDGE_URL")
		}
		return NewLiveSensorProvider(live, m), nil
	case ModeMock, "":
		return NewMockProvider(mock), nil
	default:
		return nil, fmt.Errorf("unknown provider mode %q", mode)
	}
}
