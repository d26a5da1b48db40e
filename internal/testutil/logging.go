package testutil

import (
	"testing"

	"go.uber.org/zap"

	"github.com/SamSjosten/FitChallenge-sub003/internal/logging"
)

// QuietLogs swaps the global logger for a no-op one until the test ends
func QuietLogs(t *testing.T) {
	t.Helper()
	prev := logging.GetLogger()
	logging.SetLogger(zap.NewNop().Sugar())
	t.Cleanup(func() { logging.SetLogger(prev) })
}
