package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithRequestCarriesRequestFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := GetLogger()
	SetLogger(zap.New(core).Sugar())
	t.Cleanup(func() { SetLogger(prev) })

	WithRequest("req-1", "POST", "/api/v1/health/sync").Infow("handled", "status_code", 202)
	WithSync("log-1", "user-1", "mock").Warnw("slow")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, map[string]interface{}{
		"request_id":  "req-1",
		"method":      "POST",
		"endpoint":    "/api/v1/health/sync",
		"status_code": int64(202),
	}, entries[0].ContextMap())
	assert.Equal(t, "log-1", entries[1].ContextMap()["sync_log_id"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}
