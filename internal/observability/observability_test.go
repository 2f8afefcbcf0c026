package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerTo_Levels(t *testing.T) {
	tests := []struct {
		level   string
		debug   bool
		info    bool
		warning bool
	}{
		{"debug", true, true, true},
		{"INFO", false, true, true},
		{"warn", false, false, true},
		{"error", false, false, false},
		{"", false, true, true},
		{"verbose", false, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := NewLoggerTo(&bytes.Buffer{}, tt.level, "text")
			ctx := context.Background()
			assert.Equal(t, tt.debug, logger.Enabled(ctx, slog.LevelDebug))
			assert.Equal(t, tt.info, logger.Enabled(ctx, slog.LevelInfo))
			assert.Equal(t, tt.warning, logger.Enabled(ctx, slog.LevelWarn))
		})
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "info", "json")

	logger.Debug("hidden")
	logger.Info("job written", "rows", 365)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "job written", line["msg"])
	assert.InDelta(t, 365, line["rows"], 0)
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "debug", "text")

	logger.Debug("shift", "target_year", 2020)

	assert.Contains(t, buf.String(), "msg=shift")
	assert.Contains(t, buf.String(), "target_year=2020")
}

func TestNewMetricsForTesting_Independent(t *testing.T) {
	a, b := NewMetricsForTesting(), NewMetricsForTesting()

	a.JobsProcessed.WithLabelValues("weather", "success").Inc()
	a.CABORowsWritten.Add(365)

	assert.InDelta(t, 1, testutil.ToFloat64(a.JobsProcessed.WithLabelValues("weather", "success")), 0)
	assert.InDelta(t, 365, testutil.ToFloat64(a.CABORowsWritten), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(b.CABORowsWritten), 0)
}
