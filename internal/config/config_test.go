package config

import (
	"testing"
	"time"

	"github.com/couchcryptid/ndvi-aggregation-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/ndvi_observations.csv", cfg.DatasetPath)
	assert.Equal(t, domain.Thresholds{Lower: 0.3, Upper: 0.55}, cfg.Thresholds)
	assert.Equal(t, domain.Window{StartWeek: 14, EndWeek: 44}, cfg.Window)
	assert.Equal(t, 16, cfg.CacheSize)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "ndvi-weekly-records", cfg.KafkaSinkTopic)
	assert.False(t, cfg.ExportEnabled)
	assert.Equal(t, 50, cfg.BatchSize)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("DATASET_PATH", "/data/obs.csv")
	t.Setenv("NDVI_LOWER_THRESHOLD", "0.2")
	t.Setenv("NDVI_UPPER_THRESHOLD", "0.6")
	t.Setenv("SEASON_START_WEEK", "10")
	t.Setenv("SEASON_END_WEEK", "50")
	t.Setenv("CLASSIFY_CACHE_SIZE", "4")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("BATCH_SIZE", "100")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/obs.csv", cfg.DatasetPath)
	assert.Equal(t, domain.Thresholds{Lower: 0.2, Upper: 0.6}, cfg.Thresholds)
	assert.Equal(t, domain.Window{StartWeek: 10, EndWeek: 50}, cfg.Window)
	assert.Equal(t, 4, cfg.CacheSize)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.True(t, cfg.ExportEnabled, "brokers imply export")
	assert.Equal(t, 100, cfg.BatchSize)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	t.Setenv("BATCH_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_BatchSizeTooLarge(t *testing.T) {
	t.Setenv("BATCH_SIZE", "9999")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
}

func TestLoad_InvalidThresholds(t *testing.T) {
	tests := []struct {
		name  string
		lower string
		upper string
	}{
		{"inverted", "0.6", "0.4"},
		{"out of range", "-0.1", "0.5"},
		{"above one", "0.3", "1.01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NDVI_LOWER_THRESHOLD", tt.lower)
			t.Setenv("NDVI_UPPER_THRESHOLD", tt.upper)
			_, err := Load()
			assert.ErrorIs(t, err, domain.ErrInvalidThreshold)
		})
	}
}

func TestLoad_NonNumericThreshold(t *testing.T) {
	t.Setenv("NDVI_LOWER_THRESHOLD", "low")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NDVI_LOWER_THRESHOLD")
}

func TestLoad_InvalidWindow(t *testing.T) {
	t.Setenv("SEASON_START_WEEK", "40")
	t.Setenv("SEASON_END_WEEK", "20")
	_, err := Load()
	assert.ErrorIs(t, err, domain.ErrInvalidWindow)
}

func TestLoad_InvalidCacheSize(t *testing.T) {
	t.Setenv("CLASSIFY_CACHE_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CLASSIFY_CACHE_SIZE")
}

func TestLoad_ExportEnabledWithoutBrokers(t *testing.T) {
	t.Setenv("EXPORT_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestLoad_ExportExplicitlyDisabled(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "localhost:9092")
	t.Setenv("EXPORT_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.ExportEnabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
}
