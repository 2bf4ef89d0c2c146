package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/ndvi-aggregation-service/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DatasetPath string
	Thresholds  domain.Thresholds
	Window      domain.Window
	CacheSize   int

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Export of weekly records to Kafka.
	KafkaBrokers   []string
	KafkaSinkTopic string
	ExportEnabled  bool
	BatchSize      int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	lower, err := parseFloat("NDVI_LOWER_THRESHOLD", domain.DefaultThresholds.Lower)
	if err != nil {
		return nil, err
	}
	upper, err := parseFloat("NDVI_UPPER_THRESHOLD", domain.DefaultThresholds.Upper)
	if err != nil {
		return nil, err
	}
	startWeek, err := parseInt("SEASON_START_WEEK", domain.DefaultWindow.StartWeek)
	if err != nil {
		return nil, err
	}
	endWeek, err := parseInt("SEASON_END_WEEK", domain.DefaultWindow.EndWeek)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseInt("CLASSIFY_CACHE_SIZE", 16)
	if err != nil {
		return nil, err
	}
	if cacheSize < 1 {
		return nil, errors.New("invalid CLASSIFY_CACHE_SIZE: must be positive")
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = sharedcfg.ParseBrokers(raw)
	}
	exportEnabled := len(brokers) > 0
	if v := os.Getenv("EXPORT_ENABLED"); v != "" {
		exportEnabled = v == "true"
	}

	cfg := &Config{
		DatasetPath: sharedcfg.EnvOrDefault("DATASET_PATH", "data/ndvi_observations.csv"),
		Thresholds:  domain.Thresholds{Lower: lower, Upper: upper},
		Window:      domain.Window{StartWeek: startWeek, EndWeek: endWeek},
		CacheSize:   cacheSize,

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaBrokers:   brokers,
		KafkaSinkTopic: sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "ndvi-weekly-records"),
		ExportEnabled:  exportEnabled,
		BatchSize:      batchSize,
	}

	if cfg.DatasetPath == "" {
		return nil, errors.New("DATASET_PATH is required")
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("NDVI_LOWER_THRESHOLD/NDVI_UPPER_THRESHOLD: %w", err)
	}
	if err := cfg.Window.Validate(); err != nil {
		return nil, fmt.Errorf("SEASON_START_WEEK/SEASON_END_WEEK: %w", err)
	}
	if cfg.ExportEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("EXPORT_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.ExportEnabled && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}

	return cfg, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return v, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return v, nil
}
