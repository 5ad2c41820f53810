package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// DefaultFeedURL is the public IMGW meteorological warning feed.
const DefaultFeedURL = "https://danepubliczne.imgw.pl/api/data/warningsmeteo"

// Config holds all service settings, populated from environment variables.
type Config struct {
	FeedURL     string
	FeedTimeout time.Duration

	DBPath string

	HTTPAddr        string
	OpsAddr         string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// SyncInterval > 0 runs the ingestion loop inside the server process.
	// Zero leaves ingestion to cmd/sync invocations.
	SyncInterval time.Duration

	// Kafka sink configuration. Publishing upserted warnings downstream is
	// feature-flagged: KAFKA_ENABLED, implied by KAFKA_BROKERS being set.
	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string
}

// Load reads configuration from environment variables, applying defaults
// where unset. Validation errors name the offending variable.
func Load() (*Config, error) {
	feedTimeout, err := parseDuration("FEED_TIMEOUT", "20s")
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	syncInterval, err := parseOptionalDuration("SYNC_INTERVAL")
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		FeedURL:         envOrDefault("IMGW_FEED_URL", DefaultFeedURL),
		FeedTimeout:     feedTimeout,
		DBPath:          envOrDefault("DB_PATH", "./data/warnings.db"),
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		OpsAddr:         envOrDefault("OPS_ADDR", ":9090"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		SyncInterval:    syncInterval,
		KafkaEnabled:    kafkaEnabled,
		KafkaBrokers:    brokers,
		KafkaSinkTopic:  envOrDefault("KAFKA_SINK_TOPIC", "imgw-warnings"),
	}

	if cfg.FeedURL == "" {
		return nil, errors.New("IMGW_FEED_URL must not be empty")
	}
	if cfg.DBPath == "" {
		return nil, errors.New("DB_PATH must not be empty")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC must not be empty")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	s := envOrDefault(key, fallback)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

// parseOptionalDuration returns 0 when the variable is unset or "0".
func parseOptionalDuration(key string) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" || s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
