package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

const (
	// DefaultBaseURL is the Environment Agency real-time flood-monitoring API root.
	DefaultBaseURL = "https://environment.data.gov.uk/flood-monitoring"
	// DefaultAPITimeout bounds each flood-monitoring API request.
	DefaultAPITimeout = 30 * time.Second
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Flood-monitoring API.
	APIBaseURL    string
	APITimeout    time.Duration
	StationStatus string

	RefreshInterval    time.Duration
	PolygonConcurrency int
	PolygonCacheSize   int

	// Warning change events.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaWarningsTopic string
	BatchSize          int
	BatchFlushInterval time.Duration

	// Snapshot store; empty disables it.
	DatabaseURL string
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

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	apiTimeout, err := parsePositiveDuration("FLOOD_API_TIMEOUT", DefaultAPITimeout.String())
	if err != nil {
		return nil, err
	}

	refreshInterval, err := parsePositiveDuration("REFRESH_INTERVAL", "15m")
	if err != nil {
		return nil, err
	}

	concurrency, err := parsePositiveInt("POLYGON_CONCURRENCY", 10)
	if err != nil {
		return nil, err
	}

	cacheSize, err := parsePositiveInt("POLYGON_CACHE_SIZE", 2000)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		APIBaseURL:    sharedcfg.EnvOrDefault("FLOOD_API_BASE_URL", DefaultBaseURL),
		APITimeout:    apiTimeout,
		StationStatus: sharedcfg.EnvOrDefault("STATION_STATUS", "Active"),

		RefreshInterval:    refreshInterval,
		PolygonConcurrency: concurrency,
		PolygonCacheSize:   cacheSize,

		KafkaEnabled:       os.Getenv("KAFKA_ENABLED") != "false",
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaWarningsTopic: sharedcfg.EnvOrDefault("KAFKA_WARNINGS_TOPIC", "flood-warning-events"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		DatabaseURL: os.Getenv("DATABASE_URL"),
	}

	if u, err := url.Parse(cfg.APIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.New("invalid FLOOD_API_BASE_URL")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is not false")
		}
		if cfg.KafkaWarningsTopic == "" {
			return nil, errors.New("KAFKA_WARNINGS_TOPIC is required when KAFKA_ENABLED is not false")
		}
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}
