package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Upstream API endpoints and timeouts.
	PostcodesBaseURL string
	PoliceBaseURL    string
	ResolveTimeout   time.Duration
	FetchTimeout     time.Duration

	// Batch scheduling. FetchBatchSize is both the batch length and the
	// in-flight request bound; BatchCooldown is the pause between batches.
	FetchBatchSize   int
	BatchCooldown    time.Duration
	RateLimitRetries int

	// Dataset cache and acquisition defaults.
	CacheTTL         time.Duration
	DefaultStartYear int

	// Kafka record sink configuration.
	KafkaBrokers   []string
	KafkaSinkTopic string
	KafkaEnabled   bool
}

// Load reads configuration from environment variables, applying defaults
// where unset and failing fast on invalid values.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	resolveTimeout, err := parseDuration("RESOLVE_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	batchCooldown, err := parseDuration("BATCH_COOLDOWN", "1s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parseDuration("CACHE_TTL", "600s")
	if err != nil {
		return nil, err
	}

	// The police API tolerates bursts of at most 15 concurrent calls.
	batchSize, err := parseInt("FETCH_BATCH_SIZE", 15, 1, 50)
	if err != nil {
		return nil, err
	}
	rateLimitRetries, err := parseInt("RATE_LIMIT_RETRIES", 3, 0, 10)
	if err != nil {
		return nil, err
	}
	startYear, err := parseInt("DEFAULT_START_YEAR", 2022, 2011, 9999)
	if err != nil {
		return nil, err
	}

	kafkaBrokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(kafkaBrokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		PostcodesBaseURL: envOrDefault("POSTCODES_BASE_URL", "https://api.postcodes.io"),
		PoliceBaseURL:    envOrDefault("POLICE_BASE_URL", "https://data.police.uk/api"),
		ResolveTimeout:   resolveTimeout,
		FetchTimeout:     fetchTimeout,

		FetchBatchSize:   batchSize,
		BatchCooldown:    batchCooldown,
		RateLimitRetries: rateLimitRetries,

		CacheTTL:         cacheTTL,
		DefaultStartYear: startYear,

		KafkaBrokers:   kafkaBrokers,
		KafkaSinkTopic: envOrDefault("KAFKA_SINK_TOPIC", "normalized-police-records"),
		KafkaEnabled:   kafkaEnabled,
	}

	if cfg.PostcodesBaseURL == "" {
		return nil, errors.New("POSTCODES_BASE_URL is required")
	}
	if cfg.PoliceBaseURL == "" {
		return nil, errors.New("POLICE_BASE_URL is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_SINK_TOPIC is empty")
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

func parseInt(key string, fallback, minValue, maxValue int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < minValue || n > maxValue {
		return 0, fmt.Errorf("invalid %s: %q (want %d..%d)", key, s, minValue, maxValue)
	}
	return n, nil
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
