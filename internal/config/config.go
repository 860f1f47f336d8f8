// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the root configuration for the service.
type Config struct {
	Service       ServiceConfig
	Engine        EngineConfig
	Inference     InferenceConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

// ServiceConfig holds service identity and listener settings.
type ServiceConfig struct {
	Principal string
	HTTPPort  string
}

// EngineConfig holds session engine tuning.
type EngineConfig struct {
	WindowInterval    time.Duration
	OverlapSpan       time.Duration
	InferenceTimeout  time.Duration
	InactivityTimeout time.Duration
	OutboxSize        int
}

// InferenceConfig selects and tunes the transcription backend.
type InferenceConfig struct {
	Provider     string // mock, whispercpp, google
	LanguageCode string
	ModelPath    string // whispercpp only
	Threads      int    // whispercpp only, 0 = auto
}

// KafkaConfig holds event publishing settings.
type KafkaConfig struct {
	Enabled    bool
	Brokers    []string
	TopicDelta string
	TopicFinal string
	Principal  string
}

// ObservabilityConfig holds logging and metrics settings.
type ObservabilityConfig struct {
	LogLevel    string
	LogFormat   string
	MetricsPort string
}

// Load reads configuration from environment variables, applying defaults for
// anything unset or unparseable.
func Load() *Config {
	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-live-transcription")

	return &Config{
		Service: ServiceConfig{
			Principal: principal,
			HTTPPort:  envOrDefault("HTTP_PORT", "8080"),
		},
		Engine: EngineConfig{
			WindowInterval:    envOrDefaultDuration("ENGINE_WINDOW_INTERVAL", 2*time.Second),
			OverlapSpan:       envOrDefaultDuration("ENGINE_OVERLAP_SPAN", 500*time.Millisecond),
			InferenceTimeout:  envOrDefaultDuration("ENGINE_INFERENCE_TIMEOUT", 30*time.Second),
			InactivityTimeout: envOrDefaultDuration("ENGINE_INACTIVITY_TIMEOUT", 2*time.Minute),
			OutboxSize:        envOrDefaultInt("ENGINE_OUTBOX_SIZE", 64),
		},
		Inference: InferenceConfig{
			Provider:     envOrDefault("INFERENCE_PROVIDER", "mock"),
			LanguageCode: envOrDefault("INFERENCE_LANGUAGE_CODE", "en-US"),
			ModelPath:    envOrDefault("WHISPER_MODEL_PATH", ""),
			Threads:      envOrDefaultInt("WHISPER_THREADS", 0),
		},
		Kafka: KafkaConfig{
			Enabled:    envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:    envOrDefaultList("KAFKA_BROKERS", nil),
			TopicDelta: envOrDefault("KAFKA_TOPIC_DELTA", "session.transcript.delta"),
			TopicFinal: envOrDefault("KAFKA_TOPIC_FINAL", "session.transcript.final"),
			Principal:  envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Observability: ObservabilityConfig{
			LogLevel:    envOrDefault("LOG_LEVEL", "info"),
			LogFormat:   envOrDefault("LOG_FORMAT", "json"),
			MetricsPort: envOrDefault("METRICS_PORT", "9090"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.ToLower(v)); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
