// Package config loads the optional config.yaml that sits next to the
// store and configures notification sinks and metrics. Every value can be
// overridden from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/julianstephens/tminus/internal/constants"
)

// FileName is the config file looked up in the config directory.
const FileName = "config.yaml"

// Config captures runtime configuration outside the shared store.
type Config struct {
	Tray         TrayConfig      `yaml:"tray"`
	Webhooks     []WebhookConfig `yaml:"webhooks"`
	Kafka        KafkaConfig     `yaml:"kafka"`
	Metrics      MetricsConfig   `yaml:"metrics"`
	PollInterval time.Duration   `yaml:"poll_interval"` // SQLite watcher cadence
}

type TrayConfig struct {
	Enabled bool `yaml:"enabled"`
}

type WebhookConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type MetricsConfig struct {
	Address string `yaml:"address"` // empty disables the endpoint
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Tray:         TrayConfig{Enabled: true},
		Kafka:        KafkaConfig{Topic: constants.DefaultKafkaTopic},
		PollInterval: constants.DefaultPollInterval,
	}
}

// Load reads dir/config.yaml if present, then applies TMINUS_* environment
// overrides. A missing file is not an error.
func Load(dir string) (Config, error) {
	cfg := Default()

	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations the sinks cannot run with.
func (c Config) Validate() error {
	for i, wh := range c.Webhooks {
		if !strings.HasPrefix(wh.URL, "http://") && !strings.HasPrefix(wh.URL, "https://") {
			return fmt.Errorf("webhooks[%d]: url %q must be http or https", i, wh.URL)
		}
		if wh.Timeout < 0 {
			return fmt.Errorf("webhooks[%d]: timeout must not be negative", i)
		}
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka: topic is required when brokers are set")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Tray.Enabled = getBoolEnv("TMINUS_TRAY_ENABLED", cfg.Tray.Enabled)
	if urls := splitAndTrim(getEnv("TMINUS_WEBHOOK_URLS", "")); len(urls) > 0 {
		cfg.Webhooks = cfg.Webhooks[:0]
		for _, u := range urls {
			cfg.Webhooks = append(cfg.Webhooks, WebhookConfig{URL: u})
		}
	}
	if brokers := splitAndTrim(getEnv("TMINUS_KAFKA_BROKERS", "")); len(brokers) > 0 {
		cfg.Kafka.Brokers = brokers
	}
	cfg.Kafka.Topic = getEnv("TMINUS_KAFKA_TOPIC", cfg.Kafka.Topic)
	cfg.Metrics.Address = getEnv("TMINUS_METRICS_ADDRESS", cfg.Metrics.Address)
	cfg.PollInterval = getDurationEnv("TMINUS_POLL_INTERVAL", cfg.PollInterval)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
