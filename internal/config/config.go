// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// Judge configuration
	Judge JudgeConfig `yaml:"judge"`

	// Runner configuration
	Runner RunnerConfig `yaml:"runner"`

	// Bus configuration
	Bus BusConfig `yaml:"bus"`

	// Redis configuration
	Redis RedisConfig `yaml:"redis"`

	// Qdrant configuration
	Qdrant QdrantConfig `yaml:"qdrant"`

	// Logging configuration
	Log LogConfig `yaml:"log"`
}

// JudgeConfig holds judging service settings.
type JudgeConfig struct {
	Endpoint       string   `envconfig:"RANKEVAL_JUDGE_ENDPOINT" yaml:"endpoint"`
	APIKey         string   `envconfig:"RANKEVAL_JUDGE_API_KEY" yaml:"api_key"`
	Fields         []string `envconfig:"RANKEVAL_JUDGE_FIELDS" yaml:"fields"`
	Debug          bool     `envconfig:"RANKEVAL_JUDGE_DEBUG" yaml:"debug"`
	TimeoutSeconds int      `envconfig:"RANKEVAL_JUDGE_TIMEOUT" yaml:"timeout_seconds"`
}

// RunnerConfig holds evaluation scheduling defaults.
type RunnerConfig struct {
	Parallel        bool    `envconfig:"RANKEVAL_PARALLEL" yaml:"parallel"`
	MaxWorkers      int     `envconfig:"RANKEVAL_MAX_WORKERS" yaml:"max_workers"`
	RequestDelaySec float64 `envconfig:"RANKEVAL_REQUEST_DELAY" yaml:"request_delay_seconds"`
	ShowProgress    bool    `envconfig:"RANKEVAL_SHOW_PROGRESS" yaml:"show_progress"`
}

// BusConfig holds event bus settings.
type BusConfig struct {
	Type          string `envconfig:"RANKEVAL_BUS_TYPE" yaml:"type"`
	KafkaBrokers  string `envconfig:"RANKEVAL_KAFKA_BROKERS" yaml:"kafka_brokers"`
	ConsumerGroup string `envconfig:"RANKEVAL_KAFKA_GROUP" yaml:"consumer_group"`
}

// RedisConfig holds snapshot persistence settings.
type RedisConfig struct {
	URL string `envconfig:"RANKEVAL_REDIS_URL" yaml:"url"`
}

// QdrantConfig holds Qdrant connection settings for the built-in
// vector-search approach.
type QdrantConfig struct {
	Host       string `envconfig:"RANKEVAL_QDRANT_HOST" yaml:"host"`
	Port       int    `envconfig:"RANKEVAL_QDRANT_PORT" yaml:"port"`
	APIKey     string `envconfig:"RANKEVAL_QDRANT_API_KEY" yaml:"api_key"`
	UseTLS     bool   `envconfig:"RANKEVAL_QDRANT_TLS" yaml:"use_tls"`
	Collection string `envconfig:"RANKEVAL_QDRANT_COLLECTION" yaml:"collection"`
	TopK       uint64 `envconfig:"RANKEVAL_QDRANT_TOP_K" yaml:"top_k"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"RANKEVAL_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"RANKEVAL_LOG_FORMAT" yaml:"format"`
}

// Load loads configuration from environment variables and optional
// config file. Priority: defaults < file < environment.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	setDefaults(cfg)

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.Judge.Endpoint = "https://api.pinecone.io/evals"
	cfg.Judge.Fields = []string{"text"}
	cfg.Judge.Debug = true
	cfg.Judge.TimeoutSeconds = 60

	cfg.Runner.MaxWorkers = 4
	cfg.Runner.RequestDelaySec = 0.1
	cfg.Runner.ShowProgress = true

	cfg.Bus.Type = "none"

	cfg.Qdrant.Host = "localhost"
	cfg.Qdrant.Port = 6334
	cfg.Qdrant.TopK = 10

	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks the configuration for invalid combinations.
func (c *Config) Validate() error {
	if c.Runner.MaxWorkers < 1 {
		return fmt.Errorf("runner max_workers must be at least 1, got %d", c.Runner.MaxWorkers)
	}
	if c.Runner.RequestDelaySec < 0 {
		return fmt.Errorf("runner request_delay_seconds cannot be negative")
	}

	switch c.Bus.Type {
	case "", "none", "memory":
	case "kafka":
		if c.Bus.KafkaBrokers == "" {
			return fmt.Errorf("bus type kafka requires kafka_brokers")
		}
	default:
		return fmt.Errorf("unknown bus type %q", c.Bus.Type)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}

	return nil
}

// RequestDelay returns the runner pacing gap as a duration.
func (c *Config) RequestDelay() time.Duration {
	return time.Duration(c.Runner.RequestDelaySec * float64(time.Second))
}

// JudgeTimeout returns the judge request timeout as a duration.
func (c *Config) JudgeTimeout() time.Duration {
	return time.Duration(c.Judge.TimeoutSeconds) * time.Second
}
