package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stocksync-platform/sync-service/pkg/kafka"
	"github.com/stocksync-platform/sync-service/pkg/logging"
	"github.com/stocksync-platform/sync-service/pkg/mongodb"
	"github.com/stocksync-platform/sync-service/pkg/tracing"
)

// Config is the full service configuration. Values come from an
// optional YAML file, overridden by environment variables.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	MongoDB  MongoConfig    `yaml:"mongodb"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Conflict ConflictConfig `yaml:"conflict"`
	Offline  OfflineConfig  `yaml:"offline"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Environment string `yaml:"environment"`
	AddSource   bool   `yaml:"addSource"`
}

type MongoConfig struct {
	URI            string        `yaml:"uri"`
	Database       string        `yaml:"database"`
	ConnectTimeout time.Duration `yaml:"connectTimeout"`
	MaxPoolSize    uint64        `yaml:"maxPoolSize"`
	MinPoolSize    uint64        `yaml:"minPoolSize"`
	ReplicaSet     string        `yaml:"replicaSet"`
}

type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	ClientID     string        `yaml:"clientId"`
	BatchSize    int           `yaml:"batchSize"`
	BatchTimeout time.Duration `yaml:"batchTimeout"`
	RequiredAcks int           `yaml:"requiredAcks"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	OTLPEndpoint string  `yaml:"otlpEndpoint"`
	SampleRate   float64 `yaml:"sampleRate"`
	Environment  string  `yaml:"environment"`
}

type ConflictConfig struct {
	// TTL is how long a pending conflict stays resolvable
	TTL time.Duration `yaml:"ttl"`
}

type OfflineConfig struct {
	// SyncEndpoint is the remote base URL offline replays post to.
	// Empty means replay runs in-process against the local engine.
	SyncEndpoint string `yaml:"syncEndpoint"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Environment: "development",
		},
		MongoDB: MongoConfig{
			URI:            "mongodb://localhost:27017",
			Database:       "stocksync",
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		Kafka: KafkaConfig{
			Brokers:      []string{"localhost:9092"},
			ClientID:     "sync-service",
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: -1,
			WriteTimeout: 10 * time.Second,
		},
		Tracing: TracingConfig{
			Enabled:      true,
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
			Environment:  "development",
		},
		Conflict: ConflictConfig{TTL: 72 * time.Hour},
	}
}

// Load builds the configuration from defaults, an optional YAML file
// named by CONFIG_FILE or the path argument, and environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.Addr, "SERVER_ADDR")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.Environment, "ENVIRONMENT")
	setString(&c.MongoDB.URI, "MONGODB_URI")
	setString(&c.MongoDB.Database, "MONGODB_DATABASE")
	setString(&c.Tracing.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&c.Tracing.Enabled, "TRACING_ENABLED")
	setString(&c.Offline.SyncEndpoint, "OFFLINE_SYNC_ENDPOINT")
	setDuration(&c.Conflict.TTL, "CONFLICT_TTL")

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		c.Kafka.Brokers = strings.Split(brokers, ",")
	}
}

func (c *Config) validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.MongoDB.URI == "" || c.MongoDB.Database == "" {
		return fmt.Errorf("mongodb.uri and mongodb.database are required")
	}
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required")
	}
	if c.Conflict.TTL <= 0 {
		return fmt.Errorf("conflict.ttl must be positive")
	}
	return nil
}

// LoggerConfig maps onto the logging package's own config
func (c *Config) LoggerConfig(serviceName string) *logging.Config {
	lc := logging.DefaultConfig(serviceName)
	lc.Level = logging.LogLevel(c.Logging.Level)
	lc.Environment = c.Logging.Environment
	lc.AddSource = c.Logging.AddSource
	return lc
}

func (c *Config) MongoClientConfig() *mongodb.Config {
	mc := mongodb.DefaultConfig()
	mc.URI = c.MongoDB.URI
	mc.Database = c.MongoDB.Database
	mc.ConnectTimeout = c.MongoDB.ConnectTimeout
	mc.MaxPoolSize = c.MongoDB.MaxPoolSize
	mc.MinPoolSize = c.MongoDB.MinPoolSize
	mc.ReplicaSet = c.MongoDB.ReplicaSet
	return mc
}

func (c *Config) KafkaProducerConfig() *kafka.Config {
	kc := kafka.DefaultConfig()
	kc.Brokers = c.Kafka.Brokers
	kc.ClientID = c.Kafka.ClientID
	kc.BatchSize = c.Kafka.BatchSize
	kc.BatchTimeout = c.Kafka.BatchTimeout
	kc.RequiredAcks = c.Kafka.RequiredAcks
	kc.WriteTimeout = c.Kafka.WriteTimeout
	return kc
}

func (c *Config) TracerConfig(serviceName string) *tracing.Config {
	tc := tracing.DefaultConfig(serviceName)
	tc.Enabled = c.Tracing.Enabled
	tc.OTLPEndpoint = c.Tracing.OTLPEndpoint
	tc.SampleRate = c.Tracing.SampleRate
	tc.Environment = c.Tracing.Environment
	return tc
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			*dst = parsed
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst = parsed
		}
	}
}
