// Package config defines all configuration structures for the Filament
// matching engine.  No I/O or parsing logic lives here — only plain data
// types and validation.
package config

import (
	"fmt"
	"time"

	"github.com/filamentproject/filament/internal/domain/match"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// DatabaseConfig holds PostgreSQL connection parameters for the corpus and
// lead store.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// Neo4jConfig holds connection parameters for the optional knowledge-graph
// enrichment provider.
type Neo4jConfig struct {
	Enabled               bool          `mapstructure:"enabled"`
	URI                   string        `mapstructure:"uri"`
	User                  string        `mapstructure:"user"`
	Password              string        `mapstructure:"password"`
	MaxConnectionPoolSize int           `mapstructure:"max_connection_pool_size"`
	ConnectionTimeout     time.Duration `mapstructure:"connection_timeout"`
	Database              string        `mapstructure:"database"`
}

// MilvusConfig holds connection parameters for the optional vector-similarity
// enrichment provider.
type MilvusConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Addr         string `mapstructure:"addr"`
	DBName       string `mapstructure:"db_name"`
	Collection   string `mapstructure:"collection"`
	EmbeddingDim int    `mapstructure:"embedding_dim"`
	MetricType   string `mapstructure:"metric_type"`
}

// RedisConfig holds Redis connection parameters for the run checkpoint store.
type RedisConfig struct {
	Addr          string        `mapstructure:"addr"`
	Password      string        `mapstructure:"password"`
	DB            int           `mapstructure:"db"`
	PoolSize      int           `mapstructure:"pool_size"`
	DialTimeout   time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	KeyPrefix     string        `mapstructure:"key_prefix"`
	CheckpointTTL time.Duration `mapstructure:"checkpoint_ttl"`
}

// KafkaConfig holds the lead-topic producer parameters.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	RequiredAcks string        `mapstructure:"required_acks"` // all | one | none
}

// MinIOConfig holds object-storage parameters for report artifacts.
type MinIOConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// WorkerConfig holds scoring-pool execution parameters.
type WorkerConfig struct {
	Concurrency        int           `mapstructure:"concurrency"`
	CheckpointInterval int           `mapstructure:"checkpoint_interval"` // remains cases between checkpoints
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
}

// MetricsConfig holds the Prometheus exposition endpoint parameters.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format string `mapstructure:"format"` // "json" | "text"
	Output string `mapstructure:"output"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure for the engine.  The Match
// block is the pairing pipeline's full tuning surface; everything else wires
// infrastructure.
type Config struct {
	Match    match.Params   `mapstructure:"match"`
	Database DatabaseConfig `mapstructure:"database"`
	Neo4j    Neo4jConfig    `mapstructure:"neo4j"`
	Milvus   MilvusConfig   `mapstructure:"milvus"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.  It
// returns the first error encountered; callers should treat any error as
// fatal and refuse to start.
func (c *Config) Validate() error {
	if err := c.Match.Validate(); err != nil {
		return fmt.Errorf("config: match block invalid: %w", err)
	}

	// Database
	if c.Database.Host == "" {
		return fmt.Errorf("config: database.host is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
	}
	if c.Database.User == "" {
		return fmt.Errorf("config: database.user is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("config: database.db_name is required")
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("config: database.max_conns must be ≥ 1, got %d", c.Database.MaxConns)
	}

	// Optional providers only need connection details when enabled.
	if c.Neo4j.Enabled && c.Neo4j.URI == "" {
		return fmt.Errorf("config: neo4j.uri is required when neo4j.enabled is true")
	}
	if c.Milvus.Enabled {
		if c.Milvus.Addr == "" {
			return fmt.Errorf("config: milvus.addr is required when milvus.enabled is true")
		}
		if c.Milvus.Collection == "" {
			return fmt.Errorf("config: milvus.collection is required when milvus.enabled is true")
		}
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("config: kafka.topic is required when kafka.enabled is true")
		}
	}
	if c.MinIO.Enabled {
		if c.MinIO.Endpoint == "" {
			return fmt.Errorf("config: minio.endpoint is required when minio.enabled is true")
		}
		if c.MinIO.Bucket == "" {
			return fmt.Errorf("config: minio.bucket is required when minio.enabled is true")
		}
	}

	// Redis
	if c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
	}

	// Worker
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("config: worker.concurrency must be ≥ 1, got %d", c.Worker.Concurrency)
	}
	if c.Worker.CheckpointInterval < 1 {
		return fmt.Errorf("config: worker.checkpoint_interval must be ≥ 1, got %d", c.Worker.CheckpointInterval)
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|text", c.Log.Format)
	}

	return nil
}
