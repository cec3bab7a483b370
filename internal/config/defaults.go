// Package config provides configuration loading, defaults, and validation
// for the Filament matching engine.
package config

import (
	"time"

	"github.com/filamentproject/filament/internal/domain/match"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "filament"
	DefaultDBMaxConns = 25

	DefaultRedisAddr     = "localhost:6379"
	DefaultRedisPrefix   = "filament"
	DefaultCheckpointTTL = 72 * time.Hour

	DefaultKafkaBroker = "localhost:9092"
	DefaultKafkaTopic  = "filament.leads"

	DefaultNeo4jURI      = "bolt://localhost:7687"
	DefaultMilvusAddr    = "localhost:19530"
	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "filament-reports"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultWorkerConcurrency  = 8
	DefaultCheckpointInterval = 250
	DefaultShutdownTimeout    = 30 * time.Second

	DefaultMetricsAddr = ":9090"
)

// ApplyDefaults fills every zero-value field in cfg with the engine default.
// Fields that have already been set by the caller (non-zero values) are left
// unchanged so that explicit configuration always wins.  It must run after
// unmarshalling and before Validate().
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Match ─────────────────────────────────────────────────────────────────
	// The pairing pipeline defaults are owned by the match package; only fill
	// fields the file left at zero.
	def := match.DefaultParams()
	if cfg.Match.RarityThreshold == 0 {
		cfg.Match.RarityThreshold = def.RarityThreshold
	}
	if cfg.Match.MaxDistinctiveTokens == 0 {
		cfg.Match.MaxDistinctiveTokens = def.MaxDistinctiveTokens
	}
	if cfg.Match.MaxPoolSize == 0 {
		cfg.Match.MaxPoolSize = def.MaxPoolSize
	}
	if cfg.Match.AgeSlackBelowYears == 0 {
		cfg.Match.AgeSlackBelowYears = def.AgeSlackBelowYears
	}
	if cfg.Match.AgeSlackAboveYears == 0 {
		cfg.Match.AgeSlackAboveYears = def.AgeSlackAboveYears
	}
	if cfg.Match.MaxRadiusKM == 0 {
		cfg.Match.MaxRadiusKM = def.MaxRadiusKM
	}
	if cfg.Match.HeightToleranceCM == 0 {
		cfg.Match.HeightToleranceCM = def.HeightToleranceCM
	}
	if cfg.Match.WeightFunc == "" {
		cfg.Match.WeightFunc = def.WeightFunc
	}
	if cfg.Match.GeoDecayKM == 0 {
		cfg.Match.GeoDecayKM = def.GeoDecayKM
	}
	if cfg.Match.RaritySaturation == 0 {
		cfg.Match.RaritySaturation = def.RaritySaturation
	}
	if cfg.Match.SignalTimeout == 0 {
		cfg.Match.SignalTimeout = def.SignalTimeout
	}
	if cfg.Match.StructuredWeights == (match.StructuredWeights{}) {
		cfg.Match.StructuredWeights = def.StructuredWeights
	}
	if cfg.Match.FusionWeights == (match.FusionWeights{}) {
		cfg.Match.FusionWeights = def.FusionWeights
	}
	if cfg.Match.TopK == 0 {
		cfg.Match.TopK = def.TopK
	}
	if cfg.Match.Threshold == 0 {
		cfg.Match.Threshold = def.Threshold
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}

	// ── Enrichment providers ──────────────────────────────────────────────────
	if cfg.Neo4j.URI == "" {
		cfg.Neo4j.URI = DefaultNeo4jURI
	}
	if cfg.Neo4j.Database == "" {
		cfg.Neo4j.Database = "neo4j"
	}
	if cfg.Milvus.Addr == "" {
		cfg.Milvus.Addr = DefaultMilvusAddr
	}
	if cfg.Milvus.MetricType == "" {
		cfg.Milvus.MetricType = "COSINE"
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisPrefix
	}
	if cfg.Redis.CheckpointTTL == 0 {
		cfg.Redis.CheckpointTTL = DefaultCheckpointTTL
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = DefaultKafkaTopic
	}
	if cfg.Kafka.BatchSize == 0 {
		cfg.Kafka.BatchSize = 100
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = time.Second
	}
	if cfg.Kafka.RequiredAcks == "" {
		cfg.Kafka.RequiredAcks = "all"
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}

	// ── Worker ────────────────────────────────────────────────────────────────
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cfg.Worker.CheckpointInterval == 0 {
		cfg.Worker.CheckpointInterval = DefaultCheckpointInterval
	}
	if cfg.Worker.ShutdownTimeout == 0 {
		cfg.Worker.ShutdownTimeout = DefaultShutdownTimeout
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = DefaultMetricsAddr
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}
