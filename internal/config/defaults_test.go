package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/filamentproject/filament/internal/domain/match"
)

func TestApplyDefaults_FillsZeroValues(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	def := match.DefaultParams()
	assert.Equal(t, def.RarityThreshold, cfg.Match.RarityThreshold)
	assert.Equal(t, def.StructuredWeights, cfg.Match.StructuredWeights)
	assert.Equal(t, def.Threshold, cfg.Match.Threshold)

	assert.Equal(t, DefaultDBHost, cfg.Database.Host)
	assert.Equal(t, DefaultDBPort, cfg.Database.Port)
	assert.Equal(t, DefaultRedisAddr, cfg.Redis.Addr)
	assert.Equal(t, DefaultCheckpointTTL, cfg.Redis.CheckpointTTL)
	assert.Equal(t, []string{DefaultKafkaBroker}, cfg.Kafka.Brokers)
	assert.Equal(t, DefaultMinIOBucket, cfg.MinIO.Bucket)
	assert.Equal(t, DefaultWorkerConcurrency, cfg.Worker.Concurrency)
	assert.Equal(t, DefaultCheckpointInterval, cfg.Worker.CheckpointInterval)
	assert.Equal(t, DefaultMetricsAddr, cfg.Metrics.Addr)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
}

func TestApplyDefaults_ExplicitValuesWin(t *testing.T) {
	cfg := &Config{}
	cfg.Match.TopK = 1
	cfg.Database.Host = "db.internal"
	cfg.Log.Level = "warn"
	ApplyDefaults(cfg)

	assert.Equal(t, 1, cfg.Match.TopK)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestApplyDefaults_NilSafe(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}
