package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
match:
  rarity_threshold: 30
  top_k: 3
  threshold: 0.75
database:
  host: "localhost"
  port: 5432
  user: "filament"
  password: "secret"
  db_name: "filament"
redis:
  addr: "localhost:6379"
log:
  level: "debug"
  format: "text"
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func setEnvVars(t *testing.T, vars map[string]string) {
	t.Helper()
	for k, v := range vars {
		os.Setenv(k, v)
	}
	t.Cleanup(func() {
		for k := range vars {
			os.Unsetenv(k)
		}
	})
}

func TestLoad_ValidFile(t *testing.T) {
	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Match.RarityThreshold)
	assert.Equal(t, 3, cfg.Match.TopK)
	assert.InDelta(t, 0.75, cfg.Match.Threshold, 1e-9)
	assert.Equal(t, "filament", cfg.Database.User)
	assert.Equal(t, "debug", cfg.Log.Level)

	// Unset fields pick up defaults.
	assert.Equal(t, DefaultWorkerConcurrency, cfg.Worker.Concurrency)
	assert.Equal(t, DefaultKafkaTopic, cfg.Kafka.Topic)
	assert.NotZero(t, cfg.Match.MaxPoolSize)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("non_existent_config.yaml")
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(createTempConfigFile(t, "match: ["))
	assert.Error(t, err)
}

func TestLoad_ValidationFailure(t *testing.T) {
	bad := validConfigYAML + "\nworker:\n  concurrency: -2\n"
	_, err := Load(createTempConfigFile(t, bad))
	assert.Error(t, err)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	setEnvVars(t, map[string]string{
		"FILAMENT_DATABASE_HOST": "db-host",
		"FILAMENT_MATCH_TOP_K":   "9",
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "db-host", cfg.Database.Host)
	assert.Equal(t, 9, cfg.Match.TopK)
}

func TestLoadFromEnv_DefaultsOnly(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultDBHost, cfg.Database.Host)
	assert.Equal(t, DefaultRedisAddr, cfg.Redis.Addr)
	assert.NoError(t, cfg.Match.Validate())
}

func TestMustLoad(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	assert.NotPanics(t, func() { MustLoad(path) })
	assert.Panics(t, func() { MustLoad("non_existent.yaml") })
}
