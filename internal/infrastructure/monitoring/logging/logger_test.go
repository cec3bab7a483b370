package logging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFieldConstructors(t *testing.T) {
	assert.Equal(t, Field{Key: "k", Value: "v"}, String("k", "v"))
	assert.Equal(t, Field{Key: "n", Value: 7}, Int("n", 7))
	assert.Equal(t, Field{Key: "f", Value: 0.5}, Float64("f", 0.5))
	assert.Equal(t, Field{Key: "b", Value: true}, Bool("b", true))
	assert.Equal(t, Field{Key: "d", Value: time.Second}, Duration("d", time.Second))
	assert.Equal(t, Field{Key: "error", Value: "boom"}, Err(errors.New("boom")))
	assert.Equal(t, Field{Key: "error", Value: "<nil>"}, Err(nil))
}

func TestZapLogger_EmitsFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewLoggerFromCore(core)

	logger.Info("run started", String("run_id", "r1"), Int("cases", 42))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "run started", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "r1", fields["run_id"])
	assert.Equal(t, int64(42), fields["cases"])
}

func TestZapLogger_WithAndNamed(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewLoggerFromCore(core).Named("engine").With(String("run_id", "r2"))

	logger.Warn("pool truncated", Int("dropped", 3))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "engine", entry.LoggerName)
	assert.Equal(t, "r2", entry.ContextMap()["run_id"])
}

func TestNewLogger_Defaults(t *testing.T) {
	logger, err := NewLogger(LogConfig{})
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	// Must not panic on any call.
	logger.Debug("x")
	logger.Info("x")
	logger.Warn("x")
	logger.Error("x")
	assert.Equal(t, logger, logger.With(String("a", "b")).Named("n"))
}

func TestDefaultLogger(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	core, logs := observer.New(zapcore.InfoLevel)
	SetDefault(NewLoggerFromCore(core))
	Default().Info("via default")
	assert.Equal(t, 1, logs.Len())

	SetDefault(nil) // ignored
	assert.NotNil(t, Default())
}
