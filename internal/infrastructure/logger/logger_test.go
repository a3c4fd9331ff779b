package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestDefaultAndProductionConfig(t *testing.T) {
	dev := DefaultConfig()
	assert.Equal(t, "info", dev.Level)
	assert.Equal(t, "console", dev.Format)
	assert.Equal(t, "stdout", dev.Output)
	assert.NotEmpty(t, dev.TimeFormat)

	prod := ProductionConfig()
	assert.Equal(t, "json", prod.Format)
	assert.Equal(t, dev.Level, prod.Level)
	assert.Equal(t, dev.TimeFormat, prod.TimeFormat)
}

func TestNew(t *testing.T) {
	for _, cfg := range []*Config{
		DefaultConfig(),
		ProductionConfig(),
		{Level: "debug", Format: "console", Output: "stdout", TimeFormat: "2006-01-02T15:04:05Z07:00"},
		{Level: "error", Format: "json", Output: "stderr", TimeFormat: "2006-01-02T15:04:05Z07:00"},
	} {
		log, err := New(cfg)
		require.NoError(t, err)
		assert.NotNil(t, log)
	}
}

func TestNewForEnvironment(t *testing.T) {
	for _, env := range []string{"development", "production", "staging"} {
		t.Run(env, func(t *testing.T) {
			log, err := NewForEnvironment(env)
			require.NoError(t, err)
			assert.NotNil(t, log)
		})
	}
}

func TestZapLevel(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"bogus", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		cfg := &Config{Level: tt.level}
		assert.Equal(t, tt.want, cfg.zapLevel(), "level %q", tt.level)
	}
}

func TestSinkSelection(t *testing.T) {
	for _, output := range []string{"stdout", "stderr", "STDOUT"} {
		cfg := &Config{Output: output}
		assert.NotNil(t, cfg.sink())
	}
}

func TestSinkFile(t *testing.T) {
	tmp, err := os.CreateTemp("", "ordercore-log-*.log")
	require.NoError(t, err)
	defer os.Remove(tmp.Name())
	tmp.Close()

	cfg := &Config{Output: tmp.Name()}
	assert.NotNil(t, cfg.sink())

	// Unwritable paths fall back silently instead of failing startup.
	cfg = &Config{Output: "/nonexistent-dir/ordercore.log"}
	assert.NotNil(t, cfg.sink())
}

func TestEncoderSelection(t *testing.T) {
	console := &Config{Format: "console", TimeFormat: "2006-01-02T15:04:05Z07:00"}
	assert.NotNil(t, console.encoder())

	jsonCfg := &Config{Format: "json", TimeFormat: "2006-01-02T15:04:05Z07:00"}
	assert.NotNil(t, jsonCfg.encoder())
}

func TestJSONLogShape(t *testing.T) {
	var buf bytes.Buffer
	cfg := &Config{Level: "info", Format: "json", TimeFormat: "2006-01-02T15:04:05Z07:00"}
	core := zapcore.NewCore(cfg.encoder(), zapcore.AddSync(&buf), cfg.zapLevel())
	log := zap.New(core)

	log.Info("order saved", zap.String("order_number", "#1001"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "order saved", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "#1001", entry["order_number"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	cfg := &Config{Level: "warn", Format: "json", TimeFormat: "2006-01-02T15:04:05Z07:00"}
	core := zapcore.NewCore(cfg.encoder(), zapcore.AddSync(&buf), cfg.zapLevel())
	log := zap.New(core)

	log.Info("below threshold")
	assert.Empty(t, buf.String())

	log.Warn("at threshold")
	assert.Contains(t, buf.String(), "at threshold")
}

func TestWithAndNamed(t *testing.T) {
	log, err := NewForEnvironment("development")
	require.NoError(t, err)

	child := With(log, zap.String("store_id", "s1"))
	assert.NotNil(t, child)
	assert.NotEqual(t, log, child)

	named := Named(log, "outbox")
	assert.NotNil(t, named)
	assert.NotEqual(t, log, named)

	// Sync on stdout may error depending on platform; it must not panic.
	_ = Sync(log)
}
