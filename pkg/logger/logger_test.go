package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"marketplace/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestPackageFunctionsWithoutInit(t *testing.T) {
	original := log
	t.Cleanup(func() { log = original })
	log = nil

	assert.NotPanics(t, func() {
		Debug("debug")
		Info("info")
		Warn("warn")
		Error("error")
		With(zap.String("order_id", "mo-1")).Info("with")
		WithRequestID("req-1").Info("request")
		WithContext(map[string]any{"order_id": "mo-1"}).Info("context")
		assert.NoError(t, Sync())
	})
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, parseLevel(in))
		})
	}
}

func TestUpdateLevel(t *testing.T) {
	require.NoError(t, Init(&config.LogConfig{Level: "debug", Output: "stdout"}, "development"))
	t.Cleanup(func() { _ = Sync() })

	assert.True(t, Get().Core().Enabled(zapcore.DebugLevel))
	UpdateLevel("warn")
	assert.False(t, Get().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, Get().Core().Enabled(zapcore.WarnLevel))
	UpdateLevel("debug")
}

func TestFileOutputIsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app", "marketplace.log")
	require.NoError(t, Init(&config.LogConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: path,
	}, "production"))

	WithRequestID("req-7").Info("order paid", zap.String("order_id", "mo-1"), zap.Int64("amount", 1999))
	require.NoError(t, Sync())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(strings.Split(string(raw), "\n")[0])

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "order paid", entry["msg"])
	assert.Equal(t, "req-7", entry["request_id"])
	assert.Equal(t, "mo-1", entry["order_id"])
	assert.EqualValues(t, 1999, entry["amount"])
}

func TestWithContextFieldTypes(t *testing.T) {
	require.NoError(t, Init(&config.LogConfig{Level: "info", Output: "stdout"}, "development"))
	t.Cleanup(func() { _ = Sync() })

	l := WithContext(map[string]any{
		"order_id": "mo-1",
		"quantity": 3,
		"amount":   int64(2500),
		"refunded": true,
		"ratio":    0.5,
		"items":    []string{"i-1", "i-2"},
	})
	assert.NotNil(t, l)
}

func TestMajorEventsLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "major-events.log")
	l, closeFn, err := NewMajorEventsLogger(path)
	require.NoError(t, err)

	l.Info("ORDER_CANCEL_USER",
		zap.String("actor_id", "c-1"),
		zap.String("target_id", "mo-9"),
		zap.Any("payload", map[string]any{"refunded": false}))
	require.NoError(t, closeFn())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(raw))), &entry))
	assert.Equal(t, "ORDER_CANCEL_USER", entry["action"])
	assert.Equal(t, "mo-9", entry["target_id"])
	assert.NotContains(t, entry, "level")
}

func TestMajorEventsLoggerDisabled(t *testing.T) {
	l, closeFn, err := NewMajorEventsLogger("")
	require.NoError(t, err)
	l.Info("ORDER_CREATE")
	assert.NoError(t, closeFn())
}
