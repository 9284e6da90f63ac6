package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"marketplace/infrastructure/persistence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	original := log
	t.Cleanup(func() { log = original })

	core, logs := observer.New(zapcore.DebugLevel)
	log = zap.New(core)
	return logs
}

func messages(logs *observer.ObservedLogs) []string {
	out := make([]string, 0, logs.Len())
	for _, e := range logs.All() {
		out = append(out, e.Message)
	}
	return out
}

func TestGormLoggerAdapter_LevelFiltering(t *testing.T) {
	tests := []struct {
		name  string
		level gormlogger.LogLevel
		want  []string
	}{
		{"silent", gormlogger.Silent, []string{}},
		{"error", gormlogger.Error, []string{"stock update failed"}},
		{"warn", gormlogger.Warn, []string{"lock wait", "stock update failed"}},
		{"info", gormlogger.Info, []string{"migrating merchant_orders", "lock wait", "stock update failed", "SQL query executed"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := observe(t)
			adapter := NewGormLoggerAdapter(tt.level)
			ctx := context.Background()

			adapter.Info(ctx, "migrating %s", "merchant_orders")
			adapter.Warn(ctx, "lock wait")
			adapter.Error(ctx, "stock update failed")
			adapter.Trace(ctx, time.Now(), func() (string, int64) {
				return "SELECT * FROM `merchant_orders` WHERE id = 'mo-1' FOR UPDATE", 1
			}, nil)

			assert.Equal(t, tt.want, messages(logs))
		})
	}
}

func TestGormLoggerAdapter_TraceFields(t *testing.T) {
	logs := observe(t)
	adapter := NewGormLoggerAdapter(gormlogger.Info)
	ctx := persistence.ContextWithRequestID(context.Background(), "req-42")

	adapter.Trace(ctx, time.Now(), func() (string, int64) {
		return "UPDATE `products` SET stock = stock - 2 WHERE id = 'p-1' AND stock >= 2", 1
	}, nil)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Contains(t, fields["sql"], "UPDATE `products`")
	assert.EqualValues(t, 1, fields["rows"])
}

func TestGormLoggerAdapter_SlowQueryAndNotFound(t *testing.T) {
	logs := observe(t)
	adapter := NewGormLoggerAdapterWithConfig(gormlogger.Warn, &GormLoggerConfig{
		SlowThreshold:             10 * time.Millisecond,
		IgnoreRecordNotFoundError: true,
	})
	ctx := persistence.ContextWithRequestID(context.Background(), "req-slow")

	adapter.Trace(ctx, time.Now().Add(-50*time.Millisecond), func() (string, int64) {
		return "SELECT * FROM `stock_reservations` WHERE order_item_id IN ('i-1')", 1
	}, nil)
	adapter.Trace(ctx, time.Now(), func() (string, int64) {
		return "SELECT * FROM `order_cancel_requests` WHERE id = 'missing'", 0
	}, gormlogger.ErrRecordNotFound)

	require.Equal(t, 1, logs.Len(), "record-not-found must be ignored")
	entry := logs.All()[0]
	assert.Equal(t, "Slow SQL query", entry.Message)
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, "req-slow", entry.ContextMap()["request_id"])
}

func TestGormLoggerAdapter_ErrorTrace(t *testing.T) {
	logs := observe(t)
	adapter := NewGormLoggerAdapter(gormlogger.Error)

	adapter.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "INSERT INTO `outbox_events` ...", 0
	}, errors.New("Error 1213: Deadlock found"))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Database operation failed", logs.All()[0].Message)
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[0].Level)
}

func TestGormLoggerAdapter_LogModeKeepsConfig(t *testing.T) {
	cfg := &GormLoggerConfig{SlowThreshold: time.Second}
	adapter := NewGormLoggerAdapterWithConfig(gormlogger.Warn, cfg)

	switched, ok := adapter.LogMode(gormlogger.Info).(*GormLoggerAdapter)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Info, switched.logLevel)
	assert.Same(t, cfg, switched.config)
	assert.Equal(t, gormlogger.Warn, adapter.logLevel)
}
