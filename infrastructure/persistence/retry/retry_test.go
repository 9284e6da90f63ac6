package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"marketplace/config"
	"marketplace/domain/order"
	"marketplace/domain/shared"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func fastConfig() Config {
	c := DefaultConfig
	c.InitialDelay = time.Millisecond
	c.MaxDelay = 2 * time.Millisecond
	c.JitterEnabled = false
	return c
}

func TestIsRetryableError(t *testing.T) {
	c := DefaultConfig
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"version conflict", order.NewConcurrentModificationError("merchant_order", "o-1"), true},
		{"shared conflict", shared.NewConflictError("product", "stale"), true},
		{"deadlock", &mysqlDriver.MySQLError{Number: 1213, Message: "Deadlock found"}, true},
		{"lock wait timeout", &mysqlDriver.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"}, true},
		{"duplicate key", fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), false},
		{"state conflict is a business error", order.NewInvalidOrderStateError("o-1", order.StatusPaid, "CREATED"), false},
		{"validation", shared.NewValidationError("order", "phone", "required"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryableError(tt.err, c))
		})
	}

	c.RetryOnDeadlock = false
	assert.False(t, IsRetryableError(&mysqlDriver.MySQLError{Number: 1213}, c))
}

func TestExecuteWithRetry(t *testing.T) {
	t.Run("retries conflicts until success", func(t *testing.T) {
		calls := 0
		err := ExecuteWithRetry(context.Background(), fastConfig(), func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return shared.NewConflictError("merchant_order", "stale version")
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := ExecuteWithRetry(context.Background(), fastConfig(), func(ctx context.Context) error {
			calls++
			return shared.NewConflictError("merchant_order", "stale version")
		})
		assert.ErrorIs(t, err, shared.ErrConflict)
		assert.Equal(t, DefaultConfig.MaxAttempts, calls)
	})

	t.Run("business errors return immediately", func(t *testing.T) {
		calls := 0
		err := ExecuteWithRetry(context.Background(), fastConfig(), func(ctx context.Context) error {
			calls++
			return shared.ErrForbidden
		})
		assert.True(t, errors.Is(err, shared.ErrForbidden))
		assert.Equal(t, 1, calls)
	})

	t.Run("disabled runs once", func(t *testing.T) {
		c := fastConfig()
		c.Enabled = false
		calls := 0
		_ = ExecuteWithRetry(context.Background(), c, func(ctx context.Context) error {
			calls++
			return shared.NewConflictError("merchant_order", "stale version")
		})
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled context stops", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := ExecuteWithRetry(ctx, fastConfig(), func(ctx context.Context) error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestExponentialBackoff(t *testing.T) {
	c := DefaultConfig
	c.JitterEnabled = false
	assert.Zero(t, ExponentialBackoffWithJitter(0, c))
	assert.Equal(t, 100*time.Millisecond, ExponentialBackoffWithJitter(1, c))
	assert.Equal(t, 200*time.Millisecond, ExponentialBackoffWithJitter(2, c))
	assert.Equal(t, 2*time.Second, ExponentialBackoffWithJitter(10, c))
}

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{Retry: config.RetryConfig{
		Enabled:     true,
		MaxAttempts: 7,
		MaxDelay:    time.Second,
	}}}
	c := FromAppConfig(cfg)
	assert.True(t, c.Enabled)
	assert.Equal(t, 7, c.MaxAttempts)
	assert.Equal(t, time.Second, c.MaxDelay)
}
