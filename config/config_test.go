package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  name: marketplace\n"))
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Database.Type)
	assert.Equal(t, 5*time.Minute, cfg.Order.CancelWindow)
	assert.False(t, cfg.Order.ExpirySweep.Enabled)
	assert.Equal(t, "logging", cfg.Worker.Publisher)
	assert.Equal(t, 24*time.Hour, cfg.Redis.IdempotencyTTL)
	assert.Equal(t, 3, cfg.Database.Retry.MaxAttempts)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := writeConfig(t, `
app:
  env: production
order:
  cancel_window: 90s
worker:
  publisher: kafka
kafka:
  brokers: ["kafka-1:9092"]
  topic: orders
`)
	t.Setenv("MARKETPLACE_SERVER_PORT", "9090")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 90*time.Second, cfg.Order.CancelWindow)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"kafka-1:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_InvalidFile(t *testing.T) {
	_, err := Load(writeConfig(t, "database:\n  type: postgres\n"))
	assert.ErrorContains(t, err, "unsupported database.type")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database: DatabaseConfig{Type: "memory"},
			Order:    OrderConfig{CancelWindow: 5 * time.Minute},
			Worker:   WorkerConfig{Enabled: true, Publisher: "logging"},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero cancel window", func(c *Config) { c.Order.CancelWindow = 0 }},
		{"sweeper without interval", func(c *Config) { c.Order.ExpirySweep = ExpirySweepConfig{Enabled: true} }},
		{"kafka without brokers", func(c *Config) { c.Worker.Publisher = "kafka" }},
		{"unknown publisher", func(c *Config) { c.Worker.Publisher = "sqs" }},
		{"redis without addr", func(c *Config) { c.Redis.Enabled = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
