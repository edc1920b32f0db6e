package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("INVOICE_TIMEZONE", "Africa/Tunis")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, 3, cfg.WorkerPoolSize)
	assert.Equal(t, 8, cfg.JWTExpirationHours)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "Africa/Tunis", cfg.InvoiceLocation().String())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("WORKER_POOL_SIZE", "7")
	t.Setenv("INVOICE_TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 7, cfg.WorkerPoolSize)
	assert.Equal(t, time.UTC.String(), cfg.InvoiceLocation().String())
}

func TestValidate_RejectsUnknownTimezone(t *testing.T) {
	cfg := &Config{DatabaseURL: "postgres://x", InvoiceTimezone: "Mars/Olympus", WorkerPoolSize: 1}
	assert.Error(t, cfg.Validate())
}

func TestValidate_ProductionNeedsSecret(t *testing.T) {
	cfg := &Config{
		DatabaseURL:     "postgres://x",
		Env:             "production",
		JWTSecret:       "dev-secret-change-me",
		InvoiceTimezone: "UTC",
		WorkerPoolSize:  1,
	}
	assert.Error(t, cfg.Validate())

	cfg.JWTSecret = "s3cr3t"
	assert.NoError(t, cfg.Validate())
}
