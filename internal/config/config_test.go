package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_DSN", "file::memory:")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.DBTimeout)
	assert.Equal(t, "none", cfg.CancelRefundPolicy)
	assert.Equal(t, "store", cfg.NotifyTransport)
	assert.False(t, cfg.EnforceAvailability)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "pgx")
	t.Setenv("DB_DSN", "postgres://localhost/tutoring")
	t.Setenv("DB_TIMEOUT", "2s")
	t.Setenv("ENFORCE_AVAILABILITY", "true")
	t.Setenv("CANCEL_REFUND_POLICY", "UNSTARTED")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "pgx", cfg.DBDriver)
	assert.Equal(t, 2*time.Second, cfg.DBTimeout)
	assert.True(t, cfg.EnforceAvailability)
	assert.Equal(t, "unstarted", cfg.CancelRefundPolicy)
}

func TestLoadRejectsMissingAndUnknownValues(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_DSN", "")
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DSN")
	assert.Contains(t, err.Error(), "JWT_SECRET")

	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DSN", "file::memory:")
	t.Setenv("CANCEL_REFUND_POLICY", "always")
	_, err = Load()
	assert.ErrorContains(t, err, "CANCEL_REFUND_POLICY")
}

func TestLoadRateLimitConfigClampsValues(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 10*time.Second, cfg.TTL)
	assert.Equal(t, "user_route", cfg.KeyStrategy)
}

func TestLoadCacheConfigMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	cfg := LoadCacheConfig()
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, cfg.Methods)
}
