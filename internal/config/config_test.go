package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/groupbuy-service/internal/config"
)

func setRequired(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_USER", "postgres")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "groupbuy")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestNewConfig_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := config.NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "5432", cfg.Postgres.Port)
	assert.Equal(t, "disable", cfg.Postgres.SSLMode)
	assert.Equal(t, int32(10), cfg.Postgres.MaxConns)
	assert.Equal(t, 30*time.Minute, cfg.Postgres.MaxConnLifetime)
	assert.Equal(t, time.Hour, cfg.Scheduler.OverdueSweepInterval)
	assert.False(t, cfg.SMTP.Enabled())
	assert.False(t, cfg.Cloudinary.Enabled())
	assert.True(t, cfg.Pricing.DefaultAirCargoCost.IsZero())
}

func TestNewConfig_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_PORT", "9000")
	t.Setenv("OVERDUE_SWEEP_INTERVAL", "15m")
	t.Setenv("DEFAULT_AIR_CARGO_COST", "350.50")
	t.Setenv("SMTP_HOST", "smtp.example.com")

	cfg, err := config.NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.App.Port)
	assert.Equal(t, 15*time.Minute, cfg.Scheduler.OverdueSweepInterval)
	assert.Equal(t, "350.5", cfg.Pricing.DefaultAirCargoCost.String())
	assert.True(t, cfg.SMTP.Enabled())
}

func TestNewConfig_MissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SECRET", "")

	_, err := config.NewConfig()
	assert.EqualError(t, err, "JWT_SECRET is required")
}

func TestNewConfig_InvalidDuration(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_TTL", "three days")

	_, err := config.NewConfig()
	assert.ErrorContains(t, err, "invalid JWT_TTL")
}
