package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:       "development",
		Port:      "8246",
		JWTSecret: "a-perfectly-reasonable-development-secret",
		DBDriver:  "sqlite",
	}
}

func TestValidateAcceptsDevelopmentDefaults(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateRequiredFields(t *testing.T) {
	cfg := validConfig()
	cfg.Port = ""
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.JWTSecret = ""
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.DBDriver = "oracle"
	assert.Error(t, cfg.Validate())
}

func TestValidateProductionHardening(t *testing.T) {
	cfg := validConfig()
	cfg.Env = "production"
	cfg.JWTSecret = "your-secret-key-change-in-production"
	assert.Error(t, cfg.Validate())

	cfg.JWTSecret = "short"
	assert.Error(t, cfg.Validate())

	cfg.JWTSecret = "this-is-a-long-enough-production-secret!"
	assert.NoError(t, cfg.Validate())

	cfg.DBDriver = "postgres"
	cfg.DBPassword = "password"
	assert.Error(t, cfg.Validate())

	cfg.DBPassword = "4ctu4lly-h4rd-t0-gu3ss"
	assert.NoError(t, cfg.Validate())
}

func TestPollIntervalDefaultsWhenUnset(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, 5*time.Second, cfg.PollInterval())

	cfg.PollIntervalSeconds = 2
	assert.Equal(t, 2*time.Second, cfg.PollInterval())

	cfg.PollIntervalSeconds = -1
	assert.Equal(t, 5*time.Second, cfg.PollInterval())
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "confide:store:image", cfg.StoreSlot)
	assert.Equal(t, "confide:events:ring", cfg.EventSlot)
	assert.Equal(t, "confide:events:changed", cfg.EventChannel)
	assert.Equal(t, 5*time.Second, cfg.PollInterval())
	assert.NotEmpty(t, cfg.Port)
}
