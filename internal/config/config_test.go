package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 14*24*time.Hour, cfg.FetchWindow)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 12*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 3, cfg.AuthThreshold)
	assert.Equal(t, 20, cfg.MaxPerSource)
	assert.Equal(t, "gemini-1.5-flash", cfg.GeminiModel)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CACHE_TTL", "1h")
	t.Setenv("MAX_ITEMS", "7")
	t.Setenv("AUTHENTICITY_THRESHOLD", "5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, 7, cfg.MaxItems)
	assert.Equal(t, 5, cfg.AuthThreshold)
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("CACHE_TTL", "not-a-duration")
	t.Setenv("MAX_ITEMS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 12*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 50, cfg.MaxItems)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.FetchTimeout = 0
	assert.Error(t, cfg.Validate())

	cfg.FetchTimeout = time.Second
	cfg.MaxItems = -1
	assert.Error(t, cfg.Validate())
}
