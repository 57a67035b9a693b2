package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatekit/pkg/config"
)

type testConfig struct {
	Endpoint string        `env:"TEST_GATEKIT_ENDPOINT"`
	TTL      time.Duration `env:"TEST_GATEKIT_TTL" envDefault:"30m"`
	Debug    bool          `env:"TEST_GATEKIT_DEBUG" envDefault:"false"`
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_GATEKIT_ENDPOINT", "https://api.example.com/verify")
	t.Setenv("TEST_GATEKIT_TTL", "15m")

	var cfg testConfig
	require.NoError(t, config.Load(&cfg))

	assert.Equal(t, "https://api.example.com/verify", cfg.Endpoint)
	assert.Equal(t, 15*time.Minute, cfg.TTL)
	assert.False(t, cfg.Debug)
}

func TestLoadDefaults(t *testing.T) {
	os.Unsetenv("TEST_GATEKIT_ENDPOINT")
	os.Unsetenv("TEST_GATEKIT_TTL")

	var cfg testConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, 30*time.Minute, cfg.TTL)
}

func TestLoadNilPointer(t *testing.T) {
	t.Parallel()

	var cfg *testConfig
	assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
}

func TestLoadEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env.test")
	require.NoError(t, os.WriteFile(path, []byte("TEST_GATEKIT_FROM_FILE=yes\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("TEST_GATEKIT_FROM_FILE") })

	require.NoError(t, config.LoadEnv(path))
	assert.Equal(t, "yes", os.Getenv("TEST_GATEKIT_FROM_FILE"))

	t.Run("missing file is an error", func(t *testing.T) {
		assert.Error(t, config.LoadEnv("/nonexistent/.env"))
	})
}
