package cli

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, t.TempDir(), "druidq.yaml", `
broker:
  url: http://localhost:8082
  username: admin
  password: secret
  timeout: 30s
  retry:
    max_tries: 5
    initial_interval: 250ms
  breaker:
    consecutive_failures: 3
  rate_limit:
    per_second: 20
    burst: 5
  cache_size: 128
history:
  path: /var/lib/druidq/history.db
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8082", cfg.Broker.URL)
	assert.Equal(t, "admin", cfg.Broker.Username)
	assert.Equal(t, 30*time.Second, cfg.Broker.Timeout)
	assert.Equal(t, uint(5), cfg.Broker.Retry.MaxTries)
	assert.Equal(t, 250*time.Millisecond, cfg.Broker.Retry.InitialInterval)
	assert.Equal(t, uint32(3), cfg.Broker.Breaker.ConsecutiveFailures)
	assert.Equal(t, 20.0, cfg.Broker.RateLimit.PerSecond)
	assert.Equal(t, 5, cfg.Broker.RateLimit.Burst)
	assert.Equal(t, 128, cfg.Broker.CacheSize)
	assert.Equal(t, "/var/lib/druidq/history.db", cfg.History.Path)
	require.NoError(t, cfg.Broker.Validate())
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"missing file", filepath.Join(dir, "nope.yaml"), "read config"},
		{"unknown field", writeFile(t, dir, "unknown.yaml", "brokers:\n  url: http://x\n"), "field brokers not found"},
		{"bad duration", writeFile(t, dir, "duration.yaml", "broker:\n  timeout: soon\n"), "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(tt.path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfig_Empty(t *testing.T) {
	path := writeFile(t, t.TempDir(), "empty.yaml", "")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestRootOptions_ConfigPath(t *testing.T) {
	envPath := writeFile(t, t.TempDir(), "env.yaml", "history:\n  path: env.db\n")
	flagPath := writeFile(t, t.TempDir(), "flag.yaml", "history:\n  path: flag.db\n")

	t.Run("flag wins", func(t *testing.T) {
		t.Setenv(ConfigEnv, envPath)
		cfg, err := (&RootOptions{Config: flagPath}).loadConfig(true)
		require.NoError(t, err)
		assert.Equal(t, "flag.db", cfg.History.Path)
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv(ConfigEnv, envPath)
		cfg, err := (&RootOptions{}).loadConfig(true)
		require.NoError(t, err)
		assert.Equal(t, "env.db", cfg.History.Path)
	})

	t.Run("optional", func(t *testing.T) {
		t.Setenv(ConfigEnv, "")
		cfg, err := (&RootOptions{}).loadConfig(false)
		require.NoError(t, err)
		assert.Equal(t, &Config{}, cfg)
	})

	t.Run("required", func(t *testing.T) {
		t.Setenv(ConfigEnv, "")
		_, err := (&RootOptions{}).loadConfig(true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ConfigEnv)
	})
}
