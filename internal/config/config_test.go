package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.zyte.com/v1/extract", cfg.API.Endpoint)
	assert.Equal(t, 30, cfg.API.TimeoutSecs)
	assert.Equal(t, "http://api.zyte.com:8011", cfg.API.ProxyURL)
	assert.Equal(t, 10, cfg.Collect.MaxSteps)
	assert.Equal(t, 3, cfg.Collect.MaxRetries)
	assert.Equal(t, 1000, cfg.Collect.InitialBackoffMs)
	assert.Equal(t, 30000, cfg.Collect.MaxBackoffMs)
	assert.InDelta(t, 2.0, cfg.Collect.Multiplier, 0.001)
	assert.Equal(t, 2000, cfg.Collect.StepDelayMs)
	assert.Equal(t, 1, cfg.Collect.Concurrency)
	assert.Equal(t, 5, cfg.Breaker.FailureThreshold)
	assert.Equal(t, 60, cfg.Breaker.ResetTimeoutSecs)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "zyte-collect.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "responses", cfg.Output.Dir)
	assert.Equal(t, "recipes.yaml", cfg.Recipes.Path)
	assert.InDelta(t, 0.25, cfg.Monitoring.FailureRateThreshold, 0.001)
	assert.Equal(t, 24, cfg.Monitoring.LookbackWindowHours)
	assert.Equal(t, 60, cfg.Monitoring.StaleAfterMins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/zyte
log:
  level: debug
  format: console
collect:
  max_steps: 25
  concurrency: 3
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/zyte", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 25, cfg.Collect.MaxSteps)
	assert.Equal(t, 3, cfg.Collect.Concurrency)
	// Defaults still apply for unset values
	assert.Equal(t, 3, cfg.Collect.MaxRetries)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("ZYTE_STORE_DRIVER", "sqlite")
	t.Setenv("ZYTE_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadAPIKeyFromEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv("ZYTE_API_KEY", "abc123")
	t.Setenv("ZYTE_COLLECT_MAX_STEPS", "4")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "abc123", cfg.API.Key)
	assert.Equal(t, 4, cfg.Collect.MaxSteps)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unterminated"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.API.Key = "key"
	cfg.Collect.MaxSteps = 10
	cfg.Collect.MaxRetries = 3
	cfg.Collect.Concurrency = 1
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "zyte-collect.db"
	return cfg
}

func TestValidateCollect_AllPresent(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("collect"))
}

func TestValidateCollect_MissingKey(t *testing.T) {
	cfg := validDefaults()
	cfg.API.Key = ""

	err := cfg.Validate("collect")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api.key is required")
}

func TestValidateCollect_Bounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Collect.MaxSteps = 0
	cfg.Collect.MaxRetries = 0
	cfg.Collect.Concurrency = 17
	cfg.Collect.JitterFraction = 1.5

	err := cfg.Validate("collect")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collect.max_steps must be >= 1")
	assert.Contains(t, err.Error(), "collect.max_retries must be >= 1")
	assert.Contains(t, err.Error(), "collect.concurrency must be between 1 and 16")
	assert.Contains(t, err.Error(), "collect.jitter_fraction")
}

func TestValidateStore(t *testing.T) {
	cfg := validDefaults()
	cfg.API.Key = ""
	assert.NoError(t, cfg.Validate("store"), "store mode does not need an API key")

	cfg.Store.Driver = "mysql"
	cfg.Store.DatabaseURL = ""
	err := cfg.Validate("store")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
