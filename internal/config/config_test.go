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

	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, int64(1024), cfg.Anthropic.MaxTokens)
	assert.Equal(t, 30, cfg.Anthropic.TimeoutSecs)
	assert.Equal(t, "https://s.jina.ai", cfg.Jina.SearchBaseURL)
	assert.Equal(t, 15, cfg.Jina.TimeoutSecs)
	assert.True(t, cfg.Jina.Reader)
	assert.Equal(t, 15, cfg.Fetch.TimeoutSecs)
	assert.False(t, cfg.Fetch.Browser)
	assert.Equal(t, 30, cfg.Fetch.BrowserTimeoutSecs)
	assert.Equal(t, 2, cfg.Fetch.MaxBrowserSessions)
	assert.Equal(t, 50, cfg.Fetch.MinTextLength)
	assert.Equal(t, 50, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, 30, cfg.RateLimit.MaxWaitSecs)
	assert.Equal(t, 3, cfg.Pipeline.MaxContactPages)
	assert.Equal(t, 3, cfg.Pipeline.MaxFaxSearchPages)
	assert.InDelta(t, 0.7, cfg.Pipeline.SocialConfidenceMultiplier, 0.001)
	assert.Equal(t, 1, cfg.Batch.Shards)
	assert.Empty(t, cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
fetch:
  browser: true
  max_browser_sessions: 4
pipeline:
  max_contact_pages: 5
batch:
  shards: 3
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Fetch.Browser)
	assert.Equal(t, 4, cfg.Fetch.MaxBrowserSessions)
	assert.Equal(t, 5, cfg.Pipeline.MaxContactPages)
	assert.Equal(t, 3, cfg.Batch.Shards)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, 3, cfg.Pipeline.MaxFaxSearchPages)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
batch:
  shards: 2
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("ENRICH_BATCH_SHARDS", "6")
	t.Setenv("ENRICH_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, 6, cfg.Batch.Shards)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvSecrets(t *testing.T) {
	chdirTemp(t)

	t.Setenv("ENRICH_ANTHROPIC_KEY", "sk-ant-key")
	t.Setenv("ENRICH_JINA_KEY", "jina-key")
	t.Setenv("ENRICH_STORE_PATH", "/tmp/enrich.db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-key", cfg.Anthropic.Key)
	assert.Equal(t, "jina-key", cfg.Jina.Key)
	assert.Equal(t, "/tmp/enrich.db", cfg.Store.Path)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("batch: [\n"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
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
	cfg.Anthropic.Model = "claude-haiku-4-5-20251001"
	cfg.RateLimit.RequestsPerMinute = 50
	cfg.Fetch.MaxBrowserSessions = 2
	cfg.Pipeline.MaxContactPages = 3
	cfg.Pipeline.MaxFaxSearchPages = 3
	cfg.Pipeline.SocialConfidenceMultiplier = 0.7
	cfg.Batch.Shards = 1
	return cfg
}

func TestValidateRun_AllPresent(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = "sk-ant-key"
	cfg.Jina.Key = "jina-key"

	assert.NoError(t, cfg.Validate("run"))
	assert.NoError(t, cfg.Validate("batch"))
}

func TestValidateRun_MissingKeys(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")
	assert.Contains(t, err.Error(), "jina.key is required")
}

func TestValidateBatch_Bounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = "k"
	cfg.Jina.Key = "k"

	cfg.Batch.Shards = 0
	err := cfg.Validate("batch")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "batch.shards must be > 0")
	assert.NoError(t, cfg.Validate("run"))

	cfg.Batch.Shards = 1
	cfg.Pipeline.SocialConfidenceMultiplier = 1.5
	err = cfg.Validate("batch")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "social_confidence_multiplier")

	cfg.Pipeline.SocialConfidenceMultiplier = 0.7
	cfg.RateLimit.RequestsPerMinute = 0
	err = cfg.Validate("batch")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "rate_limit.requests_per_minute must be > 0")
}

func TestValidateRuns(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("runs")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.path is required")

	cfg.Store.Path = "enrich.db"
	assert.NoError(t, cfg.Validate("runs"))
}

func TestValidatePhone(t *testing.T) {
	assert.NoError(t, (&Config{}).Validate("phone"))
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
