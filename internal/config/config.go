package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Jina      JinaConfig      `yaml:"jina" mapstructure:"jina"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Metrics   MetricsConfig   `yaml:"metrics" mapstructure:"metrics"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	Model         string `yaml:"model" mapstructure:"model"`
	MaxTokens     int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxInputRunes int    `yaml:"max_input_runes" mapstructure:"max_input_runes"`
}

// JinaConfig holds Jina search and reader settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxResults    int    `yaml:"max_results" mapstructure:"max_results"`
	// Reader enables the Jina reader as the last page fetch fallback.
	Reader bool `yaml:"reader" mapstructure:"reader"`
}

// FetchConfig configures page fetching.
type FetchConfig struct {
	TimeoutSecs        int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent          string `yaml:"user_agent" mapstructure:"user_agent"`
	Browser            bool   `yaml:"browser" mapstructure:"browser"`
	BrowserTimeoutSecs int    `yaml:"browser_timeout_secs" mapstructure:"browser_timeout_secs"`
	MaxBrowserSessions int    `yaml:"max_browser_sessions" mapstructure:"max_browser_sessions"`
	MinTextLength      int    `yaml:"min_text_length" mapstructure:"min_text_length"`
	BreakerThreshold   int    `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerCooldownSec int    `yaml:"breaker_cooldown_secs" mapstructure:"breaker_cooldown_secs"`
}

// RateLimitConfig bounds calls to the AI service.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	MaxWaitSecs       int `yaml:"max_wait_secs" mapstructure:"max_wait_secs"`
}

// PipelineConfig tunes the stage agents.
type PipelineConfig struct {
	MaxContactPages            int     `yaml:"max_contact_pages" mapstructure:"max_contact_pages"`
	MaxFaxSearchPages          int     `yaml:"max_fax_search_pages" mapstructure:"max_fax_search_pages"`
	FetchConcurrency           int     `yaml:"fetch_concurrency" mapstructure:"fetch_concurrency"`
	SocialConfidenceMultiplier float64 `yaml:"social_confidence_multiplier" mapstructure:"social_confidence_multiplier"`
	DomainRulesPath            string  `yaml:"domain_rules_path" mapstructure:"domain_rules_path"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	// Shards is the number of sequential runners working disjoint slices of
	// the input concurrently.
	Shards int `yaml:"shards" mapstructure:"shards"`
}

// StoreConfig configures run persistence. An empty path disables it.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// MetricsConfig configures the Prometheus textfile export.
type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path" mapstructure:"textfile_path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ENRICH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without a default must be bound for AutomaticEnv to see them
	// during Unmarshal.
	for _, k := range []string{"anthropic.key", "jina.key", "store.path", "metrics.textfile_path", "pipeline.domain_rules_path"} {
		_ = v.BindEnv(k)
	}

	// Defaults
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("anthropic.timeout_secs", 30)
	v.SetDefault("anthropic.max_input_runes", 8000)
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("jina.timeout_secs", 15)
	v.SetDefault("jina.max_results", 10)
	v.SetDefault("jina.reader", true)
	v.SetDefault("fetch.timeout_secs", 15)
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (compatible; contact-enricher/1.0)")
	v.SetDefault("fetch.browser", false)
	v.SetDefault("fetch.browser_timeout_secs", 30)
	v.SetDefault("fetch.max_browser_sessions", 2)
	v.SetDefault("fetch.min_text_length", 50)
	v.SetDefault("fetch.breaker_threshold", 5)
	v.SetDefault("fetch.breaker_cooldown_secs", 30)
	v.SetDefault("rate_limit.requests_per_minute", 50)
	v.SetDefault("rate_limit.max_wait_secs", 30)
	v.SetDefault("pipeline.max_contact_pages", 3)
	v.SetDefault("pipeline.max_fax_search_pages", 3)
	v.SetDefault("pipeline.fetch_concurrency", 3)
	v.SetDefault("pipeline.social_confidence_multiplier", 0.7)
	v.SetDefault("batch.shards", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the keys a command mode needs. Modes: "run" and "batch"
// call the external services, "runs" reads the store, "phone" needs nothing.
func (c *Config) Validate(mode string) error {
	var errs []string
	require := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, msg)
		}
	}

	switch mode {
	case "run", "batch":
		require(c.Anthropic.Key != "", "anthropic.key is required")
		require(c.Jina.Key != "", "jina.key is required")
		require(c.Anthropic.Model != "", "anthropic.model is required")
		require(c.RateLimit.RequestsPerMinute > 0, "rate_limit.requests_per_minute must be > 0")
		require(c.Fetch.MaxBrowserSessions > 0, "fetch.max_browser_sessions must be > 0")
		require(c.Pipeline.MaxContactPages >= 0, "pipeline.max_contact_pages must be >= 0")
		require(c.Pipeline.MaxFaxSearchPages >= 0, "pipeline.max_fax_search_pages must be >= 0")
		m := c.Pipeline.SocialConfidenceMultiplier
		require(m > 0 && m <= 1, fmt.Sprintf("pipeline.social_confidence_multiplier must be in (0, 1], got %v", m))
		if mode == "batch" {
			require(c.Batch.Shards > 0, "batch.shards must be > 0")
		}
	case "runs":
		require(c.Store.Path != "", "store.path is required")
	case "phone":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
