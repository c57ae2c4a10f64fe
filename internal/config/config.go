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
	API        APIConfig        `yaml:"api" mapstructure:"api"`
	Collect    CollectConfig    `yaml:"collect" mapstructure:"collect"`
	Breaker    BreakerConfig    `yaml:"breaker" mapstructure:"breaker"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	Recipes    RecipesConfig    `yaml:"recipes" mapstructure:"recipes"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// APIConfig holds Zyte API credentials and endpoints.
type APIConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	Endpoint    string `yaml:"endpoint" mapstructure:"endpoint"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	// ProxyURL is the proxy-mode address used by the direct fetcher. The API
	// key is inserted as the proxy username when the URL carries none.
	ProxyURL string `yaml:"proxy_url" mapstructure:"proxy_url"`
}

// CollectConfig configures the collection loop and its retry policy.
type CollectConfig struct {
	MaxSteps         int     `yaml:"max_steps" mapstructure:"max_steps"`
	MaxRetries       int     `yaml:"max_retries" mapstructure:"max_retries"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
	StepDelayMs      int     `yaml:"step_delay_ms" mapstructure:"step_delay_ms"`
	RunDelayMs       int     `yaml:"run_delay_ms" mapstructure:"run_delay_ms"`
	Concurrency      int     `yaml:"concurrency" mapstructure:"concurrency"`
}

// BreakerConfig configures the circuit breaker shared by all runs of a process.
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// StoreConfig configures the run history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// OutputConfig configures result files.
type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// RecipesConfig points at the recipe book.
type RecipesConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// MonitoringConfig configures run health alerts.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	StaleAfterMins       int     `yaml:"stale_after_mins" mapstructure:"stale_after_mins"`
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
	v.SetEnvPrefix("ZYTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("api.key", "")
	v.SetDefault("api.endpoint", "https://api.zyte.com/v1/extract")
	v.SetDefault("api.timeout_secs", 30)
	v.SetDefault("api.proxy_url", "http://api.zyte.com:8011")
	v.SetDefault("collect.max_steps", 10)
	v.SetDefault("collect.max_retries", 3)
	v.SetDefault("collect.initial_backoff_ms", 1000)
	v.SetDefault("collect.max_backoff_ms", 30000)
	v.SetDefault("collect.multiplier", 2.0)
	v.SetDefault("collect.jitter_fraction", 0.0)
	v.SetDefault("collect.step_delay_ms", 2000)
	v.SetDefault("collect.run_delay_ms", 2000)
	v.SetDefault("collect.concurrency", 1)
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.reset_timeout_secs", 60)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "zyte-collect.db")
	v.SetDefault("output.dir", "responses")
	v.SetDefault("recipes.path", "recipes.yaml")
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.stale_after_mins", 60)
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

// Validate checks the settings a command mode depends on. Modes: "collect"
// (anything that fetches), "store" (run history only).
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "collect":
		if c.API.Key == "" {
			errs = append(errs, "api.key is required (set ZYTE_API_KEY)")
		}
		if c.Collect.MaxSteps < 1 {
			errs = append(errs, "collect.max_steps must be >= 1")
		}
		if c.Collect.MaxRetries < 1 {
			errs = append(errs, "collect.max_retries must be >= 1")
		}
		if c.Collect.Concurrency < 1 || c.Collect.Concurrency > 16 {
			errs = append(errs, "collect.concurrency must be between 1 and 16")
		}
		if c.Collect.JitterFraction < 0 || c.Collect.JitterFraction > 1 {
			errs = append(errs, "collect.jitter_fraction must be between 0 and 1")
		}
		if c.Collect.StepDelayMs < 0 || c.Collect.RunDelayMs < 0 {
			errs = append(errs, "collect delays must be >= 0")
		}
		errs = append(errs, c.validateStore()...)
	case "store":
		errs = append(errs, c.validateStore()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.New(fmt.Sprintf("config: %s", strings.Join(errs, "; ")))
	}
	return nil
}

func (c *Config) validateStore() []string {
	var errs []string
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}
	return errs
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
