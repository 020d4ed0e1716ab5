package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Market     MarketConfig     `yaml:"market" mapstructure:"market"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Narrative  NarrativeConfig  `yaml:"narrative" mapstructure:"narrative"`
	Engine     EngineConfig     `yaml:"engine" mapstructure:"engine"`
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
	Events     EventsConfig     `yaml:"events" mapstructure:"events"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// MarketConfig selects and tunes the market-data provider.
type MarketConfig struct {
	Provider          string  `yaml:"provider" mapstructure:"provider"` // "static" or "http"
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	APIKey            string  `yaml:"api_key" mapstructure:"api_key"`
	TablesPath        string  `yaml:"tables_path" mapstructure:"tables_path"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// NarrativeConfig controls the optional prose summary.
type NarrativeConfig struct {
	Enabled     bool `yaml:"enabled" mapstructure:"enabled"`
	TimeoutSecs int  `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// EngineConfig tunes scoring.
type EngineConfig struct {
	BenchmarkScore int `yaml:"benchmark_score" mapstructure:"benchmark_score"`
}

// ResilienceConfig configures retries and circuit breakers for collaborators.
type ResilienceConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// EventsConfig configures analysis event publishing. An empty URL disables it.
type EventsConfig struct {
	NATSURL string `yaml:"nats_url" mapstructure:"nats_url"`
	Subject string `yaml:"subject" mapstructure:"subject"`
}

// BatchConfig bounds batch scoring.
type BatchConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// MonitoringConfig configures alert thresholds and delivery.
type MonitoringConfig struct {
	WebhookURL                     string  `yaml:"alert_webhook_url" mapstructure:"alert_webhook_url"`
	HardFailRateThreshold          float64 `yaml:"hard_fail_rate_threshold" mapstructure:"hard_fail_rate_threshold"`
	NarrativeFallbackRateThreshold float64 `yaml:"narrative_fallback_rate_threshold" mapstructure:"narrative_fallback_rate_threshold"`
	MarketFallbackRateThreshold    float64 `yaml:"market_fallback_rate_threshold" mapstructure:"market_fallback_rate_threshold"`
	FailureRateThreshold           float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	MinAverageScore                float64 `yaml:"min_average_score" mapstructure:"min_average_score"`
	AlertCooldownMins              int     `yaml:"alert_cooldown_mins" mapstructure:"alert_cooldown_mins"`
	MinAnalyses                    int     `yaml:"min_analyses" mapstructure:"min_analyses"`
	CheckIntervalSecs              int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowMins             int     `yaml:"lookback_window_mins" mapstructure:"lookback_window_mins"`
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
	v.SetEnvPrefix("DQI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "dqi.db")
	v.SetDefault("market.provider", "static")
	v.SetDefault("market.requests_per_second", 10)
	v.SetDefault("market.timeout_secs", 5)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 300)
	v.SetDefault("narrative.enabled", false)
	v.SetDefault("narrative.timeout_secs", 5)
	v.SetDefault("engine.benchmark_score", 71)
	v.SetDefault("resilience.max_attempts", 3)
	v.SetDefault("resilience.initial_backoff_ms", 200)
	v.SetDefault("resilience.max_backoff_ms", 2000)
	v.SetDefault("resilience.failure_threshold", 5)
	v.SetDefault("resilience.reset_timeout_secs", 30)
	v.SetDefault("events.subject", "dqi.analysis.completed")
	v.SetDefault("batch.max_concurrent", 8)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("monitoring.hard_fail_rate_threshold", 0.25)
	v.SetDefault("monitoring.narrative_fallback_rate_threshold", 0.50)
	v.SetDefault("monitoring.market_fallback_rate_threshold", 0.50)
	v.SetDefault("monitoring.failure_rate_threshold", 0.20)
	v.SetDefault("monitoring.min_analyses", 5)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_mins", 60)
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

// Validate checks the settings a command mode depends on. Modes are
// "analyze", "batch", "serve" and "store".
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "analyze", "batch", "serve", "store":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if mode == "serve" || mode == "store" {
		switch c.Store.Driver {
		case "sqlite", "postgres":
		default:
			problems = append(problems, "store.driver must be sqlite or postgres")
		}
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	}

	if mode != "store" {
		switch c.Market.Provider {
		case "static":
		case "http":
			if c.Market.BaseURL == "" {
				problems = append(problems, "market.base_url is required for the http provider")
			}
		default:
			problems = append(problems, "market.provider must be static or http")
		}
		if c.Narrative.Enabled && c.Anthropic.Key == "" {
			problems = append(problems, "anthropic.key is required when narrative.enabled")
		}
		if c.Engine.BenchmarkScore < 0 || c.Engine.BenchmarkScore > 100 {
			problems = append(problems, "engine.benchmark_score must be between 0 and 100")
		}
	}

	if mode == "batch" && (c.Batch.MaxConcurrent < 1 || c.Batch.MaxConcurrent > 64) {
		problems = append(problems, "batch.max_concurrent must be between 1 and 64")
	}

	if mode == "serve" && c.Server.Port <= 0 {
		problems = append(problems, "server.port must be > 0")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
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
