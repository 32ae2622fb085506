package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Pool      PoolConfig      `yaml:"pool" mapstructure:"pool"`
	Geocode   GeocodeConfig   `yaml:"geocode" mapstructure:"geocode"`
	Places    PlacesConfig    `yaml:"places" mapstructure:"places"`
	Providers ProvidersConfig `yaml:"providers" mapstructure:"providers"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Scoring   ScoringConfig   `yaml:"scoring" mapstructure:"scoring"`
	Insight   InsightConfig   `yaml:"insight" mapstructure:"insight"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// PoolConfig sizes the shared worker pool.
type PoolConfig struct {
	Workers  int `yaml:"workers" mapstructure:"workers"`
	MaxQueue int `yaml:"max_queue" mapstructure:"max_queue"`
}

// DefaultLocationConfig is the anchor used when a search location cannot be resolved.
type DefaultLocationConfig struct {
	Name      string  `yaml:"name" mapstructure:"name"`
	Latitude  float64 `yaml:"lat" mapstructure:"lat"`
	Longitude float64 `yaml:"lon" mapstructure:"lon"`
}

// GeocodeConfig configures the geocoding service.
type GeocodeConfig struct {
	GoogleAPIKey    string                `yaml:"google_api_key" mapstructure:"google_api_key"`
	BaseURL         string                `yaml:"base_url" mapstructure:"base_url"`
	CacheTTLMinutes int                   `yaml:"cache_ttl_minutes" mapstructure:"cache_ttl_minutes"`
	MaxAttempts     int                   `yaml:"max_attempts" mapstructure:"max_attempts"`
	RetryBackoffMs  int                   `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
	TimeoutSecs     int                   `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit       float64               `yaml:"rate_limit" mapstructure:"rate_limit"`
	GazetteerFile   string                `yaml:"gazetteer_file" mapstructure:"gazetteer_file"`
	DefaultLocation DefaultLocationConfig `yaml:"default_location" mapstructure:"default_location"`
}

// CacheTTL returns the geocode cache TTL.
func (c GeocodeConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// PlacesConfig holds Google Places API settings. Without a key the places source is synthetic.
type PlacesConfig struct {
	APIKey          string  `yaml:"api_key" mapstructure:"api_key"`
	BaseURL         string  `yaml:"base_url" mapstructure:"base_url"`
	CacheTTLMinutes int     `yaml:"cache_ttl_minutes" mapstructure:"cache_ttl_minutes"`
	RateLimit       float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ProvidersConfig configures the shared provider behavior.
type ProvidersConfig struct {
	TimeoutSecs            int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	BureauTTLMinutes       int `yaml:"bureau_ttl_minutes" mapstructure:"bureau_ttl_minutes"`
	DemographicsTTLMinutes int `yaml:"demographics_ttl_minutes" mapstructure:"demographics_ttl_minutes"`
	OpenMapTTLMinutes      int `yaml:"openmap_ttl_minutes" mapstructure:"openmap_ttl_minutes"`
	BreakerFailures        int `yaml:"breaker_failures" mapstructure:"breaker_failures"`
	BreakerResetSecs       int `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// CacheConfig selects the provider response cache backend.
type CacheConfig struct {
	Backend       string `yaml:"backend" mapstructure:"backend"` // memory or redis
	RedisAddr     string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string `yaml:"redis_password" mapstructure:"redis_password"`
	RedisDB       int    `yaml:"redis_db" mapstructure:"redis_db"`
}

// SearchConfig configures the aggregator.
type SearchConfig struct {
	MaxResults         int     `yaml:"max_results" mapstructure:"max_results"`
	DefaultRadiusMiles float64 `yaml:"default_radius_miles" mapstructure:"default_radius_miles"`
}

// ScoringConfig configures rule persistence.
type ScoringConfig struct {
	SettingsKey string `yaml:"settings_key" mapstructure:"settings_key"`
}

// InsightConfig configures insight generation.
type InsightConfig struct {
	Provider        string `yaml:"provider" mapstructure:"provider"` // local or claude
	AnthropicKey    string `yaml:"anthropic_key" mapstructure:"anthropic_key"`
	Model           string `yaml:"model" mapstructure:"model"`
	MaxTokens       int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	CacheTTLMinutes int    `yaml:"cache_ttl_minutes" mapstructure:"cache_ttl_minutes"`
	Concurrency     int    `yaml:"concurrency" mapstructure:"concurrency"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PROSPECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("pool.workers", 4)
	v.SetDefault("pool.max_queue", 256)
	v.SetDefault("geocode.google_api_key", "")
	v.SetDefault("geocode.base_url", "")
	v.SetDefault("geocode.cache_ttl_minutes", 60)
	v.SetDefault("geocode.max_attempts", 3)
	v.SetDefault("geocode.retry_backoff_ms", 500)
	v.SetDefault("geocode.timeout_secs", 10)
	v.SetDefault("geocode.rate_limit", 10)
	v.SetDefault("geocode.gazetteer_file", "")
	v.SetDefault("geocode.default_location.name", "Denver, CO")
	v.SetDefault("geocode.default_location.lat", 39.7392)
	v.SetDefault("geocode.default_location.lon", -104.9903)
	v.SetDefault("places.api_key", "")
	v.SetDefault("places.base_url", "")
	v.SetDefault("places.cache_ttl_minutes", 60)
	v.SetDefault("places.rate_limit", 5)
	v.SetDefault("providers.timeout_secs", 15)
	v.SetDefault("providers.bureau_ttl_minutes", 24*60)
	v.SetDefault("providers.demographics_ttl_minutes", 24*60)
	v.SetDefault("providers.openmap_ttl_minutes", 24*60)
	v.SetDefault("providers.breaker_failures", 5)
	v.SetDefault("providers.breaker_reset_secs", 30)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("search.max_results", 100)
	v.SetDefault("search.default_radius_miles", 25.0)
	v.SetDefault("scoring.settings_key", "scoring.rules")
	v.SetDefault("insight.provider", "local")
	v.SetDefault("insight.anthropic_key", "")
	v.SetDefault("insight.model", "claude-haiku-4-5-20251001")
	v.SetDefault("insight.max_tokens", 1024)
	v.SetDefault("insight.cache_ttl_minutes", 60)
	v.SetDefault("insight.concurrency", 4)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "prospects.db")
	v.SetDefault("server.port", 8080)

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

// Validate checks the settings a command mode depends on. Modes: search, serve.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "search":
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	default:
		problems = append(problems, fmt.Sprintf("store.driver %q must be sqlite or postgres", c.Store.Driver))
	}

	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.RedisAddr == "" {
			problems = append(problems, "cache.redis_addr is required for the redis backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("cache.backend %q must be memory or redis", c.Cache.Backend))
	}

	if c.Insight.Provider != "local" && c.Insight.Provider != "claude" {
		problems = append(problems, fmt.Sprintf("insight.provider %q must be local or claude", c.Insight.Provider))
	}
	if c.Insight.Concurrency < 1 || c.Insight.Concurrency > 32 {
		problems = append(problems, "insight.concurrency must be between 1 and 32")
	}
	if c.Search.MaxResults < 1 {
		problems = append(problems, "search.max_results must be > 0")
	}
	if c.Search.DefaultRadiusMiles <= 0 || c.Search.DefaultRadiusMiles > 500 {
		problems = append(problems, "search.default_radius_miles must be in (0, 500]")
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
