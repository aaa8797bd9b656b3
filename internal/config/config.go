package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tres-passos/marketplace/internal/db"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Geocode  GeocodeConfig  `yaml:"geocode" mapstructure:"geocode"`
	Catalog  CatalogConfig  `yaml:"catalog" mapstructure:"catalog"`
	Matching MatchingConfig `yaml:"matching" mapstructure:"matching"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string        `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string        `yaml:"database_url" mapstructure:"database_url"`
	Pool        db.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// GeocodeConfig configures the Google geocoder.
type GeocodeConfig struct {
	GoogleKey   string        `yaml:"google_api_key" mapstructure:"google_api_key"`
	Region      string        `yaml:"region" mapstructure:"region"`
	RateLimit   float64       `yaml:"rate_limit" mapstructure:"rate_limit"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	CacheTTL    time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	MaxAttempts int           `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// CatalogConfig configures the service catalog cache.
type CatalogConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// MatchingConfig configures provider matching.
type MatchingConfig struct {
	DefaultRadiusKM float64 `yaml:"default_radius_km" mapstructure:"default_radius_km"`
	Concurrency     int     `yaml:"concurrency" mapstructure:"concurrency"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MARKETPLACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"https://3passos.com.br", "https://3passos.com"})
	v.SetDefault("geocode.google_api_key", "")
	v.SetDefault("geocode.region", "br")
	v.SetDefault("geocode.rate_limit", 10.0)
	v.SetDefault("geocode.timeout", 10*time.Second)
	v.SetDefault("geocode.cache_ttl", 24*time.Hour)
	v.SetDefault("geocode.max_attempts", 3)
	v.SetDefault("catalog.cache_ttl", 15*time.Minute)
	v.SetDefault("matching.default_radius_km", 10.0)
	v.SetDefault("matching.concurrency", 8)

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

// Validate checks that the values required by a command are present.
// Mode is one of "serve", "match", "catalog" or "users".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve", "match", "catalog", "users":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "postgres", "sqlite":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	default:
		errs = append(errs, "store.driver must be postgres or sqlite")
	}

	if mode == "serve" && c.Server.Port <= 0 {
		errs = append(errs, "server.port must be > 0")
	}

	if mode == "serve" || mode == "match" {
		if c.Matching.DefaultRadiusKM < 0 {
			errs = append(errs, "matching.default_radius_km must be >= 0")
		}
		if c.Matching.Concurrency < 1 || c.Matching.Concurrency > 64 {
			errs = append(errs, "matching.concurrency must be between 1 and 64")
		}
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
