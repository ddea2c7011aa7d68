package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log        LogConfig      `yaml:"log" mapstructure:"log"`
	Store      StoreConfig    `yaml:"store" mapstructure:"store"`
	Analysis   AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Server     ServerConfig   `yaml:"server" mapstructure:"server"`
	CitiesFile string         `yaml:"cities_file" mapstructure:"cities_file"`
	DataDir    string         `yaml:"data_dir" mapstructure:"data_dir"`
	OutputDir  string         `yaml:"output_dir" mapstructure:"output_dir"`
}

// StoreConfig configures the run store backend. For sqlite, DatabaseURL is
// the database file path.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
	// RetryAttempts is the number of tries for a store call that fails
	// with a transient error. 1 disables retries.
	RetryAttempts int           `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryBackoff  time.Duration `yaml:"retry_backoff" mapstructure:"retry_backoff"`
}

// AnalysisConfig holds the defaults applied to every analysis run.
type AnalysisConfig struct {
	PremiumThreshold   float64       `yaml:"premium_threshold" mapstructure:"premium_threshold"`
	MaxPrice           float64       `yaml:"max_price" mapstructure:"max_price"`
	MaxListings        int           `yaml:"max_listings" mapstructure:"max_listings"`
	MinClusterListings int           `yaml:"min_cluster_listings" mapstructure:"min_cluster_listings"`
	TopNeighborhoods   int           `yaml:"top_neighborhoods" mapstructure:"top_neighborhoods"`
	Weights            WeightsConfig `yaml:"weights" mapstructure:"weights"`
}

// WeightsConfig holds the investment score weights.
type WeightsConfig struct {
	Price    float64 `yaml:"price" mapstructure:"price"`
	Location float64 `yaml:"location" mapstructure:"location"`
	Demand   float64 `yaml:"demand" mapstructure:"demand"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	RateLimit   float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
	Burst       int      `yaml:"burst" mapstructure:"burst"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
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
	v.SetEnvPrefix("HOTSPOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "hotspots.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("store.retry_attempts", 3)
	v.SetDefault("store.retry_backoff", "200ms")
	v.SetDefault("analysis.premium_threshold", 200.0)
	v.SetDefault("analysis.max_price", 5000.0)
	v.SetDefault("analysis.max_listings", 0)
	v.SetDefault("analysis.min_cluster_listings", 10)
	v.SetDefault("analysis.top_neighborhoods", 10)
	v.SetDefault("analysis.weights.price", 0.4)
	v.SetDefault("analysis.weights.location", 0.3)
	v.SetDefault("analysis.weights.demand", 0.3)
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.rate_limit", 1.0)
	v.SetDefault("server.burst", 2)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("cities_file", "")
	v.SetDefault("data_dir", "data")
	v.SetDefault("output_dir", "output")

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

// Validate checks that the fields needed by mode ("analyze", "serve" or
// "runs") are present and in range. All problems are reported at once.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "analyze", "serve", "runs":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
	}
	if c.Store.RetryAttempts < 0 {
		errs = append(errs, "store.retry_attempts must be >= 0")
	}

	if mode != "runs" {
		errs = append(errs, c.Analysis.problems()...)
		if c.OutputDir == "" {
			errs = append(errs, "output_dir is required")
		}
	}

	if mode == "serve" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if c.Server.RateLimit <= 0 {
			errs = append(errs, "server.rate_limit must be > 0")
		}
		if c.Server.Burst < 1 {
			errs = append(errs, "server.burst must be >= 1")
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (a AnalysisConfig) problems() []string {
	var errs []string
	if a.PremiumThreshold < 0 || math.IsNaN(a.PremiumThreshold) {
		errs = append(errs, "analysis.premium_threshold must be >= 0")
	}
	if a.MaxPrice <= 0 {
		errs = append(errs, "analysis.max_price must be > 0")
	}
	if a.MaxListings < 0 {
		errs = append(errs, "analysis.max_listings must be >= 0")
	}
	if a.MinClusterListings < 1 {
		errs = append(errs, "analysis.min_cluster_listings must be >= 1")
	}
	if a.TopNeighborhoods < 0 {
		errs = append(errs, "analysis.top_neighborhoods must be >= 0")
	}
	w := a.Weights
	if w.Price < 0 || w.Location < 0 || w.Demand < 0 {
		errs = append(errs, "analysis.weights values must be >= 0")
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
