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
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Areas   AreasConfig   `yaml:"areas" mapstructure:"areas"`
	Layers  LayersConfig  `yaml:"layers" mapstructure:"layers"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
	Clip    ClipConfig    `yaml:"clip" mapstructure:"clip"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AreasConfig configures the comparison area set.
type AreasConfig struct {
	Max int `yaml:"max" mapstructure:"max"`
}

// LayersConfig configures layer data loading.
type LayersConfig struct {
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`
}

// MetricsConfig configures the derived metric computations.
type MetricsConfig struct {
	IntersectionToleranceM float64            `yaml:"intersection_tolerance_m" mapstructure:"intersection_tolerance_m"`
	AccessibilityWeights   map[string]float64 `yaml:"accessibility_weights" mapstructure:"accessibility_weights"`
}

// ClipConfig configures the feature clipper.
type ClipConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("AREASCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "areascope.db")
	v.SetDefault("areas.max", 8)
	v.SetDefault("layers.data_dir", "data")
	v.SetDefault("metrics.intersection_tolerance_m", 10.0)
	v.SetDefault("clip.workers", 4)
	v.SetDefault("server.port", 8080)
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

// Validate checks the configuration for the given run mode. Modes map to
// top-level commands: "stats" and "area" only need a store, "serve"
// additionally needs a usable port.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		problems = append(problems, "store.driver must be sqlite or postgres")
	}
	if c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required")
	}
	if c.Areas.Max < 1 || c.Areas.Max > 32 {
		problems = append(problems, "areas.max must be between 1 and 32")
	}
	if c.Clip.Workers < 1 || c.Clip.Workers > 64 {
		problems = append(problems, "clip.workers must be between 1 and 64")
	}
	if c.Metrics.IntersectionToleranceM <= 0 {
		problems = append(problems, "metrics.intersection_tolerance_m must be > 0")
	}

	switch mode {
	case "stats", "area":
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
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
