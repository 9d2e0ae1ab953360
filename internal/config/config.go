// Package config loads taxon-cli settings from config.yaml, .env files and
// TAXON_* environment variables.
package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Search  SearchConfig  `yaml:"search" mapstructure:"search"`
	Handoff HandoffConfig `yaml:"handoff" mapstructure:"handoff"`
	Dataset DatasetConfig `yaml:"dataset" mapstructure:"dataset"`
	Report  ReportConfig  `yaml:"report" mapstructure:"report"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// SearchConfig configures the taxonomy search provider.
type SearchConfig struct {
	// Provider is "inat" for the live API or "fixture" for recorded results.
	Provider    string        `yaml:"provider" mapstructure:"provider"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	SiteURL     string        `yaml:"site_url" mapstructure:"site_url"`
	Locale      string        `yaml:"locale" mapstructure:"locale"`
	PerPage     int           `yaml:"per_page" mapstructure:"per_page"`
	TimeoutSecs int           `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64       `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	FixturePath string        `yaml:"fixture_path" mapstructure:"fixture_path"`
	Boilerplate string        `yaml:"boilerplate" mapstructure:"boilerplate"`
	Retry       RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Circuit     CircuitConfig `yaml:"circuit" mapstructure:"circuit"`
}

// RetryConfig configures retries of transient search failures.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// CircuitConfig configures the search circuit breaker.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	CooldownSecs     int `yaml:"cooldown_secs" mapstructure:"cooldown_secs"`
}

// HandoffConfig configures the hand-off queue.
type HandoffConfig struct {
	SiteURL      string `yaml:"site_url" mapstructure:"site_url"`
	NoteTemplate string `yaml:"note_template" mapstructure:"note_template"`
}

// DatasetConfig points at the default dataset directory.
type DatasetConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ReportConfig configures batch report output.
type ReportConfig struct {
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment. Variables in .env and
// .env.local are exported first so TAXON_* keys there apply too.
func Load() (*Config, error) {
	for _, f := range []string{".env", ".env.local"} {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, eris.Wrapf(err, "config: load %s", f)
		}
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TAXON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "taxon.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("search.provider", "inat")
	v.SetDefault("search.base_url", "https://api.inaturalist.org/v1")
	v.SetDefault("search.site_url", "https://www.inaturalist.org")
	v.SetDefault("search.locale", "sk")
	v.SetDefault("search.per_page", 10)
	v.SetDefault("search.timeout_secs", 20)
	v.SetDefault("search.rate_per_sec", 1.0)
	v.SetDefault("search.boilerplate", "Zobraziť")
	v.SetDefault("search.fixture_path", "")
	v.SetDefault("search.retry.max_attempts", 3)
	v.SetDefault("search.retry.initial_backoff_ms", 500)
	v.SetDefault("search.retry.max_backoff_ms", 10000)
	v.SetDefault("search.circuit.failure_threshold", 5)
	v.SetDefault("search.circuit.cooldown_secs", 30)
	v.SetDefault("handoff.site_url", "https://www.inaturalist.org")
	v.SetDefault("handoff.note_template", "{{.ScientificName}}")
	v.SetDefault("dataset.dir", "dataset")
	v.SetDefault("report.format", "yaml")

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

// Validate checks the settings a command mode needs. Modes: "reconcile",
// "serve", "store".
func (c *Config) Validate(mode string) error {
	var errs []string
	require := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, msg)
		}
	}

	checkStore := func() {
		require(c.Store.Driver == "sqlite" || c.Store.Driver == "postgres",
			`store.driver must be "sqlite" or "postgres"`)
		require(c.Store.DatabaseURL != "", "store.database_url is required")
	}
	checkSearch := func() {
		switch c.Search.Provider {
		case "inat":
			require(c.Search.BaseURL != "", "search.base_url is required")
			require(c.Search.RatePerSec > 0, "search.rate_per_sec must be positive")
		case "fixture":
			require(c.Search.FixturePath != "", "search.fixture_path is required for the fixture provider")
		default:
			errs = append(errs, `search.provider must be "inat" or "fixture"`)
		}
		require(c.Search.Retry.MaxAttempts >= 1, "search.retry.max_attempts must be at least 1")
	}

	switch mode {
	case "reconcile":
		checkStore()
		checkSearch()
		require(c.Report.Format == "yaml" || c.Report.Format == "json",
			`report.format must be "yaml" or "json"`)
	case "serve":
		checkStore()
		checkSearch()
		require(c.Server.Port > 0 && c.Server.Port <= 65535, "server.port must be between 1 and 65535")
	case "store":
		checkStore()
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
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
