package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the berza service.
type Config struct {
	Storage  Storage        `yaml:"storage"`
	Server   Server         `yaml:"server"`
	MSE      MSE            `yaml:"mse"`
	Gather   GatherConfig   `yaml:"gather"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Logging  Logging        `yaml:"logging"`
}

// Storage holds paths for data persistence.
type Storage struct {
	SQLitePath string `yaml:"sqlite_path"`
	ExportDir  string `yaml:"export_dir"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// MSE holds endpoints and limits for the exchange website.
type MSE struct {
	BaseURL         string   `yaml:"base_url"`
	DiscoveryURL    string   `yaml:"discovery_url"`
	ListingURLs     []string `yaml:"listing_urls"`
	TimeoutSec      int      `yaml:"timeout_sec"`
	RateLimitPerMin int      `yaml:"rate_limit_per_min"`
}

// GatherConfig controls the batch update pipeline.
type GatherConfig struct {
	MaxWorkers int `yaml:"max_workers"`
}

// ScheduleConfig holds cron expressions for the background jobs. Empty
// expressions disable the corresponding job.
type ScheduleConfig struct {
	UpdateCron  string `yaml:"update_cron"`
	AnalyzeCron string `yaml:"analyze_cron"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, applies environment variable overrides, and fills in
// defaults for anything left unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BERZA_SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("BERZA_EXPORT_DIR"); v != "" {
		cfg.Storage.ExportDir = v
	}
	if v := os.Getenv("BERZA_MSE_BASE_URL"); v != "" {
		cfg.MSE.BaseURL = v
	}
	if v := os.Getenv("BERZA_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// applyDefaults fills zero-valued fields with working defaults so a minimal
// config file is enough to run.
func applyDefaults(cfg *Config) {
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "mse_stocks.db"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.MSE.BaseURL == "" {
		cfg.MSE.BaseURL = "https://www.mse.mk/en"
	}
	if cfg.MSE.DiscoveryURL == "" {
		cfg.MSE.DiscoveryURL = cfg.MSE.BaseURL + "/stats/symbolhistory/ADIN"
	}
	if cfg.MSE.TimeoutSec == 0 {
		cfg.MSE.TimeoutSec = 30
	}
	if cfg.MSE.RateLimitPerMin == 0 {
		cfg.MSE.RateLimitPerMin = 120
	}
	if cfg.Gather.MaxWorkers == 0 {
		cfg.Gather.MaxWorkers = 200
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}
