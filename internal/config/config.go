package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"tokensight/internal/domain"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for tokensight.
type Config struct {
	Storage   Storage         `yaml:"storage"`
	Server    Server          `yaml:"server"`
	Providers Providers       `yaml:"providers"`
	Logging   Logging         `yaml:"logging"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Tuner     TunerConfig     `yaml:"tuner"`
	Watchlist WatchlistConfig `yaml:"watchlist"`
}

// Storage holds paths for the candle cache.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Providers holds credentials and endpoints for the OHLCV data providers.
type Providers struct {
	Default string        `yaml:"default"`
	Moralis MoralisConfig `yaml:"moralis"`
	Syve    SyveConfig    `yaml:"syve"`
	Alpaca  AlpacaConfig  `yaml:"alpaca"`
}

// MoralisConfig configures the Moralis OHLCV endpoint.
type MoralisConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// SyveConfig configures the Syve historical price endpoint.
type SyveConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// AlpacaConfig holds credentials for the Alpaca crypto market-data API.
type AlpacaConfig struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// FetchConfig controls provider request behaviour.
type FetchConfig struct {
	RateLimitPerMin int  `yaml:"rate_limit_per_min"`
	MaxAttempts     int  `yaml:"max_attempts"`
	Cache           bool `yaml:"cache"`
}

// TunerConfig defines the grid-search space and execution parameters. The
// default values mirror the stock grid; they exist so operators can narrow
// or widen the search without a rebuild.
type TunerConfig struct {
	Workers        int       `yaml:"workers"`
	Steepness      float64   `yaml:"steepness"`
	Windows        IntSpan   `yaml:"windows"`
	BuyThresholds  FloatSpan `yaml:"buy_thresholds"`
	SellThresholds FloatSpan `yaml:"sell_thresholds"`
}

// IntSpan is an inclusive integer range.
type IntSpan struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// FloatSpan is an inclusive arithmetic sequence.
type FloatSpan struct {
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
	Step float64 `yaml:"step"`
}

// WatchlistConfig drives the scheduled refresh of tuned symbols.
type WatchlistConfig struct {
	Schedule string       `yaml:"schedule"`
	Entries  []WatchEntry `yaml:"entries"`
}

// WatchEntry is one symbol the scheduler keeps tuned.
type WatchEntry struct {
	Provider     string `yaml:"provider"`
	Symbol       string `yaml:"symbol"`
	Chain        string `yaml:"chain"`
	Interval     string `yaml:"interval"`
	LookbackDays int    `yaml:"lookback_days"`
}

// Grid builds the tuner search space from configuration, falling back to the
// stock grid when a dimension is left unset.
func (t TunerConfig) Grid() domain.Grid {
	g := domain.DefaultGrid()
	if t.Windows.Max >= t.Windows.Min && t.Windows.Min >= 1 {
		g.Windows = domain.IntRange(t.Windows.Min, t.Windows.Max)
	}
	if t.BuyThresholds.Step > 0 {
		g.BuyThresholds = domain.FloatRange(t.BuyThresholds.Min, t.BuyThresholds.Max, t.BuyThresholds.Step)
	}
	if t.SellThresholds.Step > 0 {
		g.SellThresholds = domain.FloatRange(t.SellThresholds.Min, t.SellThresholds.Max, t.SellThresholds.Step)
	}
	return g
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, and then applies environment variable overrides.
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

// applyDefaults fills the fields a minimal config file may omit.
func applyDefaults(cfg *Config) {
	if cfg.Providers.Moralis.BaseURL == "" {
		cfg.Providers.Moralis.BaseURL = "https://api.moralis.io/v1/ohlcv"
	}
	if cfg.Providers.Syve.BaseURL == "" {
		cfg.Providers.Syve.BaseURL = "https://api.syve.ai/v1/price/historical/ohlc"
	}
	if cfg.Providers.Default == "" {
		cfg.Providers.Default = "syve"
	}
	if cfg.Fetch.RateLimitPerMin == 0 {
		cfg.Fetch.RateLimitPerMin = 60
	}
	if cfg.Fetch.MaxAttempts == 0 {
		cfg.Fetch.MaxAttempts = 3
	}
	if cfg.Tuner.Workers == 0 {
		cfg.Tuner.Workers = 4
	}
	if cfg.Tuner.Steepness == 0 {
		cfg.Tuner.Steepness = 10
	}
	if cfg.Watchlist.Schedule == "" {
		cfg.Watchlist.Schedule = "@every 1h"
	}
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("MORALIS_API_KEY"); v != "" {
		cfg.Providers.Moralis.APIKey = v
	}

	if v := os.Getenv("SYVE_API_KEY"); v != "" {
		cfg.Providers.Syve.APIKey = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Providers.Alpaca.APIKey = v
	}

	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Providers.Alpaca.APISecret = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Canonical Alpaca env vars take priority over the generic ones.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Providers.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Providers.Alpaca.APISecret = v
	}
}
