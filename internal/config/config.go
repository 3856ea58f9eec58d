package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"laddersim/internal/fees"
	"laddersim/internal/market"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for laddersim.
type Config struct {
	Storage    Storage          `yaml:"storage"`
	Server     Server           `yaml:"server"`
	Logging    Logging          `yaml:"logging"`
	Trading    TradingConfig    `yaml:"trading"`
	Simulation SimulationConfig `yaml:"simulation"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
	// SnapshotBackend selects where simulator state is saved: "sqlite" or "file".
	SnapshotBackend string `yaml:"snapshot_backend"`
	SnapshotFile    string `yaml:"snapshot_file"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns host:port.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TradingConfig holds the fixed market rules of the simulated account.
type TradingConfig struct {
	InitialFund    float64 `yaml:"initial_fund"`
	Unit           int64   `yaml:"unit"`
	CommissionRate float64 `yaml:"commission_rate"`
	MinCommission  float64 `yaml:"min_commission"`
	StampTaxRate   float64 `yaml:"stamp_tax_rate"`
	LimitUpRate    float64 `yaml:"limit_up_rate"`
	STLimitRate    float64 `yaml:"st_limit_rate"`
}

// Fees returns the fee schedule.
func (t TradingConfig) Fees() fees.Schedule {
	return fees.Schedule{
		CommissionRate: t.CommissionRate,
		MinCommission:  t.MinCommission,
		StampTaxRate:   t.StampTaxRate,
	}
}

// Limits returns the daily price-limit rates.
func (t TradingConfig) Limits() market.Limits {
	return market.Limits{Standard: t.LimitUpRate, ST: t.STLimitRate}
}

// SimulationConfig selects the historical inputs and how long to wait for them.
type SimulationConfig struct {
	// Source is "json" (kline + ladder exports) or "parquet" (Storage.DataDir).
	Source      string        `yaml:"source"`
	KlineFile   string        `yaml:"kline_file"`
	LadderFile  string        `yaml:"ladder_file"`
	LoadTimeout time.Duration `yaml:"load_timeout"`
	LoadRetries int           `yaml:"load_retries"`
}

// Snapshot backends and data sources.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"

	SourceJSON    = "json"
	SourceParquet = "parquet"
)

// Default returns the built-in configuration.
func Default() *Config {
	sched := fees.DefaultSchedule()
	limits := market.DefaultLimits()
	return &Config{
		Storage: Storage{
			DataDir:         "data",
			SQLitePath:      "data/laddersim.db",
			SnapshotBackend: BackendSQLite,
			SnapshotFile:    "data/snapshot.json",
		},
		Server:  Server{Host: "127.0.0.1", Port: 8080},
		Logging: Logging{Level: "info", Format: "text"},
		Trading: TradingConfig{
			InitialFund:    100000,
			Unit:           100,
			CommissionRate: sched.CommissionRate,
			MinCommission:  sched.MinCommission,
			StampTaxRate:   sched.StampTaxRate,
			LimitUpRate:    limits.Standard,
			STLimitRate:    limits.ST,
		},
		Simulation: SimulationConfig{
			Source:      SourceJSON,
			KlineFile:   "data/kline_data.js",
			LadderFile:  "data/ladder_data.js",
			LoadTimeout: 10 * time.Second,
			LoadRetries: 3,
		},
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path over the defaults,
// applies environment variable overrides, and validates the result. An empty
// path yields the defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	t := c.Trading
	switch {
	case t.InitialFund <= 0:
		return errors.New("trading.initial_fund must be positive")
	case t.Unit <= 0:
		return errors.New("trading.unit must be positive")
	case t.CommissionRate < 0 || t.MinCommission < 0 || t.StampTaxRate < 0:
		return errors.New("trading fee settings must not be negative")
	case t.LimitUpRate <= 0 || t.STLimitRate <= 0:
		return errors.New("trading limit rates must be positive")
	}

	switch c.Storage.SnapshotBackend {
	case BackendSQLite, BackendFile:
	default:
		return fmt.Errorf("storage.snapshot_backend %q: want %q or %q", c.Storage.SnapshotBackend, BackendSQLite, BackendFile)
	}

	switch c.Simulation.Source {
	case SourceJSON, SourceParquet:
	default:
		return fmt.Errorf("simulation.source %q: want %q or %q", c.Simulation.Source, SourceJSON, SourceParquet)
	}
	if c.Simulation.LoadTimeout <= 0 {
		return errors.New("simulation.load_timeout must be positive")
	}
	return nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("LADDERSIM_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("LADDERSIM_DB"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("LADDERSIM_SNAPSHOT_BACKEND"); v != "" {
		cfg.Storage.SnapshotBackend = v
	}

	if v := os.Getenv("LADDERSIM_SOURCE"); v != "" {
		cfg.Simulation.Source = v
	}
	if v := os.Getenv("LADDERSIM_KLINE_FILE"); v != "" {
		cfg.Simulation.KlineFile = v
	}
	if v := os.Getenv("LADDERSIM_LADDER_FILE"); v != "" {
		cfg.Simulation.LadderFile = v
	}

	if v := os.Getenv("LADDERSIM_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
