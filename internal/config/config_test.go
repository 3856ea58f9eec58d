package config

import (
	"os"
	"testing"
	"time"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp(t.TempDir(), "laddersim-config-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	if err := tmpFile.Close(); err != nil {
		t.Fatalf("failed to close temp file: %v", err)
	}
	return tmpFile.Name()
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATA_DIR", "LADDERSIM_DATA_DIR", "SQLITE_PATH", "LADDERSIM_DB",
		"LADDERSIM_SNAPSHOT_BACKEND", "LADDERSIM_SOURCE", "LADDERSIM_KLINE_FILE",
		"LADDERSIM_LADDER_FILE", "LADDERSIM_PORT", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeTemp(t, `
storage:
  data_dir: "/tmp/laddersim/data"
  sqlite_path: "/tmp/laddersim/laddersim.db"
  snapshot_backend: "file"
  snapshot_file: "/tmp/laddersim/snap.json"
server:
  host: "0.0.0.0"
  port: 9000
logging:
  level: "debug"
  format: "json"
trading:
  initial_fund: 200000
  min_commission: 1
simulation:
  source: "parquet"
  load_timeout: 30s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	// -- Storage --
	if cfg.Storage.DataDir != "/tmp/laddersim/data" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Storage.SnapshotBackend != BackendFile {
		t.Errorf("Storage.SnapshotBackend = %q", cfg.Storage.SnapshotBackend)
	}

	// -- Server --
	if got := cfg.Server.Addr(); got != "0.0.0.0:9000" {
		t.Errorf("Server.Addr() = %q", got)
	}

	// -- Logging --
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}

	// -- Trading: overridden and defaulted fields --
	if cfg.Trading.InitialFund != 200000 {
		t.Errorf("Trading.InitialFund = %v, want 200000", cfg.Trading.InitialFund)
	}
	if cfg.Trading.MinCommission != 1 {
		t.Errorf("Trading.MinCommission = %v, want 1", cfg.Trading.MinCommission)
	}
	if cfg.Trading.CommissionRate != 0.0003 {
		t.Errorf("Trading.CommissionRate = %v, want default 0.0003", cfg.Trading.CommissionRate)
	}
	if cfg.Trading.Unit != 100 {
		t.Errorf("Trading.Unit = %d, want default 100", cfg.Trading.Unit)
	}

	// -- Simulation --
	if cfg.Simulation.Source != SourceParquet {
		t.Errorf("Simulation.Source = %q", cfg.Simulation.Source)
	}
	if cfg.Simulation.LoadTimeout != 30*time.Second {
		t.Errorf("Simulation.LoadTimeout = %v, want 30s", cfg.Simulation.LoadTimeout)
	}
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") returned error: %v", err)
	}
	def := Default()
	if cfg.Trading != def.Trading {
		t.Errorf("Trading = %+v, want defaults %+v", cfg.Trading, def.Trading)
	}
	if cfg.Simulation.LoadTimeout != 10*time.Second {
		t.Errorf("LoadTimeout = %v, want 10s", cfg.Simulation.LoadTimeout)
	}

	s := cfg.Trading.Fees()
	if s.StampTaxRate != 0.001 || s.MinCommission != 5 {
		t.Errorf("Fees() = %+v", s)
	}
	l := cfg.Trading.Limits()
	if l.Standard != 0.10 || l.ST != 0.05 {
		t.Errorf("Limits() = %+v", l)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeTemp(t, `
storage:
  data_dir: "/original/data"
  sqlite_path: "/original/db"
`)

	t.Setenv("DATA_DIR", "/env/data")
	t.Setenv("LADDERSIM_DB", "/env/db")
	t.Setenv("LADDERSIM_PORT", "7070")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Storage.DataDir != "/env/data" {
		t.Errorf("Storage.DataDir = %q, want env override", cfg.Storage.DataDir)
	}
	if cfg.Storage.SQLitePath != "/env/db" {
		t.Errorf("Storage.SQLitePath = %q, want env override", cfg.Storage.SQLitePath)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}

	// The namespaced variable wins over the generic one.
	t.Setenv("LADDERSIM_DATA_DIR", "/namespaced")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Storage.DataDir != "/namespaced" {
		t.Errorf("Storage.DataDir = %q, want /namespaced", cfg.Storage.DataDir)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name string
		yaml string
	}{
		{"zero fund", "trading:\n  initial_fund: 0\n"},
		{"zero unit", "trading:\n  unit: 0\n"},
		{"negative fee", "trading:\n  stamp_tax_rate: -0.1\n"},
		{"bad backend", "storage:\n  snapshot_backend: redis\n"},
		{"bad source", "simulation:\n  source: csv\n"},
		{"bad timeout", "simulation:\n  load_timeout: 0s\n"},
	}
	for _, tt := range tests {
		if _, err := Load(writeTemp(t, tt.yaml)); err == nil {
			t.Errorf("%s: Load() succeeded, want error", tt.name)
		}
	}

	if _, err := Load("/nonexistent/laddersim.yaml"); err == nil {
		t.Error("Load of missing file succeeded, want error")
	}
}
