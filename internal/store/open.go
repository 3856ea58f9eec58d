package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"laddersim/internal/config"
	"laddersim/internal/ladder"
	"laddersim/internal/market"
)

// Source supplies the simulator's historical inputs.
type Source interface {
	LoadSeries(ctx context.Context) (market.Provider, error)
	LoadLadder(ctx context.Context) (*ladder.Feed, error)
}

var (
	_ Source = JSONSource{}
	_ Source = ParquetSource{}
)

// NewSource returns the input source selected by the configuration.
func NewSource(cfg *config.Config) Source {
	if cfg.Simulation.Source == config.SourceParquet {
		return ParquetSource{Store: NewParquetStore(cfg.Storage.DataDir)}
	}
	return JSONSource{KlinePath: cfg.Simulation.KlineFile, LadderPath: cfg.Simulation.LadderFile}
}

// OpenSnapshotStore opens the snapshot backend selected by the configuration,
// creating its parent directory if needed.
func OpenSnapshotStore(s config.Storage) (SnapshotStore, error) {
	switch s.SnapshotBackend {
	case config.BackendFile:
		if err := os.MkdirAll(filepath.Dir(s.SnapshotFile), 0o755); err != nil {
			return nil, fmt.Errorf("creating snapshot directory: %w", err)
		}
		return NewFileSnapshotStore(s.SnapshotFile), nil
	case config.BackendSQLite, "":
		if err := os.MkdirAll(filepath.Dir(s.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		return NewSQLiteSnapshotStore(s.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", s.SnapshotBackend)
	}
}
