package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"laddersim/internal/config"
	"laddersim/internal/engine"
	"laddersim/internal/store"
	"laddersim/internal/util"
)

// rootConfig carries the global flags shared by every subcommand.
type rootConfig struct {
	cfgPath  string
	logLevel string
}

func newRootCmd() *cobra.Command {
	rc := &rootConfig{}

	cmd := &cobra.Command{
		Use:   "laddersim",
		Short: "Limit-up ladder trading simulator for A-shares",
		Long: `laddersim replays historical limit-up ladder data day by day and
simulates a cash account trading against it.

It provides tools for:
  - Serving the simulator over HTTP
  - Playing the simulation in the terminal
  - Querying the historical ladder table
  - Importing kline exports into the columnar store`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&rc.cfgPath, "config", "c", os.Getenv("LADDERSIM_CONFIG"), "path to YAML config (env LADDERSIM_CONFIG)")
	cmd.PersistentFlags().StringVar(&rc.logLevel, "log-level", "", "override logging.level")

	cmd.AddCommand(
		newServeCmd(rc),
		newTUICmd(rc),
		newLadderCmd(rc),
		newSimCmd(rc),
		newImportCmd(rc),
		newVersionCmd(),
	)
	return cmd
}

// load reads the configuration and builds the stderr logger.
func (rc *rootConfig) load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(rc.cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if rc.logLevel != "" {
		cfg.Logging.Level = rc.logLevel
	}
	return cfg, util.NewLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stderr), nil
}

// ---------------------------------------------------------------------------
// Session
// ---------------------------------------------------------------------------

// session is a loaded engine bound to its snapshot store.
type session struct {
	eng   *engine.Engine
	snaps store.SnapshotStore
	log   *slog.Logger
}

// openSession loads the historical data and resumes the saved snapshot, if
// any.
func openSession(ctx context.Context, cfg *config.Config, log *slog.Logger) (*session, error) {
	eng, err := engine.Initialize(ctx, store.NewSource(cfg), cfg, engine.WithLogger(log))
	if err != nil {
		return nil, err
	}

	snaps, err := store.OpenSnapshotStore(cfg.Storage)
	if err != nil {
		return nil, err
	}

	snap, err := snaps.Load(ctx)
	switch {
	case errors.Is(err, store.ErrNoSnapshot):
		log.Info("starting new session", "date", eng.CurrentDay())
	case err != nil:
		snaps.Close()
		return nil, fmt.Errorf("loading snapshot: %w", err)
	default:
		if err := eng.Restore(snap); err != nil {
			snaps.Close()
			return nil, fmt.Errorf("restoring snapshot: %w", err)
		}
		log.Info("resumed session", "date", eng.CurrentDay())
	}

	return &session{eng: eng, snaps: snaps, log: log}, nil
}

func (s *session) save(ctx context.Context) error {
	if err := s.snaps.Save(ctx, s.eng.Snapshot()); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

func (s *session) Close() error { return s.snaps.Close() }
