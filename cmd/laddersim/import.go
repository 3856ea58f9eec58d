package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"laddersim/internal/gather"
	"laddersim/internal/gather/cn"
	"laddersim/internal/store"
)

func newImportCmd(rc *rootConfig) *cobra.Command {
	var (
		klinePath, ladderPath string
		start, end            string
		workers               int
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import kline and ladder exports into the parquet store",
		Long: `Import the JSON (or JS-wrapped) kline export, and optionally the ladder
export, into the parquet store under storage.data_dir. Set
simulation.source to "parquet" to run the simulator from the store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := rc.load()
			if err != nil {
				return err
			}
			if klinePath == "" {
				klinePath = cfg.Simulation.KlineFile
			}

			var rng gather.DateRange
			if start != "" {
				if rng.Start, err = time.Parse(time.DateOnly, start); err != nil {
					return fmt.Errorf("--start: %w", err)
				}
			}
			if end != "" {
				if rng.End, err = time.Parse(time.DateOnly, end); err != nil {
					return fmt.Errorf("--end: %w", err)
				}
			}

			ps := store.NewParquetStore(cfg.Storage.DataDir)
			imp := cn.NewKlineImporter(klinePath, ladderPath, ps, ps, logger)
			imp.Range = rng
			imp.Workers = workers

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			logger.Info("starting gatherer", "name", imp.Name())
			if err := imp.Run(ctx); err != nil {
				return err
			}
			st := imp.Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s bars for %s instruments, %s ladder rows into %s\n",
				humanize.Comma(int64(st.Bars)), humanize.Comma(int64(st.Instruments)),
				humanize.Comma(int64(st.LadderRows)), cfg.Storage.DataDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&klinePath, "kline", "", "kline export (default simulation.kline_file)")
	cmd.Flags().StringVar(&ladderPath, "ladder", "", "ladder export to import as the ladder table")
	cmd.Flags().StringVar(&start, "start", "", "first day to import (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "last day to import (YYYY-MM-DD)")
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent instrument writers")
	return cmd
}
