// Package cn imports A-share kline and ladder exports into the columnar
// store.
package cn

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"laddersim/internal/domain"
	"laddersim/internal/gather"
	"laddersim/internal/store"
)

// Compile-time interface check.
var _ gather.Gatherer = (*KlineImporter)(nil)

// ---------------------------------------------------------------------------
// KlineImporter
// ---------------------------------------------------------------------------

// ImportStats summarizes one import run.
type ImportStats struct {
	Instruments int
	Bars        int
	LadderRows  int
}

// KlineImporter copies a kline export (and optionally a ladder export) into
// a BarStore and LadderStore.
type KlineImporter struct {
	KlinePath  string
	LadderPath string
	Range      gather.DateRange
	Workers    int

	bars    store.BarStore
	ladders store.LadderStore
	log     *slog.Logger
	stats   ImportStats
}

// NewKlineImporter creates an importer. ladders may be nil when LadderPath
// is empty.
func NewKlineImporter(klinePath, ladderPath string, bars store.BarStore, ladders store.LadderStore, log *slog.Logger) *KlineImporter {
	if log == nil {
		log = slog.Default()
	}
	return &KlineImporter{
		KlinePath:  klinePath,
		LadderPath: ladderPath,
		Workers:    4,
		bars:       bars,
		ladders:    ladders,
		log:        log,
	}
}

// Name returns the gatherer identifier.
func (g *KlineImporter) Name() string { return "cn-kline" }

// Stats returns the counts of the last completed run.
func (g *KlineImporter) Stats() ImportStats { return g.stats }

// Run imports the kline export, then the ladder export if configured.
func (g *KlineImporter) Run(ctx context.Context) error {
	stats, err := g.Import(ctx)
	if err != nil {
		return err
	}
	g.stats = stats
	return nil
}

// Import performs the import and returns what was written.
func (g *KlineImporter) Import(ctx context.Context) (ImportStats, error) {
	var stats ImportStats
	if g.bars == nil {
		return stats, fmt.Errorf("%s: no bar store", g.Name())
	}

	set, err := store.LoadKlineJSON(g.KlinePath)
	if err != nil {
		return stats, err
	}
	codes := set.Codes()
	g.log.Info("importing kline data", "path", g.KlinePath, "instruments", len(codes))

	var written atomic.Int64
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(g.Workers, 1))
	for _, code := range codes {
		ser, _ := set.Series(code)
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			bars := make([]domain.DailyBar, 0, ser.Len())
			for _, b := range ser.Bars() {
				if g.Range.Contains(b.Date) {
					bars = append(bars, b)
				}
			}
			if len(bars) == 0 {
				return nil
			}
			if err := g.bars.WriteBars(ctx, ser.Instrument, bars); err != nil {
				return fmt.Errorf("writing bars for %s: %w", code, err)
			}
			written.Add(int64(len(bars)))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return stats, err
	}
	stats.Instruments = len(codes)
	stats.Bars = int(written.Load())

	if g.LadderPath != "" {
		if g.ladders == nil {
			return stats, fmt.Errorf("%s: ladder path set without a ladder store", g.Name())
		}
		feed, err := store.LoadLadderJSON(g.LadderPath)
		if err != nil {
			return stats, err
		}
		all := feed.Records()
		recs := all[:0]
		for _, r := range all {
			if g.Range.Contains(r.Date) {
				recs = append(recs, r)
			}
		}
		if err := g.ladders.WriteLadder(ctx, recs); err != nil {
			return stats, fmt.Errorf("writing ladder: %w", err)
		}
		stats.LadderRows = len(recs)
	}

	g.log.Info("import complete",
		"instruments", stats.Instruments,
		"bars", stats.Bars,
		"ladder_rows", stats.LadderRows,
	)
	return stats, nil
}
