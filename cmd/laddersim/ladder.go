package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"laddersim/internal/config"
	"laddersim/internal/domain"
	"laddersim/internal/ladder"
	"laddersim/internal/store"
	"laddersim/internal/tui"
)

// ladderFlags selects the ladder table to analyse.
type ladderFlags struct {
	file string
}

func newLadderCmd(rc *rootConfig) *cobra.Command {
	lf := &ladderFlags{}

	cmd := &cobra.Command{
		Use:   "ladder",
		Short: "Query the historical limit-up ladder table",
		Long: `Query the historical limit-up ladder table.

Subcommands:
  query   - Stocks on a day, optionally filtered by streak length
  search  - Streak history of a stock by code or name
  stats   - Overview of a date range
  trend   - Daily streak distribution of recent days
  export  - Write one day as CSV

Examples:
  laddersim ladder query --date 2024-01-03 --min 2
  laddersim ladder search 测试
  laddersim ladder export --date 2024-01-03 -o ladder.csv`,
	}
	cmd.PersistentFlags().StringVar(&lf.file, "file", "", "ladder parquet file (default from config)")

	cmd.AddCommand(
		newLadderQueryCmd(rc, lf),
		newLadderSearchCmd(rc, lf),
		newLadderStatsCmd(rc, lf),
		newLadderTrendCmd(rc, lf),
		newLadderExportCmd(rc, lf),
	)
	return cmd
}

// analyzer loads the ladder table named by --file or the configured source.
func (lf *ladderFlags) analyzer(ctx context.Context, rc *rootConfig) (*ladder.Analyzer, error) {
	if lf.file != "" {
		recs, err := store.ReadLadderFile(lf.file)
		if err != nil {
			return nil, err
		}
		return ladder.NewAnalyzer(recs), nil
	}

	cfg, _, err := rc.load()
	if err != nil {
		return nil, err
	}
	var recs []ladder.Record
	if cfg.Simulation.Source == config.SourceParquet {
		recs, err = store.NewParquetStore(cfg.Storage.DataDir).ReadLadder(ctx)
	} else {
		var feed *ladder.Feed
		feed, err = store.LoadLadderJSON(cfg.Simulation.LadderFile)
		if feed != nil {
			recs = feed.Records()
		}
	}
	if err != nil {
		return nil, err
	}
	return ladder.NewAnalyzer(recs), nil
}

// dayArg normalizes a --date value, defaulting to the latest day.
func dayArg(a *ladder.Analyzer, date string) (string, error) {
	if date == "" {
		if a.Latest() == "" {
			return "", fmt.Errorf("ladder table is empty")
		}
		return a.Latest(), nil
	}
	return domain.NormalizeDate(date)
}

func pctCell(p *float64) string {
	if p == nil {
		return "-"
	}
	return tui.FormatPct(*p)
}

func newLadderQueryCmd(rc *rootConfig, lf *ladderFlags) *cobra.Command {
	var (
		date             string
		minDays, maxDays int
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "List the limit-up stocks of a day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := lf.analyzer(cmd.Context(), rc)
			if err != nil {
				return err
			}
			day, err := dayArg(a, date)
			if err != nil {
				return err
			}
			recs := a.Query(day, minDays, maxDays)

			out := cmd.OutOrStdout()
			renderTitle(out, "%s  %d stocks", day, len(recs))
			rows := make([][]string, 0, len(recs))
			for _, r := range recs {
				rows = append(rows, []string{
					r.Symbol, r.Name, strconv.Itoa(r.Days), tui.FormatPrice(r.Close),
					r.BoardType, pctCell(r.NextDayOpenChangePct), strings.Join(r.Concepts, ","),
				})
			}
			renderTable(out, []string{"Code", "Name", "Days", "Close", "Board", "Next open", "Concepts"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "trading day (default latest)")
	cmd.Flags().IntVar(&minDays, "min", 0, "minimum streak length")
	cmd.Flags().IntVar(&maxDays, "max", 0, "maximum streak length")
	return cmd
}

func newLadderSearchCmd(rc *rootConfig, lf *ladderFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "search <code-or-name>",
		Short: "Show the streak history of a stock on the latest ladder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := lf.analyzer(cmd.Context(), rc)
			if err != nil {
				return err
			}
			res, ok := a.Search(args[0])
			if !ok {
				return fmt.Errorf("no stock on %s matches %q", a.Latest(), args[0])
			}

			out := cmd.OutOrStdout()
			renderTitle(out, "%s %s  %d limit-up days", res.Symbol, res.Name, len(res.History))
			rows := make([][]string, 0, len(res.History))
			for _, r := range res.History {
				rows = append(rows, []string{r.Date, strconv.Itoa(r.Days), tui.FormatPrice(r.Close), pctCell(r.NextDayOpenChangePct)})
			}
			renderTable(out, []string{"Date", "Days", "Close", "Next open"}, rows)
			return nil
		},
	}
}

func newLadderStatsCmd(rc *rootConfig, lf *ladderFlags) *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the ladder table over a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := lf.analyzer(cmd.Context(), rc)
			if err != nil {
				return err
			}
			for _, p := range []*string{&start, &end} {
				if *p == "" {
					continue
				}
				if *p, err = domain.NormalizeDate(*p); err != nil {
					return err
				}
			}
			st := a.Stats(start, end)

			out := cmd.OutOrStdout()
			renderTitle(out, "%s .. %s", st.First, st.Last)
			renderTable(out, []string{"Metric", "Value"}, [][]string{
				{"Records", humanize.Comma(int64(st.Records))},
				{"Stocks", humanize.Comma(int64(st.Stocks))},
				{"Next-day samples", humanize.Comma(int64(st.NextDay.Samples))},
				{"Next-day mean open", tui.FormatPct(st.NextDay.MeanPct)},
				{"Next-day up ratio", fmt.Sprintf("%.1f%%", st.NextDay.PositiveRatio*100)},
				{"Next-day max open", tui.FormatPct(st.NextDay.MaxPct)},
				{"Next-day min open", tui.FormatPct(st.NextDay.MinPct)},
			})

			rows := make([][]string, 0, len(st.ByDays))
			for _, c := range st.ByDays {
				rows = append(rows, []string{c.Label, humanize.Comma(int64(c.N))})
			}
			renderTable(out, []string{"Days", "Count"}, rows)

			rows = make([][]string, 0, len(st.ByBoard))
			for _, c := range st.ByBoard {
				label := c.Label
				if label == "" {
					label = "-"
				}
				rows = append(rows, []string{label, humanize.Comma(int64(c.N))})
			}
			renderTable(out, []string{"Board", "Count"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first day (inclusive)")
	cmd.Flags().StringVar(&end, "end", "", "last day (inclusive)")
	return cmd
}

func newLadderTrendCmd(rc *rootConfig, lf *ladderFlags) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Show the streak distribution of recent days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := lf.analyzer(cmd.Context(), rc)
			if err != nil {
				return err
			}
			trend := a.Trend(days)
			rows := make([][]string, 0, len(trend))
			for _, t := range trend {
				rows = append(rows, []string{
					t.Date, strconv.Itoa(t.Total), strconv.Itoa(t.First),
					strconv.Itoa(t.Second), strconv.Itoa(t.Third), strconv.Itoa(t.FourPlus),
				})
			}
			renderTable(cmd.OutOrStdout(), []string{"Date", "Total", "1", "2", "3", "4+"}, rows)
			return nil
		},
	}
	cmd.Flags().IntVarP(&days, "days", "n", 10, "number of recent days")
	return cmd
}

func newLadderExportCmd(rc *rootConfig, lf *ladderFlags) *cobra.Command {
	var date, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export one day of the ladder as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := lf.analyzer(cmd.Context(), rc)
			if err != nil {
				return err
			}
			day, err := dayArg(a, date)
			if err != nil {
				return err
			}
			if output == "" {
				output = "ladder_" + strings.ReplaceAll(day, "-", "") + ".csv"
			}

			f, err := os.Create(output)
			if err != nil {
				return err
			}
			n, err := a.ExportCSV(day, f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", n, output)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "trading day (default latest)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default ladder_<YYYYMMDD>.csv)")
	return cmd
}
