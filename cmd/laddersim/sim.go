package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"laddersim/internal/domain"
	"laddersim/internal/engine"
	"laddersim/internal/simapi"
	"laddersim/internal/tui"
	"laddersim/pkg/laddersim"
)

// simFlags selects where sim commands run.
type simFlags struct {
	server string
}

func newSimCmd(rc *rootConfig) *cobra.Command {
	sf := &simFlags{}

	cmd := &cobra.Command{
		Use:   "sim",
		Short: "Drive the simulation one command at a time",
		Long: `Drive the simulation one command at a time.

Commands run against the saved local session, or against a running
laddersim server when --server is set.

Examples:
  laddersim sim status
  laddersim sim cond 600001 100
  laddersim sim next
  laddersim sim sell 600001`,
	}
	cmd.PersistentFlags().StringVar(&sf.server, "server", os.Getenv("LADDERSIM_SERVER"), "laddersim server URL (env LADDERSIM_SERVER)")

	cmd.AddCommand(
		newSimStatusCmd(rc, sf),
		newSimBuyCmd(rc, sf),
		newSimCondCmd(rc, sf),
		newSimSellCmd(rc, sf),
		newSimCancelCmd(rc, sf),
		newSimAdvanceCmd(rc, sf),
		newSimStepCmd(rc, sf, "next", "Move to the next trading day", 1),
		newSimStepCmd(rc, sf, "prev", "Move back to the previous trading day", -1),
		newSimSummaryCmd(rc, sf),
		newSimResetCmd(rc, sf),
	)
	return cmd
}

// run opens the backend, calls fn and releases the backend.
func (sf *simFlags) run(ctx context.Context, rc *rootConfig, fn func(simBackend) error) error {
	if sf.server != "" {
		return fn(laddersim.NewClient(sf.server))
	}
	cfg, logger, err := rc.load()
	if err != nil {
		return err
	}
	sess, err := openSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer sess.Close()
	return fn(&localBackend{sess: sess})
}

func parsePrice(s string) (float64, error) {
	p, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("price %q: %w", s, err)
	}
	return p, nil
}

func parseQty(s string) (int64, error) {
	q, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("quantity %q: %w", s, err)
	}
	return q, nil
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

func newSimStatusCmd(rc *rootConfig, sf *simFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the account, holdings and next-day actions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sf.run(cmd.Context(), rc, func(b simBackend) error {
				st, err := b.State(cmd.Context())
				if err != nil {
					return err
				}
				printState(cmd.OutOrStdout(), st)
				return nil
			})
		},
	}
}

func newSimBuyCmd(rc *rootConfig, sf *simFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "buy <code> <price> <qty>",
		Short: "Place a buy that fills at the next day's open",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			price, err := parsePrice(args[1])
			if err != nil {
				return err
			}
			qty, err := parseQty(args[2])
			if err != nil {
				return err
			}
			return sf.run(cmd.Context(), rc, func(b simBackend) error {
				t, err := b.PlaceDeferredBuy(cmd.Context(), args[0], price, qty)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "buy %s %s x%s reserved %s, settles %s (id %s)\n",
					t.Code, t.Name, tui.FormatQty(t.Quantity), tui.FormatMoney(t.Amount), t.Date, t.ID)
				return nil
			})
		},
	}
}

func newSimCondCmd(rc *rootConfig, sf *simFlags) *cobra.Command {
	var trigger float64
	cmd := &cobra.Command{
		Use:   "cond <code> <qty>",
		Short: "Place a next-day conditional buy",
		Long: `Place a conditional buy for the next trading day. It fills at the
trigger price when the day's high reaches it and expires otherwise. The
trigger defaults to the stock's limit-up price.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := parseQty(args[1])
			if err != nil {
				return err
			}
			return sf.run(cmd.Context(), rc, func(b simBackend) error {
				o, err := b.PlaceConditionalOrder(cmd.Context(), args[0], trigger, qty)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "conditional buy %s %s x%s at %s on %s (id %s)\n",
					o.Code, o.Name, tui.FormatQty(o.Quantity), tui.FormatPrice(o.TriggerPrice), o.Date, o.ID)
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&trigger, "trigger", 0, "trigger price (default limit-up price)")
	return cmd
}

func newSimSellCmd(rc *rootConfig, sf *simFlags) *cobra.Command {
	var price float64
	cmd := &cobra.Command{
		Use:   "sell <code> [qty]",
		Short: "Sell shares; without qty the whole position is sold at the close",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var qty int64
			if len(args) == 2 {
				var err error
				if qty, err = parseQty(args[1]); err != nil {
					return err
				}
				if price <= 0 {
					return fmt.Errorf("--price is required when selling a quantity")
				}
			}
			return sf.run(cmd.Context(), rc, func(b simBackend) error {
				t, err := b.Sell(cmd.Context(), args[0], price, qty)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "sold %s %s x%s at %s, net %s, profit %s\n",
					t.Code, t.Name, tui.FormatQty(t.Quantity), tui.FormatPrice(t.Price),
					tui.FormatMoney(t.NetAmount), tui.FormatMoney(t.NetAmount-t.PositionCost))
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&price, "price", 0, "sell price")
	return cmd
}

func newSimCancelCmd(rc *rootConfig, sf *simFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <order-id>",
		Short: "Cancel a pending conditional order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sf.run(cmd.Context(), rc, func(b simBackend) error {
				if err := b.Cancel(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cancelled %s\n", args[0])
				return nil
			})
		},
	}
}

func newSimAdvanceCmd(rc *rootConfig, sf *simFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "advance <YYYY-MM-DD>",
		Short: "Move to a trading day, settling everything due on the way",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sf.run(cmd.Context(), rc, func(b simBackend) error {
				resp, err := b.AdvanceTo(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printAdvance(cmd.OutOrStdout(), resp)
				return nil
			})
		},
	}
}

func newSimStepCmd(rc *rootConfig, sf *simFlags, use, short string, step int) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sf.run(cmd.Context(), rc, func(b simBackend) error {
				resp, err := b.Step(cmd.Context(), step)
				if err != nil {
					return err
				}
				printAdvance(cmd.OutOrStdout(), resp)
				return nil
			})
		},
	}
}

func newSimSummaryCmd(rc *rootConfig, sf *simFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show realized trading performance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sf.run(cmd.Context(), rc, func(b simBackend) error {
				s, err := b.Summary(cmd.Context())
				if err != nil {
					return err
				}
				printSummary(cmd.OutOrStdout(), s)
				return nil
			})
		},
	}
}

func newSimResetCmd(rc *rootConfig, sf *simFlags) *cobra.Command {
	var export string
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Start over from the initial fund",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sf.run(cmd.Context(), rc, func(b simBackend) error {
				exp, err := b.Reset(cmd.Context())
				if err != nil {
					return err
				}
				if export != "" {
					data, err := json.MarshalIndent(exp, "", "  ")
					if err != nil {
						return err
					}
					if err := os.WriteFile(export, data, 0o644); err != nil {
						return fmt.Errorf("writing export: %w", err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "archived %d trades to %s\n", len(exp.Trades), export)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "simulation reset")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&export, "export", "", "write the archived history to this JSON file")
	return cmd
}

// ---------------------------------------------------------------------------
// Output
// ---------------------------------------------------------------------------

func printState(w io.Writer, st *simapi.StateResponse) {
	a := st.Account
	renderTitle(w, "%s  total %s (%s)", st.CurrentDate, tui.FormatMoney(a.TotalAssets), tui.FormatPct(a.TotalReturnPct))
	renderTable(w, []string{"Cash", "Frozen", "Spendable", "Positions"}, [][]string{{
		tui.FormatMoney(a.Cash), tui.FormatMoney(a.Frozen),
		tui.FormatMoney(a.Spendable), tui.FormatMoney(a.PositionValue),
	}})

	if len(st.Holdings) > 0 {
		rows := make([][]string, 0, len(st.Holdings))
		for _, h := range st.Holdings {
			sellable := "yes"
			if !h.Sellable {
				sellable = fmt.Sprintf("in %dd", h.WaitDays)
			}
			rows = append(rows, []string{
				h.Code, h.Name, tui.FormatQty(h.Quantity), tui.FormatPrice(h.Cost), tui.FormatPrice(h.Price),
				tui.FormatMoney(h.PnL), tui.FormatPct(h.PnLPct), sellable,
			})
		}
		renderTable(w, []string{"Code", "Name", "Qty", "Cost", "Price", "P&L", "P&L %", "Sellable"}, rows)
	}

	if st.NextDate == "" {
		fmt.Fprintln(w, "last trading day reached")
		return
	}
	var rows [][]string
	for _, t := range st.Pending.Trades {
		rows = append(rows, []string{t.ID, string(t.Type), t.Code, t.Name, tui.FormatQty(t.Quantity), tui.FormatPrice(t.Price)})
	}
	for _, o := range st.Pending.Orders {
		rows = append(rows, []string{o.ID, "COND", o.Code, o.Name, tui.FormatQty(o.Quantity), tui.FormatPrice(o.TriggerPrice)})
	}
	renderTitle(w, "Next day %s", st.NextDate)
	if len(rows) == 0 {
		fmt.Fprintln(w, "nothing pending")
		return
	}
	renderTable(w, []string{"ID", "Type", "Code", "Name", "Qty", "Price"}, rows)
}

func printAdvance(w io.Writer, resp *simapi.AdvanceResponse) {
	fmt.Fprintf(w, "current day %s\n", resp.CurrentDate)
	for _, ev := range resp.Events {
		marker := " "
		if ev.Kind == domain.EventFailed {
			marker = "!"
		}
		fmt.Fprintf(w, "%s %s\n", marker, ev)
	}
}

func printSummary(w io.Writer, s engine.Summary) {
	renderTable(w, []string{"Trades", "Wins", "Losses", "Win rate", "Profit", "Fees"}, [][]string{{
		strconv.Itoa(s.TotalTrades), strconv.Itoa(s.ProfitTrades), strconv.Itoa(s.LossTrades),
		fmt.Sprintf("%.1f%%", s.WinRate), tui.FormatMoney(s.TotalProfit), tui.FormatMoney(s.TotalFees),
	}})
}
