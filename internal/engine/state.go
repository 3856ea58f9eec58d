package engine

import (
	"encoding/json"
	"fmt"
	"io"

	"laddersim/internal/domain"
)

// Snapshot returns a deep copy of the simulator state for persistence.
func (e *Engine) Snapshot() *domain.Snapshot {
	snap := &domain.Snapshot{
		Account:         e.account.Clone(),
		Trades:          make([]*domain.Trade, len(e.trades)),
		ConditionOrders: make([]*domain.ConditionalOrder, len(e.orders)),
		CurrentDate:     e.current,
	}
	for i, t := range e.trades {
		cp := *t
		snap.Trades[i] = &cp
	}
	for i, o := range e.orders {
		cp := *o
		snap.ConditionOrders[i] = &cp
	}
	return snap
}

// Restore replaces the simulator state with snap. Dates are normalized; a
// current date outside the calendar falls back to the default day.
func (e *Engine) Restore(snap *domain.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("restore: nil snapshot")
	}

	acct := snap.Account.Clone()
	if acct.InitialFund <= 0 {
		acct.InitialFund = e.params.InitialFund
	}
	for code, p := range acct.Positions {
		if p == nil {
			delete(acct.Positions, code)
			continue
		}
		if p.Code == "" {
			p.Code = code
		}
		if p.Name == "" {
			if inst, ok := e.instrument(code); ok {
				p.Name = inst.Name
			}
		}
		if p.BuyDate != "" {
			d, err := domain.NormalizeDate(p.BuyDate)
			if err != nil {
				return fmt.Errorf("restore: position %s: %w", code, err)
			}
			p.BuyDate = d
		}
	}

	trades := make([]*domain.Trade, 0, len(snap.Trades))
	for _, t := range snap.Trades {
		if t == nil {
			continue
		}
		cp := *t
		if err := normalizeDates(&cp.Date, &cp.OrderDate); err != nil {
			return fmt.Errorf("restore: trade %s: %w", cp.ID, err)
		}
		trades = append(trades, &cp)
	}

	orders := make([]*domain.ConditionalOrder, 0, len(snap.ConditionOrders))
	for _, o := range snap.ConditionOrders {
		if o == nil {
			continue
		}
		cp := *o
		if err := normalizeDates(&cp.Date, &cp.OrderDate); err != nil {
			return fmt.Errorf("restore: order %s: %w", cp.ID, err)
		}
		orders = append(orders, &cp)
	}

	current := e.cal.Nearest(e.now())
	if snap.CurrentDate != "" {
		if d, err := domain.NormalizeDate(snap.CurrentDate); err == nil && e.cal.Contains(d) {
			current = d
		} else {
			e.log.Warn("snapshot date not in calendar, using default day", "date", snap.CurrentDate, "default", current)
		}
	}

	e.account = acct
	e.trades = trades
	e.orders = orders
	e.current = current
	return nil
}

func normalizeDates(dates ...*string) error {
	for _, d := range dates {
		if *d == "" {
			continue
		}
		n, err := domain.NormalizeDate(*d)
		if err != nil {
			return err
		}
		*d = n
	}
	return nil
}

// Export is the archive written by Reset.
type Export struct {
	Trades          []domain.Trade            `json:"trades"`
	ConditionOrders []domain.ConditionalOrder `json:"conditionOrders"`
	CurrentSummary  Summary                   `json:"currentSummary"`
}

// Export returns the ledger history and its realized summary.
func (e *Engine) Export() Export {
	trades := e.Trades(Filter{})
	exp := Export{
		Trades:          trades,
		ConditionOrders: e.Orders(Filter{}),
		CurrentSummary:  Summarize(trades),
	}
	if exp.Trades == nil {
		exp.Trades = []domain.Trade{}
	}
	if exp.ConditionOrders == nil {
		exp.ConditionOrders = []domain.ConditionalOrder{}
	}
	return exp
}

// Reset restores the initial account and clears the ledger. When w is not
// nil the history and its summary are written to it first; a write error
// leaves the state untouched.
func (e *Engine) Reset(w io.Writer) error {
	if w != nil {
		exp := e.Export()
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(exp); err != nil {
			return fmt.Errorf("exporting history: %w", err)
		}
	}

	e.account = domain.NewAccount(e.params.InitialFund)
	e.trades = nil
	e.orders = nil
	e.log.Info("simulation reset", "date", e.current)
	return nil
}
