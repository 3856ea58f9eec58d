package engine

import (
	"fmt"
	"math"

	"laddersim/internal/domain"
)

// epsilon absorbs float rounding in cash comparisons.
const epsilon = 1e-6

// checkQuantity enforces a positive multiple of the trading unit.
func (e *Engine) checkQuantity(qty int64) error {
	if qty <= 0 || qty%e.params.Unit != 0 {
		return fmt.Errorf("%w: quantity %d is not a positive multiple of %d", domain.ErrInvalidOrder, qty, e.params.Unit)
	}
	return nil
}

// checkBuy validates a buy instruction and returns the notional to reserve.
func (e *Engine) checkBuy(price float64, qty int64) (float64, error) {
	if !(price > 0) || math.IsInf(price, 0) {
		return 0, fmt.Errorf("%w: price %v must be positive", domain.ErrInvalidOrder, price)
	}
	if err := e.checkQuantity(qty); err != nil {
		return 0, err
	}
	notional := price * float64(qty)
	if spendable := e.account.Spendable(); notional > spendable+epsilon {
		return 0, fmt.Errorf("%w: notional %.2f exceeds available funds %.2f", domain.ErrInvalidOrder, notional, spendable)
	}
	return notional, nil
}

// checkSell validates a sell of qty shares of pos at price on the current day.
func (e *Engine) checkSell(pos *domain.Position, code string, price float64, qty int64) error {
	if !(price > 0) || math.IsInf(price, 0) {
		return fmt.Errorf("%w: price %v must be positive", domain.ErrInvalidOrder, price)
	}
	if err := e.checkQuantity(qty); err != nil {
		return err
	}
	if pos == nil {
		return fmt.Errorf("%w: no position in %s", domain.ErrInsufficientPosition, code)
	}
	if qty > pos.Quantity {
		return fmt.Errorf("%w: selling %d of %d shares in %s", domain.ErrInsufficientPosition, qty, pos.Quantity, code)
	}
	if !e.sellable(pos) {
		return fmt.Errorf("%w: %s acquired on %s", domain.ErrSettlementCycle, code, pos.BuyDate)
	}
	return nil
}

// sellable reports whether the position's acquisition day strictly precedes
// the current day in the trading calendar.
func (e *Engine) sellable(pos *domain.Position) bool {
	bi, bok := e.cal.Index(pos.BuyDate)
	ci, cok := e.cal.Index(e.current)
	if bok && cok {
		return bi < ci
	}
	// Canonical dates order lexically.
	return pos.BuyDate < e.current
}

// waitDays returns how many trading days remain until pos becomes sellable.
func (e *Engine) waitDays(pos *domain.Position) int {
	if e.sellable(pos) {
		return 0
	}
	bi, bok := e.cal.Index(pos.BuyDate)
	ci, cok := e.cal.Index(e.current)
	if !bok || !cok {
		return 1
	}
	return bi + 1 - ci
}
