package engine

import (
	"fmt"

	"laddersim/internal/domain"
)

// PlaceDeferredBuy records a buy of qty shares of code that fills at the next
// trading day's open. The quoted notional price×qty is frozen until then.
func (e *Engine) PlaceDeferredBuy(code string, price float64, qty int64) (domain.Trade, error) {
	inst, next, notional, err := e.prepareBuy(code, price, qty)
	if err != nil {
		return domain.Trade{}, err
	}

	t := &domain.Trade{
		ID:        e.newID(),
		Date:      next,
		OrderDate: e.current,
		Code:      inst.Code,
		Name:      inst.Name,
		Type:      domain.TradeAdd,
		Price:     price,
		Quantity:  qty,
		Amount:    notional,
		Status:    domain.StatusPending,
	}
	e.trades = append(e.trades, t)
	e.account.Frozen += notional

	e.log.Info("deferred buy placed", "id", t.ID, "code", t.Code, "price", price, "qty", qty, "date", next)
	return *t, nil
}

// PlaceConditionalOrder records a buy of qty shares of code that fills at
// trigger on the next trading day if that day's high reaches it.
func (e *Engine) PlaceConditionalOrder(code string, trigger float64, qty int64) (domain.ConditionalOrder, error) {
	inst, next, notional, err := e.prepareBuy(code, trigger, qty)
	if err != nil {
		return domain.ConditionalOrder{}, err
	}

	o := &domain.ConditionalOrder{
		ID:           e.newID(),
		Date:         next,
		OrderDate:    e.current,
		Code:         inst.Code,
		Name:         inst.Name,
		Type:         domain.ConditionBuyType,
		TriggerPrice: trigger,
		Quantity:     qty,
		Amount:       notional,
		Status:       domain.StatusPending,
	}
	e.orders = append(e.orders, o)
	e.account.Frozen += notional

	e.log.Info("conditional order placed", "id", o.ID, "code", o.Code, "trigger", trigger, "qty", qty, "date", next)
	return *o, nil
}

// prepareBuy runs the checks shared by both buy instructions.
func (e *Engine) prepareBuy(code string, price float64, qty int64) (domain.Instrument, string, float64, error) {
	notional, err := e.checkBuy(price, qty)
	if err != nil {
		return domain.Instrument{}, "", 0, err
	}
	inst, ok := e.instrument(code)
	if !ok {
		return domain.Instrument{}, "", 0, fmt.Errorf("%w: %s", domain.ErrUnknownInstrument, code)
	}
	next, ok := e.cal.Next(e.current)
	if !ok {
		return domain.Instrument{}, "", 0, fmt.Errorf("%w after %s", domain.ErrNoFutureTradingDay, e.current)
	}
	return inst, next, notional, nil
}

// Sell disposes of qty shares of code at price on the current day. Net
// proceeds are credited immediately.
func (e *Engine) Sell(code string, price float64, qty int64) (domain.Trade, error) {
	pos := e.account.Positions[code]
	if err := e.checkSell(pos, code, price, qty); err != nil {
		return domain.Trade{}, err
	}

	gross := price * float64(qty)
	fee := e.params.Fees.Calculate(gross, true)
	net := gross - fee.Total
	if e.account.Spendable()+net < -epsilon {
		return domain.Trade{}, fmt.Errorf("%w: fees %.2f exceed available funds", domain.ErrInvalidOrder, fee.Total)
	}

	t := &domain.Trade{
		ID:           e.newID(),
		Date:         e.current,
		OrderDate:    e.current,
		Code:         pos.Code,
		Name:         pos.Name,
		Type:         domain.TradeSell,
		Price:        price,
		ActualPrice:  price,
		Quantity:     qty,
		Amount:       gross,
		ActualAmount: gross,
		Fees:         fee.Total,
		NetAmount:    net,
		PositionCost: pos.Cost * float64(qty),
		Status:       domain.StatusCompleted,
	}
	e.trades = append(e.trades, t)

	e.account.Cash += net
	pos.Quantity -= qty
	if pos.Quantity == 0 {
		delete(e.account.Positions, code)
	}

	e.log.Info("sold", "id", t.ID, "code", code, "price", price, "qty", qty, "net", net)
	return *t, nil
}

// SellAll sells the whole position in code at the current day's close, or at
// cost when the day has no bar.
func (e *Engine) SellAll(code string) (domain.Trade, error) {
	pos, ok := e.account.Positions[code]
	if !ok {
		return domain.Trade{}, fmt.Errorf("%w: no position in %s", domain.ErrInsufficientPosition, code)
	}
	return e.Sell(code, e.closeOn(code, e.current, pos.Cost), pos.Quantity)
}

// Cancel withdraws a pending conditional order and releases its reservation.
func (e *Engine) Cancel(id string) error {
	for _, o := range e.orders {
		if o.ID != id {
			continue
		}
		if o.Status != domain.StatusPending {
			return fmt.Errorf("%w: %s is %s", domain.ErrNotCancellable, id, o.Status)
		}
		o.Status = domain.StatusCancelled
		e.release(o.Amount)
		e.log.Info("conditional order cancelled", "id", id, "code", o.Code)
		return nil
	}
	return fmt.Errorf("%w: no conditional order %s", domain.ErrNotCancellable, id)
}

// LimitUpPrice returns the limit-up price of code for the next trading day,
// based on the current day's close.
func (e *Engine) LimitUpPrice(code string) (float64, error) {
	inst, ok := e.instrument(code)
	if !ok {
		return 0, fmt.Errorf("%w: %s", domain.ErrUnknownInstrument, code)
	}
	fallback := 0.0
	if s, ok := e.feed.Find(e.current, code); ok {
		fallback = s.Price
	}
	base := e.closeOn(code, e.current, fallback)
	if base <= 0 {
		return 0, fmt.Errorf("%w: %s on %s", domain.ErrMissingPriceBar, code, e.current)
	}
	return e.params.Limits.LimitUpPrice(base, inst.IsST), nil
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// Filter selects ledger entries. Zero fields match everything.
type Filter struct {
	Status domain.Status
	Date   string
	Code   string
}

func (f Filter) match(status domain.Status, date, code string) bool {
	return (f.Status == "" || f.Status == status) &&
		(f.Date == "" || f.Date == date) &&
		(f.Code == "" || f.Code == code)
}

// Trades returns copies of the matching trades in insertion order.
func (e *Engine) Trades(f Filter) []domain.Trade {
	var out []domain.Trade
	for _, t := range e.trades {
		if f.match(t.Status, t.Date, t.Code) {
			out = append(out, *t)
		}
	}
	return out
}

// Orders returns copies of the matching conditional orders in insertion order.
func (e *Engine) Orders(f Filter) []domain.ConditionalOrder {
	var out []domain.ConditionalOrder
	for _, o := range e.orders {
		if f.match(o.Status, o.Date, o.Code) {
			out = append(out, *o)
		}
	}
	return out
}

// Pending lists what will settle on a given day.
type Pending struct {
	Trades []domain.Trade            `json:"trades"`
	Orders []domain.ConditionalOrder `json:"conditionOrders"`
}

// PendingFor returns the pending deferred buys and conditional orders
// scheduled for day.
func (e *Engine) PendingFor(day string) Pending {
	f := Filter{Status: domain.StatusPending, Date: day}
	return Pending{Trades: e.Trades(f), Orders: e.Orders(f)}
}
