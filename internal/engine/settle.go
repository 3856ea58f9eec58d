package engine

import (
	"fmt"

	"laddersim/internal/domain"
)

// AdvanceToDate makes day the current trading day, settling everything
// scheduled on the way. Moving forward settles each calendar day after the
// current one up to and including day, in order. Moving back (or staying)
// settles only the items dated exactly day.
//
// Settlement problems never surface as errors: they resolve the affected
// item into a terminal state and are reported in the returned events.
func (e *Engine) AdvanceToDate(day string) ([]domain.Event, error) {
	d, err := domain.NormalizeDate(day)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnknownDay, err)
	}
	if !e.cal.Contains(d) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownDay, d)
	}

	days := []string{d}
	if d > e.current {
		days = e.cal.Between(e.current, d)
	}

	var events []domain.Event
	for _, sd := range days {
		events = append(events, e.settle(sd)...)
		e.current = sd
	}
	return events, nil
}

// Step advances to the next trading day.
func (e *Engine) Step() ([]domain.Event, error) {
	next, ok := e.cal.Next(e.current)
	if !ok {
		return nil, fmt.Errorf("%w after %s", domain.ErrNoFutureTradingDay, e.current)
	}
	return e.AdvanceToDate(next)
}

// Back moves to the previous trading day.
func (e *Engine) Back() ([]domain.Event, error) {
	prev, ok := e.cal.Prev(e.current)
	if !ok {
		return nil, fmt.Errorf("%w: nothing before %s", domain.ErrUnknownDay, e.current)
	}
	return e.AdvanceToDate(prev)
}

// settle resolves the pending items dated day: deferred buys first, then
// conditional orders, each in insertion order.
func (e *Engine) settle(day string) []domain.Event {
	var events []domain.Event
	for _, t := range e.trades {
		if t.Status == domain.StatusPending && t.Date == day && t.Type == domain.TradeAdd {
			events = append(events, e.settleDeferredBuy(t, day))
		}
	}
	// Synthetic BUY trades appended below are already COMPLETED.
	for _, o := range e.orders {
		if o.Status == domain.StatusPending && o.Date == day {
			events = append(events, e.settleConditional(o, day))
		}
	}
	return events
}

func (e *Engine) settleDeferredBuy(t *domain.Trade, day string) domain.Event {
	ev := domain.Event{Date: day, RefID: t.ID, Code: t.Code, Name: t.Name, Quantity: t.Quantity}

	bar, ok := e.bar(t.Code, day)
	if !ok {
		t.Status = domain.StatusFailed
		e.release(t.Amount)
		e.log.Warn("deferred buy failed", "id", t.ID, "code", t.Code, "date", day, "err", domain.ErrMissingPriceBar)
		ev.Kind, ev.Reason = domain.EventFailed, domain.ErrMissingPriceBar.Error()
		return ev
	}

	actual := bar.Open * float64(t.Quantity)
	fee := e.params.Fees.Calculate(actual, false)
	e.release(t.Amount)
	if actual+fee.Total > e.account.Spendable()+epsilon {
		t.Status = domain.StatusFailed
		e.log.Warn("deferred buy failed", "id", t.ID, "code", t.Code, "date", day, "need", actual+fee.Total)
		ev.Kind, ev.Reason = domain.EventFailed, "insufficient funds at settlement"
		return ev
	}

	e.account.Cash -= actual + fee.Total
	e.applyFill(t.Code, t.Name, bar.Open, t.Quantity, day)

	t.ActualPrice = bar.Open
	t.ActualAmount = actual
	t.Fees = fee.Total
	t.Status = domain.StatusCompleted

	e.log.Info("deferred buy filled", "id", t.ID, "code", t.Code, "date", day, "price", bar.Open, "fees", fee.Total)
	ev.Kind, ev.Price = domain.EventFilled, bar.Open
	return ev
}

func (e *Engine) settleConditional(o *domain.ConditionalOrder, day string) domain.Event {
	ev := domain.Event{Date: day, RefID: o.ID, Code: o.Code, Name: o.Name, Quantity: o.Quantity}

	bar, ok := e.bar(o.Code, day)
	if !ok {
		o.Status = domain.StatusFailed
		e.release(o.Amount)
		e.log.Warn("conditional order failed", "id", o.ID, "code", o.Code, "date", day, "err", domain.ErrMissingPriceBar)
		ev.Kind, ev.Reason = domain.EventFailed, domain.ErrMissingPriceBar.Error()
		return ev
	}

	e.release(o.Amount)
	if bar.High < o.TriggerPrice {
		o.Status = domain.StatusExpired
		e.log.Info("conditional order expired", "id", o.ID, "code", o.Code, "date", day, "high", bar.High, "trigger", o.TriggerPrice)
		ev.Kind = domain.EventExpired
		ev.Reason = fmt.Sprintf("high %.2f below trigger %.2f", bar.High, o.TriggerPrice)
		return ev
	}

	actual := o.TriggerPrice * float64(o.Quantity)
	fee := e.params.Fees.Calculate(actual, false)
	if actual+fee.Total > e.account.Spendable()+epsilon {
		o.Status = domain.StatusFailed
		e.log.Warn("conditional order failed", "id", o.ID, "code", o.Code, "date", day, "need", actual+fee.Total)
		ev.Kind, ev.Reason = domain.EventFailed, "insufficient funds at settlement"
		return ev
	}

	e.account.Cash -= actual + fee.Total
	e.applyFill(o.Code, o.Name, o.TriggerPrice, o.Quantity, day)

	o.ActualPrice = o.TriggerPrice
	o.ActualAmount = actual
	o.Fees = fee.Total
	o.Status = domain.StatusExecuted

	e.trades = append(e.trades, &domain.Trade{
		ID:           e.newID(),
		Date:         day,
		OrderDate:    o.OrderDate,
		Code:         o.Code,
		Name:         o.Name,
		Type:         domain.TradeBuy,
		Price:        o.TriggerPrice,
		ActualPrice:  o.TriggerPrice,
		Quantity:     o.Quantity,
		Amount:       actual,
		ActualAmount: actual,
		Fees:         fee.Total,
		Status:       domain.StatusCompleted,
		OrderID:      o.ID,
	})

	e.log.Info("conditional order executed", "id", o.ID, "code", o.Code, "date", day, "price", o.TriggerPrice, "fees", fee.Total)
	ev.Kind, ev.Price = domain.EventTriggered, o.TriggerPrice
	return ev
}

// applyFill adds qty shares bought at price to the position in code, keeping
// a weighted-average cost.
func (e *Engine) applyFill(code, name string, price float64, qty int64, day string) {
	pos, ok := e.account.Positions[code]
	if !ok {
		e.account.Positions[code] = &domain.Position{
			Code:     code,
			Name:     name,
			Quantity: qty,
			Cost:     price,
			BuyDate:  day,
		}
		return
	}
	total := pos.Quantity + qty
	pos.Cost = (pos.Cost*float64(pos.Quantity) + price*float64(qty)) / float64(total)
	pos.Quantity = total
	pos.BuyDate = day
}

// release returns a reservation to spendable funds.
func (e *Engine) release(amount float64) {
	e.account.Frozen -= amount
	if e.account.Frozen < epsilon {
		e.account.Frozen = 0
	}
}
