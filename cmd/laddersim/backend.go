package main

import (
	"context"

	"laddersim/internal/domain"
	"laddersim/internal/engine"
	"laddersim/internal/simapi"
	"laddersim/pkg/laddersim"
)

// simBackend is the set of simulation operations the sim subcommands drive,
// served either by a local session or by a remote laddersim server.
type simBackend interface {
	State(ctx context.Context) (*simapi.StateResponse, error)
	PlaceDeferredBuy(ctx context.Context, code string, price float64, qty int64) (domain.Trade, error)
	PlaceConditionalOrder(ctx context.Context, code string, trigger float64, qty int64) (domain.ConditionalOrder, error)
	Sell(ctx context.Context, code string, price float64, qty int64) (domain.Trade, error)
	Cancel(ctx context.Context, id string) error
	AdvanceTo(ctx context.Context, date string) (*simapi.AdvanceResponse, error)
	Step(ctx context.Context, step int) (*simapi.AdvanceResponse, error)
	Summary(ctx context.Context) (engine.Summary, error)
	Reset(ctx context.Context) (*engine.Export, error)
}

// Compile-time interface checks.
var (
	_ simBackend = (*laddersim.Client)(nil)
	_ simBackend = (*localBackend)(nil)
)

// localBackend runs operations against an in-process session and saves the
// snapshot after every mutation.
type localBackend struct {
	sess *session
}

func (b *localBackend) State(context.Context) (*simapi.StateResponse, error) {
	st := simapi.BuildState(b.sess.eng)
	return &st, nil
}

func (b *localBackend) PlaceDeferredBuy(ctx context.Context, code string, price float64, qty int64) (domain.Trade, error) {
	t, err := b.sess.eng.PlaceDeferredBuy(code, price, qty)
	if err != nil {
		return t, err
	}
	return t, b.sess.save(ctx)
}

func (b *localBackend) PlaceConditionalOrder(ctx context.Context, code string, trigger float64, qty int64) (domain.ConditionalOrder, error) {
	if trigger == 0 {
		p, err := b.sess.eng.LimitUpPrice(code)
		if err != nil {
			return domain.ConditionalOrder{}, err
		}
		trigger = p
	}
	o, err := b.sess.eng.PlaceConditionalOrder(code, trigger, qty)
	if err != nil {
		return o, err
	}
	return o, b.sess.save(ctx)
}

func (b *localBackend) Sell(ctx context.Context, code string, price float64, qty int64) (domain.Trade, error) {
	var (
		t   domain.Trade
		err error
	)
	if qty == 0 {
		t, err = b.sess.eng.SellAll(code)
	} else {
		t, err = b.sess.eng.Sell(code, price, qty)
	}
	if err != nil {
		return t, err
	}
	return t, b.sess.save(ctx)
}

func (b *localBackend) Cancel(ctx context.Context, id string) error {
	if err := b.sess.eng.Cancel(id); err != nil {
		return err
	}
	return b.sess.save(ctx)
}

func (b *localBackend) AdvanceTo(ctx context.Context, date string) (*simapi.AdvanceResponse, error) {
	events, err := b.sess.eng.AdvanceToDate(date)
	if err != nil {
		return nil, err
	}
	return b.advanced(ctx, events)
}

func (b *localBackend) Step(ctx context.Context, step int) (*simapi.AdvanceResponse, error) {
	var (
		events []domain.Event
		err    error
	)
	if step < 0 {
		events, err = b.sess.eng.Back()
	} else {
		events, err = b.sess.eng.Step()
	}
	if err != nil {
		return nil, err
	}
	return b.advanced(ctx, events)
}

func (b *localBackend) advanced(ctx context.Context, events []domain.Event) (*simapi.AdvanceResponse, error) {
	if events == nil {
		events = []domain.Event{}
	}
	resp := &simapi.AdvanceResponse{CurrentDate: b.sess.eng.CurrentDay(), Events: events}
	return resp, b.sess.save(ctx)
}

func (b *localBackend) Summary(context.Context) (engine.Summary, error) {
	return b.sess.eng.Summary(), nil
}

func (b *localBackend) Reset(ctx context.Context) (*engine.Export, error) {
	exp := b.sess.eng.Export()
	if err := b.sess.eng.Reset(nil); err != nil {
		return nil, err
	}
	return &exp, b.sess.save(ctx)
}
