// Package engine is the settlement and order-lifecycle core of the simulator.
// It owns the account, the order/trade ledger and the current trading day,
// and turns deferred-buy, conditional and sell instructions into account
// mutations as simulated days advance.
//
// An Engine is single-actor: it holds no locks and must not be used from more
// than one goroutine at a time.
package engine

import (
	"errors"
	"log/slog"
	"time"

	"laddersim/internal/config"
	"laddersim/internal/domain"
	"laddersim/internal/fees"
	"laddersim/internal/ladder"
	"laddersim/internal/market"
	"laddersim/internal/util"
)

// Params are the fixed market rules of a simulation.
type Params struct {
	InitialFund float64
	Unit        int64
	Fees        fees.Schedule
	Limits      market.Limits
}

// DefaultParams returns the standard A-share rules with a 100,000 fund.
func DefaultParams() Params {
	return Params{
		InitialFund: 100000,
		Unit:        100,
		Fees:        fees.DefaultSchedule(),
		Limits:      market.DefaultLimits(),
	}
}

// ParamsFromConfig maps the trading section of the configuration.
func ParamsFromConfig(t config.TradingConfig) Params {
	return Params{
		InitialFund: t.InitialFund,
		Unit:        t.Unit,
		Fees:        t.Fees(),
		Limits:      t.Limits(),
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for settlement outcomes.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithIDGenerator replaces the ULID generator, typically for tests.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// WithClock sets the clock used to pick the default current day.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine drives the simulation.
type Engine struct {
	params Params
	prices market.Provider
	feed   *ladder.Feed
	cal    *util.TradingCalendar

	log   *slog.Logger
	newID func() string
	now   func() time.Time

	account domain.Account
	trades  []*domain.Trade
	orders  []*domain.ConditionalOrder
	current string
}

// New creates an Engine over loaded price series and ladder feed. The
// trading calendar is the set of ladder-feed dates, and the current day
// starts at the default day for the engine's clock.
func New(prices market.Provider, feed *ladder.Feed, p Params, opts ...Option) (*Engine, error) {
	if prices == nil || feed == nil {
		return nil, errors.New("engine: price series and ladder feed are required")
	}
	if feed.Len() == 0 {
		return nil, errors.New("engine: ladder feed has no trading days")
	}
	if p.Unit <= 0 || p.InitialFund <= 0 {
		return nil, errors.New("engine: unit and initial fund must be positive")
	}

	e := &Engine{
		params:  p,
		prices:  prices,
		feed:    feed,
		cal:     util.NewTradingCalendar(feed.Dates()),
		log:     slog.Default(),
		newID:   util.NewID,
		now:     time.Now,
		account: domain.NewAccount(p.InitialFund),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.current = e.cal.Nearest(e.now())
	return e, nil
}

// Params returns the engine's market rules.
func (e *Engine) Params() Params { return e.params }

// CurrentDay returns the simulated trading day.
func (e *Engine) CurrentDay() string { return e.current }

// Calendar returns the trading calendar.
func (e *Engine) Calendar() *util.TradingCalendar { return e.cal }

// Feed returns the ladder-candidate feed.
func (e *Engine) Feed() *ladder.Feed { return e.feed }

// Prices returns the price series provider.
func (e *Engine) Prices() market.Provider { return e.prices }

// Account returns a copy of the account.
func (e *Engine) Account() domain.Account { return e.account.Clone() }

// NextDay returns the trading day after the current one.
func (e *Engine) NextDay() (string, bool) { return e.cal.Next(e.current) }

// instrument resolves reference data from the price series, falling back to
// the ladder entry listed on the current day.
func (e *Engine) instrument(code string) (domain.Instrument, bool) {
	if ser, ok := e.prices.Series(code); ok {
		return ser.Instrument, true
	}
	if s, ok := e.feed.Find(e.current, code); ok {
		return domain.NewInstrument(s.Code, s.Name), true
	}
	return domain.Instrument{}, false
}

// bar returns code's bar on day.
func (e *Engine) bar(code, day string) (domain.DailyBar, bool) {
	ser, ok := e.prices.Series(code)
	if !ok {
		return domain.DailyBar{}, false
	}
	return ser.Bar(day)
}

// closeOn returns code's close on day, or fallback when there is no bar.
func (e *Engine) closeOn(code, day string, fallback float64) float64 {
	return market.ClosePrice(e.prices, code, day, fallback)
}
