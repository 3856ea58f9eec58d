package domain

import "errors"

// Placement errors. They are returned before any state is mutated.
var (
	ErrInvalidOrder         = errors.New("invalid order")
	ErrInsufficientPosition = errors.New("insufficient position")
	ErrSettlementCycle      = errors.New("T+1 settlement: position acquired today is not sellable")
	ErrNoFutureTradingDay   = errors.New("no future trading day")
	ErrNotCancellable       = errors.New("order is not pending")
	ErrUnknownInstrument    = errors.New("unknown instrument")
	ErrUnknownDay           = errors.New("not a trading day")
)

// ErrMissingPriceBar is recorded when a scheduled execution day has no bar for
// the instrument. It never reaches the caller of a placement operation.
var ErrMissingPriceBar = errors.New("missing price bar")

// ErrDataLoadTimeout is fatal at startup.
var ErrDataLoadTimeout = errors.New("data load timeout")
