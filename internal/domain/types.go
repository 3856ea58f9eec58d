// Package domain holds the shared value types of the simulator: reference
// data, daily bars, account state, orders, trades and the persisted snapshot.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical trading-day format used throughout the
// simulator. Dates compare lexically in chronological order.
const DateLayout = "2006-01-02"

// compactDateLayout is the YYYYMMDD form used by the ladder feed.
const compactDateLayout = "20060102"

// NormalizeDate accepts YYYY-MM-DD or YYYYMMDD and returns YYYY-MM-DD.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	layout := DateLayout
	if len(s) == 8 && !strings.Contains(s, "-") {
		layout = compactDateLayout
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return "", fmt.Errorf("parsing date %q: %w", s, err)
	}
	return t.Format(DateLayout), nil
}

// CompactDate formats a canonical date as YYYYMMDD.
func CompactDate(date string) string {
	return strings.ReplaceAll(date, "-", "")
}

// Instrument is immutable reference data for a tradable stock.
type Instrument struct {
	Code string `json:"code"`
	Name string `json:"name"`
	IsST bool   `json:"isST"` // special treatment: narrower price limit
}

// NewInstrument derives the special-treatment flag from the listed name.
func NewInstrument(code, name string) Instrument {
	return Instrument{Code: code, Name: name, IsST: strings.Contains(strings.ToUpper(name), "ST")}
}

// DailyBar is one trading day of OHLCV data for an instrument.
type DailyBar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	Close  float64 `json:"close"`
	Low    float64 `json:"low"`
	High   float64 `json:"high"`
	Volume int64   `json:"volume"`
}

// LadderStock is one entry of the ladder-candidate feed: a stock that closed
// at its limit-up price for LimitUpDays consecutive days.
type LadderStock struct {
	Code                 string   `json:"code"`
	Name                 string   `json:"name"`
	Price                float64  `json:"price"`
	LimitUpDays          int      `json:"limitUpDays"`
	ConceptThemes        []string `json:"conceptThemes"`
	BoardType            string   `json:"boardType,omitempty"`
	LimitPrice           float64  `json:"limitPrice,omitempty"`
	NextDayOpenChangePct *float64 `json:"nextDayOpenChangePct,omitempty"`
}

// ---------------------------------------------------------------------------
// Account
// ---------------------------------------------------------------------------

// Position is the holding of a single instrument.
type Position struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Quantity int64   `json:"quantity"`
	Cost     float64 `json:"cost"`    // weighted-average entry price
	BuyDate  string  `json:"buyDate"` // settlement day of the latest increase
}

// Account is the cash and position book of the single simulated user.
//
// Frozen is a reservation against Cash: placing a buy does not debit Cash, it
// raises Frozen. Spendable funds are Cash - Frozen.
type Account struct {
	InitialFund float64              `json:"initialFund"`
	Cash        float64              `json:"available"`
	Frozen      float64              `json:"frozen"`
	Positions   map[string]*Position `json:"positions"`
}

// NewAccount returns an empty account funded with initialFund.
func NewAccount(initialFund float64) Account {
	return Account{
		InitialFund: initialFund,
		Cash:        initialFund,
		Positions:   make(map[string]*Position),
	}
}

// Spendable returns the cash not reserved by pending buys.
func (a *Account) Spendable() float64 {
	return a.Cash - a.Frozen
}

// Clone returns a deep copy of the account.
func (a Account) Clone() Account {
	out := a
	out.Positions = make(map[string]*Position, len(a.Positions))
	for code, p := range a.Positions {
		cp := *p
		out.Positions[code] = &cp
	}
	return out
}

// ---------------------------------------------------------------------------
// Orders and trades
// ---------------------------------------------------------------------------

// Status is the lifecycle state of an order or trade. Pending is the only
// non-terminal state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusExecuted  Status = "EXECUTED"
	StatusFailed    Status = "FAILED"
	StatusExpired   Status = "EXPIRED"
	StatusCancelled Status = "CANCELLED"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s != StatusPending
}

// TradeType distinguishes fills.
type TradeType string

const (
	TradeBuy  TradeType = "BUY"  // synthetic record of an executed conditional order
	TradeAdd  TradeType = "ADD"  // deferred buy filled at the next day's open
	TradeSell TradeType = "SELL" // same-day sell
)

// IsBuy reports whether the trade increases a position.
func (t TradeType) IsBuy() bool {
	return t == TradeBuy || t == TradeAdd
}

// Trade is a fill record. Deferred buys are created PENDING at placement and
// finalized at settlement; sells are created COMPLETED.
type Trade struct {
	ID           string    `json:"id"`
	Date         string    `json:"date"`      // execution day
	OrderDate    string    `json:"orderDate"` // day the order was placed
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	Type         TradeType `json:"type"`
	Price        float64   `json:"price"` // quoted price
	ActualPrice  float64   `json:"actualPrice,omitempty"`
	Quantity     int64     `json:"quantity"`
	Amount       float64   `json:"amount"` // reserved (buy) or gross (sell) notional
	ActualAmount float64   `json:"actualAmount,omitempty"`
	Fees         float64   `json:"fees"`
	NetAmount    float64   `json:"netAmount,omitempty"`    // sells only
	PositionCost float64   `json:"positionCost,omitempty"` // sells only: cost basis of the sold shares
	Status       Status    `json:"status"`
	OrderID      string    `json:"orderId,omitempty"` // conditional order that produced a BUY
}

// FillPrice returns the executed price, falling back to the quoted price.
func (t *Trade) FillPrice() float64 {
	if t.ActualPrice > 0 {
		return t.ActualPrice
	}
	return t.Price
}

// ConditionalOrder is a standing instruction to buy at TriggerPrice on Date if
// that day's high reaches it.
type ConditionalOrder struct {
	ID           string  `json:"id"`
	Date         string  `json:"date"`
	OrderDate    string  `json:"orderDate"`
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	TriggerPrice float64 `json:"triggerPrice"`
	Quantity     int64   `json:"quantity"`
	Amount       float64 `json:"amount"` // reserved notional
	ActualPrice  float64 `json:"actualPrice,omitempty"`
	ActualAmount float64 `json:"actualAmount,omitempty"`
	Fees         float64 `json:"fees,omitempty"`
	Status       Status  `json:"status"`
}

// ConditionBuyType is the Type tag carried by every conditional order.
const ConditionBuyType = "CONDITION_BUY"

// ---------------------------------------------------------------------------
// Settlement events
// ---------------------------------------------------------------------------

// EventKind classifies what happened to a pending item during settlement.
type EventKind string

const (
	EventFilled    EventKind = "filled"
	EventTriggered EventKind = "triggered"
	EventExpired   EventKind = "expired"
	EventFailed    EventKind = "failed"
)

// Event reports one settlement outcome so front ends can notify the user.
type Event struct {
	Kind     EventKind `json:"kind"`
	Date     string    `json:"date"`
	RefID    string    `json:"refId"`
	Code     string    `json:"code"`
	Name     string    `json:"name"`
	Price    float64   `json:"price,omitempty"`
	Quantity int64     `json:"quantity,omitempty"`
	Reason   string    `json:"reason,omitempty"`
}

func (e Event) String() string {
	switch e.Kind {
	case EventFilled, EventTriggered:
		return fmt.Sprintf("%s %s %s: %d @ %.2f", e.Date, e.Kind, e.Name, e.Quantity, e.Price)
	default:
		return fmt.Sprintf("%s %s %s: %s", e.Date, e.Kind, e.Name, e.Reason)
	}
}

// ---------------------------------------------------------------------------
// Snapshot
// ---------------------------------------------------------------------------

// Snapshot is the single persisted unit of simulator state.
type Snapshot struct {
	Account         Account             `json:"account"`
	Trades          []*Trade            `json:"trades"`
	ConditionOrders []*ConditionalOrder `json:"conditionOrders"`
	CurrentDate     string              `json:"currentDate"`
}
