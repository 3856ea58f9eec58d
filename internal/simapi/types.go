package simapi

import (
	"laddersim/internal/domain"
	"laddersim/internal/engine"
)

// StateResponse is the full simulator view for one trading day.
type StateResponse struct {
	CurrentDate string                    `json:"currentDate"`
	NextDate    string                    `json:"nextDate,omitempty"`
	Account     engine.Overview           `json:"account"`
	Holdings    []engine.Holding          `json:"holdings"`
	Pending     engine.Pending            `json:"pending"` // settles on NextDate
	Orders      []domain.ConditionalOrder `json:"conditionOrders"`
}

// DatesResponse lists the trading calendar.
type DatesResponse struct {
	Dates   []string `json:"dates"`
	Current string   `json:"current"`
}

// LadderResponse is the ladder-candidate list of a day.
type LadderResponse struct {
	Date   string               `json:"date"`
	Days   int                  `json:"days"` // 0 = all, 5 = five or more
	Stocks []domain.LadderStock `json:"stocks"`
}

// SeriesResponse is an instrument's bars up to a day.
type SeriesResponse struct {
	Code string            `json:"code"`
	Name string            `json:"name"`
	IsST bool              `json:"isST"`
	Bars []domain.DailyBar `json:"bars"`
}

// OrderRequest places a deferred buy or a conditional order. A conditional
// order without a trigger price uses the limit-up price.
type OrderRequest struct {
	Code         string  `json:"code"`
	Price        float64 `json:"price,omitempty"`
	TriggerPrice float64 `json:"triggerPrice,omitempty"`
	Quantity     int64   `json:"quantity"`
}

// SellRequest sells a position. Without a quantity the whole position is
// sold at the current close.
type SellRequest struct {
	Code     string  `json:"code"`
	Price    float64 `json:"price,omitempty"`
	Quantity int64   `json:"quantity,omitempty"`
}

// AdvanceRequest moves to Date, or by Step trading days (+1 or -1).
type AdvanceRequest struct {
	Date string `json:"date,omitempty"`
	Step int    `json:"step,omitempty"`
}

// AdvanceResponse reports what settled on the way.
type AdvanceResponse struct {
	CurrentDate string         `json:"currentDate"`
	Events      []domain.Event `json:"events"`
}

// HistoryResponse is the order and trade ledger.
type HistoryResponse struct {
	Trades          []domain.Trade            `json:"trades"`
	ConditionOrders []domain.ConditionalOrder `json:"conditionOrders"`
}
