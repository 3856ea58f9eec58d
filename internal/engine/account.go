package engine

import (
	"sort"

	"laddersim/internal/domain"
)

// PositionValue marks every position to day's close, using cost when the day
// has no bar.
func (e *Engine) PositionValue(day string) float64 {
	var v float64
	for code, p := range e.account.Positions {
		v += float64(p.Quantity) * e.closeOn(code, day, p.Cost)
	}
	return v
}

// TotalAssets is cash plus the marked value of positions. Frozen funds are
// still part of cash.
func (e *Engine) TotalAssets(day string) float64 {
	return e.account.Cash + e.PositionValue(day)
}

// TotalReturnPct is the return on the initial fund, in percent.
func (e *Engine) TotalReturnPct(day string) float64 {
	if e.account.InitialFund == 0 {
		return 0
	}
	return (e.TotalAssets(day) - e.account.InitialFund) / e.account.InitialFund * 100
}

// Overview is the account header shown by front ends.
type Overview struct {
	Date           string  `json:"date"`
	InitialFund    float64 `json:"initialFund"`
	Cash           float64 `json:"available"`
	Frozen         float64 `json:"frozen"`
	Spendable      float64 `json:"spendable"`
	PositionValue  float64 `json:"positionValue"`
	TotalAssets    float64 `json:"totalAssets"`
	TotalReturnPct float64 `json:"totalReturnPct"`
}

// Overview values the account on the current day.
func (e *Engine) Overview() Overview {
	pv := e.PositionValue(e.current)
	total := e.account.Cash + pv
	ret := 0.0
	if e.account.InitialFund != 0 {
		ret = (total - e.account.InitialFund) / e.account.InitialFund * 100
	}
	return Overview{
		Date:           e.current,
		InitialFund:    e.account.InitialFund,
		Cash:           e.account.Cash,
		Frozen:         e.account.Frozen,
		Spendable:      e.account.Spendable(),
		PositionValue:  pv,
		TotalAssets:    total,
		TotalReturnPct: ret,
	}
}

// Holding is a position valued on the current day.
type Holding struct {
	domain.Position
	Price    float64 `json:"currentPrice"`
	Value    float64 `json:"value"`
	PnL      float64 `json:"profit"`
	PnLPct   float64 `json:"profitPct"`
	Sellable bool    `json:"sellable"`
	WaitDays int     `json:"waitDays"`
}

// Holdings returns the positions sorted by code.
func (e *Engine) Holdings() []Holding {
	out := make([]Holding, 0, len(e.account.Positions))
	for code, p := range e.account.Positions {
		price := e.closeOn(code, e.current, p.Cost)
		h := Holding{
			Position: *p,
			Price:    price,
			Value:    price * float64(p.Quantity),
			PnL:      (price - p.Cost) * float64(p.Quantity),
			Sellable: e.sellable(p),
			WaitDays: e.waitDays(p),
		}
		if p.Cost > 0 {
			h.PnLPct = (price - p.Cost) / p.Cost * 100
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
