package engine

import (
	"sort"

	"laddersim/internal/domain"
)

// Summary is the realized performance of the trade history.
type Summary struct {
	TotalTrades  int     `json:"totalTrades"`
	ProfitTrades int     `json:"profitTrades"`
	LossTrades   int     `json:"lossTrades"`
	WinRate      float64 `json:"winRate"` // percent of classified sells
	TotalProfit  float64 `json:"totalProfit"`
	TotalFees    float64 `json:"totalFees"` // sell fees only
}

type lot struct {
	date  string
	code  string
	price float64
	left  int64
}

// Summarize matches completed sells against completed buys first-in
// first-out per instrument. A sell whose matched cost is zero is left
// unclassified, though its fees still count. trades is not modified.
func Summarize(trades []domain.Trade) Summary {
	var buys []lot
	var sells []domain.Trade
	for _, t := range trades {
		if t.Status != domain.StatusCompleted {
			continue
		}
		switch {
		case t.Type.IsBuy():
			buys = append(buys, lot{date: t.Date, code: t.Code, price: t.FillPrice(), left: t.Quantity})
		case t.Type == domain.TradeSell:
			sells = append(sells, t)
		}
	}
	// Stable sorts keep insertion order within a day.
	sort.SliceStable(buys, func(i, j int) bool { return buys[i].date < buys[j].date })
	sort.SliceStable(sells, func(i, j int) bool { return sells[i].Date < sells[j].Date })

	var s Summary
	for _, sell := range sells {
		s.TotalFees += sell.Fees

		remaining := sell.Quantity
		var cost float64
		for i := range buys {
			if remaining == 0 {
				break
			}
			b := &buys[i]
			if b.code != sell.Code || b.left == 0 {
				continue
			}
			n := min(b.left, remaining)
			cost += b.price * float64(n)
			b.left -= n
			remaining -= n
		}
		if cost <= 0 {
			continue
		}

		profit := sell.NetAmount - cost
		switch {
		case profit > 0:
			s.ProfitTrades++
		case profit < 0:
			s.LossTrades++
		}
		s.TotalProfit += profit
	}

	s.TotalTrades = s.ProfitTrades + s.LossTrades
	if s.TotalTrades > 0 {
		s.WinRate = float64(s.ProfitTrades) / float64(s.TotalTrades) * 100
	}
	return s
}

// Summary summarizes the engine's trade history.
func (e *Engine) Summary() Summary {
	return Summarize(e.Trades(Filter{}))
}
