// Package fees computes A-share trading costs: a two-sided commission with a
// per-trade minimum and a sell-side stamp tax.
package fees

import "math"

// Schedule holds the fee rates. The zero value charges nothing.
type Schedule struct {
	CommissionRate float64
	MinCommission  float64
	StampTaxRate   float64
}

// DefaultSchedule returns the standard A-share schedule: 0.03% commission
// with a 5 yuan minimum and 0.1% stamp tax on sells.
func DefaultSchedule() Schedule {
	return Schedule{
		CommissionRate: 0.0003,
		MinCommission:  5,
		StampTaxRate:   0.001,
	}
}

// Breakdown is the cost of a single trade.
type Breakdown struct {
	Commission float64 `json:"commission"`
	StampTax   float64 `json:"stampTax"`
	Total      float64 `json:"total"`
}

// Calculate returns the fees for a trade of the given notional amount.
func (s Schedule) Calculate(amount float64, sell bool) Breakdown {
	amount = math.Abs(amount)
	commission := math.Max(amount*s.CommissionRate, s.MinCommission)

	var stampTax float64
	if sell {
		stampTax = amount * s.StampTaxRate
	}

	return Breakdown{
		Commission: commission,
		StampTax:   stampTax,
		Total:      commission + stampTax,
	}
}
