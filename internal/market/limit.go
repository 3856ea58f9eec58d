package market

import "github.com/shopspring/decimal"

// Limits holds the daily price-limit rates.
type Limits struct {
	Standard float64 // main-board rate, 0.10
	ST       float64 // special-treatment rate, 0.05
}

// DefaultLimits returns the main-board A-share limits.
func DefaultLimits() Limits {
	return Limits{Standard: 0.10, ST: 0.05}
}

// Rate returns the rate that applies to an instrument.
func (l Limits) Rate(st bool) float64 {
	if st {
		return l.ST
	}
	return l.Standard
}

// LimitUpPrice returns the ceiling price for the day after a close of
// prevClose, rounded half-up to the cent as the exchange does.
func (l Limits) LimitUpPrice(prevClose float64, st bool) float64 {
	p := decimal.NewFromFloat(prevClose).
		Mul(decimal.NewFromFloat(1 + l.Rate(st))).
		Round(2)
	f, _ := p.Float64()
	return f
}

// LimitDownPrice returns the floor price for the day after a close of
// prevClose.
func (l Limits) LimitDownPrice(prevClose float64, st bool) float64 {
	p := decimal.NewFromFloat(prevClose).
		Mul(decimal.NewFromFloat(1 - l.Rate(st))).
		Round(2)
	f, _ := p.Float64()
	return f
}

// IsLimitUp reports whether close sits at the ceiling implied by prevClose.
func (l Limits) IsLimitUp(prevClose, close float64, st bool) bool {
	if prevClose <= 0 {
		return false
	}
	ceiling := decimal.NewFromFloat(l.LimitUpPrice(prevClose, st))
	return decimal.NewFromFloat(close).Round(2).GreaterThanOrEqual(ceiling)
}
