package fees

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestCalculate(t *testing.T) {
	t.Parallel()

	s := DefaultSchedule()

	tests := []struct {
		name       string
		amount     float64
		sell       bool
		commission float64
		stampTax   float64
	}{
		{"buy below minimum", 10500, false, 5, 0},
		{"buy above minimum", 100000, false, 30, 0},
		{"sell small", 12000, true, 5, 12},
		{"sell large", 200000, true, 60, 200},
		{"zero amount", 0, false, 5, 0},
		{"negative amount uses magnitude", -20000, true, 6, 20},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := s.Calculate(tt.amount, tt.sell)
			assert.InDelta(t, tt.commission, got.Commission, 1e-9)
			assert.InDelta(t, tt.stampTax, got.StampTax, 1e-9)
			assert.InDelta(t, tt.commission+tt.stampTax, got.Total, 1e-9)
		})
	}
}

func TestCalculateProperties(t *testing.T) {
	s := DefaultSchedule()
	rapid.Check(t, func(t *rapid.T) {
		amount := rapid.Float64Range(0, 1e8).Draw(t, "amount")

		buy := s.Calculate(amount, false)
		sell := s.Calculate(amount, true)

		if buy.Commission < s.MinCommission {
			t.Fatalf("commission %v below minimum", buy.Commission)
		}
		if buy.StampTax != 0 {
			t.Fatalf("buy charged stamp tax %v", buy.StampTax)
		}
		if sell.Commission != buy.Commission {
			t.Fatalf("commission differs by side: %v vs %v", sell.Commission, buy.Commission)
		}
		if sell.Total < buy.Total {
			t.Fatalf("sell total %v below buy total %v", sell.Total, buy.Total)
		}
	})
}
