package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laddersim/internal/domain"
)

func bars() []domain.DailyBar {
	return []domain.DailyBar{
		{Date: "2024-01-04", Open: 11, Close: 11.5, Low: 10.8, High: 11.6},
		{Date: "2024-01-02", Open: 10, Close: 10.2, Low: 9.9, High: 10.3},
		{Date: "2024-01-03", Open: 10.2, Close: 11.22, Low: 10.1, High: 11.22},
		{Date: "2024-01-03", Open: 10.3, Close: 11.22, Low: 10.1, High: 11.22},
	}
}

func TestNewSeriesSortsAndDedups(t *testing.T) {
	s := NewSeries(domain.Instrument{Code: "600001.SH", Name: "Alpha"}, bars())

	require.Equal(t, 3, s.Len())
	all := s.Bars()
	assert.Equal(t, "2024-01-02", all[0].Date)
	assert.Equal(t, "2024-01-04", all[2].Date)

	bar, ok := s.Bar("2024-01-03")
	require.True(t, ok)
	assert.Equal(t, 10.3, bar.Open, "later duplicate wins")

	_, ok = s.Bar("2024-01-05")
	assert.False(t, ok)

	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, "2024-01-04", last.Date)
}

func TestSeriesAsOfAndWindow(t *testing.T) {
	s := NewSeries(domain.Instrument{Code: "600001.SH"}, bars())

	bar, ok := s.AsOf("2024-01-03")
	require.True(t, ok)
	assert.Equal(t, "2024-01-03", bar.Date)

	bar, ok = s.AsOf("2024-02-01")
	require.True(t, ok)
	assert.Equal(t, "2024-01-04", bar.Date)

	_, ok = s.AsOf("2023-12-31")
	assert.False(t, ok)

	w := s.Window("2024-01-03", 5)
	require.Len(t, w, 2)
	assert.Equal(t, "2024-01-02", w[0].Date)

	w = s.Window("2024-01-04", 1)
	require.Len(t, w, 1)
	assert.Equal(t, "2024-01-04", w[0].Date)
}

func TestSeriesSet(t *testing.T) {
	a := NewSeries(domain.Instrument{Code: "600002.SH"}, bars())
	b := NewSeries(domain.Instrument{Code: "000001.SZ"}, nil)
	set := NewSeriesSet(a, b)

	assert.Equal(t, []string{"000001.SZ", "600002.SH"}, set.Codes())
	_, ok := set.Series("nope")
	assert.False(t, ok)

	assert.Equal(t, 11.5, ClosePrice(set, "600002.SH", "2024-01-04", 1))
	assert.Equal(t, 7.0, ClosePrice(set, "600002.SH", "2024-01-09", 7))
	assert.Equal(t, 7.0, ClosePrice(set, "missing", "2024-01-04", 7))
}

func TestLimitUpPrice(t *testing.T) {
	t.Parallel()

	l := DefaultLimits()

	tests := []struct {
		name  string
		close float64
		st    bool
		want  float64
	}{
		{"standard", 10.00, false, 11.00},
		{"standard rounds half up", 10.05, false, 11.06},
		{"special treatment", 10.00, true, 10.50},
		{"special treatment rounding", 3.33, true, 3.50},
		{"odd cents", 7.77, false, 8.55},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, l.LimitUpPrice(tt.close, tt.st), 1e-9)
		})
	}

	assert.InDelta(t, 9.00, l.LimitDownPrice(10, false), 1e-9)
	assert.True(t, l.IsLimitUp(10.20, 11.22, false))
	assert.False(t, l.IsLimitUp(10.20, 11.21, false))
	assert.False(t, l.IsLimitUp(0, 11.21, false))
}
