// Package market exposes the historical daily price series the simulator
// replays, and the A-share price-limit rules applied to them.
package market

import (
	"sort"

	"laddersim/internal/domain"
)

// Provider gives read-only access to per-instrument daily series.
type Provider interface {
	// Series returns the series for code, or false if it is unknown.
	Series(code string) (*Series, bool)

	// Codes returns all known instrument codes in ascending order.
	Codes() []string
}

// Series is the ordered daily bar history of one instrument.
type Series struct {
	Instrument domain.Instrument
	bars       []domain.DailyBar
	index      map[string]int
}

// NewSeries sorts bars by date and indexes them. When two bars share a date
// the later one wins.
func NewSeries(inst domain.Instrument, bars []domain.DailyBar) *Series {
	sorted := make([]domain.DailyBar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })

	dedup := sorted[:0]
	for _, b := range sorted {
		if n := len(dedup); n > 0 && dedup[n-1].Date == b.Date {
			dedup[n-1] = b
			continue
		}
		dedup = append(dedup, b)
	}

	index := make(map[string]int, len(dedup))
	for i, b := range dedup {
		index[b.Date] = i
	}
	return &Series{Instrument: inst, bars: dedup, index: index}
}

// Code returns the instrument code.
func (s *Series) Code() string { return s.Instrument.Code }

// Name returns the instrument name.
func (s *Series) Name() string { return s.Instrument.Name }

// Len returns the number of bars.
func (s *Series) Len() int { return len(s.bars) }

// Bars returns a copy of all bars in ascending date order.
func (s *Series) Bars() []domain.DailyBar {
	out := make([]domain.DailyBar, len(s.bars))
	copy(out, s.bars)
	return out
}

// Bar returns the bar dated exactly date.
func (s *Series) Bar(date string) (domain.DailyBar, bool) {
	i, ok := s.index[date]
	if !ok {
		return domain.DailyBar{}, false
	}
	return s.bars[i], true
}

// Last returns the most recent bar.
func (s *Series) Last() (domain.DailyBar, bool) {
	if len(s.bars) == 0 {
		return domain.DailyBar{}, false
	}
	return s.bars[len(s.bars)-1], true
}

// AsOf returns the latest bar dated on or before date.
func (s *Series) AsOf(date string) (domain.DailyBar, bool) {
	i := sort.Search(len(s.bars), func(i int) bool { return s.bars[i].Date > date })
	if i == 0 {
		return domain.DailyBar{}, false
	}
	return s.bars[i-1], true
}

// Window returns up to n bars ending on or before end.
func (s *Series) Window(end string, n int) []domain.DailyBar {
	hi := sort.Search(len(s.bars), func(i int) bool { return s.bars[i].Date > end })
	lo := hi - n
	if lo < 0 {
		lo = 0
	}
	out := make([]domain.DailyBar, hi-lo)
	copy(out, s.bars[lo:hi])
	return out
}

// ---------------------------------------------------------------------------
// SeriesSet
// ---------------------------------------------------------------------------

// Compile-time interface check.
var _ Provider = (*SeriesSet)(nil)

// SeriesSet is an in-memory Provider.
type SeriesSet struct {
	series map[string]*Series
}

// NewSeriesSet creates a SeriesSet from the given series.
func NewSeriesSet(series ...*Series) *SeriesSet {
	s := &SeriesSet{series: make(map[string]*Series, len(series))}
	for _, ser := range series {
		s.Add(ser)
	}
	return s
}

// Add inserts or replaces a series.
func (s *SeriesSet) Add(ser *Series) {
	s.series[ser.Code()] = ser
}

// Series implements Provider.
func (s *SeriesSet) Series(code string) (*Series, bool) {
	ser, ok := s.series[code]
	return ser, ok
}

// Codes implements Provider.
func (s *SeriesSet) Codes() []string {
	codes := make([]string, 0, len(s.series))
	for c := range s.series {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// Len returns the number of series.
func (s *SeriesSet) Len() int { return len(s.series) }

// ClosePrice returns code's close on date, or fallback when there is no bar.
func ClosePrice(p Provider, code, date string, fallback float64) float64 {
	if ser, ok := p.Series(code); ok {
		if bar, ok := ser.Bar(date); ok {
			return bar.Close
		}
	}
	return fallback
}
