package util

import (
	"sort"
	"time"

	"laddersim/internal/domain"
)

// TradingCalendar is the ordered set of trading days known to the simulator.
// Days are canonical YYYY-MM-DD strings.
type TradingCalendar struct {
	days  []string
	index map[string]int
}

// NewTradingCalendar builds a calendar from days in any order. Duplicates are
// collapsed.
func NewTradingCalendar(days []string) *TradingCalendar {
	index := make(map[string]int, len(days))
	uniq := make([]string, 0, len(days))
	for _, d := range days {
		if _, ok := index[d]; ok {
			continue
		}
		index[d] = 0
		uniq = append(uniq, d)
	}
	sort.Strings(uniq)
	for i, d := range uniq {
		index[d] = i
	}
	return &TradingCalendar{days: uniq, index: index}
}

// Days returns a copy of all trading days in ascending order.
func (tc *TradingCalendar) Days() []string {
	out := make([]string, len(tc.days))
	copy(out, tc.days)
	return out
}

// Len returns the number of trading days.
func (tc *TradingCalendar) Len() int { return len(tc.days) }

// Index returns the position of day in the calendar.
func (tc *TradingCalendar) Index(day string) (int, bool) {
	i, ok := tc.index[day]
	return i, ok
}

// Contains reports whether day is a trading day.
func (tc *TradingCalendar) Contains(day string) bool {
	_, ok := tc.index[day]
	return ok
}

// Next returns the trading day after day. The second result is false when day
// is the last known day or not a trading day.
func (tc *TradingCalendar) Next(day string) (string, bool) {
	i, ok := tc.index[day]
	if !ok || i+1 >= len(tc.days) {
		return "", false
	}
	return tc.days[i+1], true
}

// Prev returns the trading day before day.
func (tc *TradingCalendar) Prev(day string) (string, bool) {
	i, ok := tc.index[day]
	if !ok || i == 0 {
		return "", false
	}
	return tc.days[i-1], true
}

// Between returns the trading days in (from, to], ascending.
func (tc *TradingCalendar) Between(from, to string) []string {
	lo := sort.SearchStrings(tc.days, from)
	if lo < len(tc.days) && tc.days[lo] == from {
		lo++
	}
	hi := sort.SearchStrings(tc.days, to)
	if hi < len(tc.days) && tc.days[hi] == to {
		hi++
	}
	if lo >= hi {
		return nil
	}
	out := make([]string, hi-lo)
	copy(out, tc.days[lo:hi])
	return out
}

// Nearest returns today's date if it is a trading day, otherwise the latest
// trading day before it, otherwise the first trading day. It returns "" for an
// empty calendar.
func (tc *TradingCalendar) Nearest(now time.Time) string {
	if len(tc.days) == 0 {
		return ""
	}
	today := now.Format(domain.DateLayout)
	if tc.Contains(today) {
		return today
	}
	for i := len(tc.days) - 1; i >= 0; i-- {
		if tc.days[i] <= today {
			return tc.days[i]
		}
	}
	return tc.days[0]
}
