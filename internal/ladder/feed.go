// Package ladder holds the ladder-candidate feed: per trading day, the stocks
// that closed limit-up for one or more consecutive days, plus the historical
// analyses run over it.
package ladder

import (
	"sort"
	"strconv"

	"laddersim/internal/domain"
)

// FilterAll disables the limit-days filter. FilterFivePlus matches every
// stock with five or more consecutive limit-up days.
const (
	FilterAll      = 0
	FilterFivePlus = 5
)

// Feed is the ladder-candidate feed keyed by canonical trading day. Each day
// groups stocks into buckets, normally one per limit-up streak length.
type Feed struct {
	days  map[string]map[string][]domain.LadderStock
	dates []string
}

// NewFeed builds a feed from raw day → bucket → stocks data. Day keys may be
// YYYYMMDD or YYYY-MM-DD; keys that parse as neither are skipped.
func NewFeed(raw map[string]map[string][]domain.LadderStock) *Feed {
	f := &Feed{days: make(map[string]map[string][]domain.LadderStock, len(raw))}
	for key, buckets := range raw {
		day, err := domain.NormalizeDate(key)
		if err != nil {
			continue
		}
		dst, ok := f.days[day]
		if !ok {
			dst = make(map[string][]domain.LadderStock, len(buckets))
			f.days[day] = dst
		}
		for b, stocks := range buckets {
			dst[b] = append(dst[b], stocks...)
		}
	}
	f.dates = make([]string, 0, len(f.days))
	for d := range f.days {
		f.dates = append(f.dates, d)
	}
	sort.Strings(f.dates)
	return f
}

// FromRecords builds a feed from ladder table rows. Rows that are not
// limit-up closes are dropped; the rest are bucketed by streak length.
func FromRecords(recs []Record) *Feed {
	raw := make(map[string]map[string][]domain.LadderStock)
	for _, r := range recs {
		if !r.IsLimitUp {
			continue
		}
		day, ok := raw[r.Date]
		if !ok {
			day = make(map[string][]domain.LadderStock)
			raw[r.Date] = day
		}
		key := strconv.Itoa(r.Days)
		day[key] = append(day[key], r.Stock())
	}
	return NewFeed(raw)
}

// Dates returns every day in the feed in ascending order. The simulator uses
// this set as its trading calendar.
func (f *Feed) Dates() []string {
	out := make([]string, len(f.dates))
	copy(out, f.dates)
	return out
}

// Len returns the number of days in the feed.
func (f *Feed) Len() int { return len(f.dates) }

// Day returns every stock listed on date, merged across buckets and ordered by
// streak length, highest first.
func (f *Feed) Day(date string) []domain.LadderStock {
	buckets, ok := f.days[date]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []domain.LadderStock
	for _, k := range keys {
		out = append(out, buckets[k]...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LimitUpDays > out[j].LimitUpDays })
	return out
}

// Filter returns the stocks listed on date whose streak matches days.
// FilterAll returns everything, FilterFivePlus matches streaks of five or
// more, and any other value matches that exact streak.
func (f *Feed) Filter(date string, days int) []domain.LadderStock {
	all := f.Day(date)
	if days == FilterAll {
		return all
	}
	out := all[:0:0]
	for _, s := range all {
		if matchDays(s.LimitUpDays, days) {
			out = append(out, s)
		}
	}
	return out
}

func matchDays(have, want int) bool {
	if want >= FilterFivePlus {
		return have >= FilterFivePlus
	}
	return have == want
}

// Find returns the entry for code on date.
func (f *Feed) Find(date, code string) (domain.LadderStock, bool) {
	for _, buckets := range f.days[date] {
		for _, s := range buckets {
			if s.Code == code {
				return s, true
			}
		}
	}
	return domain.LadderStock{}, false
}

// Records flattens the feed into ladder table rows, ordered by date then
// streak length descending. Every row is a limit-up close.
func (f *Feed) Records() []Record {
	var out []Record
	for _, d := range f.dates {
		for _, s := range f.Day(d) {
			out = append(out, Record{
				Date:                 d,
				Symbol:               s.Code,
				Name:                 s.Name,
				Close:                s.Price,
				Days:                 s.LimitUpDays,
				IsLimitUp:            true,
				BoardType:            s.BoardType,
				LimitPrice:           s.LimitPrice,
				NextDayOpenChangePct: s.NextDayOpenChangePct,
				Concepts:             s.ConceptThemes,
			})
		}
	}
	return out
}
