package ladder

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"laddersim/internal/domain"
)

// Record is one row of the ladder table: a stock's close on a day together
// with its limit-up streak.
type Record struct {
	Date                 string
	Symbol               string
	Name                 string
	Close                float64
	Days                 int
	IsLimitUp            bool
	BoardType            string
	LimitPrice           float64
	NextDayOpenChangePct *float64
	Concepts             []string
}

// Stock converts the row into a feed entry.
func (r Record) Stock() domain.LadderStock {
	return domain.LadderStock{
		Code:                 r.Symbol,
		Name:                 r.Name,
		Price:                r.Close,
		LimitUpDays:          r.Days,
		ConceptThemes:        r.Concepts,
		BoardType:            r.BoardType,
		LimitPrice:           r.LimitPrice,
		NextDayOpenChangePct: r.NextDayOpenChangePct,
	}
}

// Analyzer answers historical questions over the limit-up rows of a ladder
// table.
type Analyzer struct {
	recs  []Record // limit-up rows, ascending by date
	dates []string // distinct dates, ascending
}

// NewAnalyzer keeps only the limit-up rows of recs.
func NewAnalyzer(recs []Record) *Analyzer {
	a := &Analyzer{}
	seen := make(map[string]struct{})
	for _, r := range recs {
		if !r.IsLimitUp {
			continue
		}
		a.recs = append(a.recs, r)
		if _, ok := seen[r.Date]; !ok {
			seen[r.Date] = struct{}{}
			a.dates = append(a.dates, r.Date)
		}
	}
	sort.SliceStable(a.recs, func(i, j int) bool { return a.recs[i].Date < a.recs[j].Date })
	sort.Strings(a.dates)
	return a
}

// Len returns the number of limit-up rows.
func (a *Analyzer) Len() int { return len(a.recs) }

// Latest returns the most recent date in the table.
func (a *Analyzer) Latest() string {
	if len(a.dates) == 0 {
		return ""
	}
	return a.dates[len(a.dates)-1]
}

// Query returns the limit-up rows on date with a streak in [minDays, maxDays],
// longest streak first. A non-positive bound is ignored.
func (a *Analyzer) Query(date string, minDays, maxDays int) []Record {
	var out []Record
	for _, r := range a.recs {
		if r.Date != date {
			continue
		}
		if minDays > 0 && r.Days < minDays {
			continue
		}
		if maxDays > 0 && r.Days > maxDays {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Days > out[j].Days })
	return out
}

// SearchResult is the streak history of the stock matched by Search.
type SearchResult struct {
	Symbol  string
	Name    string
	History []Record
}

// Search matches keyword case-insensitively against the symbol and name of
// the stocks listed on the latest date. The full history of the first match
// is returned; ok is false when nothing matched.
func (a *Analyzer) Search(keyword string) (SearchResult, bool) {
	latest := a.Latest()
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if latest == "" || kw == "" {
		return SearchResult{}, false
	}

	var hit *Record
	for i := range a.recs {
		r := &a.recs[i]
		if r.Date != latest {
			continue
		}
		if strings.Contains(strings.ToLower(r.Symbol), kw) || strings.Contains(strings.ToLower(r.Name), kw) {
			hit = r
			break
		}
	}
	if hit == nil {
		return SearchResult{}, false
	}

	res := SearchResult{Symbol: hit.Symbol, Name: hit.Name}
	for _, r := range a.recs {
		if r.Symbol == hit.Symbol {
			res.History = append(res.History, r)
		}
	}
	return res, true
}

// Count pairs a label with a number of occurrences.
type Count struct {
	Label string
	N     int
}

// NextDayStats summarizes the next-day opening change of limit-up stocks.
type NextDayStats struct {
	Samples       int
	MeanPct       float64
	PositiveRatio float64 // fraction of samples above zero, 0..1
	MaxPct        float64
	MinPct        float64
}

// Stats is the overview produced by Analyzer.Stats.
type Stats struct {
	Records int
	Stocks  int
	First   string
	Last    string
	ByDays  []Count // ascending by streak length
	ByBoard []Count // descending by count
	NextDay NextDayStats
}

// Stats summarizes the rows dated within [start, end]. Empty bounds are open.
func (a *Analyzer) Stats(start, end string) Stats {
	var st Stats
	symbols := make(map[string]struct{})
	byDays := make(map[int]int)
	byBoard := make(map[string]int)
	var sum float64

	for _, r := range a.recs {
		if start != "" && r.Date < start {
			continue
		}
		if end != "" && r.Date > end {
			continue
		}
		st.Records++
		symbols[r.Symbol] = struct{}{}
		if st.First == "" || r.Date < st.First {
			st.First = r.Date
		}
		if r.Date > st.Last {
			st.Last = r.Date
		}
		byDays[r.Days]++
		byBoard[r.BoardType]++

		if r.NextDayOpenChangePct == nil {
			continue
		}
		v := *r.NextDayOpenChangePct
		n := &st.NextDay
		if n.Samples == 0 || v > n.MaxPct {
			n.MaxPct = v
		}
		if n.Samples == 0 || v < n.MinPct {
			n.MinPct = v
		}
		n.Samples++
		sum += v
		if v > 0 {
			n.PositiveRatio++
		}
	}
	st.Stocks = len(symbols)
	if n := &st.NextDay; n.Samples > 0 {
		n.MeanPct = sum / float64(n.Samples)
		n.PositiveRatio /= float64(n.Samples)
	}

	levels := make([]int, 0, len(byDays))
	for d := range byDays {
		levels = append(levels, d)
	}
	sort.Ints(levels)
	for _, d := range levels {
		st.ByDays = append(st.ByDays, Count{Label: strconv.Itoa(d), N: byDays[d]})
	}

	for b, n := range byBoard {
		st.ByBoard = append(st.ByBoard, Count{Label: b, N: n})
	}
	sort.Slice(st.ByBoard, func(i, j int) bool {
		if st.ByBoard[i].N != st.ByBoard[j].N {
			return st.ByBoard[i].N > st.ByBoard[j].N
		}
		return st.ByBoard[i].Label < st.ByBoard[j].Label
	})
	return st
}

// TrendRow is the streak distribution of one day.
type TrendRow struct {
	Date     string
	Total    int
	First    int
	Second   int
	Third    int
	FourPlus int
}

// Trend returns the distribution for the latest n dates, newest first.
func (a *Analyzer) Trend(n int) []TrendRow {
	if n <= 0 {
		return nil
	}
	lo := len(a.dates) - n
	if lo < 0 {
		lo = 0
	}
	rows := make(map[string]*TrendRow, len(a.dates)-lo)
	out := make([]TrendRow, 0, len(a.dates)-lo)
	for i := len(a.dates) - 1; i >= lo; i-- {
		out = append(out, TrendRow{Date: a.dates[i]})
	}
	for i := range out {
		rows[out[i].Date] = &out[i]
	}

	for _, r := range a.recs {
		row, ok := rows[r.Date]
		if !ok {
			continue
		}
		row.Total++
		switch {
		case r.Days == 1:
			row.First++
		case r.Days == 2:
			row.Second++
		case r.Days == 3:
			row.Third++
		case r.Days >= 4:
			row.FourPlus++
		}
	}
	return out
}

var csvHeader = []string{
	"date", "symbol", "name", "close", "consecutive_limit_up_days", "is_limit_up",
	"board_type", "limit_price", "next_day_open_change_pct", "concepts",
}

// ExportCSV writes the limit-up rows dated date to w as CSV with a UTF-8 byte
// order mark, and returns the number of rows written.
func (a *Analyzer) ExportCSV(date string, w io.Writer) (int, error) {
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return 0, fmt.Errorf("writing bom: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return 0, fmt.Errorf("writing header: %w", err)
	}

	n := 0
	for _, r := range a.recs {
		if r.Date != date {
			continue
		}
		next := ""
		if r.NextDayOpenChangePct != nil {
			next = strconv.FormatFloat(*r.NextDayOpenChangePct, 'f', -1, 64)
		}
		row := []string{
			r.Date,
			r.Symbol,
			r.Name,
			strconv.FormatFloat(r.Close, 'f', 2, 64),
			strconv.Itoa(r.Days),
			strconv.FormatBool(r.IsLimitUp),
			r.BoardType,
			strconv.FormatFloat(r.LimitPrice, 'f', 2, 64),
			next,
			strings.Join(r.Concepts, "|"),
		}
		if err := cw.Write(row); err != nil {
			return n, fmt.Errorf("writing row %s: %w", r.Symbol, err)
		}
		n++
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return n, fmt.Errorf("flushing csv: %w", err)
	}
	return n, nil
}
