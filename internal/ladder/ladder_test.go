package ladder

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laddersim/internal/domain"
)

func pct(v float64) *float64 { return &v }

func sampleFeed() *Feed {
	return NewFeed(map[string]map[string][]domain.LadderStock{
		"20240102": {
			"1": {{Code: "600001.SH", Name: "Alpha", Price: 10, LimitUpDays: 1}},
			"3": {{Code: "600003.SH", Name: "Gamma", Price: 30, LimitUpDays: 3}},
		},
		"2024-01-03": {
			"2": {{Code: "600001.SH", Name: "Alpha", Price: 11, LimitUpDays: 2}},
			"4": {{Code: "600003.SH", Name: "Gamma", Price: 33, LimitUpDays: 4}},
			"6": {{Code: "600006.SH", Name: "Zeta", Price: 6, LimitUpDays: 6}},
		},
		"not-a-date": {"1": {{Code: "X"}}},
	})
}

func TestFeedDatesNormalized(t *testing.T) {
	f := sampleFeed()
	assert.Equal(t, []string{"2024-01-02", "2024-01-03"}, f.Dates())
	assert.Equal(t, 2, f.Len())
}

func TestFeedDayOrderedByStreak(t *testing.T) {
	f := sampleFeed()
	day := f.Day("2024-01-03")
	require.Len(t, day, 3)
	assert.Equal(t, "600006.SH", day[0].Code)
	assert.Equal(t, "600003.SH", day[1].Code)
	assert.Equal(t, "600001.SH", day[2].Code)

	assert.Nil(t, f.Day("2024-02-01"))
}

func TestFeedFilter(t *testing.T) {
	f := sampleFeed()

	tests := []struct {
		days int
		want []string
	}{
		{FilterAll, []string{"600006.SH", "600003.SH", "600001.SH"}},
		{2, []string{"600001.SH"}},
		{4, []string{"600003.SH"}},
		{FilterFivePlus, []string{"600006.SH"}},
		{3, nil},
	}
	for _, tt := range tests {
		var got []string
		for _, s := range f.Filter("2024-01-03", tt.days) {
			got = append(got, s.Code)
		}
		assert.Equal(t, tt.want, got, "filter %d", tt.days)
	}
}

func TestFeedFind(t *testing.T) {
	f := sampleFeed()
	s, ok := f.Find("2024-01-02", "600003.SH")
	require.True(t, ok)
	assert.Equal(t, 3, s.LimitUpDays)

	_, ok = f.Find("2024-01-02", "600006.SH")
	assert.False(t, ok)
}

func TestFromRecordsSkipsNonLimitUp(t *testing.T) {
	f := FromRecords([]Record{
		{Date: "2024-01-02", Symbol: "A", Days: 1, IsLimitUp: true},
		{Date: "2024-01-02", Symbol: "B", Days: 0, IsLimitUp: false},
		{Date: "2024-01-04", Symbol: "C", Days: 0, IsLimitUp: false},
	})
	assert.Equal(t, []string{"2024-01-02"}, f.Dates())
	require.Len(t, f.Day("2024-01-02"), 1)

	recs := f.Records()
	require.Len(t, recs, 1)
	assert.True(t, recs[0].IsLimitUp)
	assert.Equal(t, "A", recs[0].Symbol)
}

func sampleRecords() []Record {
	return []Record{
		{Date: "2024-01-02", Symbol: "600001.SH", Name: "Alpha", Close: 10, Days: 1, IsLimitUp: true, BoardType: "一字板", NextDayOpenChangePct: pct(2)},
		{Date: "2024-01-02", Symbol: "600003.SH", Name: "Gamma", Close: 30, Days: 3, IsLimitUp: true, BoardType: "T字板", NextDayOpenChangePct: pct(-4)},
		{Date: "2024-01-02", Symbol: "600009.SH", Name: "Theta", Close: 9, Days: 0, IsLimitUp: false},
		{Date: "2024-01-03", Symbol: "600001.SH", Name: "Alpha", Close: 11, Days: 2, IsLimitUp: true, BoardType: "一字板", NextDayOpenChangePct: pct(6)},
		{Date: "2024-01-03", Symbol: "600003.SH", Name: "Gamma", Close: 33, Days: 4, IsLimitUp: true, BoardType: "一字板"},
		{Date: "2024-01-03", Symbol: "600005.SH", Name: "Epsilon", Close: 5, Days: 1, IsLimitUp: true, BoardType: "换手板"},
	}
}

func TestAnalyzerQuery(t *testing.T) {
	a := NewAnalyzer(sampleRecords())
	assert.Equal(t, 5, a.Len())
	assert.Equal(t, "2024-01-03", a.Latest())

	got := a.Query("2024-01-03", 1, 0)
	require.Len(t, got, 3)
	assert.Equal(t, 4, got[0].Days)
	assert.Equal(t, 1, got[2].Days)

	got = a.Query("2024-01-03", 2, 3)
	require.Len(t, got, 1)
	assert.Equal(t, "600001.SH", got[0].Symbol)

	assert.Empty(t, a.Query("2024-01-05", 1, 0))
}

func TestAnalyzerSearch(t *testing.T) {
	a := NewAnalyzer(sampleRecords())

	res, ok := a.Search("gamma")
	require.True(t, ok)
	assert.Equal(t, "600003.SH", res.Symbol)
	require.Len(t, res.History, 2)
	assert.Equal(t, "2024-01-02", res.History[0].Date)

	res, ok = a.Search("600005")
	require.True(t, ok)
	assert.Equal(t, "Epsilon", res.Name)

	_, ok = a.Search("Theta")
	assert.False(t, ok, "Theta was never limit-up")
	_, ok = a.Search("  ")
	assert.False(t, ok)
}

func TestAnalyzerStats(t *testing.T) {
	a := NewAnalyzer(sampleRecords())

	st := a.Stats("", "")
	assert.Equal(t, 5, st.Records)
	assert.Equal(t, 3, st.Stocks)
	assert.Equal(t, "2024-01-02", st.First)
	assert.Equal(t, "2024-01-03", st.Last)
	assert.Equal(t, []Count{{"1", 2}, {"2", 1}, {"3", 1}, {"4", 1}}, st.ByDays)
	assert.Equal(t, Count{"一字板", 3}, st.ByBoard[0])

	assert.Equal(t, 3, st.NextDay.Samples)
	assert.InDelta(t, 4.0/3.0, st.NextDay.MeanPct, 1e-9)
	assert.InDelta(t, 2.0/3.0, st.NextDay.PositiveRatio, 1e-9)
	assert.Equal(t, 6.0, st.NextDay.MaxPct)
	assert.Equal(t, -4.0, st.NextDay.MinPct)

	st = a.Stats("2024-01-03", "2024-01-03")
	assert.Equal(t, 3, st.Records)
	assert.Equal(t, 1, st.NextDay.Samples)

	st = a.Stats("2025-01-01", "")
	assert.Zero(t, st.Records)
	assert.Zero(t, st.NextDay.MeanPct)
}

func TestAnalyzerTrend(t *testing.T) {
	a := NewAnalyzer(sampleRecords())

	rows := a.Trend(7)
	require.Len(t, rows, 2)
	assert.Equal(t, TrendRow{Date: "2024-01-03", Total: 3, First: 1, Second: 1, FourPlus: 1}, rows[0])
	assert.Equal(t, TrendRow{Date: "2024-01-02", Total: 2, First: 1, Third: 1}, rows[1])

	rows = a.Trend(1)
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-01-03", rows[0].Date)

	assert.Nil(t, a.Trend(0))
}

func TestAnalyzerExportCSV(t *testing.T) {
	a := NewAnalyzer(sampleRecords())

	var buf bytes.Buffer
	n, err := a.ExportCSV("2024-01-02", &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "\ufeff"))

	rows, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(out, "\ufeff"))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "600001.SH", rows[1][1])
	assert.Equal(t, "2", rows[1][8])
	assert.Equal(t, "-4", rows[2][8])
}
