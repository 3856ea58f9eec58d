package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"laddersim/internal/domain"
	"laddersim/internal/ladder"
	"laddersim/internal/market"
)

// Compile-time interface checks.
var _ BarStore = (*ParquetStore)(nil)
var _ LadderStore = (*ParquetStore)(nil)

// cnMarket is the market directory holding A-share data.
const cnMarket = "cn"

// ParquetStore implements BarStore and LadderStore using Parquet files on disk.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a new ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// BarRecord is the Parquet schema for daily bar data.
type BarRecord struct {
	Code      string  `parquet:"code"`
	Name      string  `parquet:"name"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms, UTC midnight
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    int64   `parquet:"volume"`
}

// LadderRecord is the Parquet schema of the ladder table.
type LadderRecord struct {
	Date                 string   `parquet:"date"`
	Symbol               string   `parquet:"symbol"`
	Name                 string   `parquet:"name"`
	Close                float64  `parquet:"close"`
	ConsecutiveDays      int64    `parquet:"consecutive_limit_up_days"`
	IsLimitUp            bool     `parquet:"is_limit_up"`
	BoardType            string   `parquet:"board_type"`
	LimitPrice           float64  `parquet:"limit_price"`
	NextDayOpenChangePct *float64 `parquet:"next_day_open_change_pct,optional"`
	Concepts             []string `parquet:"concepts"`
}

// ---------------------------------------------------------------------------
// BarStore implementation
// ---------------------------------------------------------------------------

// WriteBars writes bars to Parquet files grouped by year. Each year produces a
// separate file at:
//
//	<DataDir>/cn/daily/<CODE>/<YYYY>.parquet
func (s *ParquetStore) WriteBars(_ context.Context, inst domain.Instrument, bars []domain.DailyBar) error {
	if len(bars) == 0 {
		return nil
	}

	groups := make(map[int][]BarRecord)
	for _, b := range bars {
		t, err := time.Parse(domain.DateLayout, b.Date)
		if err != nil {
			return fmt.Errorf("bar date for %s: %w", inst.Code, err)
		}
		groups[t.Year()] = append(groups[t.Year()], BarRecord{
			Code:      inst.Code,
			Name:      inst.Name,
			Timestamp: t.UnixMilli(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		})
	}

	for year, records := range groups {
		path := s.barPath(inst.Code, year)

		// Missing file means nothing to merge with.
		existing, _ := readParquetFile[BarRecord](path)
		merged := mergeBarRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing bars for %s/%d: %w", inst.Code, year, err)
		}
	}
	return nil
}

// ReadBars reads bars for code dated within [start, end]. Dates are
// YYYY-MM-DD; empty bounds are open.
func (s *ParquetStore) ReadBars(_ context.Context, code string, start, end string) ([]domain.DailyBar, error) {
	years, err := s.years(code)
	if err != nil {
		return nil, err
	}

	var bars []domain.DailyBar
	for _, year := range years {
		y := fmt.Sprintf("%04d", year)
		if len(start) >= 4 && y < start[:4] {
			continue
		}
		if len(end) >= 4 && y > end[:4] {
			continue
		}
		records, err := readParquetFile[BarRecord](s.barPath(code, year))
		if err != nil {
			return nil, fmt.Errorf("reading bars for %s/%d: %w", code, year, err)
		}
		for _, r := range records {
			b := toDailyBar(r)
			if (start == "" || b.Date >= start) && (end == "" || b.Date <= end) {
				bars = append(bars, b)
			}
		}
	}
	return bars, nil
}

// ReadSeries reads the full history for code. The instrument name comes from
// the most recent row.
func (s *ParquetStore) ReadSeries(_ context.Context, code string) (*market.Series, error) {
	years, err := s.years(code)
	if err != nil {
		return nil, err
	}
	if len(years) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownInstrument, code)
	}

	var (
		name string
		bars []domain.DailyBar
	)
	for _, year := range years {
		records, err := readParquetFile[BarRecord](s.barPath(code, year))
		if err != nil {
			return nil, fmt.Errorf("reading bars for %s/%d: %w", code, year, err)
		}
		for _, r := range records {
			bars = append(bars, toDailyBar(r))
			if r.Name != "" {
				name = r.Name
			}
		}
	}
	return market.NewSeries(domain.NewInstrument(code, name), bars), nil
}

// ListCodes lists all instrument codes that have bar data.
func (s *ParquetStore) ListCodes(_ context.Context) ([]string, error) {
	dir := filepath.Join(s.DataDir, cnMarket, "daily")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var codes []string
	for _, e := range entries {
		if e.IsDir() {
			codes = append(codes, e.Name())
		}
	}
	sort.Strings(codes)
	return codes, nil
}

// LoadUniverse reads every stored series into an in-memory provider.
func (s *ParquetStore) LoadUniverse(ctx context.Context) (*market.SeriesSet, error) {
	codes, err := s.ListCodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing codes: %w", err)
	}
	set := market.NewSeriesSet()
	for _, code := range codes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ser, err := s.ReadSeries(ctx, code)
		if err != nil {
			return nil, err
		}
		set.Add(ser)
	}
	return set, nil
}

// years returns the years with a bar file for code, ascending.
func (s *ParquetStore) years(code string) ([]int, error) {
	dir := filepath.Join(s.DataDir, cnMarket, "daily", strings.ToUpper(code))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var years []int
	for _, e := range entries {
		var y int
		if _, err := fmt.Sscanf(e.Name(), "%d.parquet", &y); err == nil {
			years = append(years, y)
		}
	}
	sort.Ints(years)
	return years, nil
}

func toDailyBar(r BarRecord) domain.DailyBar {
	return domain.DailyBar{
		Date:   time.UnixMilli(r.Timestamp).UTC().Format(domain.DateLayout),
		Open:   r.Open,
		Close:  r.Close,
		Low:    r.Low,
		High:   r.High,
		Volume: r.Volume,
	}
}

// ---------------------------------------------------------------------------
// LadderStore implementation
// ---------------------------------------------------------------------------

// WriteLadder replaces the ladder table at <DataDir>/cn/ladder.parquet.
func (s *ParquetStore) WriteLadder(_ context.Context, recs []ladder.Record) error {
	rows := make([]LadderRecord, len(recs))
	for i, r := range recs {
		rows[i] = LadderRecord{
			Date:                 r.Date,
			Symbol:               r.Symbol,
			Name:                 r.Name,
			Close:                r.Close,
			ConsecutiveDays:      int64(r.Days),
			IsLimitUp:            r.IsLimitUp,
			BoardType:            r.BoardType,
			LimitPrice:           r.LimitPrice,
			NextDayOpenChangePct: r.NextDayOpenChangePct,
			Concepts:             r.Concepts,
		}
	}
	if err := writeParquetFile(s.LadderPath(), rows); err != nil {
		return fmt.Errorf("writing ladder table: %w", err)
	}
	return nil
}

// ReadLadder reads the ladder table from <DataDir>/cn/ladder.parquet.
func (s *ParquetStore) ReadLadder(_ context.Context) ([]ladder.Record, error) {
	return ReadLadderFile(s.LadderPath())
}

// LadderPath returns the location of the ladder table.
func (s *ParquetStore) LadderPath() string {
	return filepath.Join(s.DataDir, cnMarket, "ladder.parquet")
}

// ReadLadderFile reads a ladder table from an arbitrary Parquet file. Dates
// are normalized to YYYY-MM-DD; rows with unparseable dates are rejected.
func ReadLadderFile(path string) ([]ladder.Record, error) {
	rows, err := readParquetFile[LadderRecord](path)
	if err != nil {
		return nil, fmt.Errorf("reading ladder table %s: %w", path, err)
	}
	out := make([]ladder.Record, len(rows))
	for i, r := range rows {
		date, err := domain.NormalizeDate(r.Date)
		if err != nil {
			return nil, fmt.Errorf("ladder row %d (%s): %w", i, r.Symbol, err)
		}
		out[i] = ladder.Record{
			Date:                 date,
			Symbol:               r.Symbol,
			Name:                 r.Name,
			Close:                r.Close,
			Days:                 int(r.ConsecutiveDays),
			IsLimitUp:            r.IsLimitUp,
			BoardType:            r.BoardType,
			LimitPrice:           r.LimitPrice,
			NextDayOpenChangePct: r.NextDayOpenChangePct,
			Concepts:             r.Concepts,
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Path helpers
// ---------------------------------------------------------------------------

// barPath returns the filesystem path for a bar Parquet file.
// Layout: <dataDir>/cn/daily/<CODE>/<YYYY>.parquet
func (s *ParquetStore) barPath(code string, year int) string {
	return filepath.Join(s.DataDir, cnMarket, "daily", strings.ToUpper(code), fmt.Sprintf("%d.parquet", year))
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergeBarRecords deduplicates bar records by timestamp, preferring incoming
// records over existing ones.
func mergeBarRecords(existing, incoming []BarRecord) []BarRecord {
	seen := make(map[int64]BarRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.Timestamp] = r
	}
	for _, r := range incoming {
		seen[r.Timestamp] = r
	}

	merged := make([]BarRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
