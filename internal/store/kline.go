package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"laddersim/internal/domain"
	"laddersim/internal/ladder"
	"laddersim/internal/market"
)

// klineEntry is one instrument of the kline export. Each values row is
// [open, close, low, high].
type klineEntry struct {
	Name    string      `json:"name"`
	Dates   []string    `json:"dates"`
	Values  [][]float64 `json:"values"`
	Volumes []float64   `json:"volumes"`
}

// unwrapJS strips a "window.X = {...};" script wrapper, keeping the outermost
// JSON object. Plain JSON passes through unchanged.
func unwrapJS(data []byte) ([]byte, error) {
	start := bytes.IndexByte(data, '{')
	end := bytes.LastIndexByte(data, '}')
	if start < 0 || end < start {
		return nil, errors.New("no JSON object found")
	}
	return data[start : end+1], nil
}

// ParseKlineJSON decodes a kline export into per-instrument series.
func ParseKlineJSON(data []byte) (*market.SeriesSet, error) {
	body, err := unwrapJS(data)
	if err != nil {
		return nil, fmt.Errorf("kline data: %w", err)
	}
	var raw map[string]klineEntry
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decoding kline data: %w", err)
	}

	set := market.NewSeriesSet()
	for code, e := range raw {
		if len(e.Values) != len(e.Dates) {
			return nil, fmt.Errorf("kline %s: %d dates but %d value rows", code, len(e.Dates), len(e.Values))
		}
		bars := make([]domain.DailyBar, 0, len(e.Dates))
		for i, d := range e.Dates {
			date, err := domain.NormalizeDate(d)
			if err != nil {
				return nil, fmt.Errorf("kline %s: %w", code, err)
			}
			v := e.Values[i]
			if len(v) < 4 {
				return nil, fmt.Errorf("kline %s %s: want 4 values, got %d", code, date, len(v))
			}
			bar := domain.DailyBar{Date: date, Open: v[0], Close: v[1], Low: v[2], High: v[3]}
			if i < len(e.Volumes) {
				bar.Volume = int64(e.Volumes[i])
			}
			bars = append(bars, bar)
		}
		set.Add(market.NewSeries(domain.NewInstrument(code, e.Name), bars))
	}
	return set, nil
}

// LoadKlineJSON reads a kline export (JSON or JS-wrapped JSON) from path.
func LoadKlineJSON(path string) (*market.SeriesSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading kline file: %w", err)
	}
	return ParseKlineJSON(data)
}

// ParseLadderJSON decodes a ladder export of the form
// {date: {bucket: [stock, ...]}}.
func ParseLadderJSON(data []byte) (*ladder.Feed, error) {
	body, err := unwrapJS(data)
	if err != nil {
		return nil, fmt.Errorf("ladder data: %w", err)
	}
	var raw map[string]map[string][]domain.LadderStock
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decoding ladder data: %w", err)
	}
	return ladder.NewFeed(raw), nil
}

// LoadLadderJSON reads a ladder export from path.
func LoadLadderJSON(path string) (*ladder.Feed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ladder file: %w", err)
	}
	return ParseLadderJSON(data)
}
