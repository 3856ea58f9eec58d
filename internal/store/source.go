package store

import (
	"context"
	"fmt"

	"laddersim/internal/ladder"
	"laddersim/internal/market"
)

// JSONSource loads simulator inputs from the kline and ladder exports.
type JSONSource struct {
	KlinePath  string
	LadderPath string
}

// LoadSeries reads the kline export.
func (s JSONSource) LoadSeries(ctx context.Context) (market.Provider, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadKlineJSON(s.KlinePath)
}

// LoadLadder reads the ladder export.
func (s JSONSource) LoadLadder(ctx context.Context) (*ladder.Feed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadLadderJSON(s.LadderPath)
}

// ParquetSource loads simulator inputs from a ParquetStore.
type ParquetSource struct {
	Store *ParquetStore
}

// LoadSeries reads every stored daily series.
func (s ParquetSource) LoadSeries(ctx context.Context) (market.Provider, error) {
	return s.Store.LoadUniverse(ctx)
}

// LoadLadder reads the ladder table and keeps its limit-up rows.
func (s ParquetSource) LoadLadder(ctx context.Context) (*ladder.Feed, error) {
	recs, err := s.Store.ReadLadder(ctx)
	if err != nil {
		return nil, err
	}
	feed := ladder.FromRecords(recs)
	if feed.Len() == 0 {
		return nil, fmt.Errorf("ladder table %s has no limit-up rows", s.Store.LadderPath())
	}
	return feed, nil
}
