// Package store defines storage interfaces for the simulator's historical
// inputs (daily bars, the ladder table) and its single persisted snapshot.
package store

import (
	"context"
	"errors"

	"laddersim/internal/domain"
	"laddersim/internal/ladder"
	"laddersim/internal/market"
)

// ErrNoSnapshot is returned by SnapshotStore.Load when nothing has been saved.
var ErrNoSnapshot = errors.New("no saved snapshot")

// BarStore persists and retrieves daily bar data.
type BarStore interface {
	// WriteBars persists bars for one instrument, merging with existing data.
	WriteBars(ctx context.Context, inst domain.Instrument, bars []domain.DailyBar) error

	// ReadBars returns bars for code dated within [start, end].
	ReadBars(ctx context.Context, code string, start, end string) ([]domain.DailyBar, error)

	// ReadSeries returns the full history for code.
	ReadSeries(ctx context.Context, code string) (*market.Series, error)

	// ListCodes returns all instrument codes with stored bars.
	ListCodes(ctx context.Context) ([]string, error)
}

// LadderStore persists and retrieves the ladder table.
type LadderStore interface {
	// WriteLadder replaces the stored ladder table.
	WriteLadder(ctx context.Context, recs []ladder.Record) error

	// ReadLadder returns every row of the ladder table.
	ReadLadder(ctx context.Context) ([]ladder.Record, error)
}

// SnapshotStore persists the simulator's single state snapshot.
type SnapshotStore interface {
	// Load returns the saved snapshot, or ErrNoSnapshot.
	Load(ctx context.Context) (*domain.Snapshot, error)

	// Save replaces the saved snapshot.
	Save(ctx context.Context, snap *domain.Snapshot) error

	// Clear removes the saved snapshot. Clearing an empty store is not an error.
	Clear(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}
