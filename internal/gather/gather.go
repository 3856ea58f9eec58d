// Package gather defines the data import processes that populate the
// simulator's historical store.
package gather

import (
	"context"
	"time"
)

// Gatherer is the interface for all data gathering processes.
type Gatherer interface {
	// Name returns the gatherer identifier.
	Name() string
	// Run performs the import. It returns early when ctx is cancelled.
	Run(ctx context.Context) error
}

// DateRange represents an inclusive range of trading days. A zero Start or
// End leaves that side open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether the YYYY-MM-DD date falls inside the range.
// Unparseable dates are outside every bounded range.
func (r DateRange) Contains(date string) bool {
	if r.Start.IsZero() && r.End.IsZero() {
		return true
	}
	t, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return false
	}
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}
