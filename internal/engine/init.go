package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"laddersim/internal/config"
	"laddersim/internal/domain"
	"laddersim/internal/ladder"
	"laddersim/internal/market"
	"laddersim/internal/util"
)

// Loader supplies the historical inputs of a simulation.
type Loader interface {
	LoadSeries(ctx context.Context) (market.Provider, error)
	LoadLadder(ctx context.Context) (*ladder.Feed, error)
}

// Initialize loads the price series and the ladder feed concurrently and
// builds an Engine from them. Each source is retried with backoff; the whole
// load is bounded by cfg.Simulation.LoadTimeout and fails with
// domain.ErrDataLoadTimeout when it is exceeded.
func Initialize(ctx context.Context, loader Loader, cfg *config.Config, opts ...Option) (*Engine, error) {
	timeout := cfg.Simulation.LoadTimeout
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	backoff := util.Backoff{
		Attempts:  max(cfg.Simulation.LoadRetries, 1),
		BaseDelay: 100 * time.Millisecond,
		MaxDelay:  time.Second,
	}

	var (
		prices market.Provider
		feed   *ladder.Feed
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return util.Retry(gctx, backoff, func() error {
			p, err := loader.LoadSeries(gctx)
			if err != nil {
				return fmt.Errorf("loading price series: %w", err)
			}
			prices = p
			return nil
		})
	})
	g.Go(func() error {
		return util.Retry(gctx, backoff, func() error {
			f, err := loader.LoadLadder(gctx)
			if err != nil {
				return fmt.Errorf("loading ladder feed: %w", err)
			}
			feed = f
			return nil
		})
	})

	// A loader that ignores its context must not hold up the deadline.
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s: %v", domain.ErrDataLoadTimeout, timeout, err)
		}
		return nil, err
	}

	return New(prices, feed, ParamsFromConfig(cfg.Trading), opts...)
}
