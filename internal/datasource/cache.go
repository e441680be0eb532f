package datasource

import (
	"context"
	"fmt"
	"log/slog"

	"tokensight/internal/domain"
	"tokensight/internal/store"
)

// Compile-time interface check.
var _ Source = (*CachedSource)(nil)

// CachedSource wraps a Source with a CandleStore. A fetch is served from the
// store when the cached points cover the requested range; otherwise the
// upstream provider is hit and the result written back.
type CachedSource struct {
	src   Source
	store store.CandleStore
	log   *slog.Logger
}

// NewCachedSource wraps src with the given store.
func NewCachedSource(src Source, s store.CandleStore) *CachedSource {
	return &CachedSource{
		src:   src,
		store: s,
		log:   slog.Default().With("source", src.Name(), "cached", true),
	}
}

// Name returns the wrapped provider's identifier.
func (c *CachedSource) Name() string { return c.src.Name() }

// Fetch serves the query from the cache when possible. Coverage is judged by
// the cached endpoints: the first and last cached points must sit within one
// interval of the requested range boundaries. A cache miss falls through to
// the upstream source; a write-back failure is logged but does not fail the
// fetch, since the data is already in hand.
func (c *CachedSource) Fetch(ctx context.Context, q Query) (domain.PriceSeries, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", c.src.Name(), err)
	}
	period, err := IntervalDuration(q.Interval)
	if err != nil {
		return nil, err
	}

	cached, err := c.store.ReadCandles(ctx, q.Symbol, q.Chain, q.From, q.To)
	if err != nil {
		c.log.Warn("cache read failed", "symbol", q.Symbol, "err", err)
	} else if len(cached) > 0 {
		first := cached[0].Timestamp
		last := cached[len(cached)-1].Timestamp
		if !first.After(q.From.Add(period)) && !last.Before(q.To.Add(-period)) {
			c.log.Debug("cache hit", "symbol", q.Symbol, "count", len(cached))
			return cached, nil
		}
	}

	series, err := c.src.Fetch(ctx, q)
	if err != nil {
		return nil, err
	}

	if err := c.store.WriteCandles(ctx, q.Symbol, q.Chain, series); err != nil {
		c.log.Warn("cache write failed", "symbol", q.Symbol, "err", err)
	}
	return series, nil
}
