// Package datasource fetches historical price data from external providers
// (Moralis, Syve, Alpaca) and normalizes it into a PriceSeries.
package datasource

import (
	"context"
	"fmt"
	"sort"
	"time"

	"tokensight/internal/domain"
)

// Source fetches historical prices for one provider. Implementations return
// domain.ErrNoData when the provider has nothing for the requested range, so
// callers can short-circuit before any analysis runs.
type Source interface {
	// Name returns the provider identifier used in config and requests.
	Name() string

	// Fetch returns the price series for the query, ordered by timestamp.
	Fetch(ctx context.Context, q Query) (domain.PriceSeries, error)
}

// Query describes one historical price request.
type Query struct {
	// Symbol is the asset identifier in the provider's namespace: a token
	// symbol or contract address for the on-chain providers, a trading pair
	// like "BTC/USD" for Alpaca.
	Symbol   string
	Chain    string
	Interval string
	From     time.Time
	To       time.Time
}

// Candle intervals accepted by every provider.
const (
	IntervalMinute     = "1m"
	IntervalFiveMinute = "5m"
	IntervalHour       = "1h"
	IntervalDay        = "1d"
)

// IntervalDuration maps an interval string to its period length.
func IntervalDuration(interval string) (time.Duration, error) {
	switch interval {
	case IntervalMinute:
		return time.Minute, nil
	case IntervalFiveMinute:
		return 5 * time.Minute, nil
	case IntervalHour:
		return time.Hour, nil
	case IntervalDay:
		return 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("%w: interval %q", domain.ErrInvalidParameter, interval)
	}
}

// Validate rejects queries no provider can serve.
func (q Query) Validate() error {
	if q.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", domain.ErrInvalidParameter)
	}
	if _, err := IntervalDuration(q.Interval); err != nil {
		return err
	}
	if q.To.Before(q.From) {
		return fmt.Errorf("%w: range end %s before start %s", domain.ErrInvalidParameter, q.To, q.From)
	}
	return nil
}

// sortSeries orders a fetched series by timestamp. Providers mostly return
// ascending data already, but none of them document it.
func sortSeries(s domain.PriceSeries) domain.PriceSeries {
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].Timestamp.Before(s[j].Timestamp)
	})
	return s
}
