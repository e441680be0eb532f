// Package store defines storage interfaces for persisting and retrieving
// fetched price history, with SQLite and Parquet implementations.
package store

import (
	"context"
	"time"

	"tokensight/internal/domain"
)

// CandleStore persists and retrieves fetched price points so repeated runs
// over the same range do not hit the upstream providers again.
type CandleStore interface {
	// WriteCandles persists a batch of price points for a symbol on a chain.
	WriteCandles(ctx context.Context, symbol, chain string, points domain.PriceSeries) error

	// ReadCandles returns the stored points for the symbol and chain within
	// [start, end], ordered by timestamp.
	ReadCandles(ctx context.Context, symbol, chain string, start, end time.Time) (domain.PriceSeries, error)

	// ListSymbols returns all distinct symbols stored for the given chain.
	ListSymbols(ctx context.Context, chain string) ([]string, error)
}
