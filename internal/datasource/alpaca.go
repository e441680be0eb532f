package datasource

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"tokensight/internal/domain"
)

// Compile-time interface check.
var _ Source = (*AlpacaSource)(nil)

// AlpacaSource fetches crypto bars from the Alpaca market-data API. Unlike
// the on-chain providers it addresses assets as trading pairs ("BTC/USD")
// and ignores the chain field.
type AlpacaSource struct {
	client *marketdata.Client
	log    *slog.Logger
}

// NewAlpacaSource creates an AlpacaSource with the given credentials. An
// empty dataURL uses the public market-data endpoint.
func NewAlpacaSource(apiKey, apiSecret, dataURL string) *AlpacaSource {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return &AlpacaSource{
		client: marketdata.NewClient(opts),
		log:    slog.Default().With("source", "alpaca"),
	}
}

// Name returns the provider identifier.
func (s *AlpacaSource) Name() string { return "alpaca" }

// Fetch retrieves crypto bars and maps the close of each bar to a price point.
func (s *AlpacaSource) Fetch(ctx context.Context, q Query) (domain.PriceSeries, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("alpaca: %w", err)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	timeframe, err := alpacaTimeFrame(q.Interval)
	if err != nil {
		return nil, fmt.Errorf("alpaca: %w", err)
	}

	bars, err := s.client.GetCryptoBars(q.Symbol, marketdata.GetCryptoBarsRequest{
		TimeFrame: timeframe,
		Start:     q.From,
		End:       q.To,
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca: GetCryptoBars %s: %w", q.Symbol, err)
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("alpaca: %s [%s, %s]: %w",
			q.Symbol, q.From, q.To, domain.ErrNoData)
	}

	series := make(domain.PriceSeries, len(bars))
	for i, b := range bars {
		series[i] = domain.PricePoint{
			Timestamp: b.Timestamp.UTC(),
			Price:     b.Close,
			Volume:    b.Volume,
		}
	}
	s.log.Debug("fetched bars", "symbol", q.Symbol, "count", len(series))
	return sortSeries(series), nil
}

// alpacaTimeFrame maps an interval string to an Alpaca timeframe.
func alpacaTimeFrame(interval string) (marketdata.TimeFrame, error) {
	switch interval {
	case IntervalMinute:
		return marketdata.OneMin, nil
	case IntervalFiveMinute:
		return marketdata.NewTimeFrame(5, marketdata.Min), nil
	case IntervalHour:
		return marketdata.OneHour, nil
	case IntervalDay:
		return marketdata.OneDay, nil
	default:
		return marketdata.TimeFrame{}, fmt.Errorf("%w: interval %q", domain.ErrInvalidParameter, interval)
	}
}
