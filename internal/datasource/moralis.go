package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"tokensight/internal/domain"
	"tokensight/internal/util"
)

// Compile-time interface check.
var _ Source = (*MoralisSource)(nil)

// MoralisSource fetches token OHLCV data from the Moralis API. Requests are
// authenticated with an X-API-Key header, rate limited, and retried with
// exponential backoff.
type MoralisSource struct {
	apiKey      string
	baseURL     string
	httpClient  *http.Client
	limiter     *util.RateLimiter
	maxAttempts int
	log         *slog.Logger
}

// NewMoralisSource creates a MoralisSource with the given credentials and
// request limits.
func NewMoralisSource(apiKey, baseURL string, rateLimitPerMin, maxAttempts int) *MoralisSource {
	return &MoralisSource{
		apiKey:      apiKey,
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		limiter:     util.NewRateLimiter(rateLimitPerMin),
		maxAttempts: maxAttempts,
		log:         slog.Default().With("source", "moralis"),
	}
}

// Name returns the provider identifier.
func (s *MoralisSource) Name() string { return "moralis" }

// moralisBar mirrors one element of the Moralis OHLCV response.
type moralisBar struct {
	Timestamp int64   `json:"timestamp"` // Unix seconds
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Fetch retrieves OHLCV bars and maps the close of each bar to a price point.
func (s *MoralisSource) Fetch(ctx context.Context, q Query) (domain.PriceSeries, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("moralis: %w", err)
	}

	params := url.Values{}
	params.Set("address", q.Symbol)
	params.Set("chain", q.Chain)
	params.Set("from", strconv.FormatInt(q.From.Unix(), 10))
	params.Set("to", strconv.FormatInt(q.To.Unix(), 10))
	params.Set("interval", q.Interval)
	reqURL := s.baseURL + "?" + params.Encode()

	var bars []moralisBar
	err := util.Retry(ctx, s.maxAttempts, time.Second, func() error {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		return s.getJSON(ctx, reqURL, &bars)
	})
	if err != nil {
		return nil, fmt.Errorf("moralis: fetching %s on %s: %w", q.Symbol, q.Chain, err)
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("moralis: %s on %s [%s, %s]: %w",
			q.Symbol, q.Chain, q.From.Format(time.RFC3339), q.To.Format(time.RFC3339), domain.ErrNoData)
	}

	series := make(domain.PriceSeries, len(bars))
	for i, b := range bars {
		series[i] = domain.PricePoint{
			Timestamp: time.Unix(b.Timestamp, 0).UTC(),
			Price:     b.Close,
			Volume:    b.Volume,
		}
	}
	s.log.Debug("fetched bars", "symbol", q.Symbol, "chain", q.Chain, "count", len(series))
	return sortSeries(series), nil
}

// getJSON performs one authenticated GET and decodes the response body.
func (s *MoralisSource) getJSON(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-API-Key", s.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
