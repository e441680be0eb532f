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
var _ Source = (*SyveSource)(nil)

// SyveSource fetches historical OHLC data from the Syve API. Requests carry a
// Bearer token and go through the same rate-limit and retry treatment as the
// other HTTP providers.
type SyveSource struct {
	apiKey      string
	baseURL     string
	httpClient  *http.Client
	limiter     *util.RateLimiter
	maxAttempts int
	log         *slog.Logger
}

// NewSyveSource creates a SyveSource with the given credentials and request
// limits.
func NewSyveSource(apiKey, baseURL string, rateLimitPerMin, maxAttempts int) *SyveSource {
	return &SyveSource{
		apiKey:      apiKey,
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		limiter:     util.NewRateLimiter(rateLimitPerMin),
		maxAttempts: maxAttempts,
		log:         slog.Default().With("source", "syve"),
	}
}

// Name returns the provider identifier.
func (s *SyveSource) Name() string { return "syve" }

// syveBar mirrors one element of the Syve OHLC response.
type syveBar struct {
	TimestampOpen int64   `json:"timestamp_open"` // Unix seconds
	PriceOpen     float64 `json:"price_open"`
	PriceHigh     float64 `json:"price_high"`
	PriceLow      float64 `json:"price_low"`
	PriceClose    float64 `json:"price_close"`
	Volume        float64 `json:"volume"`
}

// syveResponse is the envelope Syve wraps bar lists in.
type syveResponse struct {
	Data []syveBar `json:"data"`
}

// Fetch retrieves OHLC bars and maps the close of each bar to a price point.
func (s *SyveSource) Fetch(ctx context.Context, q Query) (domain.PriceSeries, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("syve: %w", err)
	}

	params := url.Values{}
	params.Set("token", q.Symbol)
	params.Set("chain", q.Chain)
	params.Set("from", strconv.FormatInt(q.From.Unix(), 10))
	params.Set("to", strconv.FormatInt(q.To.Unix(), 10))
	params.Set("interval", q.Interval)
	reqURL := s.baseURL + "?" + params.Encode()

	var body syveResponse
	err := util.Retry(ctx, s.maxAttempts, time.Second, func() error {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		return s.getJSON(ctx, reqURL, &body)
	})
	if err != nil {
		return nil, fmt.Errorf("syve: fetching %s on %s: %w", q.Symbol, q.Chain, err)
	}

	if len(body.Data) == 0 {
		return nil, fmt.Errorf("syve: %s on %s [%s, %s]: %w",
			q.Symbol, q.Chain, q.From.Format(time.RFC3339), q.To.Format(time.RFC3339), domain.ErrNoData)
	}

	series := make(domain.PriceSeries, len(body.Data))
	for i, b := range body.Data {
		series[i] = domain.PricePoint{
			Timestamp: time.Unix(b.TimestampOpen, 0).UTC(),
			Price:     b.PriceClose,
			Volume:    b.Volume,
		}
	}
	s.log.Debug("fetched bars", "symbol", q.Symbol, "chain", q.Chain, "count", len(series))
	return sortSeries(series), nil
}

// getJSON performs one authenticated GET and decodes the response body.
func (s *SyveSource) getJSON(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
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
