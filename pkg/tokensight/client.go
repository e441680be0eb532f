// Package tokensight provides a Go SDK for the tokensight-server HTTP API.
package tokensight

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client calls the tokensight-server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new tokensight API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// RunParams selects the symbol and range for a run. Zero-valued fields fall
// back to the server defaults.
type RunParams struct {
	Provider string
	Symbol   string
	Chain    string
	Interval string
	Days     int
}

// RunResult mirrors the server's run response.
type RunResult struct {
	Provider string     `json:"provider"`
	Symbol   string     `json:"symbol"`
	Chain    string     `json:"chain,omitempty"`
	Interval string     `json:"interval"`
	Points   []RunPoint `json:"points"`
	Tuning   RunTuning  `json:"tuning"`
	Summary  RunSummary `json:"summary"`
	Equity   []float64  `json:"equity"`
}

// RunPoint is one annotated observation.
type RunPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	ProbUp    float64   `json:"probUp"`
	Signal    string    `json:"signal"`
}

// RunTuning is the grid-search outcome.
type RunTuning struct {
	Window         int     `json:"window"`
	BuyThreshold   float64 `json:"buyThreshold"`
	SellThreshold  float64 `json:"sellThreshold"`
	BestCumulative float64 `json:"bestCumulative"`
}

// RunSummary holds the backtest statistics.
type RunSummary struct {
	TotalTrades   int     `json:"totalTrades"`
	WinRate       float64 `json:"winRate"`
	AvgNextReturn float64 `json:"avgNextReturn"`
	Volatility    float64 `json:"volatility"`
	MaxDrawdown   float64 `json:"maxDrawdown"`
}

// WatchlistEntry is one watched symbol's latest tuning outcome.
type WatchlistEntry struct {
	Provider       string     `json:"provider"`
	Symbol         string     `json:"symbol"`
	Chain          string     `json:"chain,omitempty"`
	Interval       string     `json:"interval"`
	Window         int        `json:"window"`
	BuyThreshold   float64    `json:"buyThreshold"`
	SellThreshold  float64    `json:"sellThreshold"`
	BestCumulative float64    `json:"bestCumulative"`
	Summary        RunSummary `json:"summary"`
	LastSignal     string     `json:"lastSignal"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Run executes an analysis run for the given parameters.
func (c *Client) Run(ctx context.Context, p RunParams) (*RunResult, error) {
	var out RunResult
	if err := c.getJSON(ctx, "/api/run", runQuery(p), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Watchlist retrieves the latest scheduled results.
func (c *Client) Watchlist(ctx context.Context) ([]WatchlistEntry, error) {
	var out struct {
		Entries []WatchlistEntry `json:"entries"`
	}
	if err := c.getJSON(ctx, "/api/watchlist", nil, &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

// PriceChart retrieves the rendered price chart PNG for a run.
func (c *Client) PriceChart(ctx context.Context, p RunParams) ([]byte, error) {
	return c.getBytes(ctx, "/api/chart/price", runQuery(p))
}

// EquityChart retrieves the rendered equity chart PNG for a run.
func (c *Client) EquityChart(ctx context.Context, p RunParams) ([]byte, error) {
	return c.getBytes(ctx, "/api/chart/equity", runQuery(p))
}

func runQuery(p RunParams) url.Values {
	q := url.Values{}
	if p.Provider != "" {
		q.Set("provider", p.Provider)
	}
	q.Set("symbol", p.Symbol)
	if p.Chain != "" {
		q.Set("chain", p.Chain)
	}
	if p.Interval != "" {
		q.Set("interval", p.Interval)
	}
	if p.Days > 0 {
		q.Set("days", strconv.Itoa(p.Days))
	}
	return q
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (*http.Response, error) {
	reqURL := c.baseURL + path
	if len(q) > 0 {
		reqURL += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("%s: %s", resp.Status, apiErr.Error)
		}
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	resp, err := c.get(ctx, path, q)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) getBytes(ctx context.Context, path string, q url.Values) ([]byte, error) {
	resp, err := c.get(ctx, path, q)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}
