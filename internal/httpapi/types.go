package httpapi

import (
	"time"

	"tokensight/internal/domain"
)

// RunResponse is the JSON shape of one pipeline run.
type RunResponse struct {
	Provider string         `json:"provider"`
	Symbol   string         `json:"symbol"`
	Chain    string         `json:"chain,omitempty"`
	Interval string         `json:"interval"`
	From     time.Time      `json:"from"`
	To       time.Time      `json:"to"`
	Points   []PointJSON    `json:"points"`
	Tuning   TuningJSON     `json:"tuning"`
	Summary  domain.Summary `json:"summary"`
	Equity   []float64      `json:"equity"`
}

// PointJSON is one annotated observation.
type PointJSON struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	Return    float64   `json:"return"`
	Momentum  float64   `json:"momentum"`
	ProbUp    float64   `json:"probUp"`
	Signal    string    `json:"signal"`
}

// TuningJSON is the grid-search outcome.
type TuningJSON struct {
	Window         int     `json:"window"`
	BuyThreshold   float64 `json:"buyThreshold"`
	SellThreshold  float64 `json:"sellThreshold"`
	BestCumulative float64 `json:"bestCumulative"`
}

// WatchlistResponse lists the latest scheduled results.
type WatchlistResponse struct {
	Entries []WatchEntryJSON `json:"entries"`
}

// WatchEntryJSON is one watched symbol's latest tuning outcome.
type WatchEntryJSON struct {
	Provider       string         `json:"provider"`
	Symbol         string         `json:"symbol"`
	Chain          string         `json:"chain,omitempty"`
	Interval       string         `json:"interval"`
	Window         int            `json:"window"`
	BuyThreshold   float64        `json:"buyThreshold"`
	SellThreshold  float64        `json:"sellThreshold"`
	BestCumulative float64        `json:"bestCumulative"`
	Summary        domain.Summary `json:"summary"`
	LastSignal     string         `json:"lastSignal"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

func convertResult(res *domain.Result) RunResponse {
	points := make([]PointJSON, len(res.Annotated))
	for i, pt := range res.Annotated {
		points[i] = PointJSON{
			Timestamp: pt.Timestamp,
			Price:     pt.Price,
			Return:    pt.Return,
			Momentum:  pt.Momentum,
			ProbUp:    pt.ProbUp,
			Signal:    pt.Signal.String(),
		}
	}

	return RunResponse{
		Provider: res.Request.Provider,
		Symbol:   res.Request.Symbol,
		Chain:    res.Request.Chain,
		Interval: res.Request.Interval,
		From:     res.Request.From,
		To:       res.Request.To,
		Points:   points,
		Tuning: TuningJSON{
			Window:         res.Tuning.Best.Window,
			BuyThreshold:   res.Tuning.Best.BuyThreshold,
			SellThreshold:  res.Tuning.Best.SellThreshold,
			BestCumulative: res.Tuning.BestCumulative,
		},
		Summary: res.Backtest.Summary,
		Equity:  res.Backtest.Cumulative,
	}
}

func convertWatchlist(results []*domain.Result) WatchlistResponse {
	entries := make([]WatchEntryJSON, 0, len(results))
	for _, res := range results {
		e := WatchEntryJSON{
			Provider:       res.Request.Provider,
			Symbol:         res.Request.Symbol,
			Chain:          res.Request.Chain,
			Interval:       res.Request.Interval,
			Window:         res.Tuning.Best.Window,
			BuyThreshold:   res.Tuning.Best.BuyThreshold,
			SellThreshold:  res.Tuning.Best.SellThreshold,
			BestCumulative: res.Tuning.BestCumulative,
			Summary:        res.Backtest.Summary,
			UpdatedAt:      res.Request.To,
		}
		if n := len(res.Annotated); n > 0 {
			e.LastSignal = res.Annotated[n-1].Signal.String()
		}
		entries = append(entries, e)
	}
	return WatchlistResponse{Entries: entries}
}
