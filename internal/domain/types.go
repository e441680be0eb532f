// Package domain defines the core data types shared across the tokensight
// pipeline: price series, signal parameters, annotated series, backtest
// results, and tuning results.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidParameter reports a parameter rejected at a component boundary
// (window below 1, empty tuning grid, and similar). Callers check it with
// errors.Is.
var ErrInvalidParameter = errors.New("invalid parameter")

// ErrNoData reports that a provider returned no observations for the
// requested range. The pipeline surfaces it before any analysis runs.
var ErrNoData = errors.New("no price data available")

// ---------------------------------------------------------------------------
// Price data
// ---------------------------------------------------------------------------

// PricePoint is a single observation of an asset price. Volume is zero when
// the upstream provider does not report it.
type PricePoint struct {
	Timestamp time.Time
	Price     float64
	Volume    float64
}

// PriceSeries is a time-ordered sequence of price points with non-decreasing
// timestamps. A series is treated as immutable once constructed: every
// transformation produces a fresh derived series. The tuner evaluates many
// parameter sets against the same base series, so in-place mutation would
// corrupt later trials.
type PriceSeries []PricePoint

// Empty reports whether the series holds no observations.
func (s PriceSeries) Empty() bool { return len(s) == 0 }

// Prices returns a fresh copy of the price column.
func (s PriceSeries) Prices() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Price
	}
	return out
}

// Sorted reports whether timestamps are non-decreasing. Duplicate timestamps
// are legal; they count as two observations at the same instant.
func (s PriceSeries) Sorted() bool {
	for i := 1; i < len(s); i++ {
		if s[i].Timestamp.Before(s[i-1].Timestamp) {
			return false
		}
	}
	return true
}

// ---------------------------------------------------------------------------
// Signal parameters
// ---------------------------------------------------------------------------

// ParameterSet holds the three knobs of the momentum signal: the look-back
// window and the two probability thresholds. No ordering is enforced between
// the thresholds; when they overlap (BuyThreshold < SellThreshold) the sell
// assignment wins because it is applied last.
type ParameterSet struct {
	Window        int     `json:"window"`
	BuyThreshold  float64 `json:"buyThreshold"`
	SellThreshold float64 `json:"sellThreshold"`
}

// Validate rejects parameter sets that cannot be evaluated. Windows longer
// than the series are legal (every index falls under the missing-momentum
// rule); windows below 1 are not.
func (p ParameterSet) Validate() error {
	if p.Window < 1 {
		return fmt.Errorf("%w: window %d, must be >= 1", ErrInvalidParameter, p.Window)
	}
	return nil
}

// Grid defines the search space for the parameter tuner. Each slice is
// enumerated in declared order: window outermost, buy threshold next, sell
// threshold innermost.
type Grid struct {
	Windows        []int
	BuyThresholds  []float64
	SellThresholds []float64
}

// DefaultGrid returns the stock search space: windows 3..20, buy thresholds
// 0.55..0.75 step 0.05, sell thresholds 0.25..0.45 step 0.05.
func DefaultGrid() Grid {
	return Grid{
		Windows:        IntRange(3, 20),
		BuyThresholds:  FloatRange(0.55, 0.75, 0.05),
		SellThresholds: FloatRange(0.25, 0.45, 0.05),
	}
}

// Validate rejects grids with an empty dimension or an invalid window.
func (g Grid) Validate() error {
	if len(g.Windows) == 0 || len(g.BuyThresholds) == 0 || len(g.SellThresholds) == 0 {
		return fmt.Errorf("%w: empty grid range", ErrInvalidParameter)
	}
	for _, w := range g.Windows {
		if w < 1 {
			return fmt.Errorf("%w: grid window %d, must be >= 1", ErrInvalidParameter, w)
		}
	}
	return nil
}

// Size returns the number of parameter combinations in the grid.
func (g Grid) Size() int {
	return len(g.Windows) * len(g.BuyThresholds) * len(g.SellThresholds)
}

// IntRange returns the integers from lo to hi inclusive.
func IntRange(lo, hi int) []int {
	if hi < lo {
		return nil
	}
	out := make([]int, 0, hi-lo+1)
	for v := lo; v <= hi; v++ {
		out = append(out, v)
	}
	return out
}

// FloatRange returns the arithmetic sequence lo, lo+step, ... up to hi
// inclusive, with a half-step tolerance against float drift.
func FloatRange(lo, hi, step float64) []float64 {
	if step <= 0 {
		return nil
	}
	var out []float64
	for i := 0; ; i++ {
		v := lo + float64(i)*step
		if v > hi+step/2 {
			break
		}
		out = append(out, v)
	}
	return out
}

// ---------------------------------------------------------------------------
// Annotated series
// ---------------------------------------------------------------------------

// Signal is a discrete trading stance derived from the up-probability.
type Signal int

// Signal values.
const (
	SignalSell Signal = -1
	SignalHold Signal = 0
	SignalBuy  Signal = 1
)

// String returns "SELL", "HOLD", or "BUY".
func (s Signal) String() string {
	switch s {
	case SignalSell:
		return "SELL"
	case SignalBuy:
		return "BUY"
	default:
		return "HOLD"
	}
}

// AnnotatedPoint extends a price point with the derived per-period quantities.
// Return and Momentum are 0 where the underlying quantity is undefined (the
// start of the series); the substitution happens before anything downstream
// consumes them, so the zero here is authoritative.
type AnnotatedPoint struct {
	PricePoint
	Return   float64
	Momentum float64
	ProbUp   float64
	Signal   Signal
}

// AnnotatedSeries is a price series annotated with returns, momentum,
// up-probability, and signals. Like PriceSeries it is never mutated after
// construction.
type AnnotatedSeries []AnnotatedPoint

// ---------------------------------------------------------------------------
// Backtest results
// ---------------------------------------------------------------------------

// FieldFormat selects how a summary field is rendered.
type FieldFormat int

// Rendering formats for summary fields.
const (
	FormatNumber FieldFormat = iota
	FormatPercent
)

// SummaryField pairs a summary value with its display format, so the
// presentation layer never inspects field names to decide formatting.
type SummaryField struct {
	Label  string
	Value  float64
	Format FieldFormat
}

// Summary holds the trade-level statistics of a backtest run.
type Summary struct {
	TotalTrades   int     `json:"totalTrades"`
	WinRate       float64 `json:"winRate"`
	AvgNextReturn float64 `json:"avgNextReturn"`
	Volatility    float64 `json:"volatility"`
	MaxDrawdown   float64 `json:"maxDrawdown"`
}

// Fields returns the summary as an ordered list of tagged fields for display.
func (s Summary) Fields() []SummaryField {
	return []SummaryField{
		{Label: "Total Trades", Value: float64(s.TotalTrades), Format: FormatNumber},
		{Label: "Win Rate", Value: s.WinRate, Format: FormatPercent},
		{Label: "Avg Next Return", Value: s.AvgNextReturn, Format: FormatPercent},
		{Label: "Volatility", Value: s.Volatility, Format: FormatPercent},
		{Label: "Max Drawdown", Value: s.MaxDrawdown, Format: FormatPercent},
	}
}

// BacktestResult holds the full output of a backtest: the lagged per-period
// strategy returns, the cumulative-return curve (Cumulative[0] is always 1),
// and the trade summary.
type BacktestResult struct {
	StrategyReturns []float64 `json:"strategyReturns"`
	Cumulative      []float64 `json:"cumulative"`
	Summary         Summary   `json:"summary"`
}

// TuningResult is the outcome of a grid search: the best parameter set and
// the final cumulative return it achieved.
type TuningResult struct {
	Best           ParameterSet `json:"best"`
	BestCumulative float64      `json:"bestCumulative"`
}

// ---------------------------------------------------------------------------
// Pipeline request/result
// ---------------------------------------------------------------------------

// Request describes one user-triggered run. It replaces any implicit
// session state: everything a run needs travels in this struct.
type Request struct {
	Provider string    `json:"provider"`
	Symbol   string    `json:"symbol"`
	Chain    string    `json:"chain,omitempty"`
	Interval string    `json:"interval"`
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`

	// Grid overrides the default search space when non-empty.
	Grid Grid `json:"-"`
}

// Result is the full output of one pipeline run.
type Result struct {
	Request   Request         `json:"request"`
	Series    PriceSeries     `json:"-"`
	Annotated AnnotatedSeries `json:"-"`
	Tuning    TuningResult    `json:"tuning"`
	Backtest  BacktestResult  `json:"backtest"`
}
