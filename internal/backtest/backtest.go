// Package backtest applies a signal series to realized returns and produces
// cumulative performance, drawdown, and trade-level statistics.
package backtest

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"tokensight/internal/domain"
)

// Evaluate runs the signal-following strategy over an annotated series.
//
// The position taken at index i-1 is exposed to the return realized from i-1
// to i, so strategy returns lag signals by one period; anything else would be
// lookahead bias. Trade statistics use a separate, forward-looking measure:
// the return one step after the signal was issued. The two definitions are
// intentionally distinct.
//
// An empty series yields a zeroed result. Degenerate divisions (no trades,
// zero running maximum) are guarded to 0; the summary never carries NaN or
// Inf.
func Evaluate(annotated domain.AnnotatedSeries) domain.BacktestResult {
	n := len(annotated)
	if n == 0 {
		return domain.BacktestResult{}
	}

	// Lagged strategy returns. Index 0 has no prior signal and stays 0.
	strategyReturns := make([]float64, n)
	for i := 1; i < n; i++ {
		strategyReturns[i] = float64(annotated[i-1].Signal) * annotated[i].Return
	}

	// Cumulative product; starts effectively at 1.
	cumulative := make([]float64, n)
	prod := 1.0
	for i, r := range strategyReturns {
		prod *= 1 + r
		cumulative[i] = prod
	}

	return domain.BacktestResult{
		StrategyReturns: strategyReturns,
		Cumulative:      cumulative,
		Summary:         summarize(annotated, strategyReturns, cumulative),
	}
}

// FinalCumulative computes only the scalar objective the tuner maximizes:
// the last value of the cumulative product of lagged strategy returns. It
// skips the slice bookkeeping of Evaluate, which matters across hundreds of
// grid trials.
func FinalCumulative(annotated domain.AnnotatedSeries) float64 {
	prod := 1.0
	for i := 1; i < len(annotated); i++ {
		prod *= 1 + float64(annotated[i-1].Signal)*annotated[i].Return
	}
	return prod
}

// summarize computes drawdown and trade-level statistics.
func summarize(annotated domain.AnnotatedSeries, strategyReturns, cumulative []float64) domain.Summary {
	var s domain.Summary
	s.MaxDrawdown = maxDrawdown(cumulative)

	// Trade stats: a trade is any index with a non-HOLD signal; its outcome
	// is the realized return one step later. The next-return of the final
	// index is undefined and neutralized to 0 before it enters the stats.
	var nextReturns []float64
	wins := 0
	for i, pt := range annotated {
		if pt.Signal == domain.SignalHold {
			continue
		}
		next := 0.0
		if i+1 < len(annotated) {
			next = annotated[i+1].Return
		}
		nextReturns = append(nextReturns, next)
		if next > 0 {
			wins++
		}
	}

	s.TotalTrades = len(nextReturns)
	if s.TotalTrades > 0 {
		s.WinRate = float64(wins) / float64(s.TotalTrades)
		s.AvgNextReturn = stat.Mean(nextReturns, nil)
	}

	if len(strategyReturns) > 1 {
		if sd := stat.StdDev(strategyReturns, nil); !math.IsNaN(sd) {
			s.Volatility = sd
		}
	}

	return s
}

// maxDrawdown returns the largest fractional decline of the cumulative curve
// from its running peak, 0 for a non-decreasing curve or a zero peak.
func maxDrawdown(cumulative []float64) float64 {
	maxDD := 0.0
	peak := 0.0
	for _, c := range cumulative {
		if c > peak {
			peak = c
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - c) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
