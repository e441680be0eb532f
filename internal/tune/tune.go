// Package tune searches a parameter grid for the combination with the best
// cumulative backtest performance.
package tune

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"tokensight/internal/backtest"
	"tokensight/internal/domain"
	"tokensight/internal/signal"
)

// Tuner runs an exhaustive grid search over window and threshold values. The
// search is embarrassingly parallel; trials are fanned out to a fixed pool of
// workers and reduced deterministically.
type Tuner struct {
	gen     *signal.Generator
	workers int
	log     *slog.Logger
}

// New creates a Tuner using the given generator. A non-positive worker count
// falls back to GOMAXPROCS.
func New(gen *signal.Generator, workers int, log *slog.Logger) *Tuner {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Tuner{gen: gen, workers: workers, log: log}
}

// trial is one grid combination, tagged with its enumeration index so that
// ties resolve identically regardless of worker scheduling.
type trial struct {
	index  int
	params domain.ParameterSet
}

type outcome struct {
	index int
	value float64
}

// Tune evaluates every combination of the grid against the series and returns
// the parameters with the highest final cumulative return. The grid is
// enumerated windows-outermost, sell-thresholds-innermost; among equally good
// combinations the one enumerated first wins, so results are reproducible for
// any worker count.
func (t *Tuner) Tune(ctx context.Context, series domain.PriceSeries, grid domain.Grid) (domain.TuningResult, error) {
	if err := grid.Validate(); err != nil {
		return domain.TuningResult{}, fmt.Errorf("tuning: %w", err)
	}
	if series.Empty() {
		return domain.TuningResult{}, fmt.Errorf("tuning: %w", domain.ErrNoData)
	}

	trials := enumerate(grid)
	t.log.Debug("starting grid search",
		"combinations", len(trials),
		"workers", t.workers,
		"points", len(series))

	jobs := make(chan trial)
	results := make(chan outcome)

	var wg sync.WaitGroup
	for w := 0; w < t.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tr := range jobs {
				annotated, err := t.gen.Generate(series, tr.params)
				if err != nil {
					// Grid validation already rejected bad parameters;
					// anything surfacing here is a programming error.
					panic(err)
				}
				results <- outcome{index: tr.index, value: backtest.FinalCumulative(annotated)}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, tr := range trials {
			select {
			case jobs <- tr:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	best := outcome{index: -1}
	received := 0
	for out := range results {
		received++
		if best.index == -1 || out.value > best.value || (out.value == best.value && out.index < best.index) {
			best = outcome{index: out.index, value: out.value}
		}
	}

	if err := ctx.Err(); err != nil {
		return domain.TuningResult{}, fmt.Errorf("tuning: %w", err)
	}
	if received != len(trials) || best.index < 0 {
		return domain.TuningResult{}, fmt.Errorf("tuning: evaluated %d of %d combinations", received, len(trials))
	}

	winner := trials[best.index].params
	t.log.Info("grid search finished",
		"window", winner.Window,
		"buy_threshold", winner.BuyThreshold,
		"sell_threshold", winner.SellThreshold,
		"final_cumulative", best.value)

	return domain.TuningResult{Best: winner, BestCumulative: best.value}, nil
}

// enumerate expands the grid into an ordered trial list.
func enumerate(grid domain.Grid) []trial {
	trials := make([]trial, 0, grid.Size())
	i := 0
	for _, w := range grid.Windows {
		for _, buy := range grid.BuyThresholds {
			for _, sell := range grid.SellThresholds {
				trials = append(trials, trial{
					index:  i,
					params: domain.ParameterSet{Window: w, BuyThreshold: buy, SellThreshold: sell},
				})
				i++
			}
		}
	}
	return trials
}
