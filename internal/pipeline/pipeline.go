// Package pipeline orchestrates one full analysis run: fetch prices, tune
// parameters, generate signals, and backtest the winner.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tokensight/internal/backtest"
	"tokensight/internal/datasource"
	"tokensight/internal/domain"
	"tokensight/internal/signal"
	"tokensight/internal/tune"
)

// Pipeline runs requests end to end against a set of named providers.
type Pipeline struct {
	sources         map[string]datasource.Source
	defaultProvider string
	gen             *signal.Generator
	tuner           *tune.Tuner
	log             *slog.Logger
}

// New creates a Pipeline. The sources map is keyed by provider name;
// defaultProvider is used when a request leaves the provider empty.
func New(sources map[string]datasource.Source, defaultProvider string, gen *signal.Generator, tuner *tune.Tuner, log *slog.Logger) *Pipeline {
	return &Pipeline{
		sources:         sources,
		defaultProvider: defaultProvider,
		gen:             gen,
		tuner:           tuner,
		log:             log,
	}
}

// Run executes one request: fetch, tune over the grid, annotate the series
// with the winning parameters, and backtest it. A provider with no data for
// the range fails with domain.ErrNoData before any analysis starts.
func (p *Pipeline) Run(ctx context.Context, req domain.Request) (*domain.Result, error) {
	src, err := p.source(req.Provider)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	series, err := src.Fetch(ctx, datasource.Query{
		Symbol:   req.Symbol,
		Chain:    req.Chain,
		Interval: req.Interval,
		From:     req.From,
		To:       req.To,
	})
	if err != nil {
		return nil, err
	}
	if series.Empty() {
		return nil, fmt.Errorf("%s: %s: %w", src.Name(), req.Symbol, domain.ErrNoData)
	}

	grid := req.Grid
	if grid.Size() == 0 {
		grid = domain.DefaultGrid()
	}

	tuning, err := p.tuner.Tune(ctx, series, grid)
	if err != nil {
		return nil, err
	}

	annotated, err := p.gen.Generate(series, tuning.Best)
	if err != nil {
		return nil, err
	}
	result := backtest.Evaluate(annotated)

	p.log.Info("run complete",
		"provider", src.Name(),
		"symbol", req.Symbol,
		"points", len(series),
		"combinations", grid.Size(),
		"window", tuning.Best.Window,
		"final_cumulative", tuning.BestCumulative,
		"elapsed", time.Since(start).Round(time.Millisecond))

	return &domain.Result{
		Request:   req,
		Series:    series,
		Annotated: annotated,
		Tuning:    tuning,
		Backtest:  result,
	}, nil
}

// source resolves a provider name, falling back to the default for an empty
// name.
func (p *Pipeline) source(name string) (datasource.Source, error) {
	if name == "" {
		name = p.defaultProvider
	}
	src, ok := p.sources[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidParameter, name)
	}
	return src, nil
}
