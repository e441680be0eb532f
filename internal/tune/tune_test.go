package tune

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"tokensight/internal/backtest"
	"tokensight/internal/domain"
	"tokensight/internal/signal"
	"tokensight/internal/util"
)

func series(prices ...float64) domain.PriceSeries {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	s := make(domain.PriceSeries, len(prices))
	for i, p := range prices {
		s[i] = domain.PricePoint{Timestamp: base.Add(time.Duration(i) * time.Hour), Price: p}
	}
	return s
}

// wavy is a series with enough structure that different parameter sets score
// differently.
func wavy() domain.PriceSeries {
	prices := make([]float64, 60)
	p := 100.0
	for i := range prices {
		p *= 1 + 0.04*math.Sin(float64(i)/3) + 0.01*math.Cos(float64(i)/7)
		prices[i] = p
	}
	return series(prices...)
}

func newTuner(workers int) *Tuner {
	return New(signal.New(), workers, util.NewLogger("error"))
}

func TestTuneBestBeatsAllCombinations(t *testing.T) {
	s := wavy()
	grid := domain.Grid{
		Windows:        domain.IntRange(1, 5),
		BuyThresholds:  domain.FloatRange(0.55, 0.65, 0.05),
		SellThresholds: domain.FloatRange(0.35, 0.45, 0.05),
	}

	res, err := newTuner(4).Tune(context.Background(), s, grid)
	if err != nil {
		t.Fatalf("Tune: %v", err)
	}

	gen := signal.New()
	for _, w := range grid.Windows {
		for _, buy := range grid.BuyThresholds {
			for _, sell := range grid.SellThresholds {
				params := domain.ParameterSet{Window: w, BuyThreshold: buy, SellThreshold: sell}
				annotated, err := gen.Generate(s, params)
				if err != nil {
					t.Fatalf("Generate(%+v): %v", params, err)
				}
				if v := backtest.FinalCumulative(annotated); v > res.BestCumulative {
					t.Errorf("combination %+v scores %v, above reported best %v", params, v, res.BestCumulative)
				}
			}
		}
	}

	// The reported objective must match re-evaluating the winner.
	annotated, err := gen.Generate(s, res.Best)
	if err != nil {
		t.Fatalf("Generate(best): %v", err)
	}
	if v := backtest.FinalCumulative(annotated); math.Abs(v-res.BestCumulative) > 1e-12 {
		t.Errorf("re-evaluated best = %v, reported %v", v, res.BestCumulative)
	}
}

func TestTuneDeterministicAcrossWorkerCounts(t *testing.T) {
	s := wavy()
	grid := domain.Grid{
		Windows:        domain.IntRange(1, 8),
		BuyThresholds:  domain.FloatRange(0.55, 0.75, 0.05),
		SellThresholds: domain.FloatRange(0.25, 0.45, 0.05),
	}

	var first domain.TuningResult
	for run, workers := range []int{1, 2, 8, 8} {
		res, err := newTuner(workers).Tune(context.Background(), s, grid)
		if err != nil {
			t.Fatalf("Tune with %d workers: %v", workers, err)
		}
		if run == 0 {
			first = res
			continue
		}
		if res != first {
			t.Errorf("workers=%d: result %+v differs from %+v", workers, res, first)
		}
	}
}

func TestTuneTieBreaksToFirstEnumerated(t *testing.T) {
	// A flat series never trades: every combination scores exactly 1, so the
	// winner must be the first enumerated combination regardless of workers.
	s := series(50, 50, 50, 50, 50, 50)
	grid := domain.Grid{
		Windows:        domain.IntRange(2, 6),
		BuyThresholds:  domain.FloatRange(0.55, 0.75, 0.05),
		SellThresholds: domain.FloatRange(0.25, 0.45, 0.05),
	}

	for _, workers := range []int{1, 7} {
		res, err := newTuner(workers).Tune(context.Background(), s, grid)
		if err != nil {
			t.Fatalf("Tune: %v", err)
		}
		want := domain.ParameterSet{Window: 2, BuyThreshold: 0.55, SellThreshold: 0.25}
		if res.Best != want {
			t.Errorf("workers=%d: Best = %+v, want first combination %+v", workers, res.Best, want)
		}
		if res.BestCumulative != 1 {
			t.Errorf("workers=%d: BestCumulative = %v, want 1", workers, res.BestCumulative)
		}
	}
}

func TestTuneRejectsEmptyGrid(t *testing.T) {
	_, err := newTuner(2).Tune(context.Background(), series(1, 2, 3), domain.Grid{})
	if !errors.Is(err, domain.ErrInvalidParameter) {
		t.Errorf("Tune with empty grid returned %v, want ErrInvalidParameter", err)
	}
}

func TestTuneRejectsEmptySeries(t *testing.T) {
	_, err := newTuner(2).Tune(context.Background(), nil, domain.DefaultGrid())
	if !errors.Is(err, domain.ErrNoData) {
		t.Errorf("Tune with empty series returned %v, want ErrNoData", err)
	}
}

func TestTuneDefaultGridSize(t *testing.T) {
	grid := domain.DefaultGrid()
	if got := grid.Size(); got != 450 {
		t.Fatalf("DefaultGrid().Size() = %d, want 450", got)
	}
	if got := len(enumerate(grid)); got != 450 {
		t.Fatalf("len(enumerate(default grid)) = %d, want 450", got)
	}

	if _, err := newTuner(8).Tune(context.Background(), wavy(), grid); err != nil {
		t.Fatalf("Tune over default grid: %v", err)
	}
}

func TestTuneCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTuner(2).Tune(ctx, wavy(), domain.DefaultGrid())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Tune with cancelled context returned %v, want context.Canceled", err)
	}
}
