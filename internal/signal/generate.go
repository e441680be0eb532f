// Package signal derives per-period returns, momentum, an up-probability
// score, and a discrete trading signal from a price series.
package signal

import (
	"fmt"
	"math"

	"tokensight/internal/domain"
)

// DefaultSteepness is the logistic squashing constant applied to momentum.
// The value is inherited from the original calibration; there is no
// documented rationale behind it, so it stays configurable.
const DefaultSteepness = 10.0

// Generator turns a price series into an annotated series for a given
// parameter set. It is stateless and safe for concurrent use.
type Generator struct {
	// Steepness is the k in 1/(1+exp(-k*momentum)).
	Steepness float64
}

// New creates a Generator with the default logistic steepness.
func New() *Generator {
	return &Generator{Steepness: DefaultSteepness}
}

// Generate computes return, momentum, up-probability, and signal for every
// point of the series and returns a fresh annotated series. The input is
// never modified.
//
// Quantities undefined at the start of the series (return at index 0,
// momentum before one full window) are substituted with 0 before anything
// downstream consumes them, so prob-up is always defined and early indices
// naturally land on HOLD.
func (g *Generator) Generate(series domain.PriceSeries, params domain.ParameterSet) (domain.AnnotatedSeries, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("generating signals: %w", err)
	}

	annotated := make(domain.AnnotatedSeries, len(series))
	for i, p := range series {
		pt := domain.AnnotatedPoint{PricePoint: p}

		if i >= 1 {
			pt.Return = p.Price/series[i-1].Price - 1
		}
		if i >= params.Window {
			pt.Momentum = p.Price/series[i-params.Window].Price - 1
		}

		pt.ProbUp = g.probUp(pt.Momentum)

		// Buy first, then sell. The sell assignment overwrites the buy one,
		// so with inverted thresholds (buy < sell) an overlapping prob-up
		// resolves to SELL. Observable contract; do not reorder.
		if pt.ProbUp > params.BuyThreshold {
			pt.Signal = domain.SignalBuy
		}
		if pt.ProbUp < params.SellThreshold {
			pt.Signal = domain.SignalSell
		}

		annotated[i] = pt
	}

	return annotated, nil
}

// probUp squashes momentum into the open interval (0,1). The logistic
// saturates in float64 for |momentum| beyond roughly 71/k, so the result is
// nudged back inside the interval at the extremes.
func (g *Generator) probUp(momentum float64) float64 {
	p := 1 / (1 + math.Exp(-g.Steepness*momentum))
	if p >= 1 {
		p = math.Nextafter(1, 0)
	}
	if p <= 0 {
		p = math.Nextafter(0, 1)
	}
	return p
}
