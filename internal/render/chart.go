// Package render turns pipeline results into PNG charts and formatted text
// summaries.
package render

import (
	"errors"
	"fmt"
	"time"

	"github.com/vicanso/go-charts/v2"

	"tokensight/internal/domain"
)

// ErrNotEnoughPoints is returned when a series is too short to chart.
var ErrNotEnoughPoints = errors.New("not enough points to chart")

// PriceChart renders the price curve with the up-probability on a secondary
// axis and the buy/sell signals as separate marker series. Signal series use
// null values everywhere except at their own indices, so they draw as dots
// on top of the price line.
func PriceChart(title string, annotated domain.AnnotatedSeries) ([]byte, error) {
	if len(annotated) < 2 {
		return nil, ErrNotEnoughPoints
	}

	n := len(annotated)
	null := charts.GetNullValue()
	price := make([]float64, n)
	probUp := make([]float64, n)
	buys := make([]float64, n)
	sells := make([]float64, n)
	for i, pt := range annotated {
		price[i] = pt.Price
		probUp[i] = pt.ProbUp
		buys[i] = null
		sells[i] = null
		switch pt.Signal {
		case domain.SignalBuy:
			buys[i] = pt.Price
		case domain.SignalSell:
			sells[i] = pt.Price
		}
	}

	names := []string{"Price", "Prob Up", "Buy", "Sell"}
	seriesList := charts.NewSeriesListDataFromValues([][]float64{price, probUp, buys, sells}, charts.ChartTypeLine)
	for i := range seriesList {
		seriesList[i].Name = names[i]
		seriesList[i].AxisIndex = 0
	}
	// Probability lives on its own right-hand axis.
	seriesList[1].AxisIndex = 1

	yMin, yMax := priceBounds(price)
	probMin, probMax := 0.0, 1.0

	painter, err := charts.Render(charts.ChartOption{SeriesList: seriesList},
		charts.TitleTextOptionFunc(title),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        timeLabels(annotated),
			BoundaryGap: charts.FalseFlag(),
			SplitNumber: 8,
		}),
		charts.YAxisOptionFunc(
			charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5},
			charts.YAxisOption{Min: &probMin, Max: &probMax, DivideCount: 5, Position: charts.PositionRight},
		),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("rendering price chart: %w", err)
	}
	return painter.Bytes()
}

// EquityChart renders the cumulative strategy-return curve.
func EquityChart(title string, annotated domain.AnnotatedSeries, cumulative []float64) ([]byte, error) {
	if len(cumulative) < 2 || len(annotated) != len(cumulative) {
		return nil, ErrNotEnoughPoints
	}

	yMin, yMax := priceBounds(cumulative)

	painter, err := charts.LineRender([][]float64{cumulative},
		charts.TitleTextOptionFunc(title),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        timeLabels(annotated),
			BoundaryGap: charts.FalseFlag(),
			SplitNumber: 8,
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("rendering equity chart: %w", err)
	}
	return painter.Bytes()
}

// timeLabels builds x-axis labels, dropping the time of day when the series
// spans more than a week.
func timeLabels(annotated domain.AnnotatedSeries) []string {
	span := annotated[len(annotated)-1].Timestamp.Sub(annotated[0].Timestamp)
	layout := "Jan 02 15:04"
	if span > 7*24*time.Hour {
		layout = "Jan 02"
	}

	labels := make([]string, len(annotated))
	for i, pt := range annotated {
		labels[i] = pt.Timestamp.Format(layout)
	}
	return labels
}

// priceBounds pads the value range by 5% so the curve does not touch the
// chart frame.
func priceBounds(values []float64) (float64, float64) {
	mn, mx := values[0], values[0]
	for _, v := range values[1:] {
		if v < mn {
			mn = v
		}
		if v > mx {
			mx = v
		}
	}
	pad := (mx - mn) * 0.05
	if pad == 0 {
		pad = mx * 0.01
		if pad == 0 {
			pad = 1
		}
	}
	mn -= pad
	if mn < 0 {
		mn = 0
	}
	return mn, mx + pad
}
