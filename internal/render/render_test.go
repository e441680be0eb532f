package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"tokensight/internal/backtest"
	"tokensight/internal/domain"
	"tokensight/internal/signal"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func annotated(t *testing.T, prices ...float64) domain.AnnotatedSeries {
	t.Helper()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	s := make(domain.PriceSeries, len(prices))
	for i, p := range prices {
		s[i] = domain.PricePoint{Timestamp: base.Add(time.Duration(i) * time.Hour), Price: p}
	}
	out, err := signal.New().Generate(s, domain.ParameterSet{Window: 1, BuyThreshold: 0.6, SellThreshold: 0.4})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return out
}

func TestPriceChartProducesPNG(t *testing.T) {
	a := annotated(t, 100, 110, 121, 108, 95, 102, 115)
	img, err := PriceChart("AI16Z 1h", a)
	if err != nil {
		t.Fatalf("PriceChart: %v", err)
	}
	if !bytes.HasPrefix(img, pngMagic) {
		t.Errorf("output does not start with PNG magic: % x", img[:4])
	}
}

func TestPriceChartTooShort(t *testing.T) {
	a := annotated(t, 100)
	if _, err := PriceChart("x", a); !errors.Is(err, ErrNotEnoughPoints) {
		t.Errorf("PriceChart on 1 point = %v, want ErrNotEnoughPoints", err)
	}
}

func TestEquityChartProducesPNG(t *testing.T) {
	a := annotated(t, 100, 110, 121, 108, 95, 102, 115)
	res := backtest.Evaluate(a)

	img, err := EquityChart("AI16Z equity", a, res.Cumulative)
	if err != nil {
		t.Fatalf("EquityChart: %v", err)
	}
	if !bytes.HasPrefix(img, pngMagic) {
		t.Errorf("output does not start with PNG magic: % x", img[:4])
	}
}

func TestEquityChartLengthMismatch(t *testing.T) {
	a := annotated(t, 100, 110, 121)
	if _, err := EquityChart("x", a, []float64{1, 1}); !errors.Is(err, ErrNotEnoughPoints) {
		t.Errorf("EquityChart with mismatched lengths = %v, want ErrNotEnoughPoints", err)
	}
}

func TestFormatInt(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
	}
	for _, tt := range tests {
		if got := FormatInt(tt.n); got != tt.want {
			t.Errorf("FormatInt(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestFormatSummary(t *testing.T) {
	s := domain.Summary{
		TotalTrades:   1234,
		WinRate:       0.5,
		AvgNextReturn: 0.0123,
		Volatility:    0.2,
		MaxDrawdown:   0.35,
	}
	out := FormatSummary(s)

	for _, want := range []string{"1,234", "50.00%", "1.23%", "20.00%", "35.00%"} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatSummary output missing %q:\n%s", want, out)
		}
	}
	if lines := strings.Count(out, "\n"); lines != 5 {
		t.Errorf("FormatSummary has %d lines, want 5", lines)
	}
}

func TestFormatTuning(t *testing.T) {
	out := FormatTuning(domain.TuningResult{
		Best:           domain.ParameterSet{Window: 7, BuyThreshold: 0.65, SellThreshold: 0.3},
		BestCumulative: 1.4321,
	})
	want := "window=7 buy=0.65 sell=0.30  final=1.4321x"
	if out != want {
		t.Errorf("FormatTuning = %q, want %q", out, want)
	}
}
