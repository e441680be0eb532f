package domain

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestPriceSeriesSorted(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	sorted := PriceSeries{
		{Timestamp: base, Price: 100},
		{Timestamp: base.Add(time.Hour), Price: 101},
		{Timestamp: base.Add(time.Hour), Price: 102}, // duplicate instant is legal
	}
	if !sorted.Sorted() {
		t.Error("Sorted() = false for non-decreasing series")
	}

	unsorted := PriceSeries{
		{Timestamp: base.Add(time.Hour), Price: 100},
		{Timestamp: base, Price: 101},
	}
	if unsorted.Sorted() {
		t.Error("Sorted() = true for out-of-order series")
	}
}

func TestPriceSeriesPricesCopies(t *testing.T) {
	s := PriceSeries{{Price: 1}, {Price: 2}}
	got := s.Prices()
	got[0] = 99
	if s[0].Price != 1 {
		t.Error("Prices() aliases the underlying series")
	}
}

func TestParameterSetValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  ParameterSet
		wantErr bool
	}{
		{"valid", ParameterSet{Window: 1, BuyThreshold: 0.6, SellThreshold: 0.4}, false},
		{"zero window", ParameterSet{Window: 0, BuyThreshold: 0.6, SellThreshold: 0.4}, true},
		{"negative window", ParameterSet{Window: -3, BuyThreshold: 0.6, SellThreshold: 0.4}, true},
		{"inverted thresholds are legal", ParameterSet{Window: 5, BuyThreshold: 0.3, SellThreshold: 0.7}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("Validate() error = %v, want ErrInvalidParameter", err)
			}
		})
	}
}

func TestDefaultGrid(t *testing.T) {
	g := DefaultGrid()

	if len(g.Windows) != 18 {
		t.Errorf("len(Windows) = %d, want 18", len(g.Windows))
	}
	if g.Windows[0] != 3 || g.Windows[len(g.Windows)-1] != 20 {
		t.Errorf("Windows = [%d..%d], want [3..20]", g.Windows[0], g.Windows[len(g.Windows)-1])
	}
	if len(g.BuyThresholds) != 5 {
		t.Errorf("len(BuyThresholds) = %d, want 5", len(g.BuyThresholds))
	}
	if len(g.SellThresholds) != 5 {
		t.Errorf("len(SellThresholds) = %d, want 5", len(g.SellThresholds))
	}
	if math.Abs(g.BuyThresholds[0]-0.55) > 1e-12 || math.Abs(g.BuyThresholds[4]-0.75) > 1e-9 {
		t.Errorf("BuyThresholds = %v, want 0.55..0.75", g.BuyThresholds)
	}
	if math.Abs(g.SellThresholds[0]-0.25) > 1e-12 || math.Abs(g.SellThresholds[4]-0.45) > 1e-9 {
		t.Errorf("SellThresholds = %v, want 0.25..0.45", g.SellThresholds)
	}
	if g.Size() != 18*5*5 {
		t.Errorf("Size() = %d, want %d", g.Size(), 18*5*5)
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate() on default grid: %v", err)
	}
}

func TestGridValidate(t *testing.T) {
	empty := Grid{Windows: []int{3}, BuyThresholds: nil, SellThresholds: []float64{0.4}}
	if err := empty.Validate(); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Validate() on empty range = %v, want ErrInvalidParameter", err)
	}

	badWindow := Grid{Windows: []int{0}, BuyThresholds: []float64{0.6}, SellThresholds: []float64{0.4}}
	if err := badWindow.Validate(); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("Validate() with window 0 = %v, want ErrInvalidParameter", err)
	}
}

func TestSignalString(t *testing.T) {
	if SignalBuy.String() != "BUY" || SignalSell.String() != "SELL" || SignalHold.String() != "HOLD" {
		t.Error("Signal.String() returned unexpected labels")
	}
}

func TestSummaryFields(t *testing.T) {
	s := Summary{TotalTrades: 7, WinRate: 0.5, AvgNextReturn: 0.01, Volatility: 0.02, MaxDrawdown: 0.1}
	fields := s.Fields()

	if len(fields) != 5 {
		t.Fatalf("Fields() returned %d fields, want 5", len(fields))
	}
	if fields[0].Format != FormatNumber {
		t.Error("TotalTrades should carry FormatNumber")
	}
	for _, f := range fields[1:] {
		if f.Format != FormatPercent {
			t.Errorf("field %q should carry FormatPercent", f.Label)
		}
	}
	if fields[0].Value != 7 {
		t.Errorf("TotalTrades value = %v, want 7", fields[0].Value)
	}
}

func TestFloatRange(t *testing.T) {
	got := FloatRange(0.25, 0.45, 0.05)
	want := []float64{0.25, 0.30, 0.35, 0.40, 0.45}
	if len(got) != len(want) {
		t.Fatalf("FloatRange returned %d values, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("FloatRange[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if FloatRange(1, 0.5, 0.1) != nil {
		t.Error("FloatRange with hi < lo should return nil")
	}
	if FloatRange(0, 1, 0) != nil {
		t.Error("FloatRange with step 0 should return nil")
	}
}
