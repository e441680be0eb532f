package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tokensight/internal/datasource"
	"tokensight/internal/domain"
	"tokensight/internal/pipeline"
	"tokensight/internal/signal"
	"tokensight/internal/tune"
	"tokensight/internal/util"
)

type stubSource struct {
	series domain.PriceSeries
	err    error
}

func (s *stubSource) Name() string { return "syve" }

func (s *stubSource) Fetch(_ context.Context, _ datasource.Query) (domain.PriceSeries, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.series, nil
}

func wavySeries(n int) domain.PriceSeries {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	s := make(domain.PriceSeries, n)
	p := 100.0
	for i := range s {
		p *= 1 + 0.03*math.Sin(float64(i)/4)
		s[i] = domain.PricePoint{Timestamp: base.Add(time.Duration(i) * time.Hour), Price: p}
	}
	return s
}

func newTestServer(src datasource.Source, watch WatchSnapshot) *Server {
	log := util.NewLogger("error")
	gen := signal.New()
	pipe := pipeline.New(map[string]datasource.Source{"syve": src}, "syve", gen, tune.New(gen, 2, log), log)
	return NewServer(pipe, watch, log)
}

func TestHandleRun(t *testing.T) {
	srv := newTestServer(&stubSource{series: wavySeries(40)}, nil)

	// A narrow grid keeps the test fast; the handler does not expose grid
	// parameters, so go through the default path with a small series.
	req := httptest.NewRequest("GET", "/api/run?symbol=AI16Z&chain=ethereum&interval=1h&days=2", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp RunResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Symbol != "AI16Z" || resp.Interval != "1h" {
		t.Errorf("response symbol/interval = %s/%s, want AI16Z/1h", resp.Symbol, resp.Interval)
	}
	if len(resp.Points) != 40 || len(resp.Equity) != 40 {
		t.Errorf("points/equity lengths = %d/%d, want 40/40", len(resp.Points), len(resp.Equity))
	}
	if resp.Tuning.Window < 3 || resp.Tuning.Window > 20 {
		t.Errorf("Tuning.Window = %d, outside the stock grid", resp.Tuning.Window)
	}
	for _, pt := range resp.Points {
		if pt.Signal != "BUY" && pt.Signal != "SELL" && pt.Signal != "HOLD" {
			t.Fatalf("point signal = %q, want BUY/SELL/HOLD", pt.Signal)
		}
	}
}

func TestHandleRunMissingSymbol(t *testing.T) {
	srv := newTestServer(&stubSource{series: wavySeries(10)}, nil)

	req := httptest.NewRequest("GET", "/api/run", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleRunUnknownProvider(t *testing.T) {
	srv := newTestServer(&stubSource{series: wavySeries(10)}, nil)

	req := httptest.NewRequest("GET", "/api/run?symbol=X&provider=nope", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleRunNoData(t *testing.T) {
	srv := newTestServer(&stubSource{err: fmt.Errorf("syve: %w", domain.ErrNoData)}, nil)

	req := httptest.NewRequest("GET", "/api/run?symbol=GHOST", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleCharts(t *testing.T) {
	srv := newTestServer(&stubSource{series: wavySeries(40)}, nil)
	pngMagic := []byte{0x89, 'P', 'N', 'G'}

	for _, path := range []string{"/api/chart/price", "/api/chart/equity"} {
		req := httptest.NewRequest("GET", path+"?symbol=AI16Z", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, body = %s", path, rec.Code, rec.Body.String())
		}
		if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
			t.Errorf("%s: Content-Type = %q, want image/png", path, ct)
		}
		if !bytes.HasPrefix(rec.Body.Bytes(), pngMagic) {
			t.Errorf("%s: body is not a PNG", path)
		}
	}
}

// fixedSnapshot serves a canned watchlist.
type fixedSnapshot struct {
	results []*domain.Result
}

func (f *fixedSnapshot) Snapshot() []*domain.Result { return f.results }

func TestHandleWatchlist(t *testing.T) {
	res := &domain.Result{
		Request: domain.Request{Provider: "syve", Symbol: "AI16Z", Chain: "ethereum", Interval: "1h"},
		Tuning: domain.TuningResult{
			Best:           domain.ParameterSet{Window: 5, BuyThreshold: 0.6, SellThreshold: 0.4},
			BestCumulative: 1.25,
		},
		Annotated: domain.AnnotatedSeries{{Signal: domain.SignalBuy}},
	}
	srv := newTestServer(&stubSource{series: wavySeries(10)}, &fixedSnapshot{results: []*domain.Result{res}})

	req := httptest.NewRequest("GET", "/api/watchlist", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp WatchlistResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Entries) != 1 {
		t.Fatalf("len(Entries) = %d, want 1", len(resp.Entries))
	}
	e := resp.Entries[0]
	if e.Symbol != "AI16Z" || e.Window != 5 || e.LastSignal != "BUY" {
		t.Errorf("entry = %+v, want AI16Z/window 5/BUY", e)
	}
}

func TestHandleWatchlistUnconfigured(t *testing.T) {
	srv := newTestServer(&stubSource{series: wavySeries(10)}, nil)

	req := httptest.NewRequest("GET", "/api/watchlist", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp WatchlistResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Entries == nil || len(resp.Entries) != 0 {
		t.Errorf("Entries = %v, want empty non-nil list", resp.Entries)
	}
}
