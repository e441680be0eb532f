// Package httpapi serves the analysis pipeline over HTTP: JSON run results,
// rendered chart PNGs, and the scheduled watchlist snapshot.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"tokensight/internal/domain"
	"tokensight/internal/pipeline"
	"tokensight/internal/render"
)

// WatchSnapshot provides the latest scheduled results. Implemented by the
// scheduler; nil when no watchlist is configured.
type WatchSnapshot interface {
	Snapshot() []*domain.Result
}

// Server serves the analysis HTTP API.
type Server struct {
	pipe  *pipeline.Pipeline
	watch WatchSnapshot
	log   *slog.Logger
}

// NewServer creates a Server. watch may be nil.
func NewServer(pipe *pipeline.Pipeline, watch WatchSnapshot, log *slog.Logger) *Server {
	return &Server{pipe: pipe, watch: watch, log: log}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/run", s.handleRun)
	mux.HandleFunc("GET /api/chart/price", s.handlePriceChart)
	mux.HandleFunc("GET /api/chart/equity", s.handleEquityChart)
	mux.HandleFunc("GET /api/watchlist", s.handleWatchlist)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeRunError maps pipeline errors to HTTP statuses.
func writeRunError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidParameter):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNoData):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// parseRequest builds a pipeline request from query parameters. Range comes
// from either explicit from/to (RFC 3339) or a days lookback ending now.
func parseRequest(r *http.Request) (domain.Request, error) {
	q := r.URL.Query()

	req := domain.Request{
		Provider: q.Get("provider"),
		Symbol:   q.Get("symbol"),
		Chain:    q.Get("chain"),
		Interval: q.Get("interval"),
	}
	if req.Symbol == "" {
		return req, fmt.Errorf("%w: symbol required", domain.ErrInvalidParameter)
	}
	if req.Interval == "" {
		req.Interval = "1h"
	}

	days := 30
	if v := q.Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return req, fmt.Errorf("%w: days %q", domain.ErrInvalidParameter, v)
		}
		days = n
	}
	req.To = time.Now().UTC()
	req.From = req.To.AddDate(0, 0, -days)

	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return req, fmt.Errorf("%w: from %q", domain.ErrInvalidParameter, v)
		}
		req.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return req, fmt.Errorf("%w: to %q", domain.ErrInvalidParameter, v)
		}
		req.To = t
	}
	return req, nil
}

func (s *Server) run(w http.ResponseWriter, r *http.Request) (*domain.Result, bool) {
	req, err := parseRequest(r)
	if err != nil {
		writeRunError(w, err)
		return nil, false
	}

	res, err := s.pipe.Run(r.Context(), req)
	if err != nil {
		s.log.Warn("run failed", "symbol", req.Symbol, "error", err)
		writeRunError(w, err)
		return nil, false
	}
	return res, true
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	res, ok := s.run(w, r)
	if !ok {
		return
	}
	writeJSON(w, convertResult(res))
}

func (s *Server) handlePriceChart(w http.ResponseWriter, r *http.Request) {
	res, ok := s.run(w, r)
	if !ok {
		return
	}

	title := fmt.Sprintf("%s %s  %s", res.Request.Symbol, res.Request.Interval, render.FormatParams(res.Tuning.Best))
	img, err := render.PriceChart(title, res.Annotated)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(img)
}

func (s *Server) handleEquityChart(w http.ResponseWriter, r *http.Request) {
	res, ok := s.run(w, r)
	if !ok {
		return
	}

	title := fmt.Sprintf("%s equity  %s", res.Request.Symbol, render.FormatTuning(res.Tuning))
	img, err := render.EquityChart(title, res.Annotated, res.Backtest.Cumulative)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(img)
}

func (s *Server) handleWatchlist(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		writeJSON(w, WatchlistResponse{Entries: []WatchEntryJSON{}})
		return
	}
	writeJSON(w, convertWatchlist(s.watch.Snapshot()))
}
