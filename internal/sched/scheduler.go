// Package sched periodically re-runs the pipeline for a configured watchlist
// and keeps the latest result per symbol in memory.
package sched

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"tokensight/internal/config"
	"tokensight/internal/domain"
	"tokensight/internal/pipeline"
)

// Refresher re-tunes every watchlist entry on a cron schedule. Results are
// held in memory only; each refresh fully replaces the previous result for
// its entry.
type Refresher struct {
	pipe     *pipeline.Pipeline
	entries  []config.WatchEntry
	schedule string
	cron     *cron.Cron
	log      *slog.Logger

	mu     sync.RWMutex
	latest map[string]*domain.Result
}

// NewRefresher creates a Refresher for the given watchlist.
func NewRefresher(pipe *pipeline.Pipeline, cfg config.WatchlistConfig, log *slog.Logger) *Refresher {
	return &Refresher{
		pipe:     pipe,
		entries:  cfg.Entries,
		schedule: cfg.Schedule,
		cron:     cron.New(),
		log:      log.With("component", "sched"),
		latest:   make(map[string]*domain.Result),
	}
}

// Start runs one immediate refresh and then schedules recurring ones. It
// returns an error if the cron expression does not parse.
func (r *Refresher) Start(ctx context.Context) error {
	if len(r.entries) == 0 {
		r.log.Info("no watchlist entries, scheduler idle")
		return nil
	}

	if _, err := r.cron.AddFunc(r.schedule, func() { r.RefreshAll(ctx) }); err != nil {
		return fmt.Errorf("scheduling watchlist refresh %q: %w", r.schedule, err)
	}

	go r.RefreshAll(ctx)
	r.cron.Start()
	r.log.Info("scheduler started", "schedule", r.schedule, "entries", len(r.entries))
	return nil
}

// Stop halts the schedule and waits for a running refresh to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
}

// RefreshAll re-runs the pipeline for every watchlist entry. Entries fail
// independently; one provider outage does not block the rest.
func (r *Refresher) RefreshAll(ctx context.Context) {
	for _, entry := range r.entries {
		if ctx.Err() != nil {
			return
		}
		if err := r.refresh(ctx, entry); err != nil {
			r.log.Warn("watchlist refresh failed",
				"provider", entry.Provider,
				"symbol", entry.Symbol,
				"error", err)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context, entry config.WatchEntry) error {
	lookback := entry.LookbackDays
	if lookback < 1 {
		lookback = 30
	}
	now := time.Now().UTC()

	res, err := r.pipe.Run(ctx, domain.Request{
		Provider: entry.Provider,
		Symbol:   entry.Symbol,
		Chain:    entry.Chain,
		Interval: entry.Interval,
		From:     now.AddDate(0, 0, -lookback),
		To:       now,
	})
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.latest[entryKey(entry)] = res
	r.mu.Unlock()

	r.log.Info("watchlist entry refreshed",
		"symbol", entry.Symbol,
		"window", res.Tuning.Best.Window,
		"final_cumulative", res.Tuning.BestCumulative)
	return nil
}

// Snapshot returns the latest result per entry, ordered by symbol.
func (r *Refresher) Snapshot() []*domain.Result {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Result, 0, len(r.latest))
	for _, res := range r.latest {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Request.Symbol != out[j].Request.Symbol {
			return out[i].Request.Symbol < out[j].Request.Symbol
		}
		return out[i].Request.Provider < out[j].Request.Provider
	})
	return out
}

func entryKey(e config.WatchEntry) string {
	return e.Provider + "/" + e.Symbol + "/" + e.Chain + "/" + e.Interval
}
