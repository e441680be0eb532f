package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tokensight/internal/config"
	"tokensight/internal/datasource"
	"tokensight/internal/httpapi"
	"tokensight/internal/pipeline"
	"tokensight/internal/sched"
	sig "tokensight/internal/signal"
	"tokensight/internal/store"
	"tokensight/internal/tune"
	"tokensight/internal/util"
)

func main() {
	cfgPath := "config/tokensight.yaml"
	if p := os.Getenv("TOKENSIGHT_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

	sources, closeStores, err := buildSources(cfg)
	if err != nil {
		log.Fatalf("failed to build data sources: %v", err)
	}
	defer closeStores()

	gen := &sig.Generator{Steepness: cfg.Tuner.Steepness}
	tuner := tune.New(gen, cfg.Tuner.Workers, logger)
	pipe := pipeline.New(sources, cfg.Providers.Default, gen, tuner, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	refresher := sched.NewRefresher(pipe, cfg.Watchlist, logger)
	if err := refresher.Start(ctx); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer refresher.Stop()

	api := httpapi.NewServer(pipe, refresher, logger)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", "error", err)
		}
	}()

	logger.Info("tokensight-server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
	logger.Info("tokensight-server stopped")
}

// buildSources wires the configured providers, wrapping each in the SQLite
// cache when caching is enabled. Fetched history is also archived to Parquet
// when a data dir is configured. The returned func closes the cache store.
func buildSources(cfg *config.Config) (map[string]datasource.Source, func(), error) {
	sources := map[string]datasource.Source{
		"moralis": datasource.NewMoralisSource(
			cfg.Providers.Moralis.APIKey, cfg.Providers.Moralis.BaseURL,
			cfg.Fetch.RateLimitPerMin, cfg.Fetch.MaxAttempts),
		"syve": datasource.NewSyveSource(
			cfg.Providers.Syve.APIKey, cfg.Providers.Syve.BaseURL,
			cfg.Fetch.RateLimitPerMin, cfg.Fetch.MaxAttempts),
		"alpaca": datasource.NewAlpacaSource(
			cfg.Providers.Alpaca.APIKey, cfg.Providers.Alpaca.APISecret, cfg.Providers.Alpaca.DataURL),
	}

	// Archive tier first, working cache on top: a SQLite miss falls through
	// to the Parquet archive before the upstream provider is hit.
	if cfg.Storage.DataDir != "" {
		archive := store.NewParquetStore(cfg.Storage.DataDir)
		for name, src := range sources {
			sources[name] = datasource.NewCachedSource(src, archive)
		}
	}

	closeStores := func() {}
	if cfg.Fetch.Cache && cfg.Storage.SQLitePath != "" {
		cache, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		for name, src := range sources {
			sources[name] = datasource.NewCachedSource(src, cache)
		}
		closeStores = func() { cache.Close() }
	}
	return sources, closeStores, nil
}
