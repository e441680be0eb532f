package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"tokensight/internal/config"
	"tokensight/internal/datasource"
	"tokensight/internal/domain"
	"tokensight/internal/pipeline"
	"tokensight/internal/render"
	sig "tokensight/internal/signal"
	"tokensight/internal/store"
	"tokensight/internal/tune"
	"tokensight/internal/util"
)

func main() {
	var (
		cfgPath  = flag.String("config", "config/tokensight.yaml", "path to config file")
		provider = flag.String("provider", "", "data provider (moralis, syve, alpaca); empty uses the config default")
		symbol   = flag.String("symbol", "", "token symbol, contract address, or trading pair (required)")
		chain    = flag.String("chain", "ethereum", "chain for on-chain providers")
		interval = flag.String("interval", "1h", "candle interval (1m, 5m, 1h, 1d)")
		days     = flag.Int("days", 30, "lookback window in days")
		outDir   = flag.String("out", ".", "directory for chart PNGs")
	)
	flag.Parse()

	if *symbol == "" {
		flag.Usage()
		os.Exit(2)
	}
	if p := os.Getenv("TOKENSIGHT_CONFIG"); p != "" {
		*cfgPath = p
	}

	cfg, err := config.Load(*cfgPath)
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

	now := time.Now().UTC()
	res, err := pipe.Run(ctx, domain.Request{
		Provider: *provider,
		Symbol:   *symbol,
		Chain:    *chain,
		Interval: *interval,
		From:     now.AddDate(0, 0, -*days),
		To:       now,
		Grid:     cfg.Tuner.Grid(),
	})
	if err != nil {
		log.Fatalf("run failed: %v", err)
	}

	fmt.Printf("%s %s  %d points\n\n", *symbol, *interval, len(res.Series))
	fmt.Println("Best parameters:", render.FormatTuning(res.Tuning))
	fmt.Println()
	fmt.Print(render.FormatSummary(res.Backtest.Summary))

	if err := writeCharts(*outDir, res); err != nil {
		log.Fatalf("writing charts: %v", err)
	}
}

// buildSources wires the configured providers, layering the Parquet archive
// and the SQLite working cache over each one when configured. The returned
// func closes the cache store.
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

func writeCharts(dir string, res *domain.Result) error {
	title := fmt.Sprintf("%s %s  %s", res.Request.Symbol, res.Request.Interval, render.FormatParams(res.Tuning.Best))
	price, err := render.PriceChart(title, res.Annotated)
	if err != nil {
		return err
	}
	pricePath := filepath.Join(dir, "price.png")
	if err := os.WriteFile(pricePath, price, 0o644); err != nil {
		return err
	}

	equity, err := render.EquityChart(res.Request.Symbol+" equity", res.Annotated, res.Backtest.Cumulative)
	if err != nil {
		return err
	}
	equityPath := filepath.Join(dir, "equity.png")
	if err := os.WriteFile(equityPath, equity, 0o644); err != nil {
		return err
	}

	fmt.Printf("\ncharts written: %s, %s\n", pricePath, equityPath)
	return nil
}
