package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"tokensight/internal/domain"
)

// Compile-time interface check.
var _ CandleStore = (*ParquetStore)(nil)

// ParquetStore implements CandleStore using Parquet files on disk. It serves
// as a long-term archive: columnar files that other tooling (DuckDB, pandas)
// can read directly, complementing the SQLite working cache.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a new ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// CandleRecord is the Parquet schema for price history.
type CandleRecord struct {
	Symbol    string  `parquet:"symbol"`
	Chain     string  `parquet:"chain"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Price     float64 `parquet:"price"`
	Volume    float64 `parquet:"volume"`
}

// WriteCandles writes price points to Parquet files organized by chain,
// symbol, and year. Each symbol+year combination produces a separate file at:
//
//	<DataDir>/<chain>/candles/<SYMBOL>/<YYYY>.parquet
//
// Existing records in a touched file are merged in, deduplicated by
// timestamp with incoming records winning.
func (s *ParquetStore) WriteCandles(_ context.Context, symbol, chain string, points domain.PriceSeries) error {
	if len(points) == 0 {
		return nil
	}

	groups := make(map[int][]CandleRecord)
	for _, p := range points {
		year := p.Timestamp.UTC().Year()
		groups[year] = append(groups[year], CandleRecord{
			Symbol:    symbol,
			Chain:     chain,
			Timestamp: p.Timestamp.UnixMilli(),
			Price:     p.Price,
			Volume:    p.Volume,
		})
	}

	for year, records := range groups {
		path := s.candlePath(symbol, chain, year)

		existing, _ := readParquetFile[CandleRecord](path)
		merged := mergeCandleRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing candles for %s/%s/%d: %w", chain, symbol, year, err)
		}
	}
	return nil
}

// ReadCandles reads price points from Parquet files for the given symbol,
// chain, and time range.
func (s *ParquetStore) ReadCandles(_ context.Context, symbol, chain string, start, end time.Time) (domain.PriceSeries, error) {
	var series domain.PriceSeries
	for year := start.UTC().Year(); year <= end.UTC().Year(); year++ {
		records, err := readParquetFile[CandleRecord](s.candlePath(symbol, chain, year))
		if err != nil {
			// No file for this year.
			continue
		}

		for _, r := range records {
			ts := time.UnixMilli(r.Timestamp).UTC()
			if (ts.Equal(start) || ts.After(start)) && (ts.Equal(end) || ts.Before(end)) {
				series = append(series, domain.PricePoint{
					Timestamp: ts,
					Price:     r.Price,
					Volume:    r.Volume,
				})
			}
		}
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].Timestamp.Before(series[j].Timestamp)
	})
	return series, nil
}

// ListSymbols lists all symbols that have candle data on the given chain.
func (s *ParquetStore) ListSymbols(_ context.Context, chain string) ([]string, error) {
	dir := filepath.Join(s.DataDir, chain, "candles")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var symbols []string
	for _, e := range entries {
		if e.IsDir() {
			symbols = append(symbols, e.Name())
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// candlePath returns the filesystem path for a candle Parquet file.
// Layout: <dataDir>/<chain>/candles/<SYMBOL>/<YYYY>.parquet
func (s *ParquetStore) candlePath(symbol, chain string, year int) string {
	return filepath.Join(s.DataDir, chain, "candles", strings.ToUpper(symbol), fmt.Sprintf("%d.parquet", year))
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergeCandleRecords deduplicates records by timestamp, preferring incoming
// records over existing ones. Results are sorted by timestamp.
func mergeCandleRecords(existing, incoming []CandleRecord) []CandleRecord {
	seen := make(map[int64]CandleRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.Timestamp] = r
	}
	for _, r := range incoming {
		seen[r.Timestamp] = r
	}

	merged := make([]CandleRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
