package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tokensight/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ CandleStore = (*SQLiteStore)(nil)

// SQLiteStore implements CandleStore backed by a SQLite database. It is the
// default cache backend: a single file, no server, fast enough for the point
// volumes a tuning run works with.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS candles (
	symbol    TEXT    NOT NULL,
	chain     TEXT    NOT NULL,
	ts        INTEGER NOT NULL,
	price     REAL    NOT NULL,
	volume    REAL    NOT NULL DEFAULT 0,
	PRIMARY KEY (symbol, chain, ts)
);
CREATE INDEX IF NOT EXISTS idx_candles_range ON candles (symbol, chain, ts);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, ensures the
// schema exists, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating candle schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// WriteCandles upserts a batch of price points. Re-fetching an overlapping
// range replaces the stored rows, so providers that revise recent candles
// converge to their latest values.
func (s *SQLiteStore) WriteCandles(ctx context.Context, symbol, chain string, points domain.PriceSeries) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO candles (symbol, chain, ts, price, volume) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, symbol, chain, p.Timestamp.UnixMilli(), p.Price, p.Volume); err != nil {
			return fmt.Errorf("writing candle %s/%s@%s: %w", symbol, chain, p.Timestamp, err)
		}
	}
	return tx.Commit()
}

// ReadCandles returns stored points within [start, end], ordered by timestamp.
func (s *SQLiteStore) ReadCandles(ctx context.Context, symbol, chain string, start, end time.Time) (domain.PriceSeries, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, price, volume FROM candles
		 WHERE symbol = ? AND chain = ? AND ts BETWEEN ? AND ?
		 ORDER BY ts`,
		symbol, chain, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var series domain.PriceSeries
	for rows.Next() {
		var ts int64
		var p domain.PricePoint
		if err := rows.Scan(&ts, &p.Price, &p.Volume); err != nil {
			return nil, err
		}
		p.Timestamp = time.UnixMilli(ts).UTC()
		series = append(series, p)
	}
	return series, rows.Err()
}

// ListSymbols returns all distinct symbols stored for the given chain.
func (s *SQLiteStore) ListSymbols(ctx context.Context, chain string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT symbol FROM candles WHERE chain = ? ORDER BY symbol`, chain)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}
