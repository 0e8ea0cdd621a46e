package candles

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"gotrader/internal/market"
)

// Stats summarizes the stored history of one symbol.
type Stats struct {
	Symbol  string `json:"symbol"`
	MinTime int64  `json:"min_time"`
	MaxTime int64  `json:"max_time"`
	Rows    int64  `json:"rows"`
}

// Store keeps daily candle history per symbol in a single sqlite file.
type Store struct {
	db   *sql.DB
	path string
}

func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("candle db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string { return s.path }

// InsertCandles upserts candles; an existing (symbol, open_time) row is overwritten.
func (s *Store) InsertCandles(ctx context.Context, symbol string, candles []market.Candle) (int, error) {
	if len(candles) == 0 {
		return 0, nil
	}
	symbol = normalize(symbol)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO candles (symbol, open_time, close_time, open, high, low, close, volume, trades)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, open_time) DO UPDATE SET
		    close_time=excluded.close_time,
		    open=excluded.open,
		    high=excluded.high,
		    low=excluded.low,
		    close=excluded.close,
		    volume=excluded.volume,
		    trades=excluded.trades`)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	defer stmt.Close()
	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, symbol, c.OpenTime, c.CloseTime, c.Open, c.High, c.Low, c.Close, c.Volume, c.Trades); err != nil {
			_ = tx.Rollback()
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(candles), nil
}

// Load returns the newest limit candles in ascending open time; limit <= 0 loads everything.
func (s *Store) Load(ctx context.Context, symbol string, limit int) ([]market.Candle, error) {
	query := `SELECT open_time, close_time, open, high, low, close, volume, trades
		FROM candles WHERE symbol = ? ORDER BY open_time DESC`
	args := []any{normalize(symbol)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []market.Candle
	for rows.Next() {
		var c market.Candle
		if err := rows.Scan(&c.OpenTime, &c.CloseTime, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &c.Trades); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Newest returns the most recent stored candle, ok=false when none exist.
func (s *Store) Newest(ctx context.Context, symbol string) (market.Candle, bool, error) {
	list, err := s.Load(ctx, symbol, 1)
	if err != nil || len(list) == 0 {
		return market.Candle{}, false, err
	}
	return list[0], true, nil
}

func (s *Store) Stats(ctx context.Context, symbol string) (Stats, error) {
	st := Stats{Symbol: normalize(symbol)}
	row := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MIN(open_time), 0), COALESCE(MAX(open_time), 0), COUNT(1)
		FROM candles WHERE symbol = ?`, st.Symbol)
	if err := row.Scan(&st.MinTime, &st.MaxTime, &st.Rows); err != nil {
		return Stats{}, err
	}
	return st, nil
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS candles (
			symbol      TEXT NOT NULL,
			open_time   INTEGER NOT NULL,
			close_time  INTEGER NOT NULL,
			open        REAL NOT NULL,
			high        REAL NOT NULL,
			low         REAL NOT NULL,
			close       REAL NOT NULL,
			volume      REAL NOT NULL,
			trades      INTEGER DEFAULT 0,
			inserted_at INTEGER NOT NULL DEFAULT (strftime('%s','now') * 1000),
			PRIMARY KEY (symbol, open_time)
		);`)
	return err
}
