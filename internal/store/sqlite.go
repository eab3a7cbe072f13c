package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"berza/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ PriceStore = (*SQLiteStore)(nil)
var _ IndicatorStore = (*SQLiteStore)(nil)

const dateFormat = "2006-01-02"

// SQLiteStore implements PriceStore and IndicatorStore backed by a SQLite
// database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, creates the
// schema if missing, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so the HTTP API can read while an update batch writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS stock_data (
			issuer_code      TEXT NOT NULL,
			trade_date       TEXT NOT NULL,
			last_trade_price REAL,
			max_price        REAL,
			min_price        REAL,
			volume           REAL,
			turnover         REAL,
			PRIMARY KEY (issuer_code, trade_date)
		)`,

		`CREATE TABLE IF NOT EXISTS technical_indicators (
			issuer_code TEXT NOT NULL,
			trade_date  TEXT NOT NULL,
			time_period TEXT NOT NULL,
			signal      TEXT,
			sma_20      REAL,
			sma_50      REAL,
			ema_20      REAL,
			ema_50      REAL,
			rsi         REAL,
			macd        REAL,
			stoch       REAL,
			cci         REAL,
			williams_r  REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_indicators_lookup
			ON technical_indicators(issuer_code, time_period, trade_date)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %.40q: %w", stmt, err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// PriceStore implementation
// ---------------------------------------------------------------------------

// AppendPrices normalizes and inserts one security's rows in a single
// transaction. Rows are inserted with a plain INSERT: a primary-key collision
// rolls the whole batch back and surfaces as an error, by the contract on
// PriceStore.AppendPrices.
func (s *SQLiteStore) AppendPrices(ctx context.Context, code string, points []domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO stock_data
		(issuer_code, trade_date, last_trade_price, max_price, min_price, volume, turnover)
		VALUES (?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range normalizePoints(code, points) {
		_, err := stmt.ExecContext(ctx,
			p.Code,
			p.TradeDate.Format(dateFormat),
			nullable(p.LastTradePrice),
			nullable(p.Max),
			nullable(p.Min),
			nullable(p.Volume),
			nullable(p.Turnover),
		)
		if err != nil {
			return fmt.Errorf("insert %s@%s: %w", p.Code, p.TradeDate.Format(dateFormat), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// MaxDate returns the latest stored trade date for a security.
func (s *SQLiteStore) MaxDate(ctx context.Context, code string) (time.Time, bool, error) {
	var max sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(trade_date) FROM stock_data WHERE issuer_code = ?`, code,
	).Scan(&max)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query max date for %s: %w", code, err)
	}
	if !max.Valid {
		return time.Time{}, false, nil
	}

	t, err := time.Parse(dateFormat, max.String)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("stored date %q for %s: %w", max.String, code, err)
	}
	return domain.Day(t), true, nil
}

// ReadSeries returns the stored rows for a security within [start, end].
func (s *SQLiteStore) ReadSeries(ctx context.Context, code string, start, end time.Time) ([]domain.PricePoint, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
			issuer_code, trade_date, last_trade_price, max_price, min_price, volume, turnover
		FROM stock_data
		WHERE issuer_code = ? AND trade_date >= ? AND trade_date <= ?
		ORDER BY trade_date`,
		code, start.Format(dateFormat), end.Format(dateFormat))
	if err != nil {
		return nil, fmt.Errorf("query series for %s: %w", code, err)
	}
	defer rows.Close()

	var points []domain.PricePoint
	for rows.Next() {
		var (
			p    domain.PricePoint
			date string
			last, max, min, vol, turn sql.NullFloat64
		)
		if err := rows.Scan(&p.Code, &date, &last, &max, &min, &vol, &turn); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		t, err := time.Parse(dateFormat, date)
		if err != nil {
			return nil, fmt.Errorf("stored date %q: %w", date, err)
		}
		p.TradeDate = domain.Day(t)
		p.LastTradePrice = fromNull(last)
		p.Max = fromNull(max)
		p.Min = fromNull(min)
		p.Volume = fromNull(vol)
		p.Turnover = fromNull(turn)
		points = append(points, p)
	}
	return points, rows.Err()
}

// ListCodes returns all distinct security codes with stored rows.
func (s *SQLiteStore) ListCodes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT issuer_code FROM stock_data ORDER BY issuer_code`)
	if err != nil {
		return nil, fmt.Errorf("query codes: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan code: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// ---------------------------------------------------------------------------
// IndicatorStore implementation
// ---------------------------------------------------------------------------

// ReplaceIndicators swaps the full technical_indicators table for the given
// rows in one transaction.
func (s *SQLiteStore) ReplaceIndicators(ctx context.Context, rows []domain.IndicatorRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM technical_indicators`); err != nil {
		return fmt.Errorf("clear indicators: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO technical_indicators
		(issuer_code, trade_date, time_period, signal,
		 sma_20, sma_50, ema_20, ema_50, rsi, macd, stoch, cci, williams_r)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		_, err := stmt.ExecContext(ctx,
			r.Code, r.Date.Format(dateFormat), r.Period, r.Signal,
			nullable(r.SMA20), nullable(r.SMA50), nullable(r.EMA20), nullable(r.EMA50),
			nullable(r.RSI), nullable(r.MACD), nullable(r.Stoch), nullable(r.CCI),
			nullable(r.WilliamsR),
		)
		if err != nil {
			return fmt.Errorf("insert indicator %s@%s/%s: %w",
				r.Code, r.Date.Format(dateFormat), r.Period, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LatestIndicator returns the most recent indicator row for a security and
// period.
func (s *SQLiteStore) LatestIndicator(ctx context.Context, code, period string) (domain.IndicatorRow, bool, error) {
	rows, err := s.RecentIndicators(ctx, code, period, 1)
	if err != nil {
		return domain.IndicatorRow{}, false, err
	}
	if len(rows) == 0 {
		return domain.IndicatorRow{}, false, nil
	}
	return rows[0], true, nil
}

// RecentIndicators returns up to limit most recent indicator rows, newest
// first.
func (s *SQLiteStore) RecentIndicators(ctx context.Context, code, period string, limit int) ([]domain.IndicatorRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
			issuer_code, trade_date, time_period, signal,
			sma_20, sma_50, ema_20, ema_50, rsi, macd, stoch, cci, williams_r
		FROM technical_indicators
		WHERE issuer_code = ? AND time_period = ?
		ORDER BY trade_date DESC LIMIT ?`,
		code, period, limit)
	if err != nil {
		return nil, fmt.Errorf("query indicators for %s/%s: %w", code, period, err)
	}
	defer rows.Close()

	var out []domain.IndicatorRow
	for rows.Next() {
		var (
			r    domain.IndicatorRow
			date string
			sig  sql.NullString
			vals [9]sql.NullFloat64
		)
		if err := rows.Scan(&r.Code, &date, &r.Period, &sig,
			&vals[0], &vals[1], &vals[2], &vals[3], &vals[4],
			&vals[5], &vals[6], &vals[7], &vals[8]); err != nil {
			return nil, fmt.Errorf("scan indicator row: %w", err)
		}
		t, err := time.Parse(dateFormat, date)
		if err != nil {
			return nil, fmt.Errorf("stored date %q: %w", date, err)
		}
		r.Date = domain.Day(t)
		r.Signal = sig.String
		r.SMA20 = fromNull(vals[0])
		r.SMA50 = fromNull(vals[1])
		r.EMA20 = fromNull(vals[2])
		r.EMA50 = fromNull(vals[3])
		r.RSI = fromNull(vals[4])
		r.MACD = fromNull(vals[5])
		r.Stoch = fromNull(vals[6])
		r.CCI = fromNull(vals[7])
		r.WilliamsR = fromNull(vals[8])
		out = append(out, r)
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// Normalization helpers
// ---------------------------------------------------------------------------

// normalizePoints coerces rows to the canonical schema before insertion: the
// code is stamped onto every row, trade dates are truncated to calendar
// dates, and absent numeric fields stay absent (inserted as NULL, never
// zero).
func normalizePoints(code string, points []domain.PricePoint) []domain.PricePoint {
	out := make([]domain.PricePoint, len(points))
	for i, p := range points {
		p.Code = code
		p.TradeDate = domain.Day(p.TradeDate)
		out[i] = p
	}
	return out
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
