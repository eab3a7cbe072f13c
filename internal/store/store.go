// Package store defines storage interfaces for the daily price history and
// computed technical indicators, plus the SQLite and Parquet backends.
package store

import (
	"context"
	"time"

	"berza/internal/domain"
)

// PriceStore persists and retrieves daily price history.
type PriceStore interface {
	// AppendPrices appends one security's rows to storage. The natural key
	// is (code, trade date); an append that collides with an existing row
	// fails rather than silently overwriting, because a collision means the
	// resume-date computation or window deduplication is broken.
	AppendPrices(ctx context.Context, code string, points []domain.PricePoint) error

	// MaxDate returns the latest stored trade date for a security. ok is
	// false when no rows exist.
	MaxDate(ctx context.Context, code string) (date time.Time, ok bool, err error)

	// ReadSeries returns the stored rows for a security within [start, end],
	// ordered by trade date.
	ReadSeries(ctx context.Context, code string, start, end time.Time) ([]domain.PricePoint, error)

	// ListCodes returns all distinct security codes with stored rows.
	ListCodes(ctx context.Context) ([]string, error)
}

// IndicatorStore persists and retrieves computed technical indicators.
type IndicatorStore interface {
	// ReplaceIndicators swaps the full indicator table for the given rows.
	// Indicators are derived data and are recomputed wholesale each run.
	ReplaceIndicators(ctx context.Context, rows []domain.IndicatorRow) error

	// LatestIndicator returns the most recent indicator row for a security
	// and period. ok is false when none exists.
	LatestIndicator(ctx context.Context, code, period string) (row domain.IndicatorRow, ok bool, err error)

	// RecentIndicators returns up to limit most recent indicator rows for a
	// security and period, newest first.
	RecentIndicators(ctx context.Context, code, period string, limit int) ([]domain.IndicatorRow, error)
}
