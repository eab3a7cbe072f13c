// Package domain defines the core data types shared across berza.
package domain

import (
	"fmt"
	"time"
)

// PricePoint is one daily trading record for a security. Numeric fields are
// pointers because the exchange publishes rows with individual values absent,
// and absent must stay distinct from zero all the way into storage.
type PricePoint struct {
	Code           string
	TradeDate      time.Time // calendar date, UTC midnight
	LastTradePrice *float64
	Max            *float64
	Min            *float64
	Volume         *float64
	Turnover       *float64
}

// Complete reports whether the point carries the three fields that make a row
// usable. Incomplete rows cannot be repaired later, since the exchange does
// not allow re-querying a single missing cell, so they are dropped before
// persistence.
func (p PricePoint) Complete() bool {
	return p.LastTradePrice != nil && p.Max != nil && p.Min != nil
}

// WorkItem is a pending fetch task for one security. A zero Start means no
// data is stored yet and the fetcher should fall back to the default
// lookback.
type WorkItem struct {
	Code  string
	Start time.Time
}

// FetchError records a per-security failure during one batch run. It is
// accumulated in memory for the duration of the run and never persisted.
type FetchError struct {
	Code    string
	Message string
}

func (e FetchError) String() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// BatchReport is the set of per-security failures collected by one update
// run. An empty report means full success.
type BatchReport []FetchError

// Day truncates t to a calendar date at UTC midnight. All TradeDate values
// and date arithmetic in berza go through this so that comparisons never
// depend on wall-clock time or zone.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Float returns a pointer to v. Convenience for building optional numeric
// fields in literals and tests.
func Float(v float64) *float64 { return &v }
