package mse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"berza/internal/domain"
)

// maxWindowDays bounds a single history request. The exchange silently
// truncates responses beyond roughly a year, so longer spans are decomposed
// into sub-windows of at most this many days.
const maxWindowDays = 365

// ErrNoData reports that a fetch completed every window without yielding a
// single complete row. It is distinct from a transport or parse failure.
var ErrNoData = errors.New("no data retrieved")

// Window is one bounded date sub-range of a fetch, inclusive on both ends.
type Window struct {
	From time.Time
	To   time.Time
}

// Windows partitions [start, end] into consecutive windows of at most
// maxWindowDays each. The windows are contiguous, non-overlapping, and cover
// the span exactly: each window starts the day after the previous one ends.
// start must not be after end; the result is never empty.
func Windows(start, end time.Time) []Window {
	start, end = domain.Day(start), domain.Day(end)

	var windows []Window
	for cur := start; !cur.After(end); {
		to := cur.AddDate(0, 0, maxWindowDays)
		if to.After(end) {
			to = end
		}
		windows = append(windows, Window{From: cur, To: to})
		cur = to.AddDate(0, 0, 1)
	}
	return windows
}

// windowClient is the slice of Client the fetcher needs; tests substitute a
// local httptest-backed client or a fake.
type windowClient interface {
	FetchWindow(ctx context.Context, code string, from, to time.Time) ([]domain.PricePoint, bool, error)
}

var _ windowClient = (*Client)(nil)

// Fetcher retrieves one security's history across an arbitrary date span by
// fetching bounded windows in chronological order and concatenating the
// results.
type Fetcher struct {
	client windowClient
	log    *slog.Logger
}

// NewFetcher creates a Fetcher on top of the given client.
func NewFetcher(client *Client, log *slog.Logger) *Fetcher {
	return &Fetcher{client: client, log: log}
}

// FetchRange fetches all complete rows for code within [start, end].
//
// Windows are requested strictly in chronological order. A window with no
// results table contributes zero rows and the fetch continues; the first
// transport or parse error aborts the remaining windows and discards
// everything fetched so far for this security, so a retry starts from the
// same resume point. Rows are deduplicated by full-row equality because the
// site occasionally republishes a boundary date in two adjacent windows. If
// no window yields a complete row, FetchRange returns ErrNoData.
func (f *Fetcher) FetchRange(ctx context.Context, code string, start, end time.Time) ([]domain.PricePoint, error) {
	var all []domain.PricePoint

	for _, w := range Windows(start, end) {
		points, found, err := f.client.FetchWindow(ctx, code, w.From, w.To)
		if err != nil {
			return nil, fmt.Errorf("window %s..%s: %w",
				w.From.Format(dateParamFormat), w.To.Format(dateParamFormat), err)
		}
		if !found {
			f.log.Debug("no results table in window",
				"code", code,
				"from", w.From.Format(dateParamFormat),
				"to", w.To.Format(dateParamFormat),
			)
			continue
		}
		f.log.Debug("window fetched",
			"code", code,
			"from", w.From.Format(dateParamFormat),
			"to", w.To.Format(dateParamFormat),
			"rows", len(points),
		)
		all = append(all, points...)
	}

	all = dedupe(all)
	if len(all) == 0 {
		return nil, ErrNoData
	}

	f.log.Info("history fetched", "code", code, "rows", len(all))
	return all, nil
}

// dedupe removes exact duplicate rows, keeping first occurrences in order.
func dedupe(points []domain.PricePoint) []domain.PricePoint {
	type rowKey struct {
		date                     string
		last, max, min, vol, tur float64
		hasLast, hasMax, hasMin  bool
		hasVol, hasTur           bool
	}
	key := func(p domain.PricePoint) rowKey {
		k := rowKey{date: p.TradeDate.Format(dateParamFormat)}
		if p.LastTradePrice != nil {
			k.last, k.hasLast = *p.LastTradePrice, true
		}
		if p.Max != nil {
			k.max, k.hasMax = *p.Max, true
		}
		if p.Min != nil {
			k.min, k.hasMin = *p.Min, true
		}
		if p.Volume != nil {
			k.vol, k.hasVol = *p.Volume, true
		}
		if p.Turnover != nil {
			k.tur, k.hasTur = *p.Turnover, true
		}
		return k
	}

	seen := make(map[rowKey]struct{}, len(points))
	out := points[:0]
	for _, p := range points {
		k := key(p)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	return out
}
