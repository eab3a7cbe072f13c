package mse

import (
	"context"
	"time"

	"berza/internal/domain"
	"berza/internal/store"
)

// defaultLookbackDays is how far back a fetch reaches for a security with no
// stored history: ten years of calendar days.
const defaultLookbackDays = 3650

// CurrencyChecker decides, per security, whether stored history is current
// and where a refresh should resume. It only reads storage; it performs no
// network requests and no writes.
type CurrencyChecker struct {
	store store.PriceStore
	now   func() time.Time
}

// NewCurrencyChecker creates a CurrencyChecker reading from ps. The clock is
// time.Now; tests pin it with SetNow.
func NewCurrencyChecker(ps store.PriceStore) *CurrencyChecker {
	return &CurrencyChecker{store: ps, now: time.Now}
}

// SetNow replaces the clock used to determine "today".
func (c *CurrencyChecker) SetNow(now func() time.Time) { c.now = now }

// LastKnownDate returns the latest stored trade date for a security, with
// ok false when nothing is stored.
func (c *CurrencyChecker) LastKnownDate(ctx context.Context, code string) (time.Time, bool, error) {
	return c.store.MaxDate(ctx, code)
}

// ComputeWorkItems returns a work item for every security that needs new
// data, keyed by code, and nothing for securities already current as of
// today. A security with no stored rows starts at the default lookback; one
// with stored rows resumes the day after its latest date.
func (c *CurrencyChecker) ComputeWorkItems(ctx context.Context, codes []string) (map[string]domain.WorkItem, error) {
	today := domain.Day(c.now())

	items := make(map[string]domain.WorkItem)
	for _, code := range codes {
		last, ok, err := c.LastKnownDate(ctx, code)
		if err != nil {
			return nil, err
		}
		switch {
		case !ok:
			items[code] = domain.WorkItem{Code: code, Start: today.AddDate(0, 0, -defaultLookbackDays)}
		case last.Before(today):
			items[code] = domain.WorkItem{Code: code, Start: last.AddDate(0, 0, 1)}
		}
		// last >= today: already current, no work item.
	}
	return items, nil
}
