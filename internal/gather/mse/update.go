package mse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"berza/internal/domain"
	"berza/internal/gather"
	"berza/internal/store"
)

// Compile-time interface check.
var _ gather.Gatherer = (*Updater)(nil)

// RangeFetcher is the slice of Fetcher the updater needs; tests substitute
// fakes to drive failure paths.
type RangeFetcher interface {
	FetchRange(ctx context.Context, code string, start, end time.Time) ([]domain.PricePoint, error)
}

var _ RangeFetcher = (*Fetcher)(nil)

// errorSink is the append-only collection of per-security failures shared by
// the batch workers. The lock is held only for the append itself, never
// across network or storage calls.
type errorSink struct {
	mu   sync.Mutex
	errs domain.BatchReport
}

func (s *errorSink) Append(code, message string) {
	s.mu.Lock()
	s.errs = append(s.errs, domain.FetchError{Code: code, Message: message})
	s.mu.Unlock()
}

func (s *errorSink) All() domain.BatchReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(domain.BatchReport(nil), s.errs...)
}

// Updater runs the full update pipeline: discover which securities are
// stale, fetch their missing ranges under a concurrency cap, and persist the
// results. One Updater is reusable across runs; each run starts with a
// fresh error collection.
type Updater struct {
	fetcher    RangeFetcher
	store      store.PriceStore
	source     SymbolSource
	maxWorkers int
	log        *slog.Logger
	now        func() time.Time
}

// NewUpdater creates an Updater. source may be nil when callers always
// supply explicit codes via Update.
func NewUpdater(fetcher RangeFetcher, ps store.PriceStore, source SymbolSource, maxWorkers int, log *slog.Logger) *Updater {
	return &Updater{
		fetcher:    fetcher,
		store:      ps,
		source:     source,
		maxWorkers: maxWorkers,
		log:        log.With("gatherer", "mse-update"),
		now:        time.Now,
	}
}

// SetNow replaces the clock used for "today" in resume-point computation and
// as the fetch end bound.
func (u *Updater) SetNow(now func() time.Time) { u.now = now }

// Name returns the gatherer identifier.
func (u *Updater) Name() string { return "mse-update" }

// Run discovers the security universe and updates every stale security.
// Failures of individual securities are logged, not returned; Run errors
// only when discovery or the currency check itself fails.
func (u *Updater) Run(ctx context.Context) error {
	if u.source == nil {
		return errors.New("no symbol source configured")
	}

	codes, err := DiscoverCodes(ctx, u.source)
	if err != nil {
		return fmt.Errorf("discovering securities: %w", err)
	}
	u.log.Info("securities discovered", "count", len(codes))

	report, err := u.Update(ctx, codes)
	if err != nil {
		return err
	}
	for _, fe := range report {
		u.log.Warn("security failed", "code", fe.Code, "reason", fe.Message)
	}
	u.log.Info("update complete", "total", len(codes), "failed", len(report))
	return nil
}

// Update refreshes the given securities and returns the per-security
// failures. It returns an error only when the stale check cannot read
// storage; everything past that point is captured in the report.
func (u *Updater) Update(ctx context.Context, codes []string) (domain.BatchReport, error) {
	checker := NewCurrencyChecker(u.store)
	checker.SetNow(u.now)

	items, err := checker.ComputeWorkItems(ctx, codes)
	if err != nil {
		return nil, fmt.Errorf("checking currency: %w", err)
	}
	u.log.Info("currency checked", "total", len(codes), "stale", len(items))

	return u.runBatch(ctx, items), nil
}

// runBatch drains the work items with a bounded pool of workers. Every item
// is claimed and processed exactly once; the batch always runs to
// completion, converting each failure into a report entry.
func (u *Updater) runBatch(ctx context.Context, items map[string]domain.WorkItem) domain.BatchReport {
	if len(items) == 0 {
		return nil
	}

	sink := &errorSink{}

	queue := make(chan domain.WorkItem, len(items))
	for _, item := range items {
		queue <- item
	}
	close(queue)

	// Never spawn more workers than there are items.
	workers := min(u.maxWorkers, len(items))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range queue {
				u.processItem(ctx, item, sink)
			}
		}()
	}
	wg.Wait()

	return sink.All()
}

// processItem fetches and persists one security's missing range. The span
// end is always today.
func (u *Updater) processItem(ctx context.Context, item domain.WorkItem, sink *errorSink) {
	today := domain.Day(u.now())

	start := item.Start
	if start.IsZero() {
		start = today.AddDate(0, 0, -defaultLookbackDays)
	}

	points, err := u.fetcher.FetchRange(ctx, item.Code, start, today)
	switch {
	case errors.Is(err, ErrNoData):
		sink.Append(item.Code, "no data retrieved")
		return
	case err != nil:
		sink.Append(item.Code, fmt.Sprintf("fetch failed: %v", err))
		return
	}

	if err := u.store.AppendPrices(ctx, item.Code, points); err != nil {
		sink.Append(item.Code, fmt.Sprintf("save failed: %v", err))
	}
}
