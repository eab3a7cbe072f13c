package mse

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"berza/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// fakePriceStore is an in-memory PriceStore safe for concurrent appends.
type fakePriceStore struct {
	mu       sync.Mutex
	rows     map[string][]domain.PricePoint
	failCode string // AppendPrices for this code fails
	maxErr   error  // MaxDate always fails with this
}

func newFakePriceStore() *fakePriceStore {
	return &fakePriceStore{rows: make(map[string][]domain.PricePoint)}
}

func (s *fakePriceStore) AppendPrices(_ context.Context, code string, points []domain.PricePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code == s.failCode {
		return fmt.Errorf("disk full")
	}
	s.rows[code] = append(s.rows[code], points...)
	return nil
}

func (s *fakePriceStore) MaxDate(_ context.Context, code string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.maxErr != nil {
		return time.Time{}, false, s.maxErr
	}
	var max time.Time
	var ok bool
	for _, p := range s.rows[code] {
		if !ok || p.TradeDate.After(max) {
			max, ok = p.TradeDate, true
		}
	}
	return max, ok, nil
}

func (s *fakePriceStore) ReadSeries(_ context.Context, code string, start, end time.Time) ([]domain.PricePoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.PricePoint
	for _, p := range s.rows[code] {
		if !p.TradeDate.Before(start) && !p.TradeDate.After(end) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakePriceStore) ListCodes(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var codes []string
	for code := range s.rows {
		codes = append(codes, code)
	}
	return codes, nil
}

func (s *fakePriceStore) count(code string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows[code])
}

func (s *fakePriceStore) seed(code string, dates ...time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range dates {
		s.rows[code] = append(s.rows[code], domain.PricePoint{
			Code:           code,
			TradeDate:      d,
			LastTradePrice: domain.Float(1),
			Max:            domain.Float(1),
			Min:            domain.Float(1),
		})
	}
}
