package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"berza/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAppendAndReadBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	points := []domain.PricePoint{
		{
			TradeDate:      day(2024, 1, 10),
			LastTradePrice: domain.Float(21500),
			Max:            domain.Float(21600),
			Min:            domain.Float(21400),
			Volume:         domain.Float(35),
			Turnover:       domain.Float(752500),
		},
		{
			TradeDate:      day(2024, 1, 11),
			LastTradePrice: domain.Float(21800),
			Max:            domain.Float(21800),
			Min:            domain.Float(21500),
			// Volume and turnover absent: must round-trip as NULL.
		},
	}

	if err := s.AppendPrices(ctx, "ALK", points); err != nil {
		t.Fatalf("AppendPrices: %v", err)
	}

	got, err := s.ReadSeries(ctx, "ALK", day(2024, 1, 1), day(2024, 12, 31))
	if err != nil {
		t.Fatalf("ReadSeries: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadSeries returned %d rows, want 2", len(got))
	}

	first := got[0]
	if first.Code != "ALK" {
		t.Errorf("Code = %q, want ALK (normalization must stamp the code)", first.Code)
	}
	if !first.TradeDate.Equal(day(2024, 1, 10)) {
		t.Errorf("TradeDate = %v", first.TradeDate)
	}
	if first.Volume == nil || *first.Volume != 35 {
		t.Errorf("Volume = %v, want 35", first.Volume)
	}

	second := got[1]
	if second.Volume != nil || second.Turnover != nil {
		t.Errorf("absent fields must stay NULL, got volume=%v turnover=%v",
			second.Volume, second.Turnover)
	}
	if second.LastTradePrice == nil || *second.LastTradePrice != 21800 {
		t.Errorf("LastTradePrice = %v", second.LastTradePrice)
	}
}

func TestAppendCollisionFails(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	row := []domain.PricePoint{{
		TradeDate:      day(2024, 3, 1),
		LastTradePrice: domain.Float(100),
		Max:            domain.Float(110),
		Min:            domain.Float(95),
	}}

	if err := s.AppendPrices(ctx, "KMB", row); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := s.AppendPrices(ctx, "KMB", row); err == nil {
		t.Fatal("re-appending the same (code, date) must fail, not overwrite")
	}

	// Same date under a different code is a different key and must succeed.
	if err := s.AppendPrices(ctx, "TEL", row); err != nil {
		t.Fatalf("append under different code: %v", err)
	}
}

func TestAppendCollisionRollsBackBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AppendPrices(ctx, "GRNT", []domain.PricePoint{{
		TradeDate:      day(2024, 5, 2),
		LastTradePrice: domain.Float(700),
		Max:            domain.Float(710),
		Min:            domain.Float(690),
	}}); err != nil {
		t.Fatalf("seed append: %v", err)
	}

	// A batch containing a colliding row must leave no trace of its fresh rows.
	err := s.AppendPrices(ctx, "GRNT", []domain.PricePoint{
		{TradeDate: day(2024, 5, 3), LastTradePrice: domain.Float(705), Max: domain.Float(712), Min: domain.Float(700)},
		{TradeDate: day(2024, 5, 2), LastTradePrice: domain.Float(700), Max: domain.Float(710), Min: domain.Float(690)},
	})
	if err == nil {
		t.Fatal("batch with collision should fail")
	}

	got, err := s.ReadSeries(ctx, "GRNT", day(2024, 1, 1), day(2024, 12, 31))
	if err != nil {
		t.Fatalf("ReadSeries: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("failed batch must be rolled back entirely, found %d rows", len(got))
	}
}

func TestMaxDate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, ok, err := s.MaxDate(ctx, "ALK"); err != nil || ok {
		t.Fatalf("MaxDate on empty store: ok=%v err=%v, want ok=false", ok, err)
	}

	for _, d := range []time.Time{day(2024, 1, 5), day(2024, 2, 1), day(2024, 1, 20)} {
		if err := s.AppendPrices(ctx, "ALK", []domain.PricePoint{{
			TradeDate:      d,
			LastTradePrice: domain.Float(1),
			Max:            domain.Float(1),
			Min:            domain.Float(1),
		}}); err != nil {
			t.Fatalf("AppendPrices: %v", err)
		}
	}

	max, ok, err := s.MaxDate(ctx, "ALK")
	if err != nil || !ok {
		t.Fatalf("MaxDate: ok=%v err=%v", ok, err)
	}
	if !max.Equal(day(2024, 2, 1)) {
		t.Errorf("MaxDate = %v, want 2024-02-01", max)
	}

	// Other codes are not visible.
	if _, ok, _ := s.MaxDate(ctx, "TEL"); ok {
		t.Error("MaxDate must filter by code")
	}
}

func TestListCodes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, code := range []string{"TEL", "ALK", "KMB"} {
		if err := s.AppendPrices(ctx, code, []domain.PricePoint{{
			TradeDate:      day(2024, 6, 3),
			LastTradePrice: domain.Float(1),
			Max:            domain.Float(1),
			Min:            domain.Float(1),
		}}); err != nil {
			t.Fatalf("AppendPrices: %v", err)
		}
	}

	codes, err := s.ListCodes(ctx)
	if err != nil {
		t.Fatalf("ListCodes: %v", err)
	}
	want := []string{"ALK", "KMB", "TEL"}
	if len(codes) != len(want) {
		t.Fatalf("ListCodes = %v, want %v", codes, want)
	}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("ListCodes[%d] = %q, want %q", i, codes[i], want[i])
		}
	}
}

func TestIndicatorsReplaceAndQuery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rows := []domain.IndicatorRow{
		{Code: "ALK", Date: day(2024, 1, 10), Period: domain.PeriodDaily,
			Signal: domain.SignalBuy, RSI: domain.Float(28.5), SMA20: domain.Float(21000)},
		{Code: "ALK", Date: day(2024, 1, 11), Period: domain.PeriodDaily,
			Signal: domain.SignalHold, RSI: domain.Float(45.0)},
		{Code: "ALK", Date: day(2024, 1, 12), Period: domain.PeriodWeekly,
			Signal: domain.SignalSell, RSI: domain.Float(72.0)},
	}
	if err := s.ReplaceIndicators(ctx, rows); err != nil {
		t.Fatalf("ReplaceIndicators: %v", err)
	}

	latest, ok, err := s.LatestIndicator(ctx, "ALK", domain.PeriodDaily)
	if err != nil || !ok {
		t.Fatalf("LatestIndicator: ok=%v err=%v", ok, err)
	}
	if !latest.Date.Equal(day(2024, 1, 11)) || latest.Signal != domain.SignalHold {
		t.Errorf("LatestIndicator = %+v", latest)
	}
	if latest.SMA20 != nil {
		t.Errorf("SMA20 should be NULL for the latest daily row, got %v", *latest.SMA20)
	}

	recent, err := s.RecentIndicators(ctx, "ALK", domain.PeriodDaily, 10)
	if err != nil {
		t.Fatalf("RecentIndicators: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("RecentIndicators returned %d rows, want 2", len(recent))
	}
	if !recent[0].Date.After(recent[1].Date) {
		t.Error("RecentIndicators must be newest first")
	}

	// Replace wipes previous contents.
	if err := s.ReplaceIndicators(ctx, rows[:1]); err != nil {
		t.Fatalf("second ReplaceIndicators: %v", err)
	}
	if _, ok, _ := s.LatestIndicator(ctx, "ALK", domain.PeriodWeekly); ok {
		t.Error("weekly row should have been replaced away")
	}
}
