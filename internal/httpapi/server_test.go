package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"berza/internal/domain"
)

type stubStore struct {
	codes     []string
	series    []domain.PricePoint
	latest    *domain.IndicatorRow
	recent    []domain.IndicatorRow
	readErr   error
	lastLimit int
}

func (s *stubStore) AppendPrices(context.Context, string, []domain.PricePoint) error {
	return fmt.Errorf("not implemented")
}

func (s *stubStore) MaxDate(context.Context, string) (time.Time, bool, error) {
	return time.Time{}, false, nil
}

func (s *stubStore) ReadSeries(_ context.Context, _ string, start, end time.Time) ([]domain.PricePoint, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	var out []domain.PricePoint
	for _, p := range s.series {
		if !p.TradeDate.Before(start) && !p.TradeDate.After(end) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubStore) ListCodes(context.Context) ([]string, error) {
	return s.codes, nil
}

func (s *stubStore) ReplaceIndicators(context.Context, []domain.IndicatorRow) error {
	return nil
}

func (s *stubStore) LatestIndicator(_ context.Context, code, period string) (domain.IndicatorRow, bool, error) {
	if s.latest == nil {
		return domain.IndicatorRow{}, false, nil
	}
	return *s.latest, true, nil
}

func (s *stubStore) RecentIndicators(_ context.Context, _, _ string, limit int) ([]domain.IndicatorRow, error) {
	s.lastLimit = limit
	return s.recent, nil
}

type blockingJob struct {
	started chan struct{}
	release chan struct{}
}

func newBlockingJob() *blockingJob {
	return &blockingJob{started: make(chan struct{}), release: make(chan struct{})}
}

func (j *blockingJob) Run(context.Context) error {
	close(j.started)
	<-j.release
	return nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestServer(store *stubStore, updater, analyzer Job) *httptest.Server {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return httptest.NewServer(NewServer(store, store, updater, analyzer, log).Handler())
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
	}
	return resp.StatusCode
}

func TestSecuritiesSorted(t *testing.T) {
	srv := newTestServer(&stubStore{codes: []string{"KMB", "ALK", "TEL"}}, nil, nil)
	defer srv.Close()

	var got securitiesResponse
	if status := getJSON(t, srv.URL+"/api/securities", &got); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if len(got.Codes) != 3 || got.Codes[0] != "ALK" || got.Codes[2] != "TEL" {
		t.Fatalf("codes = %v", got.Codes)
	}
}

func TestPricesFiltersRangeAndSerializesNulls(t *testing.T) {
	store := &stubStore{series: []domain.PricePoint{
		{
			TradeDate:      day(2024, time.January, 5),
			LastTradePrice: domain.Float(100),
			Max:            domain.Float(110),
			Min:            domain.Float(90),
		},
		{
			TradeDate:      day(2024, time.March, 5),
			LastTradePrice: domain.Float(120),
			Max:            domain.Float(121),
			Min:            domain.Float(119),
			Volume:         domain.Float(10),
		},
	}}
	srv := newTestServer(store, nil, nil)
	defer srv.Close()

	var got pricesResponse
	status := getJSON(t, srv.URL+"/api/prices/KMB?from=2024-01-01&to=2024-01-31", &got)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if got.Code != "KMB" || len(got.Points) != 1 {
		t.Fatalf("response = %+v", got)
	}
	if got.Points[0].Volume != nil {
		t.Fatal("absent volume must serialize as null")
	}

	if status := getJSON(t, srv.URL+"/api/prices/KMB?from=bogus", nil); status != http.StatusBadRequest {
		t.Fatalf("bad from date: status = %d", status)
	}
}

func TestLatestAnalysis(t *testing.T) {
	row := domain.IndicatorRow{
		Code: "ALK", Date: day(2024, time.June, 1), Period: domain.PeriodDaily,
		Signal: domain.SignalBuy, RSI: domain.Float(65),
	}
	srv := newTestServer(&stubStore{latest: &row}, nil, nil)
	defer srv.Close()

	var got indicatorRow
	if status := getJSON(t, srv.URL+"/api/analysis/latest?code=ALK", &got); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if got.Signal != domain.SignalBuy || got.Date != "2024-06-01" || got.Period != domain.PeriodDaily {
		t.Fatalf("row = %+v", got)
	}

	if status := getJSON(t, srv.URL+"/api/analysis/latest", nil); status != http.StatusBadRequest {
		t.Fatalf("missing code: status = %d", status)
	}
	if status := getJSON(t, srv.URL+"/api/analysis/latest?code=ALK&period=hourly", nil); status != http.StatusBadRequest {
		t.Fatalf("invalid period: status = %d", status)
	}
}

func TestLatestAnalysisNotFound(t *testing.T) {
	srv := newTestServer(&stubStore{}, nil, nil)
	defer srv.Close()
	if status := getJSON(t, srv.URL+"/api/analysis/latest?code=GONE", nil); status != http.StatusNotFound {
		t.Fatalf("status = %d", status)
	}
}

func TestAnalysisHistoryLimit(t *testing.T) {
	store := &stubStore{}
	srv := newTestServer(store, nil, nil)
	defer srv.Close()

	if status := getJSON(t, srv.URL+"/api/analysis/history?code=ALK&period=weekly&limit=5", nil); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if store.lastLimit != 5 {
		t.Fatalf("limit passed = %d, want 5", store.lastLimit)
	}

	if status := getJSON(t, srv.URL+"/api/analysis/history?code=ALK", nil); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if store.lastLimit != defaultHistoryLimit {
		t.Fatalf("default limit = %d, want %d", store.lastLimit, defaultHistoryLimit)
	}

	if status := getJSON(t, srv.URL+"/api/analysis/history?code=ALK&limit=-1", nil); status != http.StatusBadRequest {
		t.Fatalf("negative limit: status = %d", status)
	}
}

func TestTriggerJobRejectsConcurrentRuns(t *testing.T) {
	job := newBlockingJob()
	srv := newTestServer(&stubStore{}, job, nil)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/update", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("first trigger: status = %d", resp.StatusCode)
	}
	<-job.started

	resp, err = http.Post(srv.URL+"/api/update", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second trigger: status = %d", resp.StatusCode)
	}
	close(job.release)
}

func TestTriggerJobNotConfigured(t *testing.T) {
	srv := newTestServer(&stubStore{}, nil, nil)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/analyze", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotImplemented {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
