package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"berza/internal/domain"
	"berza/internal/store"
)

// maxConcurrent bounds how many securities are analyzed in parallel. The
// work is CPU plus SQLite reads, so a modest cap keeps the database happy.
const maxConcurrent = 8

// Analyzer computes indicator rows for every stored security at every
// period and replaces the indicator table wholesale. Indicators are derived
// data; each run rebuilds them from the full price history.
type Analyzer struct {
	prices     store.PriceStore
	indicators store.IndicatorStore
	log        *slog.Logger
	now        func() time.Time
}

// NewAnalyzer creates an Analyzer over the given stores.
func NewAnalyzer(prices store.PriceStore, indicators store.IndicatorStore, log *slog.Logger) *Analyzer {
	return &Analyzer{
		prices:     prices,
		indicators: indicators,
		log:        log.With("component", "analysis"),
		now:        time.Now,
	}
}

// SetNow replaces the clock bounding the history read.
func (a *Analyzer) SetNow(now func() time.Time) { a.now = now }

// Run analyzes every security with stored history and persists the result.
// A security whose history cannot be read fails the whole run; partial
// indicator tables are worse than stale ones.
func (a *Analyzer) Run(ctx context.Context) error {
	started := a.now()

	codes, err := a.prices.ListCodes(ctx)
	if err != nil {
		return fmt.Errorf("listing securities: %w", err)
	}
	a.log.Info("analysis started", "securities", len(codes))

	var mu sync.Mutex
	var rows []domain.IndicatorRow

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)
	for _, code := range codes {
		g.Go(func() error {
			computed, err := a.analyzeSecurity(gctx, code)
			if err != nil {
				return fmt.Errorf("analyzing %s: %w", code, err)
			}
			mu.Lock()
			rows = append(rows, computed...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := a.indicators.ReplaceIndicators(ctx, rows); err != nil {
		return fmt.Errorf("saving indicators: %w", err)
	}
	a.log.Info("analysis complete", "rows", len(rows), "took", time.Since(started).Round(time.Millisecond))
	return nil
}

// analyzeSecurity reads one security's full history and computes indicator
// rows for every period.
func (a *Analyzer) analyzeSecurity(ctx context.Context, code string) ([]domain.IndicatorRow, error) {
	end := domain.Day(a.now())
	points, err := a.prices.ReadSeries(ctx, code, time.Time{}, end)
	if err != nil {
		return nil, err
	}
	daily := barsFromPoints(points)
	if len(daily) == 0 {
		return nil, nil
	}

	var rows []domain.IndicatorRow
	for _, period := range domain.Periods {
		bars := daily
		switch period {
		case domain.PeriodWeekly:
			bars = resampleWeekly(daily)
		case domain.PeriodMonthly:
			bars = resampleMonthly(daily)
		}
		rows = append(rows, indicatorRows(code, period, bars)...)
	}
	return rows, nil
}

// indicatorRows computes the full indicator set and a signal for each bar.
func indicatorRows(code, period string, bars []bar) []domain.IndicatorRow {
	closes := make([]float64, len(bars))
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, b := range bars {
		closes[i], highs[i], lows[i] = b.Close, b.High, b.Low
	}

	sma20 := smaSeries(closes, 20)
	sma50 := smaSeries(closes, 50)
	ema20 := emaSeries(closes, 20)
	ema50 := emaSeries(closes, 50)
	rsi := rsiSeries(closes, rsiPeriod)
	macd := macdSeries(closes)
	stoch := stochSeries(highs, lows, closes, stochPeriod)
	cci := cciSeries(highs, lows, closes, cciPeriod)
	williams := williamsRSeries(highs, lows, closes, williamsPeriod)

	rows := make([]domain.IndicatorRow, len(bars))
	for i, b := range bars {
		rows[i] = domain.IndicatorRow{
			Code:      code,
			Date:      b.Date,
			Period:    period,
			Signal:    signalFor(b.Close, rsi[i], sma20[i]),
			SMA20:     sma20[i],
			SMA50:     sma50[i],
			EMA20:     ema20[i],
			EMA50:     ema50[i],
			RSI:       rsi[i],
			MACD:      macd[i],
			Stoch:     stoch[i],
			CCI:       cci[i],
			WilliamsR: williams[i],
		}
	}
	return rows
}

// signalFor derives the Buy/Sell/Hold signal for one bar. RSI extremes set
// the signal first; the close-versus-SMA20 trend comparison then overrides
// it, so the trend wins whenever both fire.
func signalFor(close float64, rsi, sma20 *float64) string {
	signal := domain.SignalHold
	if rsi != nil {
		switch {
		case *rsi < 30:
			signal = domain.SignalBuy
		case *rsi > 70:
			signal = domain.SignalSell
		}
	}
	if sma20 != nil {
		switch {
		case close > *sma20:
			signal = domain.SignalBuy
		case close < *sma20:
			signal = domain.SignalSell
		}
	}
	return signal
}
