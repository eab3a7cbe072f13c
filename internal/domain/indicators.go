package domain

import "time"

// Resample periods for indicator computation.
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
)

// Periods lists the supported resample periods in computation order.
var Periods = []string{PeriodDaily, PeriodWeekly, PeriodMonthly}

// ValidPeriod reports whether p names a supported resample period.
func ValidPeriod(p string) bool {
	for _, v := range Periods {
		if p == v {
			return true
		}
	}
	return false
}

// Trading signals derived from the indicators.
const (
	SignalBuy  = "Buy"
	SignalSell = "Sell"
	SignalHold = "Hold"
)

// IndicatorRow is one row of computed technical indicators for a security at
// one date and resample period. Indicator fields are pointers because the
// leading rows of a series lack enough history to compute them.
type IndicatorRow struct {
	Code      string
	Date      time.Time
	Period    string
	Signal    string
	SMA20     *float64
	SMA50     *float64
	EMA20     *float64
	EMA50     *float64
	RSI       *float64
	MACD      *float64
	Stoch     *float64
	CCI       *float64
	WilliamsR *float64
}
