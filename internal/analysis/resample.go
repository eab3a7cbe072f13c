package analysis

import (
	"time"

	"berza/internal/domain"
)

// bar is one aggregated trading bar at any period.
type bar struct {
	Date   time.Time
	Close  float64
	High   float64
	Low    float64
	Volume float64
}

// barsFromPoints converts stored daily rows to bars. Rows reach storage only
// when price, max, and min are present; a missing volume counts as zero.
func barsFromPoints(points []domain.PricePoint) []bar {
	bars := make([]bar, 0, len(points))
	for _, p := range points {
		b := bar{
			Date:  p.TradeDate,
			Close: *p.LastTradePrice,
			High:  *p.Max,
			Low:   *p.Min,
		}
		if p.Volume != nil {
			b.Volume = *p.Volume
		}
		bars = append(bars, b)
	}
	return bars
}

// resampleWeekly aggregates daily bars into weekly bars labelled with the
// week's Sunday. Close is the mean of the daily closes; high and low are the
// extremes; volume is summed.
func resampleWeekly(daily []bar) []bar {
	return resample(daily, weekEnd)
}

// resampleMonthly aggregates daily bars into monthly bars labelled with the
// last calendar day of the month.
func resampleMonthly(daily []bar) []bar {
	return resample(daily, monthEnd)
}

// resample groups consecutive bars sharing a bucket label. Input must be
// sorted by date; bucket labels are then nondecreasing, so a single pass
// suffices.
func resample(daily []bar, bucket func(time.Time) time.Time) []bar {
	var out []bar
	var cur bar
	var n int

	flush := func() {
		if n == 0 {
			return
		}
		cur.Close /= float64(n)
		out = append(out, cur)
		n = 0
	}

	for _, b := range daily {
		label := bucket(b.Date)
		if n > 0 && !label.Equal(cur.Date) {
			flush()
		}
		if n == 0 {
			cur = bar{Date: label, Close: 0, High: b.High, Low: b.Low}
		}
		cur.Close += b.Close
		if b.High > cur.High {
			cur.High = b.High
		}
		if b.Low < cur.Low {
			cur.Low = b.Low
		}
		cur.Volume += b.Volume
		n++
	}
	flush()
	return out
}

// weekEnd returns the Sunday ending the week containing t.
func weekEnd(t time.Time) time.Time {
	t = domain.Day(t)
	offset := (7 - int(t.Weekday())) % 7
	return t.AddDate(0, 0, offset)
}

// monthEnd returns the last calendar day of t's month.
func monthEnd(t time.Time) time.Time {
	t = domain.Day(t)
	firstOfNext := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return firstOfNext.AddDate(0, 0, -1)
}
