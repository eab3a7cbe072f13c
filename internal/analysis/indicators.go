// Package analysis computes technical indicators and trading signals over
// the stored daily price history, for daily, weekly, and monthly views.
package analysis

import "math"

// Default lookback periods for the oscillator family. The moving-average
// windows are fixed at 20 and 50 bars.
const (
	rsiPeriod      = 14
	stochPeriod    = 14
	cciPeriod      = 20
	williamsPeriod = 14
	macdFast       = 12
	macdSlow       = 26
)

// smaSeries returns the rolling simple moving average. Positions before the
// window fills are absent.
func smaSeries(values []float64, period int) []*float64 {
	out := make([]*float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			avg := sum / float64(period)
			out[i] = &avg
		}
	}
	return out
}

// emaSeries returns the recursive exponential moving average with
// smoothing factor 2/(span+1), seeded with the first value. Defined for
// every position.
func emaSeries(values []float64, span int) []*float64 {
	out := make([]*float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 2.0 / float64(span+1)
	ema := values[0]
	for i, v := range values {
		if i > 0 {
			ema = alpha*v + (1-alpha)*ema
		}
		e := ema
		out[i] = &e
	}
	return out
}

// rsiSeries returns the Wilder-smoothed relative strength index. The first
// period positions are absent; from there on the average gain and loss are
// smoothed with factor 1/period.
func rsiSeries(values []float64, period int) []*float64 {
	out := make([]*float64, len(values))
	if len(values) < period+1 {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) *float64 {
	rsi := 100.0
	if avgLoss != 0 {
		rs := avgGain / avgLoss
		rsi = 100.0 - 100.0/(1.0+rs)
	}
	return &rsi
}

// macdSeries returns the MACD line, the fast EMA minus the slow EMA.
// Positions before the slow window has seen enough bars are absent.
func macdSeries(values []float64) []*float64 {
	fast := emaSeries(values, macdFast)
	slow := emaSeries(values, macdSlow)

	out := make([]*float64, len(values))
	for i := range values {
		if i < macdSlow-1 {
			continue
		}
		v := *fast[i] - *slow[i]
		out[i] = &v
	}
	return out
}

// stochSeries returns the stochastic oscillator %K: where the close sits
// within the rolling high-low range, scaled to 0..100.
func stochSeries(highs, lows, closes []float64, period int) []*float64 {
	out := make([]*float64, len(closes))
	for i := period - 1; i < len(closes); i++ {
		hi, lo := rangeExtremes(highs, lows, i, period)
		v := 50.0
		if hi != lo {
			v = 100.0 * (closes[i] - lo) / (hi - lo)
		}
		out[i] = &v
	}
	return out
}

// williamsRSeries returns Williams %R: the mirror of %K on a 0..-100 scale.
func williamsRSeries(highs, lows, closes []float64, period int) []*float64 {
	out := make([]*float64, len(closes))
	for i := period - 1; i < len(closes); i++ {
		hi, lo := rangeExtremes(highs, lows, i, period)
		v := -50.0
		if hi != lo {
			v = -100.0 * (hi - closes[i]) / (hi - lo)
		}
		out[i] = &v
	}
	return out
}

// cciSeries returns the commodity channel index over the typical price
// (high+low+close)/3 with the conventional 0.015 scaling constant.
func cciSeries(highs, lows, closes []float64, period int) []*float64 {
	tp := make([]float64, len(closes))
	for i := range closes {
		tp[i] = (highs[i] + lows[i] + closes[i]) / 3.0
	}

	out := make([]*float64, len(closes))
	for i := period - 1; i < len(tp); i++ {
		var sum float64
		for j := i - period + 1; j <= i; j++ {
			sum += tp[j]
		}
		mean := sum / float64(period)

		var dev float64
		for j := i - period + 1; j <= i; j++ {
			dev += math.Abs(tp[j] - mean)
		}
		dev /= float64(period)

		v := 0.0
		if dev != 0 {
			v = (tp[i] - mean) / (0.015 * dev)
		}
		out[i] = &v
	}
	return out
}

// rangeExtremes returns the highest high and lowest low over the period
// ending at index i.
func rangeExtremes(highs, lows []float64, i, period int) (hi, lo float64) {
	hi, lo = math.Inf(-1), math.Inf(1)
	for j := i - period + 1; j <= i; j++ {
		if highs[j] > hi {
			hi = highs[j]
		}
		if lows[j] < lo {
			lo = lows[j]
		}
	}
	return hi, lo
}
