package analysis

import (
	"math"
	"testing"
)

func approx(t *testing.T, got *float64, want float64, name string) {
	t.Helper()
	if got == nil {
		t.Fatalf("%s is absent, want %v", name, want)
	}
	if math.Abs(*got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, *got, want)
	}
}

func TestSMASeries(t *testing.T) {
	got := smaSeries([]float64{1, 2, 3, 4}, 2)
	if got[0] != nil {
		t.Fatalf("position before window filled should be absent, got %v", *got[0])
	}
	approx(t, got[1], 1.5, "sma[1]")
	approx(t, got[2], 2.5, "sma[2]")
	approx(t, got[3], 3.5, "sma[3]")
}

func TestEMASeries(t *testing.T) {
	// span 3 gives alpha 0.5, so each value is the midpoint of the new
	// close and the previous EMA.
	got := emaSeries([]float64{2, 4, 4}, 3)
	approx(t, got[0], 2, "ema[0]")
	approx(t, got[1], 3, "ema[1]")
	approx(t, got[2], 3.5, "ema[2]")
}

func TestRSISeriesExtremes(t *testing.T) {
	up := rsiSeries([]float64{1, 2, 3, 4}, 2)
	if up[0] != nil || up[1] != nil {
		t.Fatal("rsi must be absent before period+1 bars")
	}
	approx(t, up[2], 100, "rsi of pure gains")

	down := rsiSeries([]float64{4, 3, 2, 1}, 2)
	approx(t, down[3], 0, "rsi of pure losses")
}

func TestRSISeriesWilderSmoothing(t *testing.T) {
	// Gains then one loss: avg gain 1, avg loss 0 after two changes; the
	// loss of 3 then smooths in as avgGain=0.5, avgLoss=1.5, rs=1/3.
	got := rsiSeries([]float64{1, 2, 3, 0}, 2)
	approx(t, got[3], 25, "rsi[3]")
}

func TestMACDSeriesFlatIsZero(t *testing.T) {
	values := make([]float64, 30)
	for i := range values {
		values[i] = 10
	}
	got := macdSeries(values)
	if got[macdSlow-2] != nil {
		t.Fatal("macd must be absent before the slow window")
	}
	approx(t, got[macdSlow-1], 0, "macd of flat series")
	approx(t, got[29], 0, "macd of flat series")
}

func TestStochSeries(t *testing.T) {
	highs := []float64{10, 10}
	lows := []float64{0, 0}
	closes := []float64{5, 7.5}
	got := stochSeries(highs, lows, closes, 2)
	if got[0] != nil {
		t.Fatal("stoch must be absent before the window fills")
	}
	approx(t, got[1], 75, "stoch[1]")
}

func TestWilliamsRSeries(t *testing.T) {
	highs := []float64{10, 10}
	lows := []float64{0, 0}
	closes := []float64{5, 7.5}
	got := williamsRSeries(highs, lows, closes, 2)
	approx(t, got[1], -25, "williams[1]")
}

func TestCCISeriesFlatIsZero(t *testing.T) {
	highs := []float64{10, 10, 10}
	lows := []float64{10, 10, 10}
	closes := []float64{10, 10, 10}
	got := cciSeries(highs, lows, closes, 3)
	approx(t, got[2], 0, "cci of flat series")
}

func TestCCISeriesDirection(t *testing.T) {
	highs := []float64{1, 2, 9}
	lows := []float64{1, 2, 9}
	closes := []float64{1, 2, 9}
	got := cciSeries(highs, lows, closes, 3)
	if got[2] == nil || *got[2] <= 0 {
		t.Fatalf("cci should be positive when price spikes above its mean, got %v", got[2])
	}
}
