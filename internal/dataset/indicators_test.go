package dataset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	got := SMA(values, 3)

	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))
	assert.InDelta(t, 2.0, got[2], 1e-9)
	assert.InDelta(t, 3.0, got[3], 1e-9)
	assert.InDelta(t, 4.0, got[4], 1e-9)
}

func TestRollingStd(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	got := RollingStd(values, 8)

	// Known population stddev of this classic sequence is exactly 2.
	assert.InDelta(t, 2.0, got[7], 1e-9)
	assert.True(t, math.IsNaN(got[6]))
}

func TestBollinger(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	upper, middle, lower := Bollinger(values, 8)

	assert.InDelta(t, 5.0, middle[7], 1e-9)
	assert.InDelta(t, 9.0, upper[7], 1e-9)
	assert.InDelta(t, 1.0, lower[7], 1e-9)
}

func TestEMASeededWithSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6}
	got := EMA(values, 3)

	assert.True(t, math.IsNaN(got[1]))
	assert.InDelta(t, 2.0, got[2], 1e-9)
	// alpha = 0.5: ema[3] = 4*0.5 + 2*0.5 = 3
	assert.InDelta(t, 3.0, got[3], 1e-9)
	assert.InDelta(t, 4.0, got[4], 1e-9)
}

func TestRSIWilder(t *testing.T) {
	// Monotonic rise has no losses, so RSI saturates at 100.
	values := make([]float64, 20)
	for i := range values {
		values[i] = float64(i + 1)
	}
	got := RSI(values, 14)

	assert.True(t, math.IsNaN(got[13]))
	assert.InDelta(t, 100.0, got[14], 1e-9)
	assert.InDelta(t, 100.0, got[19], 1e-9)
}

func TestRSIMixedMoves(t *testing.T) {
	values := []float64{10, 11, 10, 11, 10, 11, 10, 11, 10, 11}
	got := RSI(values, 4)

	for i := 4; i < len(got); i++ {
		require.False(t, math.IsNaN(got[i]), "rsi defined at %d", i)
		assert.Greater(t, got[i], 0.0)
		assert.Less(t, got[i], 100.0)
	}
}

func TestTrueRangeAndATR(t *testing.T) {
	high := []float64{12, 13, 15}
	low := []float64{10, 11, 12}
	closePrice := []float64{11, 12, 14}

	tr := TrueRange(high, low, closePrice)
	assert.True(t, math.IsNaN(tr[0])) // no previous close
	assert.InDelta(t, 2.0, tr[1], 1e-9)
	assert.InDelta(t, 3.0, tr[2], 1e-9)

	atr := ATR(high, low, closePrice, 2)
	assert.True(t, math.IsNaN(atr[1]))
	assert.InDelta(t, 2.5, atr[2], 1e-9)
}

func TestOBV(t *testing.T) {
	closePrice := []float64{10, 11, 11, 9}
	volume := []float64{100, 200, 300, 400}
	got := OBV(closePrice, volume)

	assert.InDelta(t, 0.0, got[0], 1e-9)
	assert.InDelta(t, 200.0, got[1], 1e-9)
	assert.InDelta(t, 200.0, got[2], 1e-9) // unchanged close adds nothing
	assert.InDelta(t, -200.0, got[3], 1e-9)
}

func TestMACDLineIsFastMinusSlow(t *testing.T) {
	values := make([]float64, 60)
	for i := range values {
		values[i] = 100 + float64(i)
	}
	line, signal, hist := MACD(values, 12, 26, 9)

	fast := EMA(values, 12)
	slow := EMA(values, 26)
	for i := 30; i < len(values); i++ {
		assert.InDelta(t, fast[i]-slow[i], line[i], 1e-9)
	}
	require.False(t, math.IsNaN(signal[45]))
	assert.InDelta(t, line[45]-signal[45], hist[45], 1e-9)
}

func TestStochastic(t *testing.T) {
	n := 20
	high := make([]float64, n)
	low := make([]float64, n)
	closePrice := make([]float64, n)
	for i := 0; i < n; i++ {
		high[i] = 110 + float64(i)
		low[i] = 90 + float64(i)
		closePrice[i] = 110 + float64(i) // closes at the running high
	}
	k, d := Stochastic(high, low, closePrice, 14, 3)

	assert.True(t, math.IsNaN(k[12]))
	assert.InDelta(t, 100.0, k[14], 1e-9)
	assert.InDelta(t, 100.0, d[16], 1e-9)
}

func TestStochasticFlatRangeDefaultsToMidpoint(t *testing.T) {
	n := 10
	flat := make([]float64, n)
	for i := range flat {
		flat[i] = 100.0
	}
	k, _ := Stochastic(flat, flat, flat, 5, 3)
	assert.InDelta(t, 50.0, k[6], 1e-9)
}
