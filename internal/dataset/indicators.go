package dataset

import "math"

// Indicator helpers operate on plain float64 series. Every function is a
// deterministic function of the trailing window ending at each index and
// returns NaN for bars inside the warm-up period.

// SMA computes the simple moving average over the given period.
func SMA(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// RollingStd computes the population standard deviation over the period.
func RollingStd(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		mean := 0.0
		for j := i - period + 1; j <= i; j++ {
			mean += values[j]
		}
		mean /= float64(period)
		variance := 0.0
		for j := i - period + 1; j <= i; j++ {
			d := values[j] - mean
			variance += d * d
		}
		out[i] = math.Sqrt(variance / float64(period))
	}
	return out
}

// EMA computes the exponential moving average, seeded with the SMA of the
// first period values.
func EMA(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	seed := 0.0
	for i := 0; i < period; i++ {
		seed += values[i]
	}
	seed /= float64(period)
	out[period-1] = seed

	alpha := 2.0 / (float64(period) + 1.0)
	prev := seed
	for i := period; i < len(values); i++ {
		prev = alpha*values[i] + (1-alpha)*prev
		out[i] = prev
	}
	return out
}

// Bollinger returns the upper, middle and lower bands: SMA ± 2·stdev.
func Bollinger(values []float64, period int) (upper, middle, lower []float64) {
	middle = SMA(values, period)
	std := RollingStd(values, period)
	upper = nanSlice(len(values))
	lower = nanSlice(len(values))
	for i := range values {
		if !math.IsNaN(middle[i]) && !math.IsNaN(std[i]) {
			upper[i] = middle[i] + 2*std[i]
			lower[i] = middle[i] - 2*std[i]
		}
	}
	return upper, middle, lower
}

// TrueRange computes TR[t] = max(high,low,prevClose) - min(high,low,prevClose).
// The first bar has no previous close and is NaN.
func TrueRange(high, low, close []float64) []float64 {
	out := nanSlice(len(close))
	for i := 1; i < len(close); i++ {
		hi := math.Max(high[i], math.Max(low[i], close[i-1]))
		lo := math.Min(high[i], math.Min(low[i], close[i-1]))
		out[i] = hi - lo
	}
	return out
}

// ATR smooths the true range with a simple moving average over period bars,
// starting from the first defined TR bar.
func ATR(high, low, close []float64, period int) []float64 {
	tr := TrueRange(high, low, close)
	out := nanSlice(len(tr))
	start := firstValid(tr)
	if start < 0 {
		return out
	}
	sub := SMA(tr[start:], period)
	for i := range sub {
		out[start+i] = sub[i]
	}
	return out
}

// RSI computes Wilder's relative strength index.
func RSI(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) <= period {
		return out
	}

	avgGain, avgLoss := 0.0, 0.0
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

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// OBV computes on-balance volume.
func OBV(close, volume []float64) []float64 {
	out := nanSlice(len(close))
	if len(close) == 0 {
		return out
	}
	out[0] = 0
	for i := 1; i < len(close); i++ {
		switch {
		case close[i] > close[i-1]:
			out[i] = out[i-1] + volume[i]
		case close[i] < close[i-1]:
			out[i] = out[i-1] - volume[i]
		default:
			out[i] = out[i-1]
		}
	}
	return out
}

// MACD returns the MACD line (fast EMA - slow EMA), its signal EMA and the
// histogram (line - signal).
func MACD(values []float64, fast, slow, signal int) (line, signalLine, hist []float64) {
	fastEMA := EMA(values, fast)
	slowEMA := EMA(values, slow)
	line = nanSlice(len(values))
	for i := range values {
		if !math.IsNaN(fastEMA[i]) && !math.IsNaN(slowEMA[i]) {
			line[i] = fastEMA[i] - slowEMA[i]
		}
	}

	// The signal line is an EMA over the defined region of the MACD line.
	signalLine = nanSlice(len(values))
	hist = nanSlice(len(values))
	start := firstValid(line)
	if start < 0 || len(values)-start < signal {
		return line, signalLine, hist
	}
	sub := EMA(line[start:], signal)
	for i := range sub {
		signalLine[start+i] = sub[i]
		if !math.IsNaN(sub[i]) {
			hist[start+i] = line[start+i] - sub[i]
		}
	}
	return line, signalLine, hist
}

// Stochastic returns %K over kPeriod and %D as an SMA of %K over dPeriod.
func Stochastic(high, low, close []float64, kPeriod, dPeriod int) (k, d []float64) {
	k = nanSlice(len(close))
	for i := kPeriod - 1; i < len(close); i++ {
		highest := math.Inf(-1)
		lowest := math.Inf(1)
		for j := i - kPeriod + 1; j <= i; j++ {
			highest = math.Max(highest, high[j])
			lowest = math.Min(lowest, low[j])
		}
		if highest == lowest {
			k[i] = 50
		} else {
			k[i] = 100 * (close[i] - lowest) / (highest - lowest)
		}
	}

	d = nanSlice(len(close))
	start := firstValid(k)
	if start < 0 || len(close)-start < dPeriod {
		return k, d
	}
	sub := SMA(k[start:], dPeriod)
	for i := range sub {
		d[start+i] = sub[i]
	}
	return k, d
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func firstValid(values []float64) int {
	for i, v := range values {
		if !math.IsNaN(v) {
			return i
		}
	}
	return -1
}
