package dataset

import (
	"errors"
	"fmt"
	"math"
)

// ErrMissingColumn is returned when the frame lacks a column the pipeline
// requires, usually a market-symbol/configuration mismatch.
var ErrMissingColumn = errors.New("required column not found")

// FeatureConfig tunes the feature pipeline for one primary market symbol.
type FeatureConfig struct {
	// Symbol is the primary market in storage form, e.g. "btc_jpy". Raw
	// columns are expected as open_<symbol>, high_<symbol>, etc.
	Symbol string

	SMAPeriods       []int
	BollingerPeriods []int
	ATRPeriods       []int
	RSIPeriod        int
	StochasticK      int
	StochasticD      int
	MACDFast         int
	MACDSlow         int
	MACDSignal       int

	// RSI reversal signal tuning.
	RSILowThreshold  float64
	RSIHighThreshold float64
	ReversalWindow   int
	ReversalCount    int

	// LagDepth adds shifted copies of the raw OHLCV columns for
	// lag = 1..LagDepth. ExtraLagColumns are lagged as well.
	LagDepth        int
	ExtraLagColumns []string
}

// DefaultFeatureConfig returns the standard indicator catalogue.
func DefaultFeatureConfig(symbol string) FeatureConfig {
	return FeatureConfig{
		Symbol:           symbol,
		SMAPeriods:       []int{5, 10, 15, 20, 50},
		BollingerPeriods: []int{10, 15, 20},
		ATRPeriods:       []int{5, 10, 15, 20},
		RSIPeriod:        14,
		StochasticK:      14,
		StochasticD:      3,
		MACDFast:         12,
		MACDSlow:         26,
		MACDSignal:       9,
		RSILowThreshold:  35,
		RSIHighThreshold: 65,
		ReversalWindow:   10,
		ReversalCount:    3,
		LagDepth:         3,
	}
}

// FeatureBuilder derives the model feature matrix from a raw multi-market
// OHLCV frame. Every emitted feature value at row t is a deterministic
// function of bars at or before t.
type FeatureBuilder struct {
	cfg            FeatureConfig
	featureColumns []string
}

// NewFeatureBuilder creates a builder for the given configuration.
func NewFeatureBuilder(cfg FeatureConfig) *FeatureBuilder {
	return &FeatureBuilder{cfg: cfg}
}

// FeatureColumns returns the names of the columns emitted by the last Build,
// in emission order. Callers use this to select the X matrix.
func (b *FeatureBuilder) FeatureColumns() []string {
	cols := make([]string, len(b.featureColumns))
	copy(cols, b.featureColumns)
	return cols
}

// WarmupBars reports how many leading bars the pipeline consumes before the
// first fully defined feature row. Callers fetching a trailing window use it
// to size the fetch so the trim leaves rows.
func (b *FeatureBuilder) WarmupBars() int {
	return b.firstValidRow()
}

// rawColumns returns the primary symbol's OHLCV column names.
func (b *FeatureBuilder) rawColumns() (open, high, low, close, volume string) {
	s := b.cfg.Symbol
	return "open_" + s, "high_" + s, "low_" + s, "close_" + s, "volume_" + s
}

// Build runs the fixed-order feature pipeline: indicators, cross/pattern
// signals, lag features, then the valid-window trim that removes warm-up
// rows. The input frame is not mutated.
func (b *FeatureBuilder) Build(raw *Frame) (*Frame, error) {
	openCol, highCol, lowCol, closeCol, volumeCol := b.rawColumns()
	for _, name := range []string{openCol, highCol, lowCol, closeCol, volumeCol} {
		if !raw.HasColumn(name) {
			return nil, fmt.Errorf("%w: %s (check market_symbol)", ErrMissingColumn, name)
		}
	}

	f := raw.Copy()
	b.featureColumns = nil

	open, _ := f.Column(openCol)
	high, _ := f.Column(highCol)
	low, _ := f.Column(lowCol)
	close, _ := f.Column(closeCol)
	volume, _ := f.Column(volumeCol)

	// Step 1: technical indicators.
	smas := make(map[int][]float64, len(b.cfg.SMAPeriods))
	for _, period := range b.cfg.SMAPeriods {
		values := SMA(close, period)
		smas[period] = values
		if err := b.addFeature(f, fmt.Sprintf("sma_%d", period), values); err != nil {
			return nil, err
		}
	}
	for _, period := range b.cfg.BollingerPeriods {
		upper, middle, lower := Bollinger(close, period)
		if err := b.addFeature(f, fmt.Sprintf("bb_upper_%d", period), upper); err != nil {
			return nil, err
		}
		if err := b.addFeature(f, fmt.Sprintf("bb_middle_%d", period), middle); err != nil {
			return nil, err
		}
		if err := b.addFeature(f, fmt.Sprintf("bb_lower_%d", period), lower); err != nil {
			return nil, err
		}
	}
	if err := b.addFeature(f, "tr", TrueRange(high, low, close)); err != nil {
		return nil, err
	}
	for _, period := range b.cfg.ATRPeriods {
		if err := b.addFeature(f, fmt.Sprintf("atr_%d", period), ATR(high, low, close, period)); err != nil {
			return nil, err
		}
	}
	rsi := RSI(close, b.cfg.RSIPeriod)
	if err := b.addFeature(f, fmt.Sprintf("rsi_%d", b.cfg.RSIPeriod), rsi); err != nil {
		return nil, err
	}
	if err := b.addFeature(f, "obv", OBV(close, volume)); err != nil {
		return nil, err
	}
	macd, macdSignal, macdHist := MACD(close, b.cfg.MACDFast, b.cfg.MACDSlow, b.cfg.MACDSignal)
	if err := b.addFeature(f, "macd", macd); err != nil {
		return nil, err
	}
	if err := b.addFeature(f, "macd_signal", macdSignal); err != nil {
		return nil, err
	}
	if err := b.addFeature(f, "macd_hist", macdHist); err != nil {
		return nil, err
	}
	stochK, stochD := Stochastic(high, low, close, b.cfg.StochasticK, b.cfg.StochasticD)
	if err := b.addFeature(f, "stoch_k", stochK); err != nil {
		return nil, err
	}
	if err := b.addFeature(f, "stoch_d", stochD); err != nil {
		return nil, err
	}

	// Step 2: cross and pattern signals. These depend on the SMA and RSI
	// columns created above.
	for i, p1 := range b.cfg.SMAPeriods {
		for _, p2 := range b.cfg.SMAPeriods[i+1:] {
			up, down := maCrossSignals(smas[p1], smas[p2])
			if err := b.addFeature(f, fmt.Sprintf("ma_cross_up_%d_%d", p1, p2), up); err != nil {
				return nil, err
			}
			if err := b.addFeature(f, fmt.Sprintf("ma_cross_down_%d_%d", p1, p2), down); err != nil {
				return nil, err
			}
		}
	}
	if sma5, ok := smas[5]; ok {
		up, down := candleCrossSignals(open, close, sma5)
		if err := b.addFeature(f, "candle_cross_up_5", up); err != nil {
			return nil, err
		}
		if err := b.addFeature(f, "candle_cross_down_5", down); err != nil {
			return nil, err
		}
	}
	rebound, fall := rsiReversalBars(rsi, b.cfg.RSILowThreshold, b.cfg.RSIHighThreshold)
	tripleRebound := rollingCountAtLeast(rebound, b.cfg.ReversalWindow, b.cfg.ReversalCount)
	tripleFall := rollingCountAtLeast(fall, b.cfg.ReversalWindow, b.cfg.ReversalCount)
	if err := b.addFeature(f, "rsi_rebound", rebound); err != nil {
		return nil, err
	}
	if err := b.addFeature(f, "rsi_fall", fall); err != nil {
		return nil, err
	}
	if err := b.addFeature(f, "rsi_triple_rebound", tripleRebound); err != nil {
		return nil, err
	}
	if err := b.addFeature(f, "rsi_triple_fall", tripleFall); err != nil {
		return nil, err
	}

	// Step 3: lag features over the raw OHLCV columns plus any configured
	// extra columns.
	lagSources := []string{openCol, highCol, lowCol, closeCol, volumeCol}
	lagSources = append(lagSources, b.cfg.ExtraLagColumns...)
	for _, name := range lagSources {
		values, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		for lag := 1; lag <= b.cfg.LagDepth; lag++ {
			if err := b.addFeature(f, fmt.Sprintf("%s_lag_%d", name, lag), Shift(values, lag)); err != nil {
				return nil, err
			}
		}
	}

	// Step 4: trim to the valid window. The first valid row is the max of
	// every indicator warm-up and lag depth; DropNaN afterwards is the
	// safety net for anything the explicit bound missed.
	start := b.firstValidRow()
	if start >= f.Len() {
		return nil, fmt.Errorf("not enough rows for indicator warm-up: have %d, need > %d", f.Len(), start)
	}
	return f.Slice(start, f.Len()).DropNaN(), nil
}

// addFeature stores a derived column and records it as a model feature.
func (b *FeatureBuilder) addFeature(f *Frame, name string, values []float64) error {
	if err := f.AddColumn(name, values); err != nil {
		return err
	}
	b.featureColumns = append(b.featureColumns, name)
	return nil
}

// firstValidRow computes the explicit warm-up bound across all steps.
func (b *FeatureBuilder) firstValidRow() int {
	warmup := b.cfg.LagDepth
	for _, p := range b.cfg.SMAPeriods {
		// Cross signals need one extra prior bar.
		if p+1 > warmup {
			warmup = p + 1
		}
	}
	for _, p := range b.cfg.BollingerPeriods {
		if p > warmup {
			warmup = p
		}
	}
	for _, p := range b.cfg.ATRPeriods {
		// TR consumes one bar before the ATR window.
		if p+1 > warmup {
			warmup = p + 1
		}
	}
	// RSI needs period+1 bars; reversal bars need two more, and the rolling
	// reversal count needs its whole window defined.
	rsiWarmup := b.cfg.RSIPeriod + 2 + b.cfg.ReversalWindow
	if rsiWarmup > warmup {
		warmup = rsiWarmup
	}
	macdWarmup := b.cfg.MACDSlow + b.cfg.MACDSignal
	if macdWarmup > warmup {
		warmup = macdWarmup
	}
	stochWarmup := b.cfg.StochasticK + b.cfg.StochasticD
	if stochWarmup > warmup {
		warmup = stochWarmup
	}
	return warmup
}

// maCrossSignals emits golden/dead cross flags for a fast and slow SMA pair.
func maCrossSignals(fast, slow []float64) (up, down []float64) {
	up = nanSlice(len(fast))
	down = nanSlice(len(fast))
	for i := 1; i < len(fast); i++ {
		if math.IsNaN(fast[i]) || math.IsNaN(slow[i]) || math.IsNaN(fast[i-1]) || math.IsNaN(slow[i-1]) {
			continue
		}
		up[i] = boolToFloat(fast[i] > slow[i] && fast[i-1] <= slow[i-1])
		down[i] = boolToFloat(fast[i] < slow[i] && fast[i-1] >= slow[i-1])
	}
	return up, down
}

// candleCrossSignals flags bullish/bearish candles breaking through the
// short moving average.
func candleCrossSignals(open, close, sma []float64) (up, down []float64) {
	up = nanSlice(len(close))
	down = nanSlice(len(close))
	for i := range close {
		if math.IsNaN(sma[i]) {
			continue
		}
		up[i] = boolToFloat(close[i] > open[i] && close[i] > sma[i] && open[i] <= sma[i])
		down[i] = boolToFloat(close[i] < open[i] && close[i] < sma[i] && open[i] >= sma[i])
	}
	return up, down
}

// rsiReversalBars marks rebound bars (RSI below the low threshold on the
// prior bar, direction flipping from falling to rising) and fall bars
// (mirror above the high threshold).
func rsiReversalBars(rsi []float64, lowThreshold, highThreshold float64) (rebound, fall []float64) {
	rebound = nanSlice(len(rsi))
	fall = nanSlice(len(rsi))
	for i := 2; i < len(rsi); i++ {
		if math.IsNaN(rsi[i]) || math.IsNaN(rsi[i-1]) || math.IsNaN(rsi[i-2]) {
			continue
		}
		wasFalling := rsi[i-1] < rsi[i-2]
		wasRising := rsi[i-1] > rsi[i-2]
		rebound[i] = boolToFloat(rsi[i-1] < lowThreshold && wasFalling && rsi[i] > rsi[i-1])
		fall[i] = boolToFloat(rsi[i-1] > highThreshold && wasRising && rsi[i] < rsi[i-1])
	}
	return rebound, fall
}

// rollingCountAtLeast flags rows where the trailing window contains at least
// count set bars.
func rollingCountAtLeast(flags []float64, window, count int) []float64 {
	out := nanSlice(len(flags))
	for i := window - 1; i < len(flags); i++ {
		total := 0.0
		valid := true
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(flags[j]) {
				valid = false
				break
			}
			total += flags[j]
		}
		if valid {
			out[i] = boolToFloat(total >= float64(count))
		}
	}
	return out
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
