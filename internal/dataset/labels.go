package dataset

import (
	"fmt"
	"math"

	"golang-crypto-trader/pkg/common"
)

// SignalLabeler derives forward-looking buy/sell training targets. This is
// the single place in the pipeline where look-ahead is intentional: labels
// encode future outcome and are never available at live-prediction time.
type SignalLabeler struct {
	// CloseColumn is the primary market close column, e.g. "close_btc_jpy".
	CloseColumn string
	// BuyTerm is the forward window in bars for the buy target; a buy
	// signal fires when max(close) over (t, t+BuyTerm] exceeds
	// close[t]*(1+BuyRate).
	BuyTerm int
	BuyRate float64
	// SellTerm/SellRate mirror the buy side against min(close).
	SellTerm int
	SellRate float64
}

// Label adds buy_signal and sell_signal columns to the frame. Rows whose
// forward window is incomplete get NaN labels and must be dropped by the
// caller. When both signals fire on the same bar, both are reset to zero:
// an ambiguous window produces no trade.
func (l *SignalLabeler) Label(f *Frame) error {
	if l.BuyTerm <= 0 || l.SellTerm <= 0 {
		return fmt.Errorf("signal terms must be positive: buy=%d sell=%d", l.BuyTerm, l.SellTerm)
	}

	close, err := f.Column(l.CloseColumn)
	if err != nil {
		return err
	}

	n := len(close)
	buy := nanSlice(n)
	sell := nanSlice(n)

	for t := 0; t < n; t++ {
		if t+l.BuyTerm >= n || t+l.SellTerm >= n {
			continue
		}

		maxClose := math.Inf(-1)
		for j := t + 1; j <= t+l.BuyTerm; j++ {
			maxClose = math.Max(maxClose, close[j])
		}
		minClose := math.Inf(1)
		for j := t + 1; j <= t+l.SellTerm; j++ {
			minClose = math.Min(minClose, close[j])
		}

		buySignal := maxClose/close[t] > 1+l.BuyRate
		sellSignal := minClose/close[t] < 1-l.SellRate

		if buySignal && sellSignal {
			// Both directions triggered within the window; discard both
			// rather than guessing.
			buySignal, sellSignal = false, false
		}
		buy[t] = boolToFloat(buySignal)
		sell[t] = boolToFloat(sellSignal)
	}

	if err := f.AddColumn(common.SignalBuy, buy); err != nil {
		return err
	}
	return f.AddColumn(common.SignalSell, sell)
}

// TargetColumns returns the label column names in training order.
func (l *SignalLabeler) TargetColumns() []string {
	return []string{common.SignalBuy, common.SignalSell}
}
