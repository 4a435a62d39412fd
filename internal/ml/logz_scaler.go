package ml

import (
	"context"
	"fmt"
	"math"

	"golang-crypto-trader/internal/dataset"
	"golang-crypto-trader/pkg/storage"
)

const logZScalerName = "log_z_scaler"

// LogZScaler applies log(1+max(x,0)) elementwise and then standardizes each
// column to zero mean and unit variance. The log step tames the heavy tails
// of price and volume columns before the z-score.
type LogZScaler struct {
	store storage.Client
	stage string
	state *scalerState
}

// NewLogZScaler creates a log-z scaler persisting per stage.
func NewLogZScaler(store storage.Client, stage string) *LogZScaler {
	return &LogZScaler{store: store, stage: stage}
}

// FitTransform fits per-column mean/stddev in log space, persists the state
// and returns the scaled copies.
func (s *LogZScaler) FitTransform(ctx context.Context, x *dataset.Frame, y []float64) (*dataset.Frame, []float64, error) {
	state := &scalerState{Columns: make(map[string]columnStats), Fitted: true}
	for _, name := range x.Columns() {
		values, err := x.Column(name)
		if err != nil {
			return nil, nil, err
		}
		state.Columns[name] = logMeanStd(values)
	}
	if y != nil {
		stats := logMeanStd(y)
		state.Target = &stats
	}

	s.state = state
	if err := saveScalerState(ctx, s.store, s.stage, logZScalerName, state); err != nil {
		return nil, nil, err
	}
	return s.apply(x, y, false)
}

// Transform applies the fitted parameters, lazily loading persisted state.
func (s *LogZScaler) Transform(ctx context.Context, x *dataset.Frame, y []float64) (*dataset.Frame, []float64, error) {
	if err := s.ensureFitted(ctx); err != nil {
		return nil, nil, err
	}
	return s.apply(x, y, false)
}

// InverseTransform reverts the z-score and the log1p: expm1(z*std + mean).
func (s *LogZScaler) InverseTransform(ctx context.Context, x *dataset.Frame, y []float64) (*dataset.Frame, []float64, error) {
	if err := s.ensureFitted(ctx); err != nil {
		return nil, nil, err
	}
	return s.apply(x, y, true)
}

func (s *LogZScaler) ensureFitted(ctx context.Context) error {
	if s.state != nil && s.state.Fitted {
		return nil
	}
	state, err := loadScalerState(ctx, s.store, s.stage, logZScalerName)
	if err != nil {
		return err
	}
	s.state = state
	return nil
}

func (s *LogZScaler) apply(x *dataset.Frame, y []float64, inverse bool) (*dataset.Frame, []float64, error) {
	scaledX, err := applyPerColumn(x, func(col string, v float64) (float64, error) {
		stats, ok := s.state.Columns[col]
		if !ok {
			return 0, fmt.Errorf("%w: column %s not in fitted state", ErrScalerNotFitted, col)
		}
		return logZValue(v, stats, inverse), nil
	})
	if err != nil {
		return nil, nil, err
	}

	if y == nil {
		return scaledX, nil, nil
	}
	if s.state.Target == nil {
		return nil, nil, fmt.Errorf("%w: target parameters missing", ErrScalerNotFitted)
	}
	scaledY := make([]float64, len(y))
	for i, v := range y {
		scaledY[i] = logZValue(v, *s.state.Target, inverse)
	}
	return scaledX, scaledY, nil
}

func logZValue(v float64, stats columnStats, inverse bool) float64 {
	if inverse {
		return math.Expm1(v*stats.B + stats.A)
	}
	return (math.Log1p(math.Max(v, 0)) - stats.A) / stats.B
}

// logMeanStd computes mean and stddev of log1p(max(x,0)). A near-zero
// stddev is clamped to 1 to avoid division blow-ups on constant columns.
func logMeanStd(values []float64) columnStats {
	sum, count := 0.0, 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += math.Log1p(math.Max(v, 0))
		count++
	}
	if count == 0 {
		return columnStats{A: 0, B: 1}
	}
	mean := sum / float64(count)

	variance := 0.0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		d := math.Log1p(math.Max(v, 0)) - mean
		variance += d * d
	}
	std := math.Sqrt(variance / float64(count))
	if std < 1e-10 {
		std = 1.0
	}
	return columnStats{A: mean, B: std}
}
