package ml

import (
	"context"
	"fmt"
	"math"

	"golang-crypto-trader/internal/dataset"
	"golang-crypto-trader/pkg/storage"
)

const minMaxScalerName = "min_max_scaler"

// MinMaxScaler scales every column independently into a configured range
// (default [0,1]) using fitted per-column min/max.
type MinMaxScaler struct {
	store    storage.Client
	stage    string
	rangeMin float64
	rangeMax float64
	state    *scalerState
}

// NewMinMaxScaler creates a min-max scaler persisting per stage with the
// default [0,1] output range.
func NewMinMaxScaler(store storage.Client, stage string) *MinMaxScaler {
	return &MinMaxScaler{store: store, stage: stage, rangeMin: 0, rangeMax: 1}
}

// FitTransform fits per-column min/max on x (and on y when non-nil),
// persists the state and returns the scaled copies.
func (s *MinMaxScaler) FitTransform(ctx context.Context, x *dataset.Frame, y []float64) (*dataset.Frame, []float64, error) {
	state := &scalerState{Columns: make(map[string]columnStats), Fitted: true}
	for _, name := range x.Columns() {
		values, err := x.Column(name)
		if err != nil {
			return nil, nil, err
		}
		state.Columns[name] = minMaxOf(values)
	}
	if y != nil {
		stats := minMaxOf(y)
		state.Target = &stats
	}

	s.state = state
	if err := saveScalerState(ctx, s.store, s.stage, minMaxScalerName, state); err != nil {
		return nil, nil, err
	}
	return s.apply(x, y, false)
}

// Transform applies the fitted parameters, lazily loading persisted state.
func (s *MinMaxScaler) Transform(ctx context.Context, x *dataset.Frame, y []float64) (*dataset.Frame, []float64, error) {
	if err := s.ensureFitted(ctx); err != nil {
		return nil, nil, err
	}
	return s.apply(x, y, false)
}

// InverseTransform restores values to the original scale.
func (s *MinMaxScaler) InverseTransform(ctx context.Context, x *dataset.Frame, y []float64) (*dataset.Frame, []float64, error) {
	if err := s.ensureFitted(ctx); err != nil {
		return nil, nil, err
	}
	return s.apply(x, y, true)
}

func (s *MinMaxScaler) ensureFitted(ctx context.Context) error {
	if s.state != nil && s.state.Fitted {
		return nil
	}
	state, err := loadScalerState(ctx, s.store, s.stage, minMaxScalerName)
	if err != nil {
		return err
	}
	s.state = state
	return nil
}

func (s *MinMaxScaler) apply(x *dataset.Frame, y []float64, inverse bool) (*dataset.Frame, []float64, error) {
	scaledX, err := applyPerColumn(x, func(col string, v float64) (float64, error) {
		stats, ok := s.state.Columns[col]
		if !ok {
			return 0, fmt.Errorf("%w: column %s not in fitted state", ErrScalerNotFitted, col)
		}
		return s.scaleValue(v, stats, inverse), nil
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
		scaledY[i] = s.scaleValue(v, *s.state.Target, inverse)
	}
	return scaledX, scaledY, nil
}

func (s *MinMaxScaler) scaleValue(v float64, stats columnStats, inverse bool) float64 {
	span := stats.B - stats.A
	outSpan := s.rangeMax - s.rangeMin
	if inverse {
		if outSpan == 0 {
			return stats.A
		}
		return (v-s.rangeMin)/outSpan*span + stats.A
	}
	if span == 0 {
		// Constant column maps to the lower bound of the range.
		return s.rangeMin
	}
	return (v-stats.A)/span*outSpan + s.rangeMin
}

func minMaxOf(values []float64) columnStats {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		lo, hi = 0, 0
	}
	return columnStats{A: lo, B: hi}
}
