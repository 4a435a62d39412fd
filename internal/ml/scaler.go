// Package ml implements the model layer: reversible feature scalers, the
// classifier models, the ensemble wrapper and evaluation metrics. Artifacts
// are persisted per deployment stage through the storage client.
package ml

import (
	"context"
	"errors"
	"fmt"

	"golang-crypto-trader/internal/dataset"
	"golang-crypto-trader/pkg/common"
	"golang-crypto-trader/pkg/storage"
)

// ErrScalerNotFitted is returned when transform is invoked with no fitted
// state in memory and no persisted state in storage.
var ErrScalerNotFitted = errors.New("scaler is not fitted")

// Scaler is a reversible per-column numeric transform over a feature frame
// and an optional target vector. Implementations persist fitted parameters
// per stage and lazily reload them when used in a fresh process.
type Scaler interface {
	// FitTransform fits on X (and y when non-nil), persists the fitted
	// state and returns the scaled copies.
	FitTransform(ctx context.Context, x *dataset.Frame, y []float64) (*dataset.Frame, []float64, error)
	// Transform applies previously fitted parameters, lazily loading
	// persisted state when the scaler has not been fitted in-process.
	Transform(ctx context.Context, x *dataset.Frame, y []float64) (*dataset.Frame, []float64, error)
	// InverseTransform restores the original scale. Column labels and row
	// timestamps survive the round trip.
	InverseTransform(ctx context.Context, x *dataset.Frame, y []float64) (*dataset.Frame, []float64, error)
}

// columnStats holds fitted per-column parameters, reused by both scalers.
type columnStats struct {
	A float64 `json:"a"` // min (min-max) or mean (log-z)
	B float64 `json:"b"` // max (min-max) or stddev (log-z)
}

// scalerState is the persisted form of a fitted scaler.
type scalerState struct {
	Columns map[string]columnStats `json:"columns"`
	Target  *columnStats           `json:"target,omitempty"`
	Fitted  bool                   `json:"fitted"`
}

func scalerKey(stage, name string) string {
	return fmt.Sprintf("%s/%s/%s.json", common.StorageFolderModel, stage, name)
}

func saveScalerState(ctx context.Context, store storage.Client, stage, name string, state *scalerState) error {
	return store.SaveJSON(ctx, scalerKey(stage, name), state)
}

func loadScalerState(ctx context.Context, store storage.Client, stage, name string) (*scalerState, error) {
	var state scalerState
	found, err := store.LoadJSON(ctx, scalerKey(stage, name), &state)
	if err != nil {
		return nil, err
	}
	if !found || !state.Fitted {
		return nil, fmt.Errorf("%w: no persisted state at %s", ErrScalerNotFitted, scalerKey(stage, name))
	}
	return &state, nil
}

// applyPerColumn maps each column of x through fn(col, value) into a new
// frame with identical column order and timestamps.
func applyPerColumn(x *dataset.Frame, fn func(col string, v float64) (float64, error)) (*dataset.Frame, error) {
	out := dataset.NewFrame(x.Timestamps())
	for _, name := range x.Columns() {
		values, err := x.Column(name)
		if err != nil {
			return nil, err
		}
		for i, v := range values {
			scaled, err := fn(name, v)
			if err != nil {
				return nil, err
			}
			values[i] = scaled
		}
		if err := out.AddColumn(name, values); err != nil {
			return nil, err
		}
	}
	return out, nil
}
