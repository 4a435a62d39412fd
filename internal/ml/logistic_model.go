package ml

import (
	"context"
	"fmt"

	"golang-crypto-trader/pkg/storage"
)

// LogisticModel is a binary logistic-regression classifier trained with
// batch gradient descent. Initialization is all-zero, so training is fully
// deterministic for a given input.
type LogisticModel struct {
	store        storage.Client
	learningRate float64
	epochs       int

	state logisticState
}

type logisticState struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
	Trained bool      `json:"trained"`
}

// NewLogisticModel creates an untrained logistic classifier.
func NewLogisticModel(store storage.Client, epochs int) *LogisticModel {
	if epochs <= 0 {
		epochs = 200
	}
	return &LogisticModel{store: store, learningRate: 0.1, epochs: epochs}
}

func (m *LogisticModel) Name() string { return "logistic" }

// Train fits weights on the full training set.
func (m *LogisticModel) Train(x [][]float64, y []float64) error {
	if len(x) == 0 || len(x) != len(y) {
		return fmt.Errorf("invalid training shapes: %d rows, %d targets", len(x), len(y))
	}

	features := len(x[0])
	weights := make([]float64, features)
	bias := 0.0
	n := float64(len(x))

	for epoch := 0; epoch < m.epochs; epoch++ {
		gradW := make([]float64, features)
		gradB := 0.0
		for i, row := range x {
			z := bias
			for j, v := range row {
				z += weights[j] * v
			}
			err := sigmoid(z) - y[i]
			for j, v := range row {
				gradW[j] += err * v
			}
			gradB += err
		}
		for j := range weights {
			weights[j] -= m.learningRate * gradW[j] / n
		}
		bias -= m.learningRate * gradB / n
	}

	m.state = logisticState{Weights: weights, Bias: bias, Trained: true}
	return nil
}

// Predict returns the positive-class probability per row.
func (m *LogisticModel) Predict(x [][]float64) ([]float64, error) {
	if !m.state.Trained {
		return nil, fmt.Errorf("%w: logistic model not trained or loaded", ErrModelNotFound)
	}
	out := make([]float64, len(x))
	for i, row := range x {
		if len(row) != len(m.state.Weights) {
			return nil, fmt.Errorf("feature count mismatch: expected %d, got %d", len(m.state.Weights), len(row))
		}
		z := m.state.Bias
		for j, v := range row {
			z += m.state.Weights[j] * v
		}
		out[i] = sigmoid(z)
	}
	return out, nil
}

// Save persists the fitted weights under (stage, target).
func (m *LogisticModel) Save(ctx context.Context, stage, target string) error {
	return saveModelState(ctx, m.store, stage, target, m.Name(), &m.state)
}

// Load restores persisted weights for (stage, target).
func (m *LogisticModel) Load(ctx context.Context, stage, target string) error {
	var state logisticState
	if err := loadModelState(ctx, m.store, stage, target, m.Name(), &state); err != nil {
		return err
	}
	if !state.Trained || len(state.Weights) == 0 {
		return fmt.Errorf("%w: artifact for %s/%s is empty", ErrModelNotFound, stage, target)
	}
	m.state = state
	return nil
}
