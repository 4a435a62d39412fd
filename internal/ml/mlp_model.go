package ml

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"golang-crypto-trader/pkg/storage"
)

// MLPModel is a one-hidden-layer neural classifier (ReLU hidden units,
// sigmoid output) trained with backpropagation. Weights are initialized
// from a seeded RNG so training runs are reproducible.
type MLPModel struct {
	store        storage.Client
	hiddenSize   int
	epochs       int
	learningRate float64
	seed         int64

	state mlpState
}

type mlpState struct {
	InputWeights  [][]float64 `json:"input_weights"` // [input][hidden]
	HiddenWeights []float64   `json:"hidden_weights"`
	HiddenBiases  []float64   `json:"hidden_biases"`
	OutputBias    float64     `json:"output_bias"`
	Trained       bool        `json:"trained"`
}

// NewMLPModel creates an untrained network.
func NewMLPModel(store storage.Client, hiddenSize, epochs int, seed int64) *MLPModel {
	if hiddenSize <= 0 {
		hiddenSize = 16
	}
	if epochs <= 0 {
		epochs = 50
	}
	return &MLPModel{
		store:        store,
		hiddenSize:   hiddenSize,
		epochs:       epochs,
		learningRate: 0.01,
		seed:         seed,
	}
}

func (m *MLPModel) Name() string { return "mlp" }

// Train fits the network with a time-causal split: the first 80% of rows
// train, the latest 20% validate for early stopping.
func (m *MLPModel) Train(x [][]float64, y []float64) error {
	if len(x) == 0 || len(x) != len(y) {
		return fmt.Errorf("invalid training shapes: %d rows, %d targets", len(x), len(y))
	}

	inputSize := len(x[0])
	rng := rand.New(rand.NewSource(m.seed))
	m.state = mlpState{
		InputWeights:  make([][]float64, inputSize),
		HiddenWeights: make([]float64, m.hiddenSize),
		HiddenBiases:  make([]float64, m.hiddenSize),
	}
	for i := range m.state.InputWeights {
		m.state.InputWeights[i] = make([]float64, m.hiddenSize)
		for j := range m.state.InputWeights[i] {
			m.state.InputWeights[i][j] = (rng.Float64() - 0.5) * 0.1
		}
	}
	for j := range m.state.HiddenWeights {
		m.state.HiddenWeights[j] = (rng.Float64() - 0.5) * 0.1
		m.state.HiddenBiases[j] = (rng.Float64() - 0.5) * 0.1
	}

	splitIdx := int(0.8 * float64(len(x)))
	if splitIdx < 1 {
		splitIdx = 1
	}
	trainX, trainY := x[:splitIdx], y[:splitIdx]
	valX, valY := x[splitIdx:], y[splitIdx:]

	bestLoss := math.Inf(1)
	patience := 0
	const maxPatience = 5

	for epoch := 0; epoch < m.epochs; epoch++ {
		for i, row := range trainX {
			m.backpropagate(row, trainY[i])
		}

		if len(valX) == 0 {
			continue
		}
		valLoss := 0.0
		for i, row := range valX {
			p := m.forward(row)
			valLoss += binaryCrossEntropy(valY[i], p)
		}
		valLoss /= float64(len(valX))
		if valLoss < bestLoss-1e-6 {
			bestLoss = valLoss
			patience = 0
		} else {
			patience++
			if patience >= maxPatience {
				break
			}
		}
	}

	m.state.Trained = true
	return nil
}

// Predict returns the positive-class probability per row.
func (m *MLPModel) Predict(x [][]float64) ([]float64, error) {
	if !m.state.Trained {
		return nil, fmt.Errorf("%w: mlp model not trained or loaded", ErrModelNotFound)
	}
	out := make([]float64, len(x))
	for i, row := range x {
		if len(row) != len(m.state.InputWeights) {
			return nil, fmt.Errorf("feature count mismatch: expected %d, got %d", len(m.state.InputWeights), len(row))
		}
		out[i] = m.forward(row)
	}
	return out, nil
}

// Save persists the network weights under (stage, target).
func (m *MLPModel) Save(ctx context.Context, stage, target string) error {
	return saveModelState(ctx, m.store, stage, target, m.Name(), &m.state)
}

// Load restores persisted weights for (stage, target).
func (m *MLPModel) Load(ctx context.Context, stage, target string) error {
	var state mlpState
	if err := loadModelState(ctx, m.store, stage, target, m.Name(), &state); err != nil {
		return err
	}
	if !state.Trained || len(state.InputWeights) == 0 {
		return fmt.Errorf("%w: artifact for %s/%s is empty", ErrModelNotFound, stage, target)
	}
	m.state = state
	return nil
}

func (m *MLPModel) forward(row []float64) float64 {
	p, _ := m.forwardHidden(row)
	return p
}

func (m *MLPModel) forwardHidden(row []float64) (float64, []float64) {
	hidden := make([]float64, len(m.state.HiddenBiases))
	for j := range hidden {
		sum := m.state.HiddenBiases[j]
		for i, v := range row {
			sum += v * m.state.InputWeights[i][j]
		}
		if sum > 0 {
			hidden[j] = sum
		}
	}
	z := m.state.OutputBias
	for j, h := range hidden {
		z += h * m.state.HiddenWeights[j]
	}
	return sigmoid(z), hidden
}

func (m *MLPModel) backpropagate(row []float64, target float64) {
	p, hidden := m.forwardHidden(row)
	outputErr := p - target

	for j, h := range hidden {
		grad := outputErr * h
		hiddenErr := outputErr * m.state.HiddenWeights[j]
		m.state.HiddenWeights[j] -= m.learningRate * grad
		if hidden[j] > 0 { // ReLU gate
			for i, v := range row {
				m.state.InputWeights[i][j] -= m.learningRate * hiddenErr * v
			}
			m.state.HiddenBiases[j] -= m.learningRate * hiddenErr
		}
	}
	m.state.OutputBias -= m.learningRate * outputErr
}

func binaryCrossEntropy(target, p float64) float64 {
	const eps = 1e-10
	p = math.Min(math.Max(p, eps), 1-eps)
	return -(target*math.Log(p) + (1-target)*math.Log(1-p))
}
