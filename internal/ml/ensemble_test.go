package ml

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-crypto-trader/pkg/common"
	"golang-crypto-trader/pkg/logger"
)

// stubModel returns canned predictions regardless of input.
type stubModel struct {
	name        string
	predictions []float64
	loadErr     error
	trained     int
	saved       int
}

func (m *stubModel) Name() string                         { return m.name }
func (m *stubModel) Train(x [][]float64, y []float64) error { m.trained++; return nil }
func (m *stubModel) Predict(x [][]float64) ([]float64, error) {
	return m.predictions, nil
}
func (m *stubModel) Save(ctx context.Context, stage, target string) error { m.saved++; return nil }
func (m *stubModel) Load(ctx context.Context, stage, target string) error { return m.loadErr }

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("error", "json")
	require.NoError(t, err)
	return log
}

func TestEnsemblePredictMean(t *testing.T) {
	e := NewEnsembleModel(common.StageStaging, testLogger(t),
		&stubModel{name: "a", predictions: []float64{1, 2, 3}},
		&stubModel{name: "b", predictions: []float64{3, 4, 5}},
	)

	got, err := e.Predict(nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3, 4}, got)
}

func TestEnsemblePredictTruncatesOnMismatch(t *testing.T) {
	e := NewEnsembleModel(common.StageStaging, testLogger(t),
		&stubModel{name: "a", predictions: []float64{1, 2, 3}},
		&stubModel{name: "b", predictions: []float64{3, 4}},
	)

	// A size mismatch truncates to the shortest instead of failing.
	got, err := e.Predict(nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3}, got)
}

func TestEnsemblePredictWeighted(t *testing.T) {
	e := NewEnsembleModel(common.StageStaging, testLogger(t),
		&stubModel{name: "a", predictions: []float64{0, 0}},
		&stubModel{name: "b", predictions: []float64{1, 1}},
	)
	require.NoError(t, e.SetWeights([]float64{3, 1}))

	got, err := e.Predict(nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, got[0], 1e-9)
}

func TestEnsembleSetWeightsValidation(t *testing.T) {
	e := NewEnsembleModel(common.StageStaging, testLogger(t),
		&stubModel{name: "a"}, &stubModel{name: "b"})

	require.Error(t, e.SetWeights([]float64{1}))
	require.Error(t, e.SetWeights([]float64{-1, 2}))
	require.Error(t, e.SetWeights([]float64{0, 0}))
}

func TestEnsemblePredictEmpty(t *testing.T) {
	e := NewEnsembleModel(common.StageStaging, testLogger(t))
	_, err := e.Predict(nil)
	require.ErrorIs(t, err, ErrModelNotFound)
}

func TestEnsembleTrainSavesEveryConstituent(t *testing.T) {
	a := &stubModel{name: "a", predictions: []float64{1}}
	b := &stubModel{name: "b", predictions: []float64{1}}
	e := NewEnsembleModel(common.StageStaging, testLogger(t), a, b)

	require.NoError(t, e.Train(context.Background(), [][]float64{{1}}, []float64{1}, common.SignalBuy))
	assert.Equal(t, 1, a.trained)
	assert.Equal(t, 1, a.saved)
	assert.Equal(t, 1, b.trained)
	assert.Equal(t, 1, b.saved)
}

func TestEnsembleLoadModelPropagatesNotFound(t *testing.T) {
	e := NewEnsembleModel(common.StageProduction, testLogger(t),
		&stubModel{name: "a", loadErr: ErrModelNotFound})

	err := e.LoadModel(context.Background(), common.SignalBuy)
	require.ErrorIs(t, err, ErrModelNotFound)
}
