package ml

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-crypto-trader/pkg/common"
	"golang-crypto-trader/pkg/storage"
)

// separableData is a trivially separable binary problem: positive class
// when the single feature exceeds 0.5.
func separableData() (x [][]float64, y []float64) {
	for i := 0; i < 40; i++ {
		v := float64(i%10) / 10.0
		x = append(x, []float64{v})
		if v > 0.5 {
			y = append(y, 1)
		} else {
			y = append(y, 0)
		}
	}
	return x, y
}

func TestLogisticModelLearnsSeparableData(t *testing.T) {
	store := storage.NewMemoryClient()
	m := NewLogisticModel(store, 2000)

	x, y := separableData()
	require.NoError(t, m.Train(x, y))

	preds, err := m.Predict(x)
	require.NoError(t, err)
	metrics := Evaluate(y, preds)
	assert.Greater(t, metrics.Accuracy, 0.8)
}

func TestLogisticModelSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryClient()
	m := NewLogisticModel(store, 500)

	x, y := separableData()
	require.NoError(t, m.Train(x, y))
	require.NoError(t, m.Save(ctx, common.StageStaging, common.SignalBuy))

	restored := NewLogisticModel(store, 500)
	require.NoError(t, restored.Load(ctx, common.StageStaging, common.SignalBuy))

	want, err := m.Predict(x)
	require.NoError(t, err)
	got, err := restored.Predict(x)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLogisticModelPredictUntrained(t *testing.T) {
	m := NewLogisticModel(storage.NewMemoryClient(), 10)
	_, err := m.Predict([][]float64{{1}})
	require.ErrorIs(t, err, ErrModelNotFound)
}

func TestMLPModelLearnsSeparableData(t *testing.T) {
	store := storage.NewMemoryClient()
	m := NewMLPModel(store, 8, 300, 7)

	x, y := separableData()
	require.NoError(t, m.Train(x, y))

	preds, err := m.Predict(x)
	require.NoError(t, err)
	metrics := Evaluate(y, preds)
	assert.Greater(t, metrics.Accuracy, 0.7)
}

func TestMLPModelDeterministicForSeed(t *testing.T) {
	x, y := separableData()

	a := NewMLPModel(storage.NewMemoryClient(), 8, 50, 7)
	require.NoError(t, a.Train(x, y))
	b := NewMLPModel(storage.NewMemoryClient(), 8, 50, 7)
	require.NoError(t, b.Train(x, y))

	predsA, err := a.Predict(x)
	require.NoError(t, err)
	predsB, err := b.Predict(x)
	require.NoError(t, err)
	assert.Equal(t, predsA, predsB)
}

func TestMLPModelLoadMissingArtifact(t *testing.T) {
	m := NewMLPModel(storage.NewMemoryClient(), 8, 10, 1)
	err := m.Load(context.Background(), common.StageProduction, common.SignalSell)
	require.ErrorIs(t, err, ErrModelNotFound)
}

func TestPermutationImportanceRanksInformativeFeature(t *testing.T) {
	// Feature 0 is noise; feature 1 carries the signal.
	var x [][]float64
	var y []float64
	for i := 0; i < 60; i++ {
		noise := float64(i%3) / 3.0
		signal := float64(i % 2)
		x = append(x, []float64{noise, signal})
		y = append(y, signal)
	}

	m := NewLogisticModel(storage.NewMemoryClient(), 2000)
	require.NoError(t, m.Train(x, y))

	entries, err := PermutationImportance(m, x, y, []string{"noise", "signal"}, 1)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "signal", entries[0].Feature)
	assert.Greater(t, entries[0].Importance, entries[1].Importance)
}

func TestEvaluateMetrics(t *testing.T) {
	yTrue := []float64{1, 0, 1, 0}
	yPred := []float64{0.9, 0.2, 0.4, 0.1}

	m := Evaluate(yTrue, yPred)
	assert.InDelta(t, 0.75, m.Accuracy, 1e-9)
	assert.InDelta(t, 1.0, m.Precision, 1e-9) // one predicted positive, correct
	assert.InDelta(t, 0.5, m.Recall, 1e-9)
	assert.InDelta(t, 2.0/3.0, m.F1, 1e-9)
	assert.Greater(t, m.RMSE, 0.0)
}

func TestEvaluateEmpty(t *testing.T) {
	m := Evaluate(nil, nil)
	assert.Zero(t, m.Accuracy)
}
