package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-crypto-trader/pkg/common"
	"golang-crypto-trader/pkg/storage"
)

func TestEvaluateComparesStages(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryClient()
	cfg := testTradingConfig()
	raw := syntheticRaw(t, 600, 5)

	trainStage(t, cfg, store, raw, common.StageProduction, common.SignalBuy)
	trainStage(t, cfg, store, raw, common.StageStaging, common.SignalSell)

	svc := NewMlEvaluateService(cfg, testLogger(t), store, &stubDatasetService{frame: raw})
	results, err := svc.GetPredictions(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)

	targets := []string{results[0].Target, results[1].Target}
	assert.Contains(t, targets, common.SignalBuy)
	assert.Contains(t, targets, common.SignalSell)

	for _, result := range results {
		n := len(result.Dates)
		require.Greater(t, n, 0)
		assert.Len(t, result.Actual, n)
		assert.Len(t, result.CurrentModel, n)
		assert.Len(t, result.NewModel, n)
	}
}

func TestEvaluateWithoutProductionStack(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryClient()
	cfg := testTradingConfig()
	raw := syntheticRaw(t, 600, 6)

	// Only staging is trained: comparing against production must fail.
	trainStage(t, cfg, store, raw, common.StageStaging, common.SignalBuy)

	svc := NewMlEvaluateService(cfg, testLogger(t), store, &stubDatasetService{frame: raw})
	_, err := svc.GetPredictions(ctx)
	require.Error(t, err)
}

func TestEvaluatePropagatesDataUnavailable(t *testing.T) {
	svc := NewMlEvaluateService(testTradingConfig(), testLogger(t), storage.NewMemoryClient(), &stubDatasetService{})
	_, err := svc.GetPredictions(context.Background())
	require.ErrorIs(t, err, ErrDataUnavailable)
}
