package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-crypto-trader/internal/trader/dto"
	"golang-crypto-trader/pkg/storage"
)

func TestPipelineRunCompletes(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryClient()
	datasets := &stubDatasetService{frame: syntheticRaw(t, 600, 1)}
	notifier := &stubNotifier{}

	svc := NewMlPipelineService(testTradingConfig(), testLogger(t), store, datasets, notifier)
	require.NoError(t, svc.RunPipeline(ctx))

	status := svc.Status()
	assert.Equal(t, 100, status.Progress)
	assert.Equal(t, dto.StatusCompleted, status.Status)

	results, ok := status.Result.([]dto.TargetTrainingResult)
	require.True(t, ok)
	require.Len(t, results, 2)
	for _, result := range results {
		assert.Greater(t, result.Rows, 0)
		assert.NotEmpty(t, result.Importance)
	}

	// Artifacts land in the staging namespace only.
	stagingKeys, err := store.ListKeys(ctx, "ml_models/staging/")
	require.NoError(t, err)
	assert.NotEmpty(t, stagingKeys)
	productionKeys, err := store.ListKeys(ctx, "ml_models/production/")
	require.NoError(t, err)
	assert.Empty(t, productionKeys)

	require.Len(t, notifier.sent(), 1)
}

func TestPipelineFailureThenRetry(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryClient()
	fetchErr := errors.New("market data provider down")
	datasets := &stubDatasetService{frame: syntheticRaw(t, 600, 2), errs: []error{fetchErr}}
	notifier := &stubNotifier{}

	svc := NewMlPipelineService(testTradingConfig(), testLogger(t), store, datasets, notifier)

	err := svc.RunPipeline(ctx)
	require.ErrorIs(t, err, fetchErr)

	status := svc.Status()
	assert.Equal(t, 100, status.Progress)
	assert.Equal(t, dto.StatusFailed, status.Status)
	assert.Contains(t, status.Result, fetchErr.Error())
	require.Len(t, notifier.sent(), 1)

	// A failed run is restartable.
	require.NoError(t, svc.RunPipeline(ctx))
	assert.Equal(t, dto.StatusCompleted, svc.Status().Status)
}

func TestPipelineRejectsConcurrentRun(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryClient()
	release := make(chan struct{})
	datasets := &stubDatasetService{block: release}
	notifier := &stubNotifier{}

	svc := NewMlPipelineService(testTradingConfig(), testLogger(t), store, datasets, notifier)
	require.NoError(t, svc.Start(ctx))

	require.ErrorIs(t, svc.Start(ctx), ErrPipelineBusy)
	require.ErrorIs(t, svc.RunPipeline(ctx), ErrPipelineBusy)

	// The blocked stub has no frame, so the run fails once released.
	close(release)
	require.Eventually(t, func() bool {
		return svc.Status().Status == dto.StatusFailed
	}, 5*time.Second, 10*time.Millisecond)
}

func TestPipelineStatusProgressesDuringRun(t *testing.T) {
	store := storage.NewMemoryClient()
	datasets := &stubDatasetService{frame: syntheticRaw(t, 600, 3)}
	notifier := &stubNotifier{}

	svc := NewMlPipelineService(testTradingConfig(), testLogger(t), store, datasets, notifier)
	assert.Equal(t, dto.StatusNotStarted, svc.Status().Status)

	require.NoError(t, svc.RunPipeline(context.Background()))
	assert.Equal(t, dto.StatusCompleted, svc.Status().Status)
}
