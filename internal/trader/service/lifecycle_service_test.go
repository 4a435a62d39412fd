package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-crypto-trader/pkg/storage"
)

func newLifecycleService(t *testing.T, store storage.Client) *modelLifecycleService {
	t.Helper()
	svc := NewModelLifecycleService(testLogger(t), store).(*modelLifecycleService)
	svc.nowFunc = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func seedStages(t *testing.T, store storage.Client) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.SaveBytes(ctx, "ml_models/production/min_max_scaler.json", []byte("old-scaler")))
	require.NoError(t, store.SaveBytes(ctx, "ml_models/production/buy_signal/logistic.json", []byte("old-model")))
	require.NoError(t, store.SaveBytes(ctx, "ml_models/staging/min_max_scaler.json", []byte("new-scaler")))
	require.NoError(t, store.SaveBytes(ctx, "ml_models/staging/buy_signal/logistic.json", []byte("new-model")))
}

func TestPromoteArchivesThenPromotes(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryClient()
	seedStages(t, store)

	svc := newLifecycleService(t, store)
	require.NoError(t, svc.Promote(ctx))

	archived, found, err := store.LoadBytes(ctx, "ml_models/archived/2024-03-01/buy_signal/logistic.json")
	require.NoError(t, err)
	require.True(t, found, "production must be archived before promotion")
	assert.Equal(t, []byte("old-model"), archived)

	promoted, found, err := store.LoadBytes(ctx, "ml_models/production/buy_signal/logistic.json")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("new-model"), promoted)

	// Staging is left intact for a later re-run.
	_, found, err = store.LoadBytes(ctx, "ml_models/staging/min_max_scaler.json")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestPromoteFirstDeployment(t *testing.T) {
	// No production artifacts yet: archival copies nothing and promotion
	// still succeeds.
	ctx := context.Background()
	store := storage.NewMemoryClient()
	require.NoError(t, store.SaveBytes(ctx, "ml_models/staging/min_max_scaler.json", []byte("new-scaler")))

	svc := newLifecycleService(t, store)
	require.NoError(t, svc.Promote(ctx))

	_, found, err := store.LoadBytes(ctx, "ml_models/production/min_max_scaler.json")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestPromoteWithoutStagingArtifacts(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryClient()
	require.NoError(t, store.SaveBytes(ctx, "ml_models/production/min_max_scaler.json", []byte("old-scaler")))

	svc := newLifecycleService(t, store)
	err := svc.Promote(ctx)
	require.Error(t, err)

	// The serving stack is untouched.
	data, found, loadErr := store.LoadBytes(ctx, "ml_models/production/min_max_scaler.json")
	require.NoError(t, loadErr)
	require.True(t, found)
	assert.Equal(t, []byte("old-scaler"), data)
}

func TestPromoteArchiveFailure(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryClient()
	seedStages(t, store)

	failing := &failingStore{Client: store, failDstPrefix: "ml_models/archived/", failErr: errors.New("storage down")}
	svc := newLifecycleService(t, failing)

	err := svc.Promote(ctx)
	var partial *PartialPromotionError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, "nothing", partial.CompletedStep)

	// Promotion never ran: production still serves the old artifacts.
	data, found, loadErr := store.LoadBytes(ctx, "ml_models/production/buy_signal/logistic.json")
	require.NoError(t, loadErr)
	require.True(t, found)
	assert.Equal(t, []byte("old-model"), data)
}

func TestPromotePromotionStepFailure(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryClient()
	seedStages(t, store)

	failing := &failingStore{Client: store, failDstPrefix: "ml_models/production", failErr: errors.New("storage down")}
	svc := newLifecycleService(t, failing)

	err := svc.Promote(ctx)
	var partial *PartialPromotionError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, "archiving production", partial.CompletedStep)

	// The archive copy completed before the fault.
	_, found, loadErr := store.LoadBytes(ctx, "ml_models/archived/2024-03-01/buy_signal/logistic.json")
	require.NoError(t, loadErr)
	assert.True(t, found)
}

func TestPromoteRerunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryClient()
	seedStages(t, store)

	svc := newLifecycleService(t, store)
	require.NoError(t, svc.Promote(ctx))
	require.NoError(t, svc.Promote(ctx))

	data, found, err := store.LoadBytes(ctx, "ml_models/production/buy_signal/logistic.json")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("new-model"), data)
}
