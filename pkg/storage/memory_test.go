package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryClientJSONRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryClient()

	type payload struct {
		Name  string  `json:"name"`
		Value float64 `json:"value"`
	}

	require.NoError(t, store.SaveJSON(ctx, "configs/latest_config.json", payload{Name: "x", Value: 1.5}))

	var out payload
	found, err := store.LoadJSON(ctx, "configs/latest_config.json", &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, payload{Name: "x", Value: 1.5}, out)
}

func TestMemoryClientLoadMissingKey(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryClient()

	var out map[string]interface{}
	found, err := store.LoadJSON(ctx, "nope", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryClientListKeysSorted(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryClient()

	require.NoError(t, store.SaveBytes(ctx, "ml_models/staging/b.json", []byte("b")))
	require.NoError(t, store.SaveBytes(ctx, "ml_models/staging/a.json", []byte("a")))
	require.NoError(t, store.SaveBytes(ctx, "ml_models/production/a.json", []byte("p")))

	keys, err := store.ListKeys(ctx, "ml_models/staging/")
	require.NoError(t, err)
	assert.Equal(t, []string{"ml_models/staging/a.json", "ml_models/staging/b.json"}, keys)
}

func TestMemoryClientCopyPrefix(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryClient()

	require.NoError(t, store.SaveBytes(ctx, "ml_models/staging/buy_signal/logistic.json", []byte("1")))
	require.NoError(t, store.SaveBytes(ctx, "ml_models/staging/min_max_scaler.json", []byte("2")))

	copied, err := store.CopyPrefix(ctx, "ml_models/staging", "ml_models/production")
	require.NoError(t, err)
	assert.Equal(t, 2, copied)

	data, found, err := store.LoadBytes(ctx, "ml_models/production/buy_signal/logistic.json")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("1"), data)

	// Sources survive a copy.
	_, found, err = store.LoadBytes(ctx, "ml_models/staging/min_max_scaler.json")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestMemoryClientCopyPrefixIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryClient()

	require.NoError(t, store.SaveBytes(ctx, "ml_models/staging/a.json", []byte("a")))

	first, err := store.CopyPrefix(ctx, "ml_models/staging", "ml_models/production")
	require.NoError(t, err)
	second, err := store.CopyPrefix(ctx, "ml_models/staging", "ml_models/production")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMemoryClientDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryClient()

	require.NoError(t, store.SaveBytes(ctx, "trade/btc_jpy_2024-01-01.json", []byte("x")))
	require.NoError(t, store.Delete(ctx, "trade/btc_jpy_2024-01-01.json"))

	_, found, err := store.LoadBytes(ctx, "trade/btc_jpy_2024-01-01.json")
	require.NoError(t, err)
	assert.False(t, found)
}
