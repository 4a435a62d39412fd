package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-crypto-trader/pkg/common"
	"golang-crypto-trader/pkg/storage"
)

func TestDefaultTradingConfigIsValid(t *testing.T) {
	cfg := DefaultTradingConfig()
	require.NoError(t, cfg.Validate())
}

func TestTradingConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*TradingConfig)
	}{
		{"empty market symbol", func(c *TradingConfig) { c.MarketSymbol = "" }},
		{"malformed market symbol", func(c *TradingConfig) { c.MarketSymbol = "btcjpy" }},
		{"malformed extra market", func(c *TradingConfig) { c.Markets = []string{"btc_jpy", "bad"} }},
		{"zero training period", func(c *TradingConfig) { c.TrainingPeriodMonths = 0 }},
		{"unsupported timeframe", func(c *TradingConfig) { c.TrainingTimeframe = 7 }},
		{"zero buy term", func(c *TradingConfig) { c.TargetBuyTerm = 0 }},
		{"negative sell rate", func(c *TradingConfig) { c.TargetSellRate = -0.01 }},
		{"negative buy amount", func(c *TradingConfig) { c.AutoTradeBuyAmount = -1 }},
		{"negative target lag", func(c *TradingConfig) { c.TargetLagY = -1 }},
		{"ensemble ratio above one", func(c *TradingConfig) { c.EnsembleRatio = 1.5 }},
		{"unknown scaler", func(c *TradingConfig) { c.ScalerName = "robust_scaler" }},
		{"zero epochs", func(c *TradingConfig) { c.Epochs = 0 }},
		{"test ratio of one", func(c *TradingConfig) { c.TestRatio = 1 }},
		{"low confidence threshold", func(c *TradingConfig) { c.ConfidenceThreshold = 0.4 }},
		{"zero notional cap", func(c *TradingConfig) { c.MaxOrderNotional = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultTradingConfig()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSplitMarketSymbol(t *testing.T) {
	base, quote, err := SplitMarketSymbol("btc_jpy")
	require.NoError(t, err)
	assert.Equal(t, "btc", base)
	assert.Equal(t, "jpy", quote)

	_, _, err = SplitMarketSymbol("btcjpy")
	assert.Error(t, err)
	_, _, err = SplitMarketSymbol("btc_")
	assert.Error(t, err)
}

func TestLoadTradingConfigDefaultsWhenAbsent(t *testing.T) {
	store := storage.NewMemoryClient()

	cfg, err := LoadTradingConfig(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, DefaultTradingConfig(), cfg)
}

func TestLoadTradingConfigLayersOverDefaults(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryClient()

	// A sparse stored document only overrides the keys it carries.
	require.NoError(t, store.SaveJSON(ctx, common.StorageKeyTradingConfig, map[string]interface{}{
		"epochs":      120,
		"scaler_name": "log_z_scaler",
	}))

	cfg, err := LoadTradingConfig(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.Epochs)
	assert.Equal(t, "log_z_scaler", cfg.ScalerName)
	assert.Equal(t, DefaultTradingConfig().MarketSymbol, cfg.MarketSymbol)
}

func TestLoadTradingConfigRejectsInvalidStored(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryClient()
	require.NoError(t, store.SaveJSON(ctx, common.StorageKeyTradingConfig, map[string]interface{}{
		"training_timeframe": 7,
	}))

	_, err := LoadTradingConfig(ctx, store)
	require.Error(t, err)
}

func TestSaveTradingConfigRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryClient()

	cfg := DefaultTradingConfig()
	cfg.Epochs = 75
	require.NoError(t, SaveTradingConfig(ctx, store, cfg))

	loaded, err := LoadTradingConfig(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSaveTradingConfigRejectsInvalid(t *testing.T) {
	cfg := DefaultTradingConfig()
	cfg.TestRatio = 2
	err := SaveTradingConfig(context.Background(), storage.NewMemoryClient(), cfg)
	require.Error(t, err)
}
