package config

import (
	"context"
	"fmt"
	"strings"

	"golang-crypto-trader/pkg/common"
	"golang-crypto-trader/pkg/storage"
)

// TradingConfig holds the runtime trading parameters. It is persisted in
// object storage so that parameter changes take effect without a redeploy;
// keys absent from the stored document fall back to defaults.
type TradingConfig struct {
	MarketSymbol         string   `json:"market_symbol"`
	Markets              []string `json:"markets"`
	TrainingPeriodMonths int      `json:"training_period_months"`
	TrainingTimeframe    int      `json:"training_timeframe"`
	FeatureLagBB         int      `json:"feature_lag_bb"`
	FeatureLagATR        int      `json:"feature_lag_atr"`
	TargetBuyTerm        int      `json:"target_buy_term"`
	TargetBuyRate        float64  `json:"target_buy_rate"`
	TargetSellTerm       int      `json:"target_sell_term"`
	TargetSellRate       float64  `json:"target_sell_rate"`
	TargetLagY           int      `json:"target_lag_y"`
	AutoTradeBuyAmount   float64  `json:"auto_trade_buy_amount"`
	AutoTradeSellAmount  float64  `json:"auto_trade_sell_amount"`
	EnsembleRatio        float64  `json:"ensemble_ratio"`
	ScalerName           string   `json:"scaler_name"`
	Epochs               int      `json:"epochs"`
	TestRatio            float64  `json:"test_ratio"`
	ConfidenceThreshold  float64  `json:"confidence_threshold"`
	MaxOrderNotional     float64  `json:"max_order_notional"`
}

// DefaultTradingConfig returns the built-in trading parameters.
func DefaultTradingConfig() TradingConfig {
	return TradingConfig{
		MarketSymbol:         "btc_jpy",
		Markets:              []string{"btc_jpy"},
		TrainingPeriodMonths: 3,
		TrainingTimeframe:    15,
		FeatureLagBB:         20,
		FeatureLagATR:        20,
		TargetBuyTerm:        10,
		TargetBuyRate:        0.005,
		TargetSellTerm:       10,
		TargetSellRate:       0.005,
		TargetLagY:           0,
		AutoTradeBuyAmount:   0.005,
		AutoTradeSellAmount:  0.005,
		EnsembleRatio:        0.5,
		ScalerName:           "min_max_scaler",
		Epochs:               50,
		TestRatio:            0.2,
		ConfidenceThreshold:  0.6,
		MaxOrderNotional:     100000,
	}
}

// Validate fails fast on parameters that would corrupt a pipeline run.
func (c *TradingConfig) Validate() error {
	if c.MarketSymbol == "" {
		return fmt.Errorf("market_symbol must not be empty")
	}
	if _, _, err := SplitMarketSymbol(c.MarketSymbol); err != nil {
		return err
	}
	for _, m := range c.Markets {
		if _, _, err := SplitMarketSymbol(m); err != nil {
			return err
		}
	}
	if c.TrainingPeriodMonths <= 0 {
		return fmt.Errorf("training_period_months must be positive, got %d", c.TrainingPeriodMonths)
	}
	switch c.TrainingTimeframe {
	case 1, 5, 15, 30, 60, 240, 1440:
	default:
		return fmt.Errorf("unsupported training_timeframe %d minutes", c.TrainingTimeframe)
	}
	if c.TargetBuyTerm <= 0 || c.TargetSellTerm <= 0 {
		return fmt.Errorf("target terms must be positive, got buy=%d sell=%d", c.TargetBuyTerm, c.TargetSellTerm)
	}
	if c.TargetBuyRate <= 0 || c.TargetSellRate <= 0 {
		return fmt.Errorf("target rates must be positive, got buy=%f sell=%f", c.TargetBuyRate, c.TargetSellRate)
	}
	if c.AutoTradeBuyAmount < 0 || c.AutoTradeSellAmount < 0 {
		return fmt.Errorf("auto trade amounts must not be negative")
	}
	if c.FeatureLagBB < 0 || c.FeatureLagATR < 0 || c.TargetLagY < 0 {
		return fmt.Errorf("lag parameters must not be negative")
	}
	if c.EnsembleRatio < 0 || c.EnsembleRatio > 1 {
		return fmt.Errorf("ensemble_ratio must be in [0, 1], got %f", c.EnsembleRatio)
	}
	switch c.ScalerName {
	case "min_max_scaler", "log_z_scaler":
	default:
		return fmt.Errorf("unknown scaler_name %q", c.ScalerName)
	}
	if c.Epochs <= 0 {
		return fmt.Errorf("epochs must be positive, got %d", c.Epochs)
	}
	if c.TestRatio <= 0 || c.TestRatio >= 1 {
		return fmt.Errorf("test_ratio must be in (0, 1), got %f", c.TestRatio)
	}
	if c.ConfidenceThreshold < 0.5 || c.ConfidenceThreshold >= 1 {
		return fmt.Errorf("confidence_threshold must be in [0.5, 1), got %f", c.ConfidenceThreshold)
	}
	if c.MaxOrderNotional <= 0 {
		return fmt.Errorf("max_order_notional must be positive, got %f", c.MaxOrderNotional)
	}
	return nil
}

// SplitMarketSymbol splits a market symbol such as "btc_jpy" into its base
// and quote currencies.
func SplitMarketSymbol(symbol string) (base, quote string, err error) {
	parts := strings.Split(symbol, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid market symbol %q, want base_quote", symbol)
	}
	return parts[0], parts[1], nil
}

// LoadTradingConfig reads the trading parameters from object storage,
// layering the stored document over the defaults. A missing document yields
// the defaults unchanged.
func LoadTradingConfig(ctx context.Context, store storage.Client) (TradingConfig, error) {
	cfg := DefaultTradingConfig()
	if _, err := store.LoadJSON(ctx, common.StorageKeyTradingConfig, &cfg); err != nil {
		return TradingConfig{}, fmt.Errorf("loading trading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return TradingConfig{}, fmt.Errorf("invalid trading config: %w", err)
	}
	return cfg, nil
}

// SaveTradingConfig validates and persists the trading parameters.
func SaveTradingConfig(ctx context.Context, store storage.Client, cfg TradingConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid trading config: %w", err)
	}
	if err := store.SaveJSON(ctx, common.StorageKeyTradingConfig, cfg); err != nil {
		return fmt.Errorf("saving trading config: %w", err)
	}
	return nil
}
