package service

import (
	"fmt"

	"golang-crypto-trader/internal/dataset"
	"golang-crypto-trader/internal/ml"
	"golang-crypto-trader/pkg/logger"
	"golang-crypto-trader/pkg/storage"

	"golang-crypto-trader/internal/trader/config"
)

// featureConfigFor maps the trading parameters onto the feature catalogue.
// The configured BB/ATR periods gain lagged copies on top of the raw OHLCV
// lags.
func featureConfigFor(cfg config.TradingConfig) dataset.FeatureConfig {
	fc := dataset.DefaultFeatureConfig(cfg.MarketSymbol)
	if cfg.FeatureLagBB > 0 {
		fc.ExtraLagColumns = append(fc.ExtraLagColumns,
			fmt.Sprintf("bb_upper_%d", cfg.FeatureLagBB),
			fmt.Sprintf("bb_middle_%d", cfg.FeatureLagBB),
			fmt.Sprintf("bb_lower_%d", cfg.FeatureLagBB))
	}
	if cfg.FeatureLagATR > 0 {
		fc.ExtraLagColumns = append(fc.ExtraLagColumns, fmt.Sprintf("atr_%d", cfg.FeatureLagATR))
	}
	return fc
}

// recentWindowDays sizes a trailing fetch window so the feature pipeline
// keeps at least wantRows rows after the indicator warm-up trim. Sub-daily
// timeframes pack enough bars into minDays already; the daily timeframe
// yields one bar per day and needs the warm-up spelled out in days.
func recentWindowDays(cfg config.TradingConfig, minDays, wantRows int) int {
	bars := dataset.NewFeatureBuilder(featureConfigFor(cfg)).WarmupBars() + wantRows
	barsPerDay := (24 * 60) / cfg.TrainingTimeframe
	if barsPerDay < 1 {
		barsPerDay = 1
	}
	days := (bars+barsPerDay-1)/barsPerDay + 1
	if days < minDays {
		days = minDays
	}
	return days
}

// labelerFor builds the forward-window signal labeler from the trading
// parameters.
func labelerFor(cfg config.TradingConfig) *dataset.SignalLabeler {
	return &dataset.SignalLabeler{
		CloseColumn: "close_" + cfg.MarketSymbol,
		BuyTerm:     cfg.TargetBuyTerm,
		BuyRate:     cfg.TargetBuyRate,
		SellTerm:    cfg.TargetSellTerm,
		SellRate:    cfg.TargetSellRate,
	}
}

// buildLabeledFeatures runs the full feature pipeline over the raw frame
// and attaches the signal labels. Rows with undefined cells (indicator
// warm-up, incomplete forward windows) are dropped before returning.
func buildLabeledFeatures(cfg config.TradingConfig, raw *dataset.Frame) (*dataset.Frame, []string, []string, error) {
	builder := dataset.NewFeatureBuilder(featureConfigFor(cfg))
	features, err := builder.Build(raw)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("building features: %w", err)
	}

	labeler := labelerFor(cfg)
	if err := labeler.Label(features); err != nil {
		return nil, nil, nil, fmt.Errorf("labeling signals: %w", err)
	}
	if cfg.TargetLagY > 0 {
		for _, target := range labeler.TargetColumns() {
			values, err := features.Column(target)
			if err != nil {
				return nil, nil, nil, err
			}
			if err := features.AddColumn(target, dataset.Shift(values, -cfg.TargetLagY)); err != nil {
				return nil, nil, nil, err
			}
		}
	}

	return features.DropNaN(), builder.FeatureColumns(), labeler.TargetColumns(), nil
}

// scalerFor builds the configured feature scaler bound to a stage.
func scalerFor(cfg config.TradingConfig, store storage.Client, stage string) ml.Scaler {
	if cfg.ScalerName == "log_z_scaler" {
		return ml.NewLogZScaler(store, stage)
	}
	return ml.NewMinMaxScaler(store, stage)
}

// ensembleFor builds the two-constituent ensemble for a stage. The ensemble
// ratio weights the logistic constituent against the network.
func ensembleFor(cfg config.TradingConfig, store storage.Client, stage string, log *logger.Logger) (*ml.EnsembleModel, error) {
	ensemble := ml.NewEnsembleModel(stage, log,
		ml.NewLogisticModel(store, cfg.Epochs),
		ml.NewMLPModel(store, 16, cfg.Epochs, 42),
	)
	if err := ensemble.SetWeights([]float64{cfg.EnsembleRatio, 1 - cfg.EnsembleRatio}); err != nil {
		return nil, err
	}
	return ensemble, nil
}
