package service

import (
	"context"
	"fmt"

	"golang-crypto-trader/internal/dataset"
	"golang-crypto-trader/internal/ml"
	"golang-crypto-trader/internal/trader/config"
	"golang-crypto-trader/internal/trader/dto"
	"golang-crypto-trader/pkg/common"
	"golang-crypto-trader/pkg/logger"
	"golang-crypto-trader/pkg/storage"
	"golang-crypto-trader/pkg/utils"
)

// evaluationWindowDays is the trailing window compared between stages at
// fast bar intervals; slower timeframes get enough extra days to keep
// evaluationMinRows rows after the warm-up and forward-window trims.
const (
	evaluationWindowDays = 30
	evaluationMinRows    = 30
)

// MlEvaluateService compares the freshly trained staging stack against the
// serving production stack over a recent window.
type MlEvaluateService interface {
	GetPredictions(ctx context.Context) ([]dto.EvaluationResult, error)
}

type mlEvaluateService struct {
	tradingCfg config.TradingConfig
	log        *logger.Logger
	store      storage.Client
	datasets   DatasetService
}

// NewMlEvaluateService creates the evaluation service.
func NewMlEvaluateService(tradingCfg config.TradingConfig, log *logger.Logger, store storage.Client, datasets DatasetService) MlEvaluateService {
	return &mlEvaluateService{tradingCfg: tradingCfg, log: log, store: store, datasets: datasets}
}

// GetPredictions predicts the recent window with both stages and returns
// side-by-side series plus metrics per target.
func (s *mlEvaluateService) GetPredictions(ctx context.Context) ([]dto.EvaluationResult, error) {
	wantRows := s.tradingCfg.TargetBuyTerm
	if s.tradingCfg.TargetSellTerm > wantRows {
		wantRows = s.tradingCfg.TargetSellTerm
	}
	wantRows += s.tradingCfg.TargetLagY + evaluationMinRows

	raw, err := s.datasets.GetRecentData(ctx, recentWindowDays(s.tradingCfg, evaluationWindowDays, wantRows))
	if err != nil {
		return nil, err
	}

	features, featureCols, targets, err := buildLabeledFeatures(s.tradingCfg, raw)
	if err != nil {
		return nil, err
	}
	if features.Len() == 0 {
		return nil, fmt.Errorf("%w: evaluation window is empty after feature processing", ErrDataUnavailable)
	}

	xFrame, err := features.Select(featureCols)
	if err != nil {
		return nil, err
	}

	dates := make([]string, features.Len())
	for i, ts := range features.Timestamps() {
		dates[i] = utils.FormatDate(ts)
	}

	results := make([]dto.EvaluationResult, 0, len(targets))
	for _, target := range targets {
		actual, err := features.Column(target)
		if err != nil {
			return nil, err
		}

		current, err := s.predictWithStage(ctx, common.StageProduction, xFrame, featureCols, target)
		if err != nil {
			return nil, fmt.Errorf("predicting with production stack: %w", err)
		}
		fresh, err := s.predictWithStage(ctx, common.StageStaging, xFrame, featureCols, target)
		if err != nil {
			return nil, fmt.Errorf("predicting with staging stack: %w", err)
		}

		results = append(results, dto.EvaluationResult{
			Target:       target,
			Dates:        dates,
			Actual:       actual,
			CurrentModel: current,
			NewModel:     fresh,
			CurrentEval:  ml.Evaluate(actual, current),
			NewEval:      ml.Evaluate(actual, fresh),
		})
	}
	return results, nil
}

// predictWithStage scales the window with the stage's persisted scaler and
// predicts with the stage's ensemble.
func (s *mlEvaluateService) predictWithStage(ctx context.Context, stage string, xFrame *dataset.Frame, featureCols []string, target string) ([]float64, error) {
	scaler := scalerFor(s.tradingCfg, s.store, stage)
	scaledX, _, err := scaler.Transform(ctx, xFrame, nil)
	if err != nil {
		return nil, err
	}
	x, err := scaledX.Matrix(featureCols)
	if err != nil {
		return nil, err
	}

	ensemble, err := ensembleFor(s.tradingCfg, s.store, stage, s.log)
	if err != nil {
		return nil, err
	}
	if err := ensemble.LoadModel(ctx, target); err != nil {
		return nil, err
	}
	return ensemble.Predict(x)
}
