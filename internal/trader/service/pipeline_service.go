package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang-crypto-trader/internal/ml"
	"golang-crypto-trader/internal/trader/config"
	"golang-crypto-trader/internal/trader/dto"
	"golang-crypto-trader/pkg/common"
	"golang-crypto-trader/pkg/logger"
	"golang-crypto-trader/pkg/storage"
	"golang-crypto-trader/pkg/telegram"
	"golang-crypto-trader/pkg/utils"
)

// ErrPipelineBusy is returned when a training run is requested while one is
// already in flight.
var ErrPipelineBusy = errors.New("a training pipeline run is already in progress")

// MlPipelineService drives the end-to-end training sequence against the
// staging artifact namespace: fetch → features/labels → scale → per-target
// split/train/evaluate. Exactly one run may be in flight at a time; status
// pollers read a consistent snapshot at any point.
type MlPipelineService interface {
	Start(ctx context.Context) error
	RunPipeline(ctx context.Context) error
	Status() dto.TrainingStatus
}

type mlPipelineService struct {
	tradingCfg config.TradingConfig
	log        *logger.Logger
	store      storage.Client
	datasets   DatasetService
	notifier   telegram.Notifier
	nowFunc    func() time.Time

	mu     sync.RWMutex
	status dto.TrainingStatus
}

// NewMlPipelineService creates the pipeline orchestrator.
func NewMlPipelineService(tradingCfg config.TradingConfig, log *logger.Logger, store storage.Client, datasets DatasetService, notifier telegram.Notifier) MlPipelineService {
	return &mlPipelineService{
		tradingCfg: tradingCfg,
		log:        log,
		store:      store,
		datasets:   datasets,
		notifier:   notifier,
		nowFunc:    time.Now,
		status:     dto.TrainingStatus{Progress: 0, Status: dto.StatusNotStarted},
	}
}

// Status returns the current snapshot of the run in flight or the outcome
// of the last run.
func (s *mlPipelineService) Status() dto.TrainingStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// setStatus replaces the whole status record so concurrent readers never
// observe a half-updated one.
func (s *mlPipelineService) setStatus(progress int, status string, result interface{}) {
	s.mu.Lock()
	s.status = dto.TrainingStatus{Progress: progress, Status: status, Result: result}
	s.mu.Unlock()
}

// tryAcquire flips the status to the initial fetching state if no run is in
// flight. Terminal and initial states are restartable.
func (s *mlPipelineService) tryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.status.Status {
	case dto.StatusNotStarted, dto.StatusCompleted, dto.StatusFailed:
		s.status = dto.TrainingStatus{Progress: 5, Status: dto.StatusFetching}
		return true
	default:
		return false
	}
}

// Start launches RunPipeline on a background goroutine. It returns
// ErrPipelineBusy when a run is already in flight.
func (s *mlPipelineService) Start(ctx context.Context) error {
	if !s.tryAcquire() {
		return ErrPipelineBusy
	}
	go func() {
		if err := s.run(context.Background()); err != nil {
			s.log.Error("Training pipeline failed", logger.ErrorField(err))
		}
	}()
	return nil
}

// RunPipeline executes the pipeline synchronously. It is the entry point
// for the retrain cron job; the HTTP handler goes through Start.
func (s *mlPipelineService) RunPipeline(ctx context.Context) error {
	if !s.tryAcquire() {
		return ErrPipelineBusy
	}
	return s.run(ctx)
}

func (s *mlPipelineService) run(ctx context.Context) error {
	startedAt := s.nowFunc()
	results, err := s.execute(ctx)
	if err != nil {
		s.setStatus(100, dto.StatusFailed, err.Error())
		if notifyErr := s.notifier.SendMessage(telegram.FormatErrorAlertForTelegram("model-training", err)); notifyErr != nil {
			s.log.Error("Failed to send failure alert", logger.ErrorField(notifyErr))
		}
		return err
	}

	s.setStatus(100, dto.StatusCompleted, results)
	message := telegram.FormatTrainingResultForTelegram(results, s.nowFunc().Sub(startedAt))
	if notifyErr := s.notifier.SendMessage(message); notifyErr != nil {
		s.log.Error("Failed to send training summary", logger.ErrorField(notifyErr))
	}
	return nil
}

func (s *mlPipelineService) execute(ctx context.Context) ([]dto.TargetTrainingResult, error) {
	cfg := s.tradingCfg

	s.setStatus(5, dto.StatusFetching, nil)
	end := utils.FloorDay(s.nowFunc().UTC())
	start := utils.MonthsAgo(end, cfg.TrainingPeriodMonths)
	raw, err := s.datasets.GetTrainingData(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetching training data: %w", err)
	}
	s.log.Info("Raw dataset fetched", logger.IntField("rows", raw.Len()))

	s.setStatus(20, dto.StatusFeatures, nil)
	features, featureCols, targets, err := buildLabeledFeatures(cfg, raw)
	if err != nil {
		return nil, err
	}
	if features.Len() == 0 {
		return nil, fmt.Errorf("%w: all rows dropped during feature processing", ErrDataUnavailable)
	}
	s.log.Info("Feature dataset built",
		logger.IntField("rows", features.Len()),
		logger.IntField("features", len(featureCols)))

	xFrame, err := features.Select(featureCols)
	if err != nil {
		return nil, err
	}
	scaler := scalerFor(cfg, s.store, common.StageStaging)
	scaledX, _, err := scaler.FitTransform(ctx, xFrame, nil)
	if err != nil {
		return nil, fmt.Errorf("fitting scaler: %w", err)
	}
	x, err := scaledX.Matrix(featureCols)
	if err != nil {
		return nil, err
	}

	const progressBase, progressSpan = 30, 65
	perTarget := progressSpan / len(targets)

	results := make([]dto.TargetTrainingResult, 0, len(targets))
	for i, target := range targets {
		targetBase := progressBase + i*perTarget
		s.setStatus(targetBase, fmt.Sprintf("%s (%s)", dto.StatusTraining, target), nil)

		y, err := features.Column(target)
		if err != nil {
			return nil, err
		}

		split := len(x) - int(cfg.TestRatio*float64(len(x)))
		if split < 1 || split >= len(x) {
			return nil, fmt.Errorf("%w: %d rows cannot be split with test ratio %.2f", ErrDataUnavailable, len(x), cfg.TestRatio)
		}
		trainX, testX := x[:split], x[split:]
		trainY, testY := y[:split], y[split:]

		ensemble, err := ensembleFor(cfg, s.store, common.StageStaging, s.log)
		if err != nil {
			return nil, err
		}
		if err := ensemble.Train(ctx, trainX, trainY, target); err != nil {
			return nil, err
		}

		s.setStatus(targetBase+perTarget*2/3, fmt.Sprintf("%s (%s)", dto.StatusEvaluating, target), nil)
		predictions, err := ensemble.Predict(testX)
		if err != nil {
			return nil, err
		}
		metrics := ml.Evaluate(testY, predictions)
		importance, err := ensemble.FeatureImportance(trainX, trainY, featureCols)
		if err != nil {
			return nil, err
		}

		s.log.Info("Target trained",
			logger.StringField("target", target),
			logger.Float64Field("accuracy", metrics.Accuracy),
			logger.Float64Field("f1", metrics.F1))

		results = append(results, dto.TargetTrainingResult{
			Target:     target,
			Rows:       len(x),
			Metrics:    metrics,
			Importance: importance,
		})
	}

	return results, nil
}
