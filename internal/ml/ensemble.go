package ml

import (
	"context"
	"fmt"

	"golang-crypto-trader/pkg/logger"
)

// EnsembleModel wraps one or more constituent models trained per target
// column. Predictions aggregate by elementwise mean; artifacts persist per
// (stage, target).
type EnsembleModel struct {
	stage   string
	models  []Model
	weights []float64
	log     *logger.Logger
}

// NewEnsembleModel creates an ensemble over the given constituents for one
// deployment stage.
func NewEnsembleModel(stage string, log *logger.Logger, models ...Model) *EnsembleModel {
	return &EnsembleModel{stage: stage, models: models, log: log}
}

// Stage returns the deployment stage the ensemble reads and writes.
func (e *EnsembleModel) Stage() string { return e.stage }

// SetWeights overrides the default equal-weight aggregation. The slice must
// have one entry per constituent; weights are normalized at prediction time.
func (e *EnsembleModel) SetWeights(weights []float64) error {
	if len(weights) != len(e.models) {
		return fmt.Errorf("expected %d weights, got %d", len(e.models), len(weights))
	}
	total := 0.0
	for _, w := range weights {
		if w < 0 {
			return fmt.Errorf("weights must not be negative")
		}
		total += w
	}
	if total == 0 {
		return fmt.Errorf("weights must not all be zero")
	}
	e.weights = weights
	return nil
}

// Train fits every constituent on the full training set and persists each
// artifact under (stage, target).
func (e *EnsembleModel) Train(ctx context.Context, x [][]float64, y []float64, target string) error {
	for _, m := range e.models {
		e.log.Info("Training constituent model",
			logger.StringField("model", m.Name()),
			logger.StringField("target", target),
			logger.IntField("rows", len(x)))
		if err := m.Train(x, y); err != nil {
			return fmt.Errorf("training %s for %s failed: %w", m.Name(), target, err)
		}
		if err := m.Save(ctx, e.stage, target); err != nil {
			return fmt.Errorf("saving %s for %s failed: %w", m.Name(), target, err)
		}
	}
	return nil
}

// LoadModel restores every constituent's persisted artifact for the target.
func (e *EnsembleModel) LoadModel(ctx context.Context, target string) error {
	for _, m := range e.models {
		if err := m.Load(ctx, e.stage, target); err != nil {
			return fmt.Errorf("loading %s for %s/%s: %w", m.Name(), e.stage, target, err)
		}
	}
	return nil
}

// Predict aggregates constituent predictions via elementwise mean. When
// constituents disagree on output length, all are truncated to the shortest
// with a warning; a mismatch never raises.
func (e *EnsembleModel) Predict(x [][]float64) ([]float64, error) {
	if len(e.models) == 0 {
		return nil, fmt.Errorf("%w: ensemble has no constituent models", ErrModelNotFound)
	}

	predictions := make([][]float64, 0, len(e.models))
	minLen := -1
	mismatch := false
	for _, m := range e.models {
		pred, err := m.Predict(x)
		if err != nil {
			return nil, fmt.Errorf("prediction with %s failed: %w", m.Name(), err)
		}
		if minLen >= 0 && len(pred) != minLen {
			mismatch = true
		}
		if minLen < 0 || len(pred) < minLen {
			minLen = len(pred)
		}
		predictions = append(predictions, pred)
	}
	if mismatch {
		e.log.Warn("Mismatched prediction sizes, truncating to shortest",
			logger.IntField("min_size", minLen))
	}

	weights := e.weights
	if weights == nil {
		weights = make([]float64, len(predictions))
		for i := range weights {
			weights[i] = 1
		}
	}
	totalWeight := 0.0
	for _, w := range weights {
		totalWeight += w
	}

	out := make([]float64, minLen)
	for i := 0; i < minLen; i++ {
		sum := 0.0
		for j, pred := range predictions {
			sum += weights[j] * pred[i]
		}
		out[i] = sum / totalWeight
	}
	return out, nil
}

// FeatureImportance computes a ranked permutation-importance table per
// constituent, tagged with the constituent's name, and concatenates them.
func (e *EnsembleModel) FeatureImportance(x [][]float64, y []float64, columns []string) ([]ImportanceEntry, error) {
	var all []ImportanceEntry
	for i, m := range e.models {
		entries, err := PermutationImportance(m, x, y, columns, int64(i))
		if err != nil {
			return nil, fmt.Errorf("importance for %s failed: %w", m.Name(), err)
		}
		all = append(all, entries...)
	}
	return all, nil
}
