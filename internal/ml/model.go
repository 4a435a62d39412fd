package ml

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"golang-crypto-trader/pkg/common"
	"golang-crypto-trader/pkg/storage"
)

// ErrModelNotFound is returned when no persisted artifact exists for the
// requested (stage, target) pair.
var ErrModelNotFound = errors.New("model artifact not found")

// Model is a single predictive model trained per target column. Predict
// returns a probability per row.
type Model interface {
	Name() string
	Train(x [][]float64, y []float64) error
	Predict(x [][]float64) ([]float64, error)
	// Save persists the trained state under (stage, target).
	Save(ctx context.Context, stage, target string) error
	// Load restores persisted state, returning ErrModelNotFound when absent.
	Load(ctx context.Context, stage, target string) error
}

// SequenceModel is the variant for sequence-shaped models that consume
// windowed 3-D input. Callers adapt the matrix through dataset
// generate-sequences before training instead of branching inside shared
// code.
type SequenceModel interface {
	Model
	SequenceLength() int
}

// modelKey builds the artifact path ml_models/{stage}/{target}/{name}.json.
func modelKey(stage, target, name string) string {
	return fmt.Sprintf("%s/%s/%s/%s.json", common.StorageFolderModel, stage, target, name)
}

func saveModelState(ctx context.Context, store storage.Client, stage, target, name string, state interface{}) error {
	return store.SaveJSON(ctx, modelKey(stage, target, name), state)
}

func loadModelState(ctx context.Context, store storage.Client, stage, target, name string, state interface{}) error {
	found, err := store.LoadJSON(ctx, modelKey(stage, target, name), state)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrModelNotFound, modelKey(stage, target, name))
	}
	return nil
}

// ImportanceEntry is one row of a ranked feature-importance table.
type ImportanceEntry struct {
	Model      string  `json:"model"`
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// PermutationImportance ranks features by the increase in mean squared
// error after shuffling each column, a model-agnostic attribution that
// works for every Model variant.
func PermutationImportance(m Model, x [][]float64, y []float64, columns []string, seed int64) ([]ImportanceEntry, error) {
	if len(x) == 0 {
		return nil, nil
	}

	base, err := m.Predict(x)
	if err != nil {
		return nil, err
	}
	baseLoss := meanSquaredError(y, base)

	rng := rand.New(rand.NewSource(seed))
	entries := make([]ImportanceEntry, 0, len(columns))
	for col := range columns {
		permuted := clonedMatrix(x)
		perm := rng.Perm(len(permuted))
		for row := range permuted {
			permuted[row][col] = x[perm[row]][col]
		}
		pred, err := m.Predict(permuted)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ImportanceEntry{
			Model:      m.Name(),
			Feature:    columns[col],
			Importance: meanSquaredError(y, pred) - baseLoss,
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Importance > entries[j].Importance })
	return entries, nil
}

func clonedMatrix(x [][]float64) [][]float64 {
	out := make([][]float64, len(x))
	for i, row := range x {
		cloned := make([]float64, len(row))
		copy(cloned, row)
		out[i] = cloned
	}
	return out
}

func meanSquaredError(yTrue, yPred []float64) float64 {
	n := len(yTrue)
	if len(yPred) < n {
		n = len(yPred)
	}
	if n == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		d := yTrue[i] - yPred[i]
		sum += d * d
	}
	return sum / float64(n)
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}
