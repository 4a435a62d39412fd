package dto

import "golang-crypto-trader/internal/ml"

// EvaluationResult compares staging-stack predictions against the serving
// production stack over a recent window, per target column.
type EvaluationResult struct {
	Target       string     `json:"target"`
	Dates        []string   `json:"dates"`
	Actual       []float64  `json:"actual"`
	CurrentModel []float64  `json:"current_model"`
	NewModel     []float64  `json:"new_model"`
	CurrentEval  ml.Metrics `json:"current_evaluation"`
	NewEval      ml.Metrics `json:"new_evaluation"`
}
