package dto

import "golang-crypto-trader/internal/ml"

// Pipeline status strings reported through the training status record.
const (
	StatusNotStarted = "Not started"
	StatusFetching   = "Fetching raw crypto data..."
	StatusFeatures   = "Processing feature dataset..."
	StatusTraining   = "Training models..."
	StatusEvaluating = "Evaluating models..."
	StatusCompleted  = "Completed"
	StatusFailed     = "Failed"
)

// TrainingStatus is the snapshot readable by status pollers while a
// pipeline run is in flight. Writers replace the whole record.
type TrainingStatus struct {
	Progress int         `json:"progress"`
	Status   string      `json:"status"`
	Result   interface{} `json:"result,omitempty"`
}

// TargetTrainingResult is the per-target outcome of a completed run.
type TargetTrainingResult struct {
	Target     string               `json:"target"`
	Rows       int                  `json:"rows"`
	Metrics    ml.Metrics           `json:"metrics"`
	Importance []ml.ImportanceEntry `json:"importance"`
}
