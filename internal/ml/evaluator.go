package ml

import "math"

// Metrics summarizes classifier quality on a holdout set. Probabilities are
// rounded at 0.5 for the classification metrics; the regression-style
// errors are computed on the raw probabilities.
type Metrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	MSE       float64 `json:"mse"`
	RMSE      float64 `json:"rmse"`
	MAE       float64 `json:"mae"`
}

// Evaluate computes metrics over aligned truth/prediction vectors. Extra
// rows on either side are ignored.
func Evaluate(yTrue, yPred []float64) Metrics {
	n := len(yTrue)
	if len(yPred) < n {
		n = len(yPred)
	}
	if n == 0 {
		return Metrics{}
	}

	var tp, fp, tn, fn float64
	mae, mse := 0.0, 0.0
	for i := 0; i < n; i++ {
		diff := yTrue[i] - yPred[i]
		mae += math.Abs(diff)
		mse += diff * diff

		truth := yTrue[i] >= 0.5
		pred := yPred[i] >= 0.5
		switch {
		case truth && pred:
			tp++
		case !truth && pred:
			fp++
		case truth && !pred:
			fn++
		default:
			tn++
		}
	}
	mae /= float64(n)
	mse /= float64(n)

	m := Metrics{
		Accuracy: (tp + tn) / float64(n),
		MSE:      mse,
		RMSE:     math.Sqrt(mse),
		MAE:      mae,
	}
	if tp+fp > 0 {
		m.Precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		m.Recall = tp / (tp + fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}
