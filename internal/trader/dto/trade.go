package dto

// TradeResult is the decision record persisted per market per day and sent
// to the notifier.
type TradeResult struct {
	ExecutionDate   string  `json:"execution_date"`
	PredictionDate  string  `json:"prediction_date"`
	ExecutionPrice  float64 `json:"execution_price"`
	PredictedPrice  float64 `json:"predicted_price"`
	Market          string  `json:"market"`
	Price           float64 `json:"price"`
	Amount          float64 `json:"amount"`
	Cost            float64 `json:"cost"`
	Confidence      float64 `json:"confidence"`
	PredictionLabel string  `json:"prediction_label"`

	// HoldReasons lists the guardrails that kept an above-threshold
	// prediction from trading. Empty for executed orders and plain holds.
	HoldReasons []string `json:"hold_reasons,omitempty"`
}
