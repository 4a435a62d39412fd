package entity

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TradeDecision struct {
	ID              int64          `json:"id"`
	Market          string         `json:"market"`
	PredictionLabel string         `json:"prediction_label"`
	Confidence      float64        `json:"confidence"`
	Price           float64        `json:"price"`
	Amount          float64        `json:"amount"`
	Cost            float64        `json:"cost"`
	ExecutionDate   time.Time      `json:"execution_date"`
	PredictionDate  time.Time      `json:"prediction_date"`
	HoldReasons     pq.StringArray `json:"hold_reasons" gorm:"type:text[]"`
	Data            datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"deleted_at"`
}

func (TradeDecision) TableName() string {
	return "trade_decisions"
}
