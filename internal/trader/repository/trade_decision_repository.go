package repository

import (
	"context"

	"gorm.io/gorm"

	"golang-crypto-trader/internal/entity"
)

type TradeDecisionRepository interface {
	Create(ctx context.Context, decision *entity.TradeDecision) error
	FindLatest(ctx context.Context, market string, limit int) ([]entity.TradeDecision, error)
}

type tradeDecisionRepository struct {
	db *gorm.DB
}

func NewTradeDecisionRepository(db *gorm.DB) TradeDecisionRepository {
	return &tradeDecisionRepository{db: db}
}

func (r *tradeDecisionRepository) Create(ctx context.Context, decision *entity.TradeDecision) error {
	return r.db.WithContext(ctx).Create(decision).Error
}

func (r *tradeDecisionRepository) FindLatest(ctx context.Context, market string, limit int) ([]entity.TradeDecision, error) {
	if limit <= 0 {
		limit = 20
	}
	var decisions []entity.TradeDecision
	query := r.db.WithContext(ctx).Order("execution_date DESC").Limit(limit)
	if market != "" {
		query = query.Where("market = ?", market)
	}
	if err := query.Find(&decisions).Error; err != nil {
		return nil, err
	}
	return decisions, nil
}
