package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"golang-crypto-trader/internal/dataset"
	"golang-crypto-trader/internal/entity"
	"golang-crypto-trader/internal/trader/config"
	"golang-crypto-trader/internal/trader/dto"
	"golang-crypto-trader/internal/trader/repository"
	"golang-crypto-trader/pkg/common"
	"golang-crypto-trader/pkg/logger"
	"golang-crypto-trader/pkg/storage"
	"golang-crypto-trader/pkg/telegram"
	"golang-crypto-trader/pkg/utils"
)

// autoTradeWindowDays is the floor for the trailing fetch window. Slow bar
// intervals get extra days so the indicator warm-up still leaves rows.
const autoTradeWindowDays = 14

// AutoTradeService turns the production model's last-bar prediction into at
// most one exchange order per run. Guardrails downgrade the decision to
// hold; they never fail the run. Every run leaves a persisted decision
// record and a notification, including runs that take no action.
type AutoTradeService interface {
	Run(ctx context.Context) (*dto.TradeResult, error)
}

type autoTradeService struct {
	tradingCfg config.TradingConfig
	log        *logger.Logger
	store      storage.Client
	datasets   DatasetService
	exchange   repository.ExchangeRepository
	decisions  repository.TradeDecisionRepository
	notifier   telegram.Notifier
	nowFunc    func() time.Time
}

// NewAutoTradeService creates the trade decision engine.
func NewAutoTradeService(
	tradingCfg config.TradingConfig,
	log *logger.Logger,
	store storage.Client,
	datasets DatasetService,
	exchange repository.ExchangeRepository,
	decisions repository.TradeDecisionRepository,
	notifier telegram.Notifier,
) AutoTradeService {
	return &autoTradeService{
		tradingCfg: tradingCfg,
		log:        log,
		store:      store,
		datasets:   datasets,
		exchange:   exchange,
		decisions:  decisions,
		notifier:   notifier,
		nowFunc:    time.Now,
	}
}

// Run predicts with the production stack, applies the decision rules and
// places the order when one survives the guardrails.
func (s *autoTradeService) Run(ctx context.Context) (*dto.TradeResult, error) {
	result, err := s.decide(ctx)
	if err != nil {
		if notifyErr := s.notifier.SendMessage(telegram.FormatErrorAlertForTelegram("auto-trade", err)); notifyErr != nil {
			s.log.Error("Failed to send failure alert", logger.ErrorField(notifyErr))
		}
		return nil, err
	}

	if err := s.record(ctx, result); err != nil {
		return nil, err
	}
	if notifyErr := s.notifier.SendMessage(telegram.FormatTradeResultForTelegram(*result)); notifyErr != nil {
		s.log.Error("Failed to send trade notification", logger.ErrorField(notifyErr))
	}
	return result, nil
}

func (s *autoTradeService) decide(ctx context.Context) (*dto.TradeResult, error) {
	cfg := s.tradingCfg
	market := cfg.MarketSymbol
	base, quote, err := config.SplitMarketSymbol(market)
	if err != nil {
		return nil, err
	}

	raw, err := s.datasets.GetRecentData(ctx, recentWindowDays(cfg, autoTradeWindowDays, 1))
	if err != nil {
		return nil, err
	}
	builder := dataset.NewFeatureBuilder(featureConfigFor(cfg))
	features, err := builder.Build(raw)
	if err != nil {
		return nil, err
	}
	if features.Len() == 0 {
		return nil, fmt.Errorf("%w: recent window is empty after feature processing", ErrDataUnavailable)
	}
	featureCols := builder.FeatureColumns()

	xFrame, err := features.Select(featureCols)
	if err != nil {
		return nil, err
	}
	scaler := scalerFor(cfg, s.store, common.StageProduction)
	scaledX, _, err := scaler.Transform(ctx, xFrame, nil)
	if err != nil {
		return nil, err
	}
	x, err := scaledX.Matrix(featureCols)
	if err != nil {
		return nil, err
	}
	lastRow := x[len(x)-1 : len(x)]

	pBuy, err := s.predictTarget(ctx, common.SignalBuy, lastRow)
	if err != nil {
		return nil, err
	}
	pSell, err := s.predictTarget(ctx, common.SignalSell, lastRow)
	if err != nil {
		return nil, err
	}

	timestamps := features.Timestamps()
	lastTS := timestamps[len(timestamps)-1]
	executionPrice, err := features.Value("close_"+market, features.Len()-1)
	if err != nil {
		return nil, err
	}

	result := &dto.TradeResult{
		Market:          market,
		ExecutionDate:   utils.FormatDate(s.nowFunc().UTC()),
		ExecutionPrice:  executionPrice,
		PredictionLabel: common.TradeLabelHold,
		PredictedPrice:  executionPrice,
	}

	s.log.Info("Prediction for latest bar",
		logger.StringField("market", market),
		logger.Float64Field("p_buy", pBuy),
		logger.Float64Field("p_sell", pSell))

	if pBuy >= pSell {
		result.Confidence = pBuy
		result.PredictionDate = utils.FormatDate(lastTS.Add(time.Duration(cfg.TargetBuyTerm*cfg.TrainingTimeframe) * time.Minute))
	} else {
		result.Confidence = pSell
		result.PredictionDate = utils.FormatDate(lastTS.Add(time.Duration(cfg.TargetSellTerm*cfg.TrainingTimeframe) * time.Minute))
	}
	if result.Confidence < cfg.ConfidenceThreshold {
		return result, nil
	}

	if pBuy >= pSell {
		if err := s.decideBuy(ctx, result, market, quote); err != nil {
			return nil, err
		}
	} else {
		if err := s.decideSell(ctx, result, market, base); err != nil {
			return nil, err
		}
	}

	// A tripped guardrail downgrades the decision to hold; the reasons
	// stay on the record.
	if len(result.HoldReasons) > 0 {
		result.PredictionLabel = common.TradeLabelHold
	}

	if result.Amount > 0 {
		price := decimal.NewFromFloat(result.Price)
		amount := decimal.NewFromFloat(result.Amount)
		side := "buy"
		if result.PredictionLabel == common.TradeLabelSell {
			side = "sell"
		}
		if _, err := s.exchange.CreateLimitOrder(ctx, market, side, price, amount); err != nil {
			return nil, fmt.Errorf("placing %s order: %w", side, err)
		}
	}
	return result, nil
}

// decideBuy fills in the buy decision: price is the cheaper of the best ask
// and the quoted rate, and the quote balance must cover the full cost.
func (s *autoTradeService) decideBuy(ctx context.Context, result *dto.TradeResult, market, quote string) error {
	cfg := s.tradingCfg
	amount := decimal.NewFromFloat(cfg.AutoTradeBuyAmount)

	price, err := s.orderPrice(ctx, market, "buy", amount)
	if err != nil {
		return err
	}
	cost := price.Mul(amount)

	result.PredictionLabel = common.TradeLabelBuy
	result.PredictedPrice = result.ExecutionPrice * (1 + cfg.TargetBuyRate)
	result.Price, _ = price.Float64()

	balance, err := s.exchange.GetBalance(ctx)
	if err != nil {
		return err
	}
	if balance[quote].LessThan(cost) {
		s.log.Warn("Insufficient quote balance, holding",
			logger.StringField("needed", cost.String()),
			logger.StringField("available", balance[quote].String()))
		result.HoldReasons = append(result.HoldReasons, "insufficient_quote_balance")
		return nil
	}
	if cost.GreaterThan(decimal.NewFromFloat(cfg.MaxOrderNotional)) {
		s.log.Warn("Order cost exceeds notional cap, holding", logger.StringField("cost", cost.String()))
		result.HoldReasons = append(result.HoldReasons, "order_notional_cap")
		return nil
	}

	result.Amount, _ = amount.Float64()
	result.Cost, _ = cost.Float64()
	return nil
}

// decideSell fills in the sell decision: price is the better of the best
// bid and the quoted rate, the held quantity must cover the amount, and a
// price below the weighted-average acquisition cost holds instead of
// realizing a loss.
func (s *autoTradeService) decideSell(ctx context.Context, result *dto.TradeResult, market, base string) error {
	cfg := s.tradingCfg
	amount := decimal.NewFromFloat(cfg.AutoTradeSellAmount)

	price, err := s.orderPrice(ctx, market, "sell", amount)
	if err != nil {
		return err
	}

	result.PredictionLabel = common.TradeLabelSell
	result.PredictedPrice = result.ExecutionPrice * (1 - cfg.TargetSellRate)
	result.Price, _ = price.Float64()

	history, err := s.exchange.GetTradeHistory(ctx, market)
	if err != nil {
		return err
	}
	if avgCost, ok := weightedAverageCost(history); ok && price.LessThan(avgCost) {
		s.log.Warn("Price below average acquisition cost, holding",
			logger.StringField("price", price.String()),
			logger.StringField("avg_cost", avgCost.String()))
		result.HoldReasons = append(result.HoldReasons, "price_below_average_cost")
		return nil
	}

	balance, err := s.exchange.GetBalance(ctx)
	if err != nil {
		return err
	}
	if balance[base].LessThan(amount) {
		s.log.Warn("Insufficient base balance, holding",
			logger.StringField("needed", amount.String()),
			logger.StringField("available", balance[base].String()))
		result.HoldReasons = append(result.HoldReasons, "insufficient_base_balance")
		return nil
	}

	cost := price.Mul(amount)
	if cost.GreaterThan(decimal.NewFromFloat(cfg.MaxOrderNotional)) {
		s.log.Warn("Order cost exceeds notional cap, holding", logger.StringField("cost", cost.String()))
		result.HoldReasons = append(result.HoldReasons, "order_notional_cap")
		return nil
	}

	result.Amount, _ = amount.Float64()
	result.Cost, _ = cost.Float64()
	return nil
}

// orderPrice combines the order book with the exchange's quoted rate,
// taking the conservative side for the caller.
func (s *autoTradeService) orderPrice(ctx context.Context, market, side string, amount decimal.Decimal) (decimal.Decimal, error) {
	book, err := s.exchange.GetOrderBook(ctx, market)
	if err != nil {
		return decimal.Zero, err
	}
	quoted, err := s.exchange.GetOrderRate(ctx, market, side, amount)
	if err != nil {
		return decimal.Zero, err
	}

	if side == "buy" {
		if bestAsk, ok := book.BestAsk(); ok && bestAsk.LessThan(quoted) {
			return bestAsk, nil
		}
		return quoted, nil
	}
	if bestBid, ok := book.BestBid(); ok && bestBid.GreaterThan(quoted) {
		return bestBid, nil
	}
	return quoted, nil
}

func (s *autoTradeService) predictTarget(ctx context.Context, target string, lastRow [][]float64) (float64, error) {
	ensemble, err := ensembleFor(s.tradingCfg, s.store, common.StageProduction, s.log)
	if err != nil {
		return 0, err
	}
	if err := ensemble.LoadModel(ctx, target); err != nil {
		return 0, err
	}
	predictions, err := ensemble.Predict(lastRow)
	if err != nil {
		return 0, err
	}
	return predictions[0], nil
}

// weightedAverageCost derives the average acquisition price from buy fills.
func weightedAverageCost(history []dto.TradeExecution) (decimal.Decimal, bool) {
	totalCost := decimal.Zero
	totalAmount := decimal.Zero
	for _, trade := range history {
		if trade.Side != "buy" {
			continue
		}
		totalCost = totalCost.Add(trade.Price.Mul(trade.Amount))
		totalAmount = totalAmount.Add(trade.Amount)
	}
	if totalAmount.IsZero() {
		return decimal.Zero, false
	}
	return totalCost.Div(totalAmount), true
}

// record persists the decision to object storage and the relational store.
func (s *autoTradeService) record(ctx context.Context, result *dto.TradeResult) error {
	key := fmt.Sprintf("%s/%s_%s.json", common.StorageFolderTrade, result.Market, result.ExecutionDate)
	if err := s.store.SaveJSON(ctx, key, result); err != nil {
		return fmt.Errorf("persisting trade decision: %w", err)
	}

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	executionDate, err := time.Parse(utils.DateLayout, result.ExecutionDate)
	if err != nil {
		return err
	}
	predictionDate, err := time.Parse(utils.DateLayout, result.PredictionDate)
	if err != nil {
		predictionDate = executionDate
	}

	decision := &entity.TradeDecision{
		Market:          result.Market,
		PredictionLabel: result.PredictionLabel,
		Confidence:      result.Confidence,
		Price:           result.Price,
		Amount:          result.Amount,
		Cost:            result.Cost,
		ExecutionDate:   executionDate,
		PredictionDate:  predictionDate,
		HoldReasons:     result.HoldReasons,
		Data:            data,
	}
	if err := s.decisions.Create(ctx, decision); err != nil {
		return fmt.Errorf("inserting trade decision: %w", err)
	}
	return nil
}
