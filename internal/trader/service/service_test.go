package service

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"golang-crypto-trader/internal/dataset"
	"golang-crypto-trader/internal/entity"
	"golang-crypto-trader/internal/trader/config"
	"golang-crypto-trader/internal/trader/dto"
	"golang-crypto-trader/pkg/common"
	"golang-crypto-trader/pkg/logger"
	"golang-crypto-trader/pkg/storage"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("error", "json")
	require.NoError(t, err)
	return log
}

func testTradingConfig() config.TradingConfig {
	cfg := config.DefaultTradingConfig()
	cfg.Epochs = 40
	return cfg
}

// syntheticRaw builds a deterministic random-walk OHLCV frame for "btc_jpy"
// on 15-minute bars.
func syntheticRaw(t *testing.T, n int, seed int64) *dataset.Frame {
	return syntheticBars(t, n, seed, 15*time.Minute)
}

func syntheticBars(t *testing.T, n int, seed int64, step time.Duration) *dataset.Frame {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))

	timestamps := make([]time.Time, n)
	open := make([]float64, n)
	high := make([]float64, n)
	low := make([]float64, n)
	closePrice := make([]float64, n)
	volume := make([]float64, n)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	price := 100.0
	for i := 0; i < n; i++ {
		timestamps[i] = base.Add(time.Duration(i) * step)
		open[i] = price
		price += rng.Float64()*2 - 1
		closePrice[i] = price
		high[i] = math.Max(open[i], closePrice[i]) + rng.Float64()
		low[i] = math.Min(open[i], closePrice[i]) - rng.Float64()
		volume[i] = 100 + rng.Float64()*50
	}

	f := dataset.NewFrame(timestamps)
	require.NoError(t, f.AddColumn("open_btc_jpy", open))
	require.NoError(t, f.AddColumn("high_btc_jpy", high))
	require.NoError(t, f.AddColumn("low_btc_jpy", low))
	require.NoError(t, f.AddColumn("close_btc_jpy", closePrice))
	require.NoError(t, f.AddColumn("volume_btc_jpy", volume))
	return f
}

// stubDatasetService serves a fixed frame, optionally erroring or blocking
// first.
type stubDatasetService struct {
	mu    sync.Mutex
	frame *dataset.Frame
	errs  []error
	block chan struct{}
}

func (s *stubDatasetService) next() (*dataset.Frame, error) {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	if s.frame == nil {
		return nil, ErrDataUnavailable
	}
	return s.frame, nil
}

func (s *stubDatasetService) GetTrainingData(ctx context.Context, start, end time.Time) (*dataset.Frame, error) {
	return s.next()
}

func (s *stubDatasetService) GetRecentData(ctx context.Context, days int) (*dataset.Frame, error) {
	return s.next()
}

// stubNotifier records sent messages. Pipeline runs send from a goroutine,
// hence the lock.
type stubNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *stubNotifier) SendMessage(text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
	return nil
}

func (n *stubNotifier) sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

// stubExchange serves canned market data and records placed orders.
type stubExchange struct {
	balance map[string]decimal.Decimal
	book    *dto.OrderBook
	rate    decimal.Decimal
	history []dto.TradeExecution
	orders  []dto.Order
}

func (e *stubExchange) GetBalance(ctx context.Context) (map[string]decimal.Decimal, error) {
	return e.balance, nil
}

func (e *stubExchange) GetOrderBook(ctx context.Context, pair string) (*dto.OrderBook, error) {
	if e.book == nil {
		return &dto.OrderBook{}, nil
	}
	return e.book, nil
}

func (e *stubExchange) GetLatestRate(ctx context.Context, pair string) (decimal.Decimal, error) {
	return e.rate, nil
}

func (e *stubExchange) GetOrderRate(ctx context.Context, pair, side string, amount decimal.Decimal) (decimal.Decimal, error) {
	return e.rate, nil
}

func (e *stubExchange) CreateLimitOrder(ctx context.Context, pair, side string, price, amount decimal.Decimal) (*dto.Order, error) {
	order := dto.Order{ID: int64(len(e.orders) + 1), Pair: pair, Side: side, Price: price, Amount: amount}
	e.orders = append(e.orders, order)
	return &order, nil
}

func (e *stubExchange) GetTradeHistory(ctx context.Context, pair string) ([]dto.TradeExecution, error) {
	return e.history, nil
}

func (e *stubExchange) GetOpenOrders(ctx context.Context, pair string) ([]dto.Order, error) {
	return nil, nil
}

// stubDecisionRepo records created decisions in memory.
type stubDecisionRepo struct {
	created []*entity.TradeDecision
}

func (r *stubDecisionRepo) Create(ctx context.Context, decision *entity.TradeDecision) error {
	r.created = append(r.created, decision)
	return nil
}

func (r *stubDecisionRepo) FindLatest(ctx context.Context, market string, limit int) ([]entity.TradeDecision, error) {
	out := make([]entity.TradeDecision, 0, len(r.created))
	for _, d := range r.created {
		out = append(out, *d)
	}
	return out, nil
}

// failingStore fails CopyPrefix calls targeting a destination prefix and
// delegates everything else.
type failingStore struct {
	storage.Client
	failDstPrefix string
	failErr       error
}

func (s *failingStore) CopyPrefix(ctx context.Context, src, dst string) (int, error) {
	if s.failDstPrefix != "" && strings.HasPrefix(dst, s.failDstPrefix) {
		return 0, s.failErr
	}
	return s.Client.CopyPrefix(ctx, src, dst)
}

// trainStage fits the stage's scaler and trains a constant-label ensemble per
// target, so decision tests can force a confident buy or sell.
func trainStage(t *testing.T, cfg config.TradingConfig, store storage.Client, raw *dataset.Frame, stage, confidentTarget string) {
	t.Helper()
	ctx := context.Background()

	builder := dataset.NewFeatureBuilder(featureConfigFor(cfg))
	features, err := builder.Build(raw)
	require.NoError(t, err)
	featureCols := builder.FeatureColumns()

	xFrame, err := features.Select(featureCols)
	require.NoError(t, err)
	scaler := scalerFor(cfg, store, stage)
	scaledX, _, err := scaler.FitTransform(ctx, xFrame, nil)
	require.NoError(t, err)
	x, err := scaledX.Matrix(featureCols)
	require.NoError(t, err)

	for _, target := range []string{common.SignalBuy, common.SignalSell} {
		y := make([]float64, len(x))
		if target == confidentTarget {
			for i := range y {
				y[i] = 1
			}
		}
		ensemble, err := ensembleFor(cfg, store, stage, testLogger(t))
		require.NoError(t, err)
		require.NoError(t, ensemble.Train(ctx, x, y, target))
	}
}
