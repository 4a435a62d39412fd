package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang-crypto-trader/internal/dataset"
	"golang-crypto-trader/internal/trader/config"
	"golang-crypto-trader/internal/trader/dto"
	"golang-crypto-trader/internal/trader/repository"
	"golang-crypto-trader/pkg/common"
	"golang-crypto-trader/pkg/logger"
	"golang-crypto-trader/pkg/storage"
	"golang-crypto-trader/pkg/utils"
)

// ErrDataUnavailable is returned when the requested range yields no candles
// from either the cache or the market data provider.
var ErrDataUnavailable = errors.New("no market data available for the requested range")

// DatasetService assembles the raw multi-market OHLCV frame used by the
// training pipeline and the trade decision engine. Per-day candle tables
// and whole training datasets are cached in object storage.
type DatasetService interface {
	GetTrainingData(ctx context.Context, start, end time.Time) (*dataset.Frame, error)
	GetRecentData(ctx context.Context, days int) (*dataset.Frame, error)
}

type datasetService struct {
	tradingCfg config.TradingConfig
	log        *logger.Logger
	store      storage.Client
	ohlcvRepo  repository.OHLCVRepository
	nowFunc    func() time.Time
}

// NewDatasetService creates the dataset service.
func NewDatasetService(tradingCfg config.TradingConfig, log *logger.Logger, store storage.Client, ohlcvRepo repository.OHLCVRepository) DatasetService {
	return &datasetService{
		tradingCfg: tradingCfg,
		log:        log,
		store:      store,
		ohlcvRepo:  ohlcvRepo,
		nowFunc:    time.Now,
	}
}

// GetTrainingData returns the joined frame over [start, end], serving from
// the dataset cache when the identical range was built before.
func (s *datasetService) GetTrainingData(ctx context.Context, start, end time.Time) (*dataset.Frame, error) {
	datasetKey := fmt.Sprintf("%s/%s_%s.json", common.StorageFolderDataset, utils.FormatDate(start), utils.FormatDate(end))

	var cached dataset.Frame
	found, err := s.store.LoadJSON(ctx, datasetKey, &cached)
	if err != nil {
		return nil, fmt.Errorf("loading cached dataset: %w", err)
	}
	if found && cached.Len() > 0 {
		s.log.Info("Serving training dataset from cache", logger.StringField("key", datasetKey))
		return &cached, nil
	}

	merged, err := s.buildRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveJSON(ctx, datasetKey, merged); err != nil {
		return nil, fmt.Errorf("caching dataset: %w", err)
	}
	return merged, nil
}

// GetRecentData returns the joined frame over the trailing number of days,
// ending yesterday. Recent windows change daily, so only the per-day candle
// tables are cached, not the joined result.
func (s *datasetService) GetRecentData(ctx context.Context, days int) (*dataset.Frame, error) {
	end := utils.FloorDay(s.nowFunc().UTC()).AddDate(0, 0, -1)
	start := end.AddDate(0, 0, -days+1)
	return s.buildRange(ctx, start, end)
}

func (s *datasetService) buildRange(ctx context.Context, start, end time.Time) (*dataset.Frame, error) {
	var merged *dataset.Frame
	for _, symbol := range s.tradingCfg.Markets {
		frame, err := s.buildSymbolFrame(ctx, symbol, start, end)
		if err != nil {
			return nil, err
		}
		if merged == nil {
			merged = frame
			continue
		}
		if err := merged.Merge(frame); err != nil {
			return nil, err
		}
	}
	if merged == nil || merged.Len() == 0 {
		return nil, fmt.Errorf("%w: %s to %s", ErrDataUnavailable, utils.FormatDate(start), utils.FormatDate(end))
	}
	return merged, nil
}

// buildSymbolFrame loads one market's candles day by day, filling the
// per-day cache on miss, and converts them to symbol-suffixed columns.
func (s *datasetService) buildSymbolFrame(ctx context.Context, symbol string, start, end time.Time) (*dataset.Frame, error) {
	timeframe := s.tradingCfg.TrainingTimeframe

	var bars []dto.PriceBar
	for day := utils.FloorDay(start); !day.After(utils.FloorDay(end)); day = day.AddDate(0, 0, 1) {
		dayKey := fmt.Sprintf("%s/%s/daily_%dm/%s_daily_%dm_%s.json",
			common.StorageFolderHistorical, symbol, timeframe, symbol, timeframe, utils.FormatDate(day))

		var dayBars []dto.PriceBar
		found, err := s.store.LoadJSON(ctx, dayKey, &dayBars)
		if err != nil {
			return nil, fmt.Errorf("loading cached candles: %w", err)
		}
		if !found {
			dayBars, err = s.ohlcvRepo.GetDailyOHLCV(ctx, symbol, timeframe, day)
			if err != nil {
				return nil, fmt.Errorf("fetching candles for %s %s: %w", symbol, utils.FormatDate(day), err)
			}
			if len(dayBars) > 0 {
				if err := s.store.SaveJSON(ctx, dayKey, dayBars); err != nil {
					return nil, fmt.Errorf("caching candles: %w", err)
				}
			}
		}
		bars = append(bars, dayBars...)
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrDataUnavailable, symbol)
	}
	return barsToFrame(symbol, bars)
}

func barsToFrame(symbol string, bars []dto.PriceBar) (*dataset.Frame, error) {
	timestamps := make([]time.Time, len(bars))
	open := make([]float64, len(bars))
	high := make([]float64, len(bars))
	low := make([]float64, len(bars))
	closePrice := make([]float64, len(bars))
	volume := make([]float64, len(bars))
	for i, bar := range bars {
		timestamps[i] = bar.Timestamp
		open[i] = bar.Open
		high[i] = bar.High
		low[i] = bar.Low
		closePrice[i] = bar.Close
		volume[i] = bar.Volume
	}

	frame := dataset.NewFrame(timestamps)
	columns := map[string][]float64{
		"open_" + symbol:   open,
		"high_" + symbol:   high,
		"low_" + symbol:    low,
		"close_" + symbol:  closePrice,
		"volume_" + symbol: volume,
	}
	for _, name := range []string{"open_" + symbol, "high_" + symbol, "low_" + symbol, "close_" + symbol, "volume_" + symbol} {
		if err := frame.AddColumn(name, columns[name]); err != nil {
			return nil, err
		}
	}
	return frame, nil
}
