package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"golang-crypto-trader/internal/trader/config"
	"golang-crypto-trader/internal/trader/dto"
	"golang-crypto-trader/pkg/logger"
)

// OHLCVRepository fetches raw candle data from the market data provider.
type OHLCVRepository interface {
	GetDailyOHLCV(ctx context.Context, symbol string, intervalMinutes int, day time.Time) ([]dto.PriceBar, error)
}

type binanceOHLCVRepository struct {
	cfg            *config.Config
	log            *logger.Logger
	httpClient     *http.Client
	requestLimiter *rate.Limiter
	cache          *gocache.Cache
}

// NewBinanceOHLCVRepository creates an OHLCV repository backed by the
// Binance public klines endpoint.
func NewBinanceOHLCVRepository(cfg *config.Config, log *logger.Logger) OHLCVRepository {
	secondsPerRequest := time.Minute / time.Duration(cfg.MarketData.MaxRequestPerMinute)
	requestLimiter := rate.NewLimiter(rate.Every(secondsPerRequest), 1)

	cacheTTL, err := time.ParseDuration(cfg.MarketData.CacheTTL)
	if err != nil || cacheTTL <= 0 {
		cacheTTL = time.Hour
	}

	return &binanceOHLCVRepository{
		cfg: cfg,
		log: log,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		requestLimiter: requestLimiter,
		cache:          gocache.New(cacheTTL, 2*cacheTTL),
	}
}

var binanceIntervals = map[int]string{
	1:    "1m",
	5:    "5m",
	15:   "15m",
	30:   "30m",
	60:   "1h",
	240:  "4h",
	1440: "1d",
}

// GetDailyOHLCV returns one UTC day of candles for the market symbol at the
// given bar interval. Results are cached in memory per (symbol, interval, day).
func (r *binanceOHLCVRepository) GetDailyOHLCV(ctx context.Context, symbol string, intervalMinutes int, day time.Time) ([]dto.PriceBar, error) {
	interval, ok := binanceIntervals[intervalMinutes]
	if !ok {
		return nil, fmt.Errorf("unsupported candle interval %d minutes", intervalMinutes)
	}

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	cacheKey := fmt.Sprintf("%s:%s:%s", symbol, interval, dayStart.Format("2006-01-02"))
	if cached, found := r.cache.Get(cacheKey); found {
		return cached.([]dto.PriceBar), nil
	}

	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("symbol", binanceSymbol(symbol))
	query.Set("interval", interval)
	query.Set("startTime", strconv.FormatInt(dayStart.UnixMilli(), 10))
	query.Set("endTime", strconv.FormatInt(dayStart.Add(24*time.Hour).UnixMilli()-1, 10))
	query.Set("limit", "1000")

	endpoint := fmt.Sprintf("%s/api/v3/klines?%s", r.cfg.MarketData.BaseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create klines request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.log.ErrorContext(ctx, "Failed to fetch klines", logger.ErrorField(err), logger.StringField("symbol", symbol))
		return nil, fmt.Errorf("failed to fetch klines: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read klines response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("klines request failed with status %d: %s", resp.StatusCode, string(body))
	}

	bars, err := parseKlines(body)
	if err != nil {
		return nil, err
	}

	r.cache.Set(cacheKey, bars, gocache.DefaultExpiration)
	return bars, nil
}

// binanceSymbol converts a market symbol such as "btc_jpy" to Binance's
// "BTCJPY" form.
func binanceSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(symbol, "_", ""))
}

func parseKlines(body []byte) ([]dto.PriceBar, error) {
	var raw [][]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode klines response: %w", err)
	}

	bars := make([]dto.PriceBar, 0, len(raw))
	for _, k := range raw {
		if len(k) < 6 {
			return nil, fmt.Errorf("malformed kline entry with %d fields", len(k))
		}
		openTime, ok := k[0].(float64)
		if !ok {
			return nil, fmt.Errorf("malformed kline open time %v", k[0])
		}
		bar := dto.PriceBar{Timestamp: time.UnixMilli(int64(openTime)).UTC()}
		fields := []*float64{&bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume}
		for i, dst := range fields {
			s, ok := k[i+1].(string)
			if !ok {
				return nil, fmt.Errorf("malformed kline field %v", k[i+1])
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("malformed kline value %q: %w", s, err)
			}
			*dst = v
		}
		bars = append(bars, bar)
	}
	return bars, nil
}
