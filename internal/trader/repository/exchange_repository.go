package repository

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"golang-crypto-trader/internal/trader/config"
	"golang-crypto-trader/internal/trader/dto"
	"golang-crypto-trader/pkg/logger"
)

// ExchangeRepository wraps the trading exchange's private and public REST
// API. Prices and amounts are decimals end to end; floats only appear at
// the model boundary.
type ExchangeRepository interface {
	GetBalance(ctx context.Context) (map[string]decimal.Decimal, error)
	GetOrderBook(ctx context.Context, pair string) (*dto.OrderBook, error)
	GetLatestRate(ctx context.Context, pair string) (decimal.Decimal, error)
	GetOrderRate(ctx context.Context, pair, side string, amount decimal.Decimal) (decimal.Decimal, error)
	CreateLimitOrder(ctx context.Context, pair, side string, price, amount decimal.Decimal) (*dto.Order, error)
	GetTradeHistory(ctx context.Context, pair string) ([]dto.TradeExecution, error)
	GetOpenOrders(ctx context.Context, pair string) ([]dto.Order, error)
}

type coincheckRepository struct {
	cfg            *config.Config
	log            *logger.Logger
	httpClient     *http.Client
	requestLimiter *rate.Limiter
	nowFunc        func() time.Time
}

// NewCoincheckRepository creates an exchange repository for the Coincheck
// REST API.
func NewCoincheckRepository(cfg *config.Config, log *logger.Logger) ExchangeRepository {
	secondsPerRequest := time.Minute / time.Duration(cfg.Exchange.MaxRequestPerMinute)
	requestLimiter := rate.NewLimiter(rate.Every(secondsPerRequest), 1)
	return &coincheckRepository{
		cfg: cfg,
		log: log,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		requestLimiter: requestLimiter,
		nowFunc:        time.Now,
	}
}

func (r *coincheckRepository) doRequest(ctx context.Context, method, path, body string) ([]byte, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := r.cfg.Exchange.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create exchange request: %w", err)
	}

	nonce := strconv.FormatInt(r.nowFunc().UnixNano(), 10)
	mac := hmac.New(sha256.New, []byte(r.cfg.Exchange.APISecret))
	mac.Write([]byte(nonce + endpoint + body))

	req.Header.Set("ACCESS-KEY", r.cfg.Exchange.APIKey)
	req.Header.Set("ACCESS-NONCE", nonce)
	req.Header.Set("ACCESS-SIGNATURE", hex.EncodeToString(mac.Sum(nil)))
	if body != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.log.ErrorContext(ctx, "Exchange request failed", logger.ErrorField(err), logger.StringField("path", path))
		return nil, fmt.Errorf("exchange request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read exchange response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("exchange returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

// GetBalance returns the account balance per currency. Non-numeric fields
// in the response are skipped.
func (r *coincheckRepository) GetBalance(ctx context.Context) (map[string]decimal.Decimal, error) {
	body, err := r.doRequest(ctx, http.MethodGet, "/api/accounts/balance", "")
	if err != nil {
		return nil, err
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode balance response: %w", err)
	}
	if success, ok := raw["success"].(bool); ok && !success {
		return nil, fmt.Errorf("balance request rejected: %s", string(body))
	}

	balance := make(map[string]decimal.Decimal)
	for currency, v := range raw {
		s, ok := v.(string)
		if !ok {
			continue
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			continue
		}
		balance[currency] = d
	}
	return balance, nil
}

// GetOrderBook returns the current public order book for the pair.
func (r *coincheckRepository) GetOrderBook(ctx context.Context, pair string) (*dto.OrderBook, error) {
	body, err := r.doRequest(ctx, http.MethodGet, "/api/order_books?pair="+url.QueryEscape(pair), "")
	if err != nil {
		return nil, err
	}

	var raw struct {
		Asks [][2]json.Number `json:"asks"`
		Bids [][2]json.Number `json:"bids"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode order book: %w", err)
	}

	book := &dto.OrderBook{}
	for _, a := range raw.Asks {
		level, err := parseBookLevel(a)
		if err != nil {
			return nil, err
		}
		book.Asks = append(book.Asks, level)
	}
	for _, b := range raw.Bids {
		level, err := parseBookLevel(b)
		if err != nil {
			return nil, err
		}
		book.Bids = append(book.Bids, level)
	}
	return book, nil
}

func parseBookLevel(entry [2]json.Number) (dto.OrderBookLevel, error) {
	price, err := decimal.NewFromString(entry[0].String())
	if err != nil {
		return dto.OrderBookLevel{}, fmt.Errorf("malformed order book price %q: %w", entry[0], err)
	}
	amount, err := decimal.NewFromString(entry[1].String())
	if err != nil {
		return dto.OrderBookLevel{}, fmt.Errorf("malformed order book amount %q: %w", entry[1], err)
	}
	return dto.OrderBookLevel{Price: price, Amount: amount}, nil
}

// GetLatestRate returns the latest traded rate for the pair.
func (r *coincheckRepository) GetLatestRate(ctx context.Context, pair string) (decimal.Decimal, error) {
	body, err := r.doRequest(ctx, http.MethodGet, "/api/rate/"+pair, "")
	if err != nil {
		return decimal.Zero, err
	}

	var raw struct {
		Rate json.Number `json:"rate"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode rate response: %w", err)
	}
	rateValue, err := decimal.NewFromString(raw.Rate.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("malformed rate %q: %w", raw.Rate, err)
	}
	return rateValue, nil
}

// GetOrderRate quotes the effective rate for an order of the given side and
// amount, including the exchange's own spread.
func (r *coincheckRepository) GetOrderRate(ctx context.Context, pair, side string, amount decimal.Decimal) (decimal.Decimal, error) {
	query := url.Values{}
	query.Set("order_type", side)
	query.Set("pair", pair)
	query.Set("amount", amount.String())

	body, err := r.doRequest(ctx, http.MethodGet, "/api/exchange/orders/rate?"+query.Encode(), "")
	if err != nil {
		return decimal.Zero, err
	}

	var raw struct {
		Success bool        `json:"success"`
		Rate    json.Number `json:"rate"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode order rate response: %w", err)
	}
	if !raw.Success {
		return decimal.Zero, fmt.Errorf("order rate request rejected: %s", string(body))
	}
	rateValue, err := decimal.NewFromString(raw.Rate.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("malformed order rate %q: %w", raw.Rate, err)
	}
	return rateValue, nil
}

// CreateLimitOrder places a limit order of the given side, price and amount.
func (r *coincheckRepository) CreateLimitOrder(ctx context.Context, pair, side string, price, amount decimal.Decimal) (*dto.Order, error) {
	form := url.Values{}
	form.Set("pair", pair)
	form.Set("order_type", side)
	form.Set("rate", price.String())
	form.Set("amount", amount.String())

	body, err := r.doRequest(ctx, http.MethodPost, "/api/exchange/orders", form.Encode())
	if err != nil {
		return nil, err
	}

	var raw struct {
		Success   bool        `json:"success"`
		ID        int64       `json:"id"`
		Rate      json.Number `json:"rate"`
		Amount    json.Number `json:"amount"`
		OrderType string      `json:"order_type"`
		Pair      string      `json:"pair"`
		CreatedAt time.Time   `json:"created_at"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode order response: %w", err)
	}
	if !raw.Success {
		return nil, fmt.Errorf("limit order rejected: %s", string(body))
	}

	orderPrice, err := decimal.NewFromString(raw.Rate.String())
	if err != nil {
		return nil, fmt.Errorf("malformed order rate %q: %w", raw.Rate, err)
	}
	orderAmount, err := decimal.NewFromString(raw.Amount.String())
	if err != nil {
		return nil, fmt.Errorf("malformed order amount %q: %w", raw.Amount, err)
	}

	r.log.Info("Limit order created",
		logger.StringField("pair", raw.Pair),
		logger.StringField("side", raw.OrderType),
		logger.StringField("price", orderPrice.String()),
		logger.StringField("amount", orderAmount.String()))

	return &dto.Order{
		ID:        raw.ID,
		Pair:      raw.Pair,
		Side:      raw.OrderType,
		Price:     orderPrice,
		Amount:    orderAmount,
		CreatedAt: raw.CreatedAt,
	}, nil
}

// GetTradeHistory returns the account's past fills for the pair, newest
// first as delivered by the exchange.
func (r *coincheckRepository) GetTradeHistory(ctx context.Context, pair string) ([]dto.TradeExecution, error) {
	body, err := r.doRequest(ctx, http.MethodGet, "/api/exchange/orders/transactions", "")
	if err != nil {
		return nil, err
	}

	var raw struct {
		Success      bool `json:"success"`
		Transactions []struct {
			ID        int64                  `json:"id"`
			Pair      string                 `json:"pair"`
			Side      string                 `json:"side"`
			Rate      json.Number            `json:"rate"`
			Funds     map[string]json.Number `json:"funds"`
			CreatedAt time.Time              `json:"created_at"`
		} `json:"transactions"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode transactions response: %w", err)
	}
	if !raw.Success {
		return nil, fmt.Errorf("transactions request rejected: %s", string(body))
	}

	base, _, err := config.SplitMarketSymbol(pair)
	if err != nil {
		return nil, err
	}

	trades := make([]dto.TradeExecution, 0, len(raw.Transactions))
	for _, tx := range raw.Transactions {
		if tx.Pair != pair {
			continue
		}
		price, err := decimal.NewFromString(tx.Rate.String())
		if err != nil {
			return nil, fmt.Errorf("malformed transaction rate %q: %w", tx.Rate, err)
		}
		amount := decimal.Zero
		if fund, ok := tx.Funds[base]; ok {
			amount, err = decimal.NewFromString(fund.String())
			if err != nil {
				return nil, fmt.Errorf("malformed transaction amount %q: %w", fund, err)
			}
			amount = amount.Abs()
		}
		trades = append(trades, dto.TradeExecution{
			ID:        tx.ID,
			Pair:      tx.Pair,
			Side:      tx.Side,
			Price:     price,
			Amount:    amount,
			CreatedAt: tx.CreatedAt,
		})
	}
	return trades, nil
}

// GetOpenOrders returns the account's unfilled orders for the pair.
func (r *coincheckRepository) GetOpenOrders(ctx context.Context, pair string) ([]dto.Order, error) {
	body, err := r.doRequest(ctx, http.MethodGet, "/api/exchange/orders/opens", "")
	if err != nil {
		return nil, err
	}

	var raw struct {
		Success bool `json:"success"`
		Orders  []struct {
			ID            int64       `json:"id"`
			Pair          string      `json:"pair"`
			OrderType     string      `json:"order_type"`
			Rate          json.Number `json:"rate"`
			PendingAmount json.Number `json:"pending_amount"`
			CreatedAt     time.Time   `json:"created_at"`
		} `json:"orders"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode open orders response: %w", err)
	}
	if !raw.Success {
		return nil, fmt.Errorf("open orders request rejected: %s", string(body))
	}

	orders := make([]dto.Order, 0, len(raw.Orders))
	for _, o := range raw.Orders {
		if o.Pair != pair {
			continue
		}
		price, err := decimal.NewFromString(o.Rate.String())
		if err != nil {
			return nil, fmt.Errorf("malformed open order rate %q: %w", o.Rate, err)
		}
		amount, err := decimal.NewFromString(o.PendingAmount.String())
		if err != nil {
			return nil, fmt.Errorf("malformed open order amount %q: %w", o.PendingAmount, err)
		}
		orders = append(orders, dto.Order{
			ID:        o.ID,
			Pair:      o.Pair,
			Side:      o.OrderType,
			Price:     price,
			Amount:    amount,
			CreatedAt: o.CreatedAt,
		})
	}
	return orders, nil
}
