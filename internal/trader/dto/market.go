package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceBar is a single OHLCV candle.
type PriceBar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// OrderBookLevel is one price level of an order book side.
type OrderBookLevel struct {
	Price  decimal.Decimal `json:"price"`
	Amount decimal.Decimal `json:"amount"`
}

// OrderBook holds the top of the exchange order book.
type OrderBook struct {
	Asks []OrderBookLevel `json:"asks"`
	Bids []OrderBookLevel `json:"bids"`
}

// BestAsk returns the lowest ask price, or false when the book is empty.
func (b *OrderBook) BestAsk() (decimal.Decimal, bool) {
	if b == nil || len(b.Asks) == 0 {
		return decimal.Zero, false
	}
	best := b.Asks[0].Price
	for _, l := range b.Asks[1:] {
		if l.Price.LessThan(best) {
			best = l.Price
		}
	}
	return best, true
}

// BestBid returns the highest bid price, or false when the book is empty.
func (b *OrderBook) BestBid() (decimal.Decimal, bool) {
	if b == nil || len(b.Bids) == 0 {
		return decimal.Zero, false
	}
	best := b.Bids[0].Price
	for _, l := range b.Bids[1:] {
		if l.Price.GreaterThan(best) {
			best = l.Price
		}
	}
	return best, true
}

// Order is a limit order as accepted by the exchange.
type Order struct {
	ID        int64           `json:"id"`
	Pair      string          `json:"pair"`
	Side      string          `json:"side"`
	Price     decimal.Decimal `json:"price"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// TradeExecution is one fill from the account trade history.
type TradeExecution struct {
	ID        int64           `json:"id"`
	Pair      string          `json:"pair"`
	Side      string          `json:"side"`
	Price     decimal.Decimal `json:"price"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}
