package kucoin

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Wire types for the KuCoin v1 REST API. Every response is wrapped in an
// envelope whose code "200000" signals success regardless of HTTP status.

type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

const codeOK = "200000"

type symbolInfo struct {
	Symbol         string          `json:"symbol"`
	BaseCurrency   string          `json:"baseCurrency"`
	QuoteCurrency  string          `json:"quoteCurrency"`
	EnableTrading  bool            `json:"enableTrading"`
	BaseIncrement  decimal.Decimal `json:"baseIncrement"`
	QuoteIncrement decimal.Decimal `json:"quoteIncrement"`
	PriceIncrement decimal.Decimal `json:"priceIncrement"`
	BaseMinSize    decimal.Decimal `json:"baseMinSize"`
	QuoteMinSize   decimal.Decimal `json:"quoteMinSize"`
}

type allTickersData struct {
	Ticker []tickerEntry `json:"ticker"`
}

type tickerEntry struct {
	Symbol string          `json:"symbol"`
	Last   decimal.Decimal `json:"last"`
}

type level1Data struct {
	BestBid decimal.Decimal `json:"bestBid"`
	BestAsk decimal.Decimal `json:"bestAsk"`
}

type accountEntry struct {
	Currency string          `json:"currency"`
	Type     string          `json:"type"`
	Balance  decimal.Decimal `json:"balance"`
	// Available is Balance minus order holds.
	Available decimal.Decimal `json:"available"`
}

// accountTypeTrade is the account bucket spot orders draw from.
const accountTypeTrade = "trade"

// orderRequest is the POST /api/v1/orders body. Exactly one of Size and Funds
// is set for market orders. Field order is fixed: the signature covers the
// serialized bytes.
type orderRequest struct {
	ClientOID string `json:"clientOid"`
	Side      string `json:"side"`
	Symbol    string `json:"symbol"`
	Type      string `json:"type"`
	TradeType string `json:"tradeType"`
	Price     string `json:"price,omitempty"`
	Size      string `json:"size,omitempty"`
	Funds     string `json:"funds,omitempty"`
	Hidden    bool   `json:"hidden,omitempty"`
}

const tradeTypeSpot = "TRADE"

type orderCreatedData struct {
	OrderID string `json:"orderId"`
}

type orderDetailData struct {
	ID        string          `json:"id"`
	IsActive  bool            `json:"isActive"`
	DealSize  decimal.Decimal `json:"dealSize"`
	DealFunds decimal.Decimal `json:"dealFunds"`
}

type cancelAllData struct {
	CancelledOrderIDs []string `json:"cancelledOrderIds"`
}
