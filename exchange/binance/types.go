package binance

import "github.com/shopspring/decimal"

// Wire types for the Binance spot REST API. Numeric fields arrive as JSON
// strings; shopspring/decimal unmarshals them directly.

type exchangeInfoResponse struct {
	Symbols []symbolInfo `json:"symbols"`
}

type symbolInfo struct {
	Symbol              string         `json:"symbol"`
	Status              string         `json:"status"`
	BaseAsset           string         `json:"baseAsset"`
	QuoteAsset          string         `json:"quoteAsset"`
	QuoteAssetPrecision int32          `json:"quoteAssetPrecision"`
	Filters             []symbolFilter `json:"filters"`
}

// symbolFilter is the union of the filter entries we read; FilterType decides
// which fields are populated.
type symbolFilter struct {
	FilterType  string          `json:"filterType"`
	StepSize    decimal.Decimal `json:"stepSize"`
	MinQty      decimal.Decimal `json:"minQty"`
	TickSize    decimal.Decimal `json:"tickSize"`
	MinNotional decimal.Decimal `json:"minNotional"`
}

const (
	filterLotSize  = "LOT_SIZE"
	filterPrice    = "PRICE_FILTER"
	filterNotional = "NOTIONAL"

	statusTrading = "TRADING"
)

type tickerPrice struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

type accountResponse struct {
	Balances []accountBalance `json:"balances"`
}

type accountBalance struct {
	Asset  string          `json:"asset"`
	Free   decimal.Decimal `json:"free"`
	Locked decimal.Decimal `json:"locked"`
}

type bookTickerResponse struct {
	Symbol   string          `json:"symbol"`
	BidPrice decimal.Decimal `json:"bidPrice"`
	AskPrice decimal.Decimal `json:"askPrice"`
}

type orderResponse struct {
	Symbol        string      `json:"symbol"`
	OrderID       int64       `json:"orderId"`
	ClientOrderID string      `json:"clientOrderId"`
	Status        string      `json:"status"`
	Fills         []orderFill `json:"fills"`
}

type orderFill struct {
	Price decimal.Decimal `json:"price"`
	Qty   decimal.Decimal `json:"qty"`
}

type cancelledOrder struct {
	Symbol  string `json:"symbol"`
	OrderID int64  `json:"orderId"`
}

// apiError is Binance's error envelope, e.g. {"code":-2011,"msg":"Unknown order sent."}.
type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// codeNoOpenOrders is returned by DELETE /api/v3/openOrders when the pair has
// nothing to cancel.
const codeNoOpenOrders = -2011
