package exchange

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Fill is one matched portion of an order execution.
type Fill struct {
	Quantity decimal.Decimal
	Price    decimal.Decimal
}

// Fills is the ordered sequence of partial fills a market order produced.
type Fills []Fill

// TotalQuantity sums the filled quantities.
func (f Fills) TotalQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, fill := range f {
		total = total.Add(fill.Quantity)
	}
	return total
}

// AveragePrice returns the quantity-weighted average fill price, or zero when
// nothing filled.
func (f Fills) AveragePrice() decimal.Decimal {
	total := f.TotalQuantity()
	if total.IsZero() {
		return decimal.Zero
	}
	notional := decimal.Zero
	for _, fill := range f {
		notional = notional.Add(fill.Quantity.Mul(fill.Price))
	}
	return notional.Div(total)
}

// TopOfBook is the best bid and ask for a pair.
type TopOfBook struct {
	Symbol   string
	BidPrice decimal.Decimal
	AskPrice decimal.Decimal
}

// OrderAck acknowledges an accepted resting order. Raw keeps the backend's
// response payload for callers that want to inspect it.
type OrderAck struct {
	OrderID string
	Raw     json.RawMessage
}

// CancelResult reports the orders a cancel-all removed.
type CancelResult struct {
	OrderIDs []string
}

// Count returns the number of cancelled orders.
func (c CancelResult) Count() int { return len(c.OrderIDs) }

// BalanceRef identifies the asset a balance query targets. It is satisfied by
// AssetName and by *Instrument, replacing the duck-typed name-or-coin argument
// of older bots with an explicit sum type.
type BalanceRef interface {
	AssetName() string
}

// AssetName references an asset by ticker.
type AssetName string

// AssetName implements BalanceRef.
func (a AssetName) AssetName() string { return string(a) }
