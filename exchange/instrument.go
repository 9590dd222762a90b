package exchange

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Side is an exchange request side.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Upper returns the side as the upper-case token some backends expect.
func (s Side) Upper() string { return strings.ToUpper(string(s)) }

// Instrument describes one tradable pair relative to the configured main
// asset. Name is always the non-main asset of the pair.
//
// IsBaseAsset is true when Name is the base currency of the pair, i.e. the
// main asset is the quote. It decides whether order quantities travel as base
// size or quote funds on the wire, and it flips BuySide/SellSide: when the
// main asset is the base, acquiring Name means selling the pair.
type Instrument struct {
	// Name is the non-main asset's ticker, e.g. "ETH".
	Name string

	// Symbol is the exchange pair identifier, e.g. "ETHUSDT" or "ETH-USDT".
	Symbol string

	// SellSide converts away from Name, BuySide converts toward it.
	SellSide Side
	BuySide  Side

	IsBaseAsset bool

	// QuantityStep and PriceStep are the pair's minimum increments. Every
	// submitted quantity and price is quantized to them first.
	QuantityStep decimal.Decimal
	PriceStep    decimal.Decimal

	// MinQuantity is the smallest tradable size.
	MinQuantity decimal.Decimal

	// StartPrice is the last known price at setup time, informational only.
	StartPrice decimal.Decimal
}

// AssetName implements BalanceRef.
func (i *Instrument) AssetName() string { return i.Name }

// Validate checks the invariants an instrument must satisfy before it may be
// registered.
func (i *Instrument) Validate(mainAsset string) error {
	if i.Name == "" {
		return &ValidationError{Field: "name", Reason: "empty"}
	}
	if i.Name == mainAsset {
		return &ValidationError{Field: "name", Reason: "must differ from the main asset"}
	}
	if !strings.Contains(i.Symbol, mainAsset) {
		return &ValidationError{Field: "symbol", Reason: "must contain the main asset ticker"}
	}
	if i.SellSide == i.BuySide {
		return &ValidationError{Field: "sides", Reason: "sell side must differ from buy side"}
	}
	wantSell, wantBuy := SideSell, SideBuy
	if !i.IsBaseAsset {
		wantSell, wantBuy = SideBuy, SideSell
	}
	if i.SellSide != wantSell || i.BuySide != wantBuy {
		return &ValidationError{Field: "sides", Reason: "orientation does not match the pair layout"}
	}
	return nil
}

// QuantizeQuantity floors the quantity to the pair's quantity step.
func (i *Instrument) QuantizeQuantity(v decimal.Decimal) decimal.Decimal {
	return quantize(v, i.QuantityStep)
}

// QuantizePrice floors the price to the pair's price step.
func (i *Instrument) QuantizePrice(v decimal.Decimal) decimal.Decimal {
	return quantize(v, i.PriceStep)
}

// quantize floors v to a multiple of step: v - (v mod step). The result never
// exceeds the exchange-permitted precision and never rounds up, so a
// quantized order cannot be rejected for step-size violations.
func quantize(v, step decimal.Decimal) decimal.Decimal {
	if step.IsZero() {
		return v
	}
	return v.Sub(v.Mod(step))
}
