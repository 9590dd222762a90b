// Package exchange defines the backend-neutral contract for converting a
// holding of one reference asset (the "main asset") into other assets on a
// spot exchange and liquidating those holdings again. Two backends implement
// it: exchange/binance and exchange/kucoin. The contract hides their
// differences in signing, market-order units, order-status semantics and
// step-size rules so callers behave identically against either.
package exchange

import (
	"context"

	"github.com/shopspring/decimal"
)

// Exchange is the capability contract implemented by each backend.
//
// Setup must be called once before any other operation; it checks the main
// asset balance, discovers every tradable pair involving the main asset and
// populates the instrument registry. All other calls operate on instruments
// obtained from that registry.
//
// Buy and Sell are market orders. The quantity for Buy is the amount of main
// asset to spend; the quantity for Sell is the amount of the instrument's
// asset to dispose of. Both return the fills the exchange reported, possibly
// after polling for completion on backends that acknowledge asynchronously.
type Exchange interface {
	// Setup verifies the account holds at least requiredAmount of mainAsset,
	// then populates the registry. Fails with ErrInsufficientBalance before
	// registering anything if the balance is short.
	Setup(ctx context.Context, mainAsset string, requiredAmount decimal.Decimal) error

	// Registry returns the instrument registry populated by Setup.
	Registry() *Registry

	// Buy market-buys the instrument's asset, spending quantity main asset.
	Buy(ctx context.Context, inst *Instrument, quantity decimal.Decimal) (Fills, error)

	// Sell market-sells quantity of the instrument's asset back toward the
	// main asset.
	Sell(ctx context.Context, inst *Instrument, quantity decimal.Decimal) (Fills, error)

	// PlaceLimitSell places a resting sell at the quantized price. A rejected
	// order comes back as *OrderRejectedError carrying the backend payload.
	PlaceLimitSell(ctx context.Context, inst *Instrument, quantity, price decimal.Decimal) (*OrderAck, error)

	// CancelAllOrders cancels every open order on the instrument's pair.
	// A pair with nothing open yields an empty result, not an error.
	CancelAllOrders(ctx context.Context, inst *Instrument) (CancelResult, error)

	// Balance returns the free balance of the referenced asset.
	Balance(ctx context.Context, ref BalanceRef) (decimal.Decimal, error)

	// TopOfBook returns the current best bid and ask for the instrument.
	TopOfBook(ctx context.Context, inst *Instrument) (TopOfBook, error)
}
