package exchange

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors, matched with errors.Is.
var (
	// ErrInsufficientBalance means Setup found less main asset than required.
	ErrInsufficientBalance = errors.New("insufficient main asset balance")

	// ErrInstrumentNotFound means a registry lookup missed.
	ErrInstrumentNotFound = errors.New("instrument not found")

	// ErrDuplicateInstrument means an instrument's name or symbol is already
	// registered.
	ErrDuplicateInstrument = errors.New("instrument already registered")

	// ErrRegistryFrozen means Register was called after Setup completed.
	ErrRegistryFrozen = errors.New("registry is frozen")

	// ErrAssetNotFound means the account holds no record for the asset.
	ErrAssetNotFound = errors.New("asset not found in account")

	// ErrSymbolNotFound means the exchange does not know the trading pair.
	ErrSymbolNotFound = errors.New("symbol not found")

	// ErrOrderTimeout means an order did not reach a terminal state before
	// the fill-confirmation deadline.
	ErrOrderTimeout = errors.New("timed out waiting for order to fill")
)

// OrderRejectedError reports a backend-rejected order or cancellation. It
// carries the HTTP status, the backend's own error code and message, and the
// raw payload for diagnostics.
type OrderRejectedError struct {
	Status  int
	Code    string
	Message string
	Raw     []byte
}

func (e *OrderRejectedError) Error() string {
	return fmt.Sprintf("order rejected: status=%d code=%s msg=%q", e.Status, e.Code, e.Message)
}

// ValidationError reports a parameter rejected before any request was sent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
