package domain

import "errors"

// Recoverable business errors. Handlers map these to 4xx responses; anything
// else is a 500.
var (
	ErrAssetNotFound       = errors.New("asset not found")
	ErrAssetNotTradable    = errors.New("asset is not tradable")
	ErrTradeNotFound       = errors.New("trade not found")
	ErrTradeNotPending     = errors.New("trade is not in a confirmable state")
	ErrInsufficientSupply  = errors.New("insufficient remaining supply")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrInvalidAddress      = errors.New("invalid wallet address")
	ErrInvalidTxHash       = errors.New("invalid transaction hash")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrPaymentNotFound     = errors.New("pending payment not found")
	ErrRollbackPlanMissing = errors.New("rollback plan not found")
)

// Recoverable reports whether err should surface as a client error.
func Recoverable(err error) bool {
	for _, known := range []error{
		ErrAssetNotFound, ErrAssetNotTradable, ErrTradeNotFound, ErrTradeNotPending,
		ErrInsufficientSupply, ErrInvalidTransition, ErrInvalidAddress,
		ErrInvalidTxHash, ErrInvalidAmount, ErrPaymentNotFound,
	} {
		if errors.Is(err, known) {
			return true
		}
	}
	return false
}
