package payments

import (
	"context"

	"github.com/brickmint/rws/internal/domain"
)

// IPaymentProcessor orchestrates the asset purchase settlement flow: validate
// state, split the total between seller, platform and referral chain, hand the
// buyer unsigned transfer payloads, and on confirmation commit trade, supply
// and holding updates in one DB transaction.
type IPaymentProcessor interface {
	// CreatePurchase opens a pending buy trade and immediately prepares its
	// payment instructions.
	CreatePurchase(ctx context.Context, assetID int64, buyerAddress string, amount int64) (*PaymentInstructions, error)

	// PrepareAssetPurchasePayment validates a pending trade, computes the
	// commission breakdown, builds one unsigned transfer per payout leg and
	// moves the trade to pending_payment.
	PrepareAssetPurchasePayment(ctx context.Context, tradeID int64) (*PaymentInstructions, error)

	// ConfirmAssetPurchasePayment completes a paid trade. Re-confirming with
	// the same hash is a no-op success. Supply and holding updates happen in
	// the same DB transaction as the status write; commission record creation
	// afterwards is best-effort.
	ConfirmAssetPurchasePayment(ctx context.Context, tradeID int64, txHash string) (*ConfirmResult, error)

	// ProcessAssetPublicationPayment handles the one-off publication fee of an
	// asset. With an empty txHash it prepares the unsigned transfer to the
	// platform address; with a hash it verifies the payment on chain and marks
	// the asset payment_confirmed and approved.
	ProcessAssetPublicationPayment(ctx context.Context, assetID int64, payerAddress string, amount float64, txHash string) (*PublicationPayment, error)
}

// PaymentInstructions is what the buyer's wallet needs to settle a trade.
type PaymentInstructions struct {
	TradeID   int64                      `json:"trade_id"`
	Total     float64                    `json:"total"`
	Currency  string                     `json:"currency"`
	Breakdown domain.CommissionBreakdown `json:"commission_breakdown"`
	Transfers []domain.UnsignedTransfer  `json:"transfers"`
}

// ConfirmResult is the outcome of a confirmation attempt.
type ConfirmResult struct {
	TradeID          int64                       `json:"trade_id"`
	Status           domain.TradeStatus          `json:"status"`
	TxHash           string                      `json:"tx_hash"`
	Breakdown        *domain.CommissionBreakdown `json:"commission_breakdown,omitempty"`
	AlreadyConfirmed bool                        `json:"already_confirmed"`
}

// PublicationPayment is the two-phase publication fee response: a transfer to
// sign on the first call, a confirmation outcome on the second.
type PublicationPayment struct {
	AssetID   int64                    `json:"asset_id"`
	Status    domain.AssetStatus       `json:"status"`
	Confirmed bool                     `json:"confirmed"`
	Transfer  *domain.UnsignedTransfer `json:"transfer,omitempty"`
}
