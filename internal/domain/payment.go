package domain

import "time"

type PaymentType string

const (
	PaymentTypeWithdrawal  PaymentType = "withdrawal"
	PaymentTypeRefund      PaymentType = "refund"
	PaymentTypeCommission  PaymentType = "commission"
	PaymentTypeDividend    PaymentType = "dividend"
	PaymentTypePlatformFee PaymentType = "platform_fee"
)

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusCancelled  PaymentStatus = "cancelled"
)

type PaymentPriority string

const (
	PaymentPriorityLow    PaymentPriority = "low"
	PaymentPriorityNormal PaymentPriority = "normal"
	PaymentPriorityHigh   PaymentPriority = "high"
	PaymentPriorityUrgent PaymentPriority = "urgent"
)

// PendingPayment is one entry of the manually settled payout queue. An admin
// moves it pending -> processing -> completed/failed; nothing here is automated.
type PendingPayment struct {
	ID               int64           `json:"id"`
	PaymentType      PaymentType     `json:"payment_type"`
	Title            string          `json:"title"`
	Description      string          `json:"description,omitempty"`
	Amount           float64         `json:"amount"`
	TokenSymbol      string          `json:"token_symbol"`
	RecipientAddress string          `json:"recipient_address"`
	RecipientName    string          `json:"recipient_name,omitempty"`
	AssetID          *int64          `json:"asset_id,omitempty"`
	TradeID          *int64          `json:"trade_id,omitempty"`
	ReferenceID      string          `json:"reference_id,omitempty"`
	Status           PaymentStatus   `json:"status"`
	Priority         PaymentPriority `json:"priority"`
	TxHash           string          `json:"tx_hash,omitempty"`
	ProcessedBy      string          `json:"processed_by,omitempty"`
	ProcessedAt      *time.Time      `json:"processed_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}
