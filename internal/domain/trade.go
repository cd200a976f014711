package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type TradeType string

const (
	TradeTypeBuy  TradeType = "buy"
	TradeTypeSell TradeType = "sell"
)

type TradeStatus string

const (
	TradeStatusPending             TradeStatus = "pending"
	TradeStatusPendingPayment      TradeStatus = "pending_payment"
	TradeStatusPendingConfirmation TradeStatus = "pending_confirmation"
	TradeStatusProcessing          TradeStatus = "processing"
	TradeStatusCompleted           TradeStatus = "completed"
	TradeStatusFailed              TradeStatus = "failed"
	TradeStatusCancelled           TradeStatus = "cancelled"
	TradeStatusExpired             TradeStatus = "expired"
)

// tradeTransitions is the only source of truth for legal status moves.
// Completed and cancelled are terminal; failed and expired may retry to pending.
var tradeTransitions = map[TradeStatus][]TradeStatus{
	TradeStatusPending: {
		TradeStatusPendingPayment,
		TradeStatusFailed,
		TradeStatusCancelled,
	},
	TradeStatusPendingPayment: {
		TradeStatusPendingConfirmation,
		TradeStatusProcessing,
		TradeStatusFailed,
		TradeStatusCancelled,
		TradeStatusExpired,
	},
	TradeStatusPendingConfirmation: {
		TradeStatusCompleted,
		TradeStatusFailed,
		TradeStatusExpired,
	},
	TradeStatusProcessing: {
		TradeStatusCompleted,
		TradeStatusFailed,
	},
	TradeStatusCompleted: {},
	TradeStatusFailed:    {TradeStatusPending},
	TradeStatusCancelled: {},
	TradeStatusExpired:   {TradeStatusPending},
}

// CanTransition reports whether moving from s to next is allowed.
func (s TradeStatus) CanTransition(next TradeStatus) bool {
	for _, allowed := range tradeTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the status has no outgoing transitions at all.
func (s TradeStatus) Terminal() bool {
	return len(tradeTransitions[s]) == 0
}

// ValidateTransition returns ErrInvalidTransition when the move is not in the table.
func ValidateTransition(from, to TradeStatus) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// Trade is a single buy/sell order. AssetID is nullable to allow
// platform-fee-only trades with no underlying asset.
type Trade struct {
	ID             int64           `json:"id"`
	AssetID        *int64          `json:"asset_id,omitempty"`
	TraderAddress  string          `json:"trader_address"`
	Type           TradeType       `json:"type"`
	Amount         int64           `json:"amount"`
	Price          float64         `json:"price"`
	Total          float64         `json:"total"`
	Fee            float64         `json:"fee"`
	Status         TradeStatus     `json:"status"`
	TxHash         string          `json:"tx_hash,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	PaymentDetails json.RawMessage `json:"payment_details,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// StatusChange is one entry of the audit trail stored in PaymentDetails.
type StatusChange struct {
	FromStatus TradeStatus `json:"from_status"`
	ToStatus   TradeStatus `json:"to_status"`
	ChangedAt  time.Time   `json:"changed_at"`
	Reason     string      `json:"reason,omitempty"`
	TxHash     string      `json:"tx_hash,omitempty"`
}

// PaymentDetails is the JSON document kept on a trade row. Unknown keys written
// by earlier versions are preserved through Extra.
type PaymentDetails struct {
	StatusHistory []StatusChange       `json:"status_history,omitempty"`
	CurrentStatus TradeStatus          `json:"current_status,omitempty"`
	Breakdown     *CommissionBreakdown `json:"commission_breakdown,omitempty"`
	Transfers     []TransferRecord     `json:"transfers,omitempty"`
	LastUpdated   time.Time            `json:"last_updated"`

	// Extra holds keys this version does not model, so rewriting the
	// document does not drop them.
	Extra map[string]json.RawMessage `json:"-"`
}

var paymentDetailKeys = []string{
	"status_history", "current_status", "commission_breakdown", "transfers", "last_updated",
}

func (pd *PaymentDetails) UnmarshalJSON(data []byte) error {
	type alias PaymentDetails
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, key := range paymentDetailKeys {
		delete(raw, key)
	}
	if len(raw) > 0 {
		a.Extra = raw
	}
	*pd = PaymentDetails(a)
	return nil
}

func (pd PaymentDetails) MarshalJSON() ([]byte, error) {
	type alias PaymentDetails
	data, err := json.Marshal(alias(pd))
	if err != nil {
		return nil, err
	}
	if len(pd.Extra) == 0 {
		return data, nil
	}
	merged := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for key, value := range pd.Extra {
		if _, ok := merged[key]; !ok {
			merged[key] = value
		}
	}
	return json.Marshal(merged)
}

// TransferRecord is one leg of a settled multi-party payment.
type TransferRecord struct {
	Kind   string  `json:"type"`
	Level  int     `json:"level,omitempty"`
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
	TxHash string  `json:"tx_hash,omitempty"`
}

// DecodePaymentDetails parses the trade's payment details blob, returning an
// empty document when the trade has none yet.
func (t *Trade) DecodePaymentDetails() (PaymentDetails, error) {
	var pd PaymentDetails
	if len(t.PaymentDetails) == 0 {
		return pd, nil
	}
	if err := json.Unmarshal(t.PaymentDetails, &pd); err != nil {
		return pd, fmt.Errorf("failed to decode payment details: %w", err)
	}
	return pd, nil
}

// TradeStatusInfo is the real-time status view served to clients.
type TradeStatusInfo struct {
	TradeID             int64          `json:"trade_id"`
	CurrentStatus       TradeStatus    `json:"current_status"`
	TxHash              string         `json:"tx_hash,omitempty"`
	ErrorMessage        string         `json:"error_message,omitempty"`
	StatusHistory       []StatusChange `json:"status_history"`
	EstimatedCompletion *time.Time     `json:"estimated_completion_time,omitempty"`
	Trade               *Trade         `json:"trade,omitempty"`
	Asset               *Asset         `json:"asset,omitempty"`
}
