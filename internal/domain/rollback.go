package domain

import "time"

type RollbackReason string

const (
	RollbackReasonTransactionFailed   RollbackReason = "transaction_failed"
	RollbackReasonTimeout             RollbackReason = "timeout"
	RollbackReasonInsufficientBalance RollbackReason = "insufficient_balance"
	RollbackReasonNetworkError        RollbackReason = "network_error"
	RollbackReasonValidationError     RollbackReason = "validation_error"
	RollbackReasonUserCancelled       RollbackReason = "user_cancelled"
	RollbackReasonSystemError         RollbackReason = "system_error"
)

type RollbackActionType string

const (
	RollbackActionTradeStatus   RollbackActionType = "update_trade_status"
	RollbackActionAssetSupply   RollbackActionType = "restore_asset_supply"
	RollbackActionUserHolding   RollbackActionType = "subtract_user_holding"
	RollbackActionCommissions   RollbackActionType = "delete_commission_records"
)

// RollbackAction is one compensating write. Original holds the row state at
// plan time, Target what the action writes.
type RollbackAction struct {
	Type     RollbackActionType     `json:"type"`
	TargetID int64                  `json:"target_id"`
	Original map[string]interface{} `json:"original,omitempty"`
	Target   map[string]interface{} `json:"target,omitempty"`
	Executed bool                   `json:"executed"`
	Error    string                 `json:"error,omitempty"`
}

// RollbackPlan is an ordered list of compensating actions for one failed trade.
type RollbackPlan struct {
	TransactionID string           `json:"transaction_id"`
	TradeID       int64            `json:"trade_id"`
	Reason        RollbackReason   `json:"reason"`
	Actions       []RollbackAction `json:"actions"`
	CreatedAt     time.Time        `json:"created_at"`
	ExecutedAt    *time.Time       `json:"executed_at,omitempty"`
	Success       bool             `json:"success"`
	Error         string           `json:"error,omitempty"`
}

// Holding is a user's position in one asset, adjusted on completion and
// compensated on rollback.
type Holding struct {
	ID          int64     `json:"id"`
	UserAddress string    `json:"user_address"`
	AssetID     int64     `json:"asset_id"`
	Quantity    int64     `json:"quantity"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
