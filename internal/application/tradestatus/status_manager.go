package tradestatus

import (
	"context"

	"github.com/brickmint/rws/internal/domain"
)

// Change carries the context of a status move for the audit trail.
type Change struct {
	Reason       string
	TxHash       string
	ErrorMessage string
}

// Notifier receives status changes for live subscribers. Implementations must
// not block; a nil notifier disables broadcasting.
type Notifier interface {
	NotifyTradeStatus(trade *domain.Trade, from, to domain.TradeStatus)
}

// IStatusManager guards every trade status move behind the transition table
// and keeps the per-trade history inside payment_details current.
type IStatusManager interface {
	// UpdateTradeStatus validates the move, appends the history record and
	// writes the new status in one transaction. Side effects (supply update on
	// completed, rollback on failed, cleanup on expired) run after the commit
	// and never fail the status write.
	UpdateTradeStatus(ctx context.Context, tradeID int64, newStatus domain.TradeStatus, change Change) error

	// GetRealTimeTradeStatus assembles the live status view: history, current
	// state, the trade and asset rows and an estimated completion time.
	GetRealTimeTradeStatus(ctx context.Context, tradeID int64) (*domain.TradeStatusInfo, error)
}
