package rollback

import (
	"context"
	"time"

	"github.com/brickmint/rws/internal/domain"
)

// IRollbackManager compensates failed or stuck trades. A plan is an ordered
// list of independent writes; execution continues past individual failures and
// the plan as a whole succeeds only when every action did.
type IRollbackManager interface {
	// CreateRollbackPlan diffs the trade's current row state into compensating
	// actions and stores the plan under a fresh transaction ID.
	CreateRollbackPlan(ctx context.Context, tradeID int64, reason domain.RollbackReason) (*domain.RollbackPlan, error)

	// ExecuteRollback applies a stored plan's actions one by one.
	ExecuteRollback(ctx context.Context, transactionID string) (*domain.RollbackPlan, error)

	// RollbackTrade is CreateRollbackPlan followed by ExecuteRollback.
	RollbackTrade(ctx context.Context, tradeID int64, reason domain.RollbackReason) (*domain.RollbackPlan, error)

	// AutoRollbackStuckTrades sweeps trades sitting in pending/pending_payment/
	// processing with a tx hash older than maxAge and rolls each back. Returns
	// how many were rolled back.
	AutoRollbackStuckTrades(ctx context.Context, maxAge time.Duration) (int, error)

	// History returns executed and pending plans, newest first.
	History(limit int) []domain.RollbackPlan

	// Cleanup drops plans older than the retention window, returning how many
	// were removed.
	Cleanup(olderThan time.Duration) int
}

// PlanRetention is how long executed plans stay queryable in memory.
const PlanRetention = 7 * 24 * time.Hour
