package syncservice

import "context"

// ISyncService is the background reconciliation loop: it polls the chain for
// pending trade confirmations, repairs asset supply drift and sweeps stuck
// trades, each job at its own cadence off a shared tick.
type ISyncService interface {
	// Start blocks until ctx is cancelled, driving the jobs from one ticker.
	Start(ctx context.Context) error

	// The individual jobs, also callable directly (admin endpoints, tests).
	SyncPendingTrades(ctx context.Context) error
	SyncDeployedAssets(ctx context.Context) error
	ConsistencySweep(ctx context.Context) error
}
