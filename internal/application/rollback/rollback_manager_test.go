package rollback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brickmint/rws/internal/application/consistency"
	"github.com/brickmint/rws/internal/domain"
	"github.com/brickmint/rws/internal/infrastructure/cache"
	"github.com/brickmint/rws/internal/repositories/stub"
)

const traderAddr = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

type fixture struct {
	assets      *stub.AssetRepo
	trades      *stub.TradeRepo
	commissions *stub.CommissionRepo
	manager     IRollbackManager
}

func newFixture() *fixture {
	f := &fixture{
		assets:      stub.NewAssetRepo(),
		trades:      stub.NewTradeRepo(),
		commissions: stub.NewCommissionRepo(),
	}
	logger := zerolog.Nop()
	cm := consistency.New(f.assets, f.trades, stub.NewChainClient(), cache.NewMemoryCache(), time.Minute, logger)
	f.manager = New(f.assets, f.trades, f.commissions, cm, logger)
	return f
}

// completedTrade seeds an asset at 900/1000 remaining and a completed buy of
// 100 tokens with its holdings and commission rows.
func (f *fixture) completedTrade(t *testing.T) *domain.Trade {
	t.Helper()
	asset := f.assets.Put(&domain.Asset{
		Name:            "Harbor Tower",
		TokenSymbol:     "HTWR",
		TokenPrice:      100,
		TokenSupply:     1000,
		RemainingSupply: 900,
		TokenAddress:    "4Nd1mYvJ6ZbVpGvS61aqzo5ySKF5FbWkUc3vQ2kZQiGt",
		Status:          domain.AssetStatusApproved,
	})
	trade := f.trades.Put(&domain.Trade{
		AssetID:       &asset.ID,
		TraderAddress: traderAddr,
		Type:          domain.TradeTypeBuy,
		Amount:        100,
		Price:         100,
		Total:         10000,
		Status:        domain.TradeStatusCompleted,
		TxHash:        "somesufficientlylongtransactionhash1234567890",
	})
	require.NoError(t, f.trades.UpsertHoldingTx(context.Background(), nil, traderAddr, asset.ID, 100))
	require.NoError(t, f.commissions.CreateBatch(context.Background(), []domain.CommissionRecord{
		{TradeID: trade.ID, RecipientAddress: traderAddr, Amount: 350, CommissionType: domain.CommissionTypePlatform, Status: domain.CommissionStatusPending},
	}))
	return trade
}

func TestRollbackCompletedTrade(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	trade := f.completedTrade(t)

	plan, err := f.manager.RollbackTrade(ctx, trade.ID, domain.RollbackReasonTransactionFailed)
	require.NoError(t, err)
	assert.True(t, plan.Success)
	require.Len(t, plan.Actions, 4)
	for _, a := range plan.Actions {
		assert.True(t, a.Executed, "action %s not executed", a.Type)
	}

	reverted, err := f.trades.GetByID(ctx, trade.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TradeStatusFailed, reverted.Status)
	assert.Empty(t, reverted.TxHash)
	assert.Contains(t, reverted.ErrorMessage, "rolled back")

	asset, err := f.assets.GetByID(ctx, *trade.AssetID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), asset.RemainingSupply)

	// Supply was restored through the row-locked read, not a plain get.
	assert.Equal(t, 1, f.assets.LockedReads)

	assert.Zero(t, f.trades.Holdings[traderAddr][*trade.AssetID])

	records, err := f.commissions.ListByTradeID(ctx, trade.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestHistoryIsSafeDuringExecution(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	var plans []*domain.RollbackPlan
	for i := 0; i < 20; i++ {
		trade := f.completedTrade(t)
		plan, err := f.manager.CreateRollbackPlan(ctx, trade.ID, domain.RollbackReasonTransactionFailed)
		require.NoError(t, err)
		plans = append(plans, plan)
	}

	// Readers hammer History while plans execute; execution works on a copy
	// and swaps it in under the lock, so readers never see a half-written plan.
	done := make(chan struct{})
	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					for _, p := range f.manager.History(0) {
						if p.ExecutedAt != nil {
							assert.True(t, p.Success || p.Error != "")
						}
					}
				}
			}
		}()
	}

	for _, plan := range plans {
		executed, err := f.manager.ExecuteRollback(ctx, plan.TransactionID)
		require.NoError(t, err)
		assert.True(t, executed.Success)
	}
	close(done)
	wg.Wait()

	executed := 0
	for _, p := range f.manager.History(0) {
		if p.ExecutedAt != nil {
			executed++
			for _, a := range p.Actions {
				assert.True(t, a.Executed)
			}
		}
	}
	assert.Equal(t, len(plans), executed)
}

func TestRollbackPendingTradeSkipsSupply(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	asset := f.assets.Put(&domain.Asset{
		TokenSupply:     1000,
		RemainingSupply: 1000,
		TokenAddress:    "4Nd1mYvJ6ZbVpGvS61aqzo5ySKF5FbWkUc3vQ2kZQiGt",
		Status:          domain.AssetStatusApproved,
	})
	trade := f.trades.Put(&domain.Trade{
		AssetID:       &asset.ID,
		TraderAddress: traderAddr,
		Type:          domain.TradeTypeBuy,
		Amount:        100,
		Status:        domain.TradeStatusPendingPayment,
	})

	plan, err := f.manager.RollbackTrade(ctx, trade.ID, domain.RollbackReasonUserCancelled)
	require.NoError(t, err)
	assert.True(t, plan.Success)
	// A never-confirmed trade only reverts status and clears commissions.
	require.Len(t, plan.Actions, 2)

	after, err := f.assets.GetByID(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), after.RemainingSupply)
}

func TestRollbackContinuesPastFailures(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	trade := f.completedTrade(t)

	f.commissions.Err = assert.AnError
	plan, err := f.manager.RollbackTrade(ctx, trade.ID, domain.RollbackReasonSystemError)
	require.NoError(t, err)
	assert.False(t, plan.Success)
	assert.NotEmpty(t, plan.Error)

	// The failing commission action did not stop the earlier ones.
	reverted, err := f.trades.GetByID(ctx, trade.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TradeStatusFailed, reverted.Status)

	asset, err := f.assets.GetByID(ctx, *trade.AssetID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), asset.RemainingSupply)

	var failed int
	for _, a := range plan.Actions {
		if a.Error != "" {
			failed++
		}
	}
	assert.Equal(t, 1, failed)
}

func TestExecuteUnknownPlan(t *testing.T) {
	f := newFixture()
	_, err := f.manager.ExecuteRollback(context.Background(), "no-such-plan")
	assert.ErrorIs(t, err, domain.ErrRollbackPlanMissing)
}

func TestAutoRollbackStuckTrades(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	stuck := f.trades.Put(&domain.Trade{
		TraderAddress: traderAddr,
		Type:          domain.TradeTypeBuy,
		Amount:        10,
		Status:        domain.TradeStatusPendingPayment,
		TxHash:        "stucktradehashlongenoughtobeplausible12345678",
		CreatedAt:     time.Now().UTC().Add(-2 * time.Hour),
	})
	fresh := f.trades.Put(&domain.Trade{
		TraderAddress: traderAddr,
		Type:          domain.TradeTypeBuy,
		Amount:        10,
		Status:        domain.TradeStatusPendingPayment,
		TxHash:        "freshtradehashlongenoughtobeplausible12345678",
		CreatedAt:     time.Now().UTC(),
	})

	rolled, err := f.manager.AutoRollbackStuckTrades(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, rolled)

	after, err := f.trades.GetByID(ctx, stuck.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TradeStatusFailed, after.Status)

	untouched, err := f.trades.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TradeStatusPendingPayment, untouched.Status)
}

func TestHistoryAndCleanup(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	trade := f.completedTrade(t)

	first, err := f.manager.CreateRollbackPlan(ctx, trade.ID, domain.RollbackReasonTimeout)
	require.NoError(t, err)
	_, err = f.manager.CreateRollbackPlan(ctx, trade.ID, domain.RollbackReasonNetworkError)
	require.NoError(t, err)

	history := f.manager.History(0)
	assert.Len(t, history, 2)
	assert.Len(t, f.manager.History(1), 1)

	// Nothing is old enough to clean yet.
	assert.Zero(t, f.manager.Cleanup(PlanRetention))

	// Everything qualifies with a zero retention window.
	removed := f.manager.Cleanup(-time.Second)
	assert.Equal(t, 2, removed)
	assert.Empty(t, f.manager.History(0))

	_, err = f.manager.ExecuteRollback(ctx, first.TransactionID)
	assert.ErrorIs(t, err, domain.ErrRollbackPlanMissing)
}
