package tradestatus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brickmint/rws/internal/application/consistency"
	"github.com/brickmint/rws/internal/application/rollback"
	"github.com/brickmint/rws/internal/domain"
	"github.com/brickmint/rws/internal/infrastructure/cache"
	"github.com/brickmint/rws/internal/repositories/stub"
)

const traderAddr = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) NotifyTradeStatus(trade *domain.Trade, from, to domain.TradeStatus) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, string(from)+"->"+string(to))
}

type fixture struct {
	assets      *stub.AssetRepo
	trades      *stub.TradeRepo
	commissions *stub.CommissionRepo
	notifier    *recordingNotifier
	manager     IStatusManager
}

func newFixture() *fixture {
	f := &fixture{
		assets:      stub.NewAssetRepo(),
		trades:      stub.NewTradeRepo(),
		commissions: stub.NewCommissionRepo(),
		notifier:    &recordingNotifier{},
	}
	logger := zerolog.Nop()
	cm := consistency.New(f.assets, f.trades, stub.NewChainClient(), cache.NewMemoryCache(), time.Minute, logger)
	rb := rollback.New(f.assets, f.trades, f.commissions, cm, logger)
	f.manager = New(f.trades, f.assets, f.commissions, cm, rb, f.notifier, logger)
	return f
}

func (f *fixture) seed(status domain.TradeStatus) (*domain.Asset, *domain.Trade) {
	asset := f.assets.Put(&domain.Asset{
		Name:            "Harbor Tower",
		TokenSymbol:     "HTWR",
		TokenPrice:      100,
		TokenSupply:     1000,
		RemainingSupply: 1000,
		TokenAddress:    "4Nd1mYvJ6ZbVpGvS61aqzo5ySKF5FbWkUc3vQ2kZQiGt",
		Status:          domain.AssetStatusApproved,
	})
	trade := f.trades.Put(&domain.Trade{
		AssetID:       &asset.ID,
		TraderAddress: traderAddr,
		Type:          domain.TradeTypeBuy,
		Amount:        50,
		Price:         100,
		Total:         5000,
		Status:        status,
	})
	return asset, trade
}

func TestUpdateTradeStatusAppendsHistory(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, trade := f.seed(domain.TradeStatusPending)

	err := f.manager.UpdateTradeStatus(ctx, trade.ID, domain.TradeStatusPendingPayment, Change{Reason: "payment prepared"})
	require.NoError(t, err)

	stored, err := f.trades.GetByID(ctx, trade.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TradeStatusPendingPayment, stored.Status)

	details, err := stored.DecodePaymentDetails()
	require.NoError(t, err)
	require.Len(t, details.StatusHistory, 1)
	assert.Equal(t, domain.TradeStatusPending, details.StatusHistory[0].FromStatus)
	assert.Equal(t, "payment prepared", details.StatusHistory[0].Reason)
	assert.Equal(t, domain.TradeStatusPendingPayment, details.CurrentStatus)

	assert.Equal(t, []string{"pending->pending_payment"}, f.notifier.events)
}

func TestUpdateTradeStatusRejectsIllegalMove(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, trade := f.seed(domain.TradeStatusPending)

	err := f.manager.UpdateTradeStatus(ctx, trade.ID, domain.TradeStatusCompleted, Change{})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// Terminal statuses have no way out.
	_, done := f.seed(domain.TradeStatusCompleted)
	err = f.manager.UpdateTradeStatus(ctx, done.ID, domain.TradeStatusPending, Change{})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// Failed may retry back to pending.
	_, failed := f.seed(domain.TradeStatusFailed)
	err = f.manager.UpdateTradeStatus(ctx, failed.ID, domain.TradeStatusPending, Change{Reason: "retry"})
	assert.NoError(t, err)
}

func TestUpdateTradeStatusSameStatusNoOp(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, trade := f.seed(domain.TradeStatusPending)

	require.NoError(t, f.manager.UpdateTradeStatus(ctx, trade.ID, domain.TradeStatusPending, Change{}))
	assert.Empty(t, f.notifier.events)
}

func TestCompletedSideEffects(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	asset, trade := f.seed(domain.TradeStatusProcessing)

	hash := "confirmedtransactionhashlongenough1234567890"
	err := f.manager.UpdateTradeStatus(ctx, trade.ID, domain.TradeStatusCompleted, Change{Reason: "confirmed", TxHash: hash})
	require.NoError(t, err)

	after, err := f.assets.GetByID(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(950), after.RemainingSupply)
	assert.Equal(t, int64(50), f.trades.Holdings[traderAddr][asset.ID])

	stored, err := f.trades.GetByID(ctx, trade.ID)
	require.NoError(t, err)
	assert.Equal(t, hash, stored.TxHash)
}

func TestFailedTriggersRollback(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, trade := f.seed(domain.TradeStatusPendingPayment)
	require.NoError(t, f.commissions.CreateBatch(ctx, []domain.CommissionRecord{
		{TradeID: trade.ID, RecipientAddress: traderAddr, Amount: 1, CommissionType: domain.CommissionTypePlatform},
	}))

	err := f.manager.UpdateTradeStatus(ctx, trade.ID, domain.TradeStatusFailed, Change{ErrorMessage: "wallet rejected"})
	require.NoError(t, err)

	records, err := f.commissions.ListByTradeID(ctx, trade.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestGetRealTimeTradeStatus(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	asset, trade := f.seed(domain.TradeStatusPending)

	require.NoError(t, f.manager.UpdateTradeStatus(ctx, trade.ID, domain.TradeStatusPendingPayment, Change{Reason: "payment prepared"}))

	info, err := f.manager.GetRealTimeTradeStatus(ctx, trade.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TradeStatusPendingPayment, info.CurrentStatus)
	require.Len(t, info.StatusHistory, 1)
	require.NotNil(t, info.EstimatedCompletion)
	assert.True(t, info.EstimatedCompletion.After(time.Now().Add(time.Minute)))
	require.NotNil(t, info.Asset)
	assert.Equal(t, asset.ID, info.Asset.ID)

	_, err = f.manager.GetRealTimeTradeStatus(ctx, trade.ID+99)
	assert.ErrorIs(t, err, domain.ErrTradeNotFound)
}
