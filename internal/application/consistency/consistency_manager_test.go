package consistency

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brickmint/rws/internal/domain"
	"github.com/brickmint/rws/internal/infrastructure/cache"
	"github.com/brickmint/rws/internal/repositories/stub"
)

const traderAddr = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

type fixture struct {
	assets *stub.AssetRepo
	trades *stub.TradeRepo
	chain  *stub.ChainClient
	cache  *cache.MemoryCache
	mgr    IConsistencyManager
}

func newFixture() *fixture {
	f := &fixture{
		assets: stub.NewAssetRepo(),
		trades: stub.NewTradeRepo(),
		chain:  stub.NewChainClient(),
		cache:  cache.NewMemoryCache(),
	}
	f.mgr = New(f.assets, f.trades, f.chain, f.cache, time.Minute, zerolog.Nop())
	return f
}

func (f *fixture) seedAsset(remaining int64) *domain.Asset {
	return f.assets.Put(&domain.Asset{
		Name:            "Harbor Tower",
		TokenSymbol:     "HTWR",
		TokenPrice:      100,
		TokenSupply:     1000,
		RemainingSupply: remaining,
		TokenAddress:    "4Nd1mYvJ6ZbVpGvS61aqzo5ySKF5FbWkUc3vQ2kZQiGt",
		Status:          domain.AssetStatusApproved,
	})
}

func TestUpdateAssetAfterTrade(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	asset := f.seedAsset(1000)

	buy := f.trades.Put(&domain.Trade{
		AssetID:       &asset.ID,
		TraderAddress: traderAddr,
		Type:          domain.TradeTypeBuy,
		Amount:        100,
		Status:        domain.TradeStatusCompleted,
	})
	require.NoError(t, f.mgr.UpdateAssetAfterTrade(ctx, buy.ID))

	after, err := f.assets.GetByID(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(900), after.RemainingSupply)

	sell := f.trades.Put(&domain.Trade{
		AssetID:       &asset.ID,
		TraderAddress: traderAddr,
		Type:          domain.TradeTypeSell,
		Amount:        50,
		Status:        domain.TradeStatusCompleted,
	})
	require.NoError(t, f.mgr.UpdateAssetAfterTrade(ctx, sell.ID))

	after, err = f.assets.GetByID(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(950), after.RemainingSupply)
}

func TestUpdateAssetAfterTradeClampsSupply(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	asset := f.seedAsset(30)

	// Buying more than remains clamps at zero rather than going negative.
	over := f.trades.Put(&domain.Trade{
		AssetID:       &asset.ID,
		TraderAddress: traderAddr,
		Type:          domain.TradeTypeBuy,
		Amount:        100,
		Status:        domain.TradeStatusCompleted,
	})
	require.NoError(t, f.mgr.UpdateAssetAfterTrade(ctx, over.ID))

	after, err := f.assets.GetByID(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), after.RemainingSupply)

	// Selling past the full supply clamps at token_supply.
	back := f.trades.Put(&domain.Trade{
		AssetID:       &asset.ID,
		TraderAddress: traderAddr,
		Type:          domain.TradeTypeSell,
		Amount:        5000,
		Status:        domain.TradeStatusCompleted,
	})
	require.NoError(t, f.mgr.UpdateAssetAfterTrade(ctx, back.ID))

	after, err = f.assets.GetByID(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), after.RemainingSupply)
}

func TestUpdateAssetAfterTradeMissingTrade(t *testing.T) {
	f := newFixture()
	err := f.mgr.UpdateAssetAfterTrade(context.Background(), 404)
	assert.ErrorIs(t, err, domain.ErrTradeNotFound)
}

func TestAccurateRemainingSupplyRepairsDrift(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	asset := f.seedAsset(1000) // stored value never saw the trades below

	f.trades.Put(&domain.Trade{
		AssetID: &asset.ID, TraderAddress: traderAddr,
		Type: domain.TradeTypeBuy, Amount: 300, Status: domain.TradeStatusCompleted,
	})
	f.trades.Put(&domain.Trade{
		AssetID: &asset.ID, TraderAddress: traderAddr,
		Type: domain.TradeTypeSell, Amount: 100, Status: domain.TradeStatusCompleted,
	})
	// Non-completed trades never count.
	f.trades.Put(&domain.Trade{
		AssetID: &asset.ID, TraderAddress: traderAddr,
		Type: domain.TradeTypeBuy, Amount: 500, Status: domain.TradeStatusPendingPayment,
	})

	got, err := f.mgr.AccurateRemainingSupply(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(800), got)

	stored, err := f.assets.GetByID(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(800), stored.RemainingSupply)
}

func TestGetRealTimeAssetDataCaches(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	asset := f.seedAsset(1000)
	f.trades.Put(&domain.Trade{
		AssetID: &asset.ID, TraderAddress: traderAddr,
		Type: domain.TradeTypeBuy, Amount: 100, Total: 10000, Status: domain.TradeStatusCompleted,
	})

	data, err := f.mgr.GetRealTimeAssetData(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(900), data.Asset.RemainingSupply)
	assert.Equal(t, int64(1), data.Stats.TotalTrades)
	assert.InDelta(t, 10000, data.Stats.TotalVolume, 1e-9)

	// Second read is served from cache: a new trade is not visible yet.
	f.trades.Put(&domain.Trade{
		AssetID: &asset.ID, TraderAddress: traderAddr,
		Type: domain.TradeTypeBuy, Amount: 100, Total: 10000, Status: domain.TradeStatusCompleted,
	})
	cached, err := f.mgr.GetRealTimeAssetData(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cached.Stats.TotalTrades)

	// Invalidation makes the next read rebuild.
	f.mgr.InvalidateAssetCache(ctx, asset.ID)
	fresh, err := f.mgr.GetRealTimeAssetData(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fresh.Stats.TotalTrades)
	assert.Equal(t, int64(800), fresh.Asset.RemainingSupply)
}

func TestValidateAssetConsistency(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	asset := f.seedAsset(1000)

	f.trades.Put(&domain.Trade{
		AssetID: &asset.ID, TraderAddress: traderAddr,
		Type: domain.TradeTypeBuy, Amount: 200, Status: domain.TradeStatusCompleted,
	})
	lagging := f.trades.Put(&domain.Trade{
		AssetID:       &asset.ID,
		TraderAddress: traderAddr,
		Type:          domain.TradeTypeBuy,
		Amount:        10,
		Status:        domain.TradeStatusPendingConfirmation,
		TxHash:        "alreadyconfirmedhashlongenoughtobeplausible12",
	})
	f.chain.Confirm(lagging.TxHash)

	report, err := f.mgr.ValidateAssetConsistency(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, report.IssuesFound)

	var kinds []string
	for _, issue := range report.Issues {
		kinds = append(kinds, issue.Type)
	}
	assert.Contains(t, kinds, "remaining_supply_mismatch")
	assert.Contains(t, kinds, "trade_status_outdated")

	// The supply issue is repaired in place.
	stored, err := f.assets.GetByID(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(800), stored.RemainingSupply)
}

func TestValidateAssetConsistencyCleanAsset(t *testing.T) {
	f := newFixture()
	report, err := f.mgr.ValidateAssetConsistency(context.Background(), f.seedAsset(1000).ID)
	require.NoError(t, err)
	assert.Zero(t, report.IssuesFound)
}
