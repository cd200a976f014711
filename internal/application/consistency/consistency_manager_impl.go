package consistency

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/brickmint/rws/internal/domain"
	"github.com/brickmint/rws/internal/infrastructure/cache"
	"github.com/brickmint/rws/internal/infrastructure/rpc"
	"github.com/brickmint/rws/internal/repositories/assetrepo"
	"github.com/brickmint/rws/internal/repositories/traderepo"
)

type consistencyManager struct {
	assetRepo   assetrepo.IAssetRepository
	tradeRepo   traderepo.ITradeRepository
	chainClient rpc.IChainClient
	cache       cache.Cache
	cacheTTL    time.Duration
	logger      zerolog.Logger
}

func New(
	assetRepo assetrepo.IAssetRepository,
	tradeRepo traderepo.ITradeRepository,
	chainClient rpc.IChainClient,
	c cache.Cache,
	cacheTTL time.Duration,
	logger zerolog.Logger,
) IConsistencyManager {
	return &consistencyManager{
		assetRepo:   assetRepo,
		tradeRepo:   tradeRepo,
		chainClient: chainClient,
		cache:       c,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

func assetCacheKey(assetID int64) string {
	return fmt.Sprintf("asset_data:%d", assetID)
}

// clampSupply keeps remaining supply inside [0, tokenSupply].
func clampSupply(remaining, tokenSupply int64) int64 {
	if remaining < 0 {
		return 0
	}
	if remaining > tokenSupply {
		return tokenSupply
	}
	return remaining
}

func (m *consistencyManager) UpdateAssetAfterTrade(ctx context.Context, tradeID int64) error {
	tx, err := m.tradeRepo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	trade, err := m.tradeRepo.GetByIDForUpdate(ctx, tx, tradeID)
	if err != nil {
		return err
	}
	if trade == nil {
		return fmt.Errorf("%w: %d", domain.ErrTradeNotFound, tradeID)
	}
	if trade.AssetID == nil {
		// Platform-fee-only trade, nothing to adjust.
		return tx.Commit()
	}

	if err := m.ApplyTradeTx(ctx, tx, trade); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit supply update: %w", err)
	}

	// Invalidated after commit, not transactionally: a concurrent reader can
	// briefly observe the stale cached value.
	m.InvalidateAssetCache(ctx, *trade.AssetID)

	m.logger.Info().
		Int64("trade_id", tradeID).
		Int64("asset_id", *trade.AssetID).
		Msg("Asset supply updated after trade")
	return nil
}

func (m *consistencyManager) ApplyTradeTx(ctx context.Context, tx *sql.Tx, trade *domain.Trade) error {
	if trade.AssetID == nil {
		return nil
	}

	asset, err := m.assetRepo.GetByIDForUpdate(ctx, tx, *trade.AssetID)
	if err != nil {
		return err
	}
	if asset == nil {
		return fmt.Errorf("%w: %d", domain.ErrAssetNotFound, *trade.AssetID)
	}

	var newRemaining int64
	switch trade.Type {
	case domain.TradeTypeBuy:
		newRemaining = asset.RemainingSupply - trade.Amount
	case domain.TradeTypeSell:
		newRemaining = asset.RemainingSupply + trade.Amount
	default:
		return fmt.Errorf("unknown trade type: %s", trade.Type)
	}

	newRemaining = clampSupply(newRemaining, asset.TokenSupply)
	return m.assetRepo.UpdateRemainingSupplyTx(ctx, tx, asset.ID, newRemaining)
}

func (m *consistencyManager) AccurateRemainingSupply(ctx context.Context, assetID int64) (int64, error) {
	asset, err := m.assetRepo.GetByID(ctx, assetID)
	if err != nil {
		return 0, err
	}
	if asset == nil {
		return 0, fmt.Errorf("%w: %d", domain.ErrAssetNotFound, assetID)
	}

	bought, sold, err := m.tradeRepo.CompletedAmounts(ctx, assetID)
	if err != nil {
		return 0, err
	}

	calculated := clampSupply(asset.TokenSupply-bought+sold, asset.TokenSupply)
	if calculated != asset.RemainingSupply {
		m.logger.Warn().
			Int64("asset_id", assetID).
			Int64("stored", asset.RemainingSupply).
			Int64("calculated", calculated).
			Msg("Remaining supply drift detected, repairing")

		if err := m.assetRepo.UpdateRemainingSupply(ctx, assetID, calculated); err != nil {
			return asset.RemainingSupply, err
		}
		m.InvalidateAssetCache(ctx, assetID)
	}

	return calculated, nil
}

func (m *consistencyManager) GetRealTimeAssetData(ctx context.Context, assetID int64) (*domain.AssetData, error) {
	key := assetCacheKey(assetID)
	if cached, ok := m.cache.Get(ctx, key); ok {
		var data domain.AssetData
		if err := json.Unmarshal(cached, &data); err == nil {
			return &data, nil
		}
		// Unreadable entry: drop it and rebuild.
		m.cache.Delete(ctx, key)
	}

	asset, err := m.assetRepo.GetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, fmt.Errorf("%w: %d", domain.ErrAssetNotFound, assetID)
	}

	remaining, err := m.AccurateRemainingSupply(ctx, assetID)
	if err != nil {
		return nil, err
	}
	asset.RemainingSupply = remaining

	stats, err := m.tradeRepo.Stats(ctx, assetID)
	if err != nil {
		return nil, err
	}
	dividends, err := m.assetRepo.SumConfirmedDividends(ctx, assetID)
	if err != nil {
		m.logger.Warn().Err(err).Int64("asset_id", assetID).Msg("Failed to sum dividends for asset data")
	} else {
		stats.TotalDividends = dividends
	}

	data := &domain.AssetData{
		Asset:       *asset,
		Stats:       *stats,
		LastUpdated: time.Now().UTC(),
	}

	if encoded, err := json.Marshal(data); err == nil {
		m.cache.Set(ctx, key, encoded, m.cacheTTL)
	}

	return data, nil
}

func (m *consistencyManager) ValidateAssetConsistency(ctx context.Context, assetID int64) (*Report, error) {
	asset, err := m.assetRepo.GetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, fmt.Errorf("%w: %d", domain.ErrAssetNotFound, assetID)
	}

	report := &Report{
		AssetID:     assetID,
		Issues:      []Issue{},
		ValidatedAt: time.Now().UTC(),
	}

	stored := asset.RemainingSupply
	calculated, err := m.AccurateRemainingSupply(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if stored != calculated {
		report.Issues = append(report.Issues, Issue{
			Type:            "remaining_supply_mismatch",
			DatabaseValue:   stored,
			CalculatedValue: calculated,
			Fixed:           true,
		})
	}

	// Flag trades still marked pending whose hash has already landed on chain.
	pending, err := m.tradeRepo.ListByStatusWithHash(ctx, []domain.TradeStatus{
		domain.TradeStatusPendingConfirmation,
		domain.TradeStatusProcessing,
	}, 200, 0)
	if err != nil {
		return nil, err
	}
	for _, trade := range pending {
		if trade.AssetID == nil || *trade.AssetID != assetID {
			continue
		}
		status, err := m.chainClient.CheckTransaction(ctx, trade.TxHash)
		if err != nil {
			// Treated as not yet confirmed; the next cycle retries.
			m.logger.Warn().Err(err).Int64("trade_id", trade.ID).Msg("Chain check failed during validation")
			continue
		}
		if status.Confirmed {
			report.Issues = append(report.Issues, Issue{
				Type:          "trade_status_outdated",
				TradeID:       trade.ID,
				CurrentStatus: trade.Status,
				ShouldBe:      domain.TradeStatusCompleted,
			})
		}
	}

	report.IssuesFound = len(report.Issues)
	return report, nil
}

func (m *consistencyManager) InvalidateAssetCache(ctx context.Context, assetID int64) {
	m.cache.Delete(ctx, assetCacheKey(assetID))
}
