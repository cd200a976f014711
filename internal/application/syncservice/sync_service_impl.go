package syncservice

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/brickmint/rws/internal/application/consistency"
	"github.com/brickmint/rws/internal/application/rollback"
	"github.com/brickmint/rws/internal/application/tradestatus"
	"github.com/brickmint/rws/internal/domain"
	"github.com/brickmint/rws/internal/infrastructure/rpc"
	"github.com/brickmint/rws/internal/repositories/assetrepo"
	"github.com/brickmint/rws/internal/repositories/traderepo"
	"github.com/brickmint/rws/pkg/config"
)

type syncService struct {
	tradeRepo   traderepo.ITradeRepository
	assetRepo   assetrepo.IAssetRepository
	chainClient rpc.IChainClient
	statusMgr   tradestatus.IStatusManager
	consistency consistency.IConsistencyManager
	rollback    rollback.IRollbackManager
	cfg         config.SettlementConfig
	logger      zerolog.Logger

	lastRun map[string]time.Time
}

func New(
	tradeRepo traderepo.ITradeRepository,
	assetRepo assetrepo.IAssetRepository,
	chainClient rpc.IChainClient,
	statusMgr tradestatus.IStatusManager,
	consistencyMgr consistency.IConsistencyManager,
	rollbackMgr rollback.IRollbackManager,
	cfg config.SettlementConfig,
	logger zerolog.Logger,
) ISyncService {
	return &syncService{
		tradeRepo:   tradeRepo,
		assetRepo:   assetRepo,
		chainClient: chainClient,
		statusMgr:   statusMgr,
		consistency: consistencyMgr,
		rollback:    rollbackMgr,
		cfg:         cfg,
		logger:      logger,
		lastRun:     make(map[string]time.Time),
	}
}

func (s *syncService) Start(ctx context.Context) error {
	s.logger.Info().
		Dur("tick", s.cfg.SyncTick).
		Dur("trade_interval", s.cfg.TradeSyncInterval).
		Dur("asset_interval", s.cfg.AssetSyncInterval).
		Dur("consistency_interval", s.cfg.ConsistencyInterval).
		Msg("Starting blockchain sync service")

	ticker := time.NewTicker(s.cfg.SyncTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Blockchain sync service stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runDue(ctx, "trades", s.cfg.TradeSyncInterval, s.SyncPendingTrades)
			s.runDue(ctx, "assets", s.cfg.AssetSyncInterval, s.SyncDeployedAssets)
			s.runDue(ctx, "consistency", s.cfg.ConsistencyInterval, s.ConsistencySweep)
		}
	}
}

// runDue fires the job when its interval has elapsed since its last run.
func (s *syncService) runDue(ctx context.Context, name string, interval time.Duration, job func(context.Context) error) {
	if time.Since(s.lastRun[name]) < interval {
		return
	}
	s.lastRun[name] = time.Now()
	if err := job(ctx); err != nil {
		s.logger.Error().Err(err).Str("job", name).Msg("Sync job failed")
	}
}

func (s *syncService) SyncPendingTrades(ctx context.Context) error {
	const limit = 100
	var lastID int64
	checked, completed, failed := 0, 0, 0

	for {
		trades, err := s.tradeRepo.ListByStatusWithHash(ctx, []domain.TradeStatus{
			domain.TradeStatusPendingConfirmation,
			domain.TradeStatusProcessing,
		}, limit, lastID)
		if err != nil {
			return fmt.Errorf("failed to load pending trades: %w", err)
		}
		if len(trades) == 0 {
			break
		}

		for _, trade := range trades {
			checked++
			status, err := s.chainClient.CheckTransaction(ctx, trade.TxHash)
			if err != nil {
				// Not yet confirmed as far as this pass is concerned; the next
				// run checks again.
				s.logger.Warn().Err(err).
					Int64("trade_id", trade.ID).
					Str("tx_hash", trade.TxHash).
					Msg("Chain check failed, will retry")
				continue
			}
			switch {
			case status.Error != "":
				if err := s.statusMgr.UpdateTradeStatus(ctx, trade.ID, domain.TradeStatusFailed, tradestatus.Change{
					Reason:       "transaction failed on chain",
					ErrorMessage: status.Error,
				}); err != nil {
					s.logger.Error().Err(err).Int64("trade_id", trade.ID).Msg("Failed to mark trade failed")
					continue
				}
				failed++
			case status.Confirmed:
				if err := s.statusMgr.UpdateTradeStatus(ctx, trade.ID, domain.TradeStatusCompleted, tradestatus.Change{
					Reason: "confirmed on chain",
					TxHash: trade.TxHash,
				}); err != nil {
					s.logger.Error().Err(err).Int64("trade_id", trade.ID).Msg("Failed to complete confirmed trade")
					continue
				}
				completed++
			}
		}

		if len(trades) < limit {
			break
		}
		lastID = trades[len(trades)-1].ID
	}

	if checked > 0 {
		s.logger.Info().
			Int("checked", checked).
			Int("completed", completed).
			Int("failed", failed).
			Msg("Pending trade sync finished")
	}
	return nil
}

func (s *syncService) SyncDeployedAssets(ctx context.Context) error {
	assets, err := s.assetRepo.ListDeployed(ctx)
	if err != nil {
		return fmt.Errorf("failed to list deployed assets: %w", err)
	}

	for _, asset := range assets {
		if _, err := s.consistency.AccurateRemainingSupply(ctx, asset.ID); err != nil {
			s.logger.Error().Err(err).Int64("asset_id", asset.ID).Msg("Supply reconciliation failed")
		}
	}

	if len(assets) > 0 {
		s.logger.Debug().Int("assets", len(assets)).Msg("Deployed asset sync finished")
	}
	return nil
}

func (s *syncService) ConsistencySweep(ctx context.Context) error {
	rolled, err := s.rollback.AutoRollbackStuckTrades(ctx, s.cfg.TransactionTimeout)
	if err != nil {
		return fmt.Errorf("stuck trade sweep failed: %w", err)
	}
	if rolled > 0 {
		s.logger.Warn().Int("rolled_back", rolled).Msg("Stuck trades rolled back")
	}
	s.rollback.Cleanup(rollback.PlanRetention)
	return nil
}
