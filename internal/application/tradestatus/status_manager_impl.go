package tradestatus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/brickmint/rws/internal/application/consistency"
	"github.com/brickmint/rws/internal/application/rollback"
	"github.com/brickmint/rws/internal/domain"
	"github.com/brickmint/rws/internal/repositories/assetrepo"
	"github.com/brickmint/rws/internal/repositories/commissionrepo"
	"github.com/brickmint/rws/internal/repositories/traderepo"
)

// Rough confirmation estimates shown to clients while a trade is in flight.
var completionEstimates = map[domain.TradeStatus]time.Duration{
	domain.TradeStatusPending:             5 * time.Minute,
	domain.TradeStatusPendingPayment:      3 * time.Minute,
	domain.TradeStatusPendingConfirmation: 1 * time.Minute,
	domain.TradeStatusProcessing:          1 * time.Minute,
}

type statusManager struct {
	tradeRepo      traderepo.ITradeRepository
	assetRepo      assetrepo.IAssetRepository
	commissionRepo commissionrepo.ICommissionRepository
	consistency    consistency.IConsistencyManager
	rollback       rollback.IRollbackManager
	notifier       Notifier
	logger         zerolog.Logger
}

func New(
	tradeRepo traderepo.ITradeRepository,
	assetRepo assetrepo.IAssetRepository,
	commissionRepo commissionrepo.ICommissionRepository,
	consistencyMgr consistency.IConsistencyManager,
	rollbackMgr rollback.IRollbackManager,
	notifier Notifier,
	logger zerolog.Logger,
) IStatusManager {
	return &statusManager{
		tradeRepo:      tradeRepo,
		assetRepo:      assetRepo,
		commissionRepo: commissionRepo,
		consistency:    consistencyMgr,
		rollback:       rollbackMgr,
		notifier:       notifier,
		logger:         logger,
	}
}

func (m *statusManager) UpdateTradeStatus(ctx context.Context, tradeID int64, newStatus domain.TradeStatus, change Change) error {
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
	from := trade.Status
	if from == newStatus {
		return nil
	}
	if err := domain.ValidateTransition(from, newStatus); err != nil {
		return err
	}

	details, err := trade.DecodePaymentDetails()
	if err != nil {
		m.logger.Warn().Err(err).Int64("trade_id", tradeID).Msg("Unreadable payment details, starting fresh history")
		details = domain.PaymentDetails{}
	}
	now := time.Now().UTC()
	details.StatusHistory = append(details.StatusHistory, domain.StatusChange{
		FromStatus: from,
		ToStatus:   newStatus,
		ChangedAt:  now,
		Reason:     change.Reason,
		TxHash:     change.TxHash,
	})
	details.CurrentStatus = newStatus
	details.LastUpdated = now

	encoded, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode payment details: %w", err)
	}
	update := traderepo.StatusUpdate{Status: newStatus, PaymentDetails: encoded}
	if change.TxHash != "" {
		update.TxHash = &change.TxHash
	}
	if change.ErrorMessage != "" {
		update.ErrorMessage = &change.ErrorMessage
	}
	if err := m.tradeRepo.UpdateStatusTx(ctx, tx, tradeID, update); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit status update: %w", err)
	}

	m.logger.Info().
		Int64("trade_id", tradeID).
		Str("from", string(from)).
		Str("to", string(newStatus)).
		Str("reason", change.Reason).
		Msg("Trade status updated")

	trade.Status = newStatus
	if change.TxHash != "" {
		trade.TxHash = change.TxHash
	}
	m.applySideEffects(ctx, trade, newStatus)

	if m.notifier != nil {
		m.notifier.NotifyTradeStatus(trade, from, newStatus)
	}
	return nil
}

// applySideEffects runs the post-commit consequences of a status move. The
// status write already happened, so failures here only log.
func (m *statusManager) applySideEffects(ctx context.Context, trade *domain.Trade, status domain.TradeStatus) {
	switch status {
	case domain.TradeStatusCompleted:
		if err := m.creditHolding(ctx, trade); err != nil {
			m.logger.Error().Err(err).Int64("trade_id", trade.ID).Msg("Failed to credit holding after completion")
		}
		if err := m.consistency.UpdateAssetAfterTrade(ctx, trade.ID); err != nil {
			m.logger.Error().Err(err).Int64("trade_id", trade.ID).Msg("Failed to update asset supply after completion")
		}

	case domain.TradeStatusFailed:
		if _, err := m.rollback.RollbackTrade(ctx, trade.ID, domain.RollbackReasonTransactionFailed); err != nil {
			m.logger.Error().Err(err).Int64("trade_id", trade.ID).Msg("Rollback after failure did not run")
		}

	case domain.TradeStatusExpired:
		if deleted, err := m.commissionRepo.DeleteByTradeID(ctx, trade.ID); err != nil {
			m.logger.Error().Err(err).Int64("trade_id", trade.ID).Msg("Failed to clean up commissions of expired trade")
		} else if deleted > 0 {
			m.logger.Info().Int64("trade_id", trade.ID).Int64("deleted", deleted).Msg("Expired trade commissions removed")
		}
	}
}

func (m *statusManager) creditHolding(ctx context.Context, trade *domain.Trade) error {
	if trade.AssetID == nil || trade.Type != domain.TradeTypeBuy {
		return nil
	}
	tx, err := m.tradeRepo.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := m.tradeRepo.UpsertHoldingTx(ctx, tx, trade.TraderAddress, *trade.AssetID, trade.Amount); err != nil {
		return err
	}
	return tx.Commit()
}

func (m *statusManager) GetRealTimeTradeStatus(ctx context.Context, tradeID int64) (*domain.TradeStatusInfo, error) {
	trade, err := m.tradeRepo.GetByID(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if trade == nil {
		return nil, fmt.Errorf("%w: %d", domain.ErrTradeNotFound, tradeID)
	}

	details, err := trade.DecodePaymentDetails()
	if err != nil {
		m.logger.Warn().Err(err).Int64("trade_id", tradeID).Msg("Unreadable payment details on status read")
	}

	info := &domain.TradeStatusInfo{
		TradeID:       tradeID,
		CurrentStatus: trade.Status,
		TxHash:        trade.TxHash,
		ErrorMessage:  trade.ErrorMessage,
		StatusHistory: details.StatusHistory,
		Trade:         trade,
	}
	if d, ok := completionEstimates[trade.Status]; ok {
		base := trade.UpdatedAt
		if base.IsZero() {
			base = trade.CreatedAt
		}
		est := base.Add(d)
		info.EstimatedCompletion = &est
	}

	if trade.AssetID != nil {
		asset, err := m.assetRepo.GetByID(ctx, *trade.AssetID)
		if err != nil {
			m.logger.Warn().Err(err).Int64("asset_id", *trade.AssetID).Msg("Failed to load asset for status view")
		} else {
			info.Asset = asset
		}
	}
	return info, nil
}
