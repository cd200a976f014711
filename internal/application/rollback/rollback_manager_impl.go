package rollback

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/brickmint/rws/internal/application/consistency"
	"github.com/brickmint/rws/internal/domain"
	"github.com/brickmint/rws/internal/repositories/assetrepo"
	"github.com/brickmint/rws/internal/repositories/commissionrepo"
	"github.com/brickmint/rws/internal/repositories/traderepo"
)

type rollbackManager struct {
	assetRepo      assetrepo.IAssetRepository
	tradeRepo      traderepo.ITradeRepository
	commissionRepo commissionrepo.ICommissionRepository
	consistency    consistency.IConsistencyManager
	logger         zerolog.Logger

	mu    sync.Mutex
	plans map[string]*domain.RollbackPlan
}

func New(
	assetRepo assetrepo.IAssetRepository,
	tradeRepo traderepo.ITradeRepository,
	commissionRepo commissionrepo.ICommissionRepository,
	consistencyMgr consistency.IConsistencyManager,
	logger zerolog.Logger,
) IRollbackManager {
	return &rollbackManager{
		assetRepo:      assetRepo,
		tradeRepo:      tradeRepo,
		commissionRepo: commissionRepo,
		consistency:    consistencyMgr,
		logger:         logger,
		plans:          make(map[string]*domain.RollbackPlan),
	}
}

func (m *rollbackManager) CreateRollbackPlan(ctx context.Context, tradeID int64, reason domain.RollbackReason) (*domain.RollbackPlan, error) {
	trade, err := m.tradeRepo.GetByID(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if trade == nil {
		return nil, fmt.Errorf("%w: %d", domain.ErrTradeNotFound, tradeID)
	}

	plan := &domain.RollbackPlan{
		TransactionID: uuid.New().String(),
		TradeID:       tradeID,
		Reason:        reason,
		CreatedAt:     time.Now().UTC(),
	}

	plan.Actions = append(plan.Actions, domain.RollbackAction{
		Type:     domain.RollbackActionTradeStatus,
		TargetID: tradeID,
		Original: map[string]interface{}{"status": string(trade.Status), "tx_hash": trade.TxHash},
		Target:   map[string]interface{}{"status": string(domain.TradeStatusFailed), "error": string(reason)},
	})

	// Supply and holdings only move at confirmation, so only completed trades
	// need them compensated.
	if trade.Status == domain.TradeStatusCompleted && trade.AssetID != nil && trade.Type == domain.TradeTypeBuy {
		plan.Actions = append(plan.Actions, domain.RollbackAction{
			Type:     domain.RollbackActionAssetSupply,
			TargetID: *trade.AssetID,
			Original: map[string]interface{}{"trade_amount": trade.Amount},
			Target:   map[string]interface{}{"restore": trade.Amount},
		})
		plan.Actions = append(plan.Actions, domain.RollbackAction{
			Type:     domain.RollbackActionUserHolding,
			TargetID: *trade.AssetID,
			Original: map[string]interface{}{"user": trade.TraderAddress},
			Target:   map[string]interface{}{"subtract": trade.Amount},
		})
	}

	plan.Actions = append(plan.Actions, domain.RollbackAction{
		Type:     domain.RollbackActionCommissions,
		TargetID: tradeID,
	})

	m.mu.Lock()
	m.plans[plan.TransactionID] = plan
	m.mu.Unlock()

	m.logger.Info().
		Str("transaction_id", plan.TransactionID).
		Int64("trade_id", tradeID).
		Str("reason", string(reason)).
		Int("actions", len(plan.Actions)).
		Msg("Rollback plan created")
	return plan, nil
}

// clonePlan copies a plan together with its actions so one goroutine can
// mutate the copy while History keeps reading the stored one.
func clonePlan(p *domain.RollbackPlan) *domain.RollbackPlan {
	cp := *p
	cp.Actions = append([]domain.RollbackAction(nil), p.Actions...)
	return &cp
}

func (m *rollbackManager) ExecuteRollback(ctx context.Context, transactionID string) (*domain.RollbackPlan, error) {
	m.mu.Lock()
	stored, ok := m.plans[transactionID]
	var plan *domain.RollbackPlan
	if ok {
		plan = clonePlan(stored)
	}
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrRollbackPlanMissing, transactionID)
	}

	trade, err := m.tradeRepo.GetByID(ctx, plan.TradeID)
	if err != nil {
		return nil, err
	}
	if trade == nil {
		return nil, fmt.Errorf("%w: %d", domain.ErrTradeNotFound, plan.TradeID)
	}

	success := true
	for i := range plan.Actions {
		action := &plan.Actions[i]
		if err := m.executeAction(ctx, trade, plan, action); err != nil {
			action.Error = err.Error()
			success = false
			m.logger.Error().Err(err).
				Str("transaction_id", transactionID).
				Str("action", string(action.Type)).
				Msg("Rollback action failed, continuing")
			continue
		}
		action.Executed = true
	}

	now := time.Now().UTC()
	plan.ExecutedAt = &now
	plan.Success = success
	if !success {
		plan.Error = "one or more rollback actions failed"
	}

	m.mu.Lock()
	m.plans[transactionID] = plan
	m.mu.Unlock()

	m.logger.Info().
		Str("transaction_id", transactionID).
		Int64("trade_id", plan.TradeID).
		Bool("success", success).
		Msg("Rollback executed")
	return plan, nil
}

func (m *rollbackManager) executeAction(ctx context.Context, trade *domain.Trade, plan *domain.RollbackPlan, action *domain.RollbackAction) error {
	switch action.Type {
	case domain.RollbackActionTradeStatus:
		// Written directly, outside the forward transition table: a rollback is
		// the one path allowed to pull a completed trade back to failed.
		clearHash := ""
		msg := fmt.Sprintf("rolled back: %s", plan.Reason)
		return m.tradeRepo.UpdateStatus(ctx, trade.ID, traderepo.StatusUpdate{
			Status:       domain.TradeStatusFailed,
			TxHash:       &clearHash,
			ErrorMessage: &msg,
		})

	case domain.RollbackActionAssetSupply:
		// Row lock so a confirmation settling against the same asset cannot
		// interleave with the restore.
		tx, err := m.assetRepo.BeginTx(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		asset, err := m.assetRepo.GetByIDForUpdate(ctx, tx, action.TargetID)
		if err != nil {
			return err
		}
		if asset == nil {
			return fmt.Errorf("%w: %d", domain.ErrAssetNotFound, action.TargetID)
		}
		restored := asset.RemainingSupply + trade.Amount
		if restored > asset.TokenSupply {
			restored = asset.TokenSupply
		}
		if err := m.assetRepo.UpdateRemainingSupplyTx(ctx, tx, asset.ID, restored); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		m.consistency.InvalidateAssetCache(ctx, asset.ID)
		return nil

	case domain.RollbackActionUserHolding:
		return m.tradeRepo.SubtractHolding(ctx, trade.TraderAddress, action.TargetID, trade.Amount)

	case domain.RollbackActionCommissions:
		deleted, err := m.commissionRepo.DeleteByTradeID(ctx, trade.ID)
		if err != nil {
			return err
		}
		if deleted > 0 {
			m.logger.Info().Int64("trade_id", trade.ID).Int64("deleted", deleted).Msg("Commission records removed")
		}
		return nil

	default:
		return fmt.Errorf("unknown rollback action type: %s", action.Type)
	}
}

func (m *rollbackManager) RollbackTrade(ctx context.Context, tradeID int64, reason domain.RollbackReason) (*domain.RollbackPlan, error) {
	plan, err := m.CreateRollbackPlan(ctx, tradeID, reason)
	if err != nil {
		return nil, err
	}
	return m.ExecuteRollback(ctx, plan.TransactionID)
}

func (m *rollbackManager) AutoRollbackStuckTrades(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	stuck, err := m.tradeRepo.ListStuck(ctx, []domain.TradeStatus{
		domain.TradeStatusPending,
		domain.TradeStatusPendingPayment,
		domain.TradeStatusProcessing,
	}, cutoff)
	if err != nil {
		return 0, err
	}

	rolled := 0
	for _, trade := range stuck {
		plan, err := m.RollbackTrade(ctx, trade.ID, domain.RollbackReasonTimeout)
		if err != nil {
			m.logger.Error().Err(err).Int64("trade_id", trade.ID).Msg("Auto-rollback failed")
			continue
		}
		if plan.Success {
			rolled++
		}
	}

	if len(stuck) > 0 {
		m.logger.Info().
			Int("stuck", len(stuck)).
			Int("rolled_back", rolled).
			Dur("max_age", maxAge).
			Msg("Stuck trade sweep finished")
	}
	return rolled, nil
}

func (m *rollbackManager) History(limit int) []domain.RollbackPlan {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.RollbackPlan, 0, len(m.plans))
	for _, p := range m.plans {
		out = append(out, *clonePlan(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

func (m *rollbackManager) Cleanup(olderThan time.Duration) int {
	cutoff := time.Now().UTC().Add(-olderThan)
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, p := range m.plans {
		if p.CreatedAt.Before(cutoff) {
			delete(m.plans, id)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Debug().Int("removed", removed).Msg("Expired rollback plans dropped")
	}
	return removed
}
