package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/brickmint/rws/internal/application/consistency"
	"github.com/brickmint/rws/internal/domain"
	"github.com/brickmint/rws/internal/infrastructure/rpc"
	"github.com/brickmint/rws/internal/repositories/assetrepo"
	"github.com/brickmint/rws/internal/repositories/commissionrepo"
	"github.com/brickmint/rws/internal/repositories/paymentrepo"
	"github.com/brickmint/rws/internal/repositories/referralrepo"
	"github.com/brickmint/rws/internal/repositories/traderepo"
	"github.com/brickmint/rws/pkg/config"
	"github.com/brickmint/rws/pkg/currency"
	"github.com/brickmint/rws/pkg/validation"
)

type paymentProcessor struct {
	assetRepo      assetrepo.IAssetRepository
	tradeRepo      traderepo.ITradeRepository
	commissionRepo commissionrepo.ICommissionRepository
	referralRepo   referralrepo.IReferralRepository
	paymentRepo    paymentrepo.IPaymentRepository
	chainClient    rpc.IChainClient
	consistency    consistency.IConsistencyManager

	feeRate         float64
	referralRate    float64
	platformAddress string
	payCurrency     string

	currency *currency.CurrencyUtils
	logger   zerolog.Logger
}

func New(
	assetRepo assetrepo.IAssetRepository,
	tradeRepo traderepo.ITradeRepository,
	commissionRepo commissionrepo.ICommissionRepository,
	referralRepo referralrepo.IReferralRepository,
	paymentRepo paymentrepo.IPaymentRepository,
	chainClient rpc.IChainClient,
	consistencyMgr consistency.IConsistencyManager,
	cfg config.SettlementConfig,
	logger zerolog.Logger,
) IPaymentProcessor {
	return &paymentProcessor{
		assetRepo:       assetRepo,
		tradeRepo:       tradeRepo,
		commissionRepo:  commissionRepo,
		referralRepo:    referralRepo,
		paymentRepo:     paymentRepo,
		chainClient:     chainClient,
		consistency:     consistencyMgr,
		feeRate:         cfg.PlatformFeeRate,
		referralRate:    cfg.ReferralRate,
		platformAddress: cfg.PlatformAddress,
		payCurrency:     cfg.PaymentCurrency,
		currency:        currency.NewCurrencyUtils(),
		logger:          logger,
	}
}

func (p *paymentProcessor) CreatePurchase(ctx context.Context, assetID int64, buyerAddress string, amount int64) (*PaymentInstructions, error) {
	if !validation.IsValidSolanaAddress(buyerAddress) {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidAddress, buyerAddress)
	}
	if !validation.IsPositiveAmount(amount) {
		return nil, domain.ErrInvalidAmount
	}

	asset, err := p.assetRepo.GetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, fmt.Errorf("%w: %d", domain.ErrAssetNotFound, assetID)
	}
	if !asset.Tradable() {
		return nil, fmt.Errorf("%w: asset %d status %s", domain.ErrAssetNotTradable, assetID, asset.Status)
	}
	if asset.RemainingSupply < amount {
		return nil, fmt.Errorf("%w: asset %d has %d, requested %d",
			domain.ErrInsufficientSupply, assetID, asset.RemainingSupply, amount)
	}

	total := p.currency.RoundAmount(float64(amount) * asset.TokenPrice)
	trade := &domain.Trade{
		AssetID:       &asset.ID,
		TraderAddress: buyerAddress,
		Type:          domain.TradeTypeBuy,
		Amount:        amount,
		Price:         asset.TokenPrice,
		Total:         total,
		Fee:           p.currency.RoundAmount(total * p.feeRate),
		Status:        domain.TradeStatusPending,
	}
	tradeID, err := p.tradeRepo.Create(ctx, trade)
	if err != nil {
		return nil, err
	}

	p.logger.Info().
		Int64("trade_id", tradeID).
		Int64("asset_id", assetID).
		Str("buyer", buyerAddress).
		Int64("amount", amount).
		Float64("total", total).
		Msg("Purchase trade created")

	return p.PrepareAssetPurchasePayment(ctx, tradeID)
}

func (p *paymentProcessor) PrepareAssetPurchasePayment(ctx context.Context, tradeID int64) (*PaymentInstructions, error) {
	trade, err := p.tradeRepo.GetByID(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if trade == nil {
		return nil, fmt.Errorf("%w: %d", domain.ErrTradeNotFound, tradeID)
	}
	if trade.Status != domain.TradeStatusPending {
		return nil, fmt.Errorf("%w: trade %d is %s", domain.ErrTradeNotPending, tradeID, trade.Status)
	}
	if trade.AssetID == nil {
		return nil, fmt.Errorf("%w: trade %d has no asset", domain.ErrAssetNotFound, tradeID)
	}

	asset, err := p.assetRepo.GetByID(ctx, *trade.AssetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, fmt.Errorf("%w: %d", domain.ErrAssetNotFound, *trade.AssetID)
	}
	if !asset.Tradable() {
		return nil, fmt.Errorf("%w: asset %d status %s", domain.ErrAssetNotTradable, asset.ID, asset.Status)
	}
	if asset.RemainingSupply < trade.Amount {
		return nil, fmt.Errorf("%w: asset %d has %d, requested %d",
			domain.ErrInsufficientSupply, asset.ID, asset.RemainingSupply, trade.Amount)
	}

	breakdown, err := p.calculateCommissionBreakdown(ctx, trade.TraderAddress, trade.Total)
	if err != nil {
		return nil, err
	}

	transfers, transferRecords, err := p.buildTransferLegs(ctx, trade, asset, breakdown)
	if err != nil {
		return nil, err
	}

	details := domain.PaymentDetails{
		StatusHistory: []domain.StatusChange{{
			FromStatus: domain.TradeStatusPending,
			ToStatus:   domain.TradeStatusPendingPayment,
			ChangedAt:  time.Now().UTC(),
			Reason:     "payment prepared",
		}},
		CurrentStatus: domain.TradeStatusPendingPayment,
		Breakdown:     breakdown,
		Transfers:     transferRecords,
		LastUpdated:   time.Now().UTC(),
	}
	encoded, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payment details: %w", err)
	}

	if err := p.tradeRepo.UpdateStatus(ctx, tradeID, traderepo.StatusUpdate{
		Status:         domain.TradeStatusPendingPayment,
		PaymentDetails: encoded,
	}); err != nil {
		return nil, err
	}

	p.logger.Info().
		Int64("trade_id", tradeID).
		Float64("seller_amount", breakdown.SellerAmount).
		Float64("platform_fee", breakdown.PlatformFee).
		Int("referral_levels", len(breakdown.ReferralCommissions)).
		Msg("Payment prepared")

	return &PaymentInstructions{
		TradeID:   tradeID,
		Total:     trade.Total,
		Currency:  p.payCurrency,
		Breakdown: *breakdown,
		Transfers: transfers,
	}, nil
}

// buildTransferLegs asks the chain client for one unsigned transfer per payout
// recipient: seller, platform, then each referral level.
func (p *paymentProcessor) buildTransferLegs(ctx context.Context, trade *domain.Trade, asset *domain.Asset, breakdown *domain.CommissionBreakdown) ([]domain.UnsignedTransfer, []domain.TransferRecord, error) {
	type leg struct {
		kind   string
		level  int
		to     string
		amount float64
	}
	legs := []leg{
		{kind: "seller", to: asset.OwnerAddress, amount: breakdown.SellerAmount},
		{kind: "platform_fee", to: p.platformAddress, amount: breakdown.PlatformFee},
	}
	for _, rc := range breakdown.ReferralCommissions {
		legs = append(legs, leg{kind: "referral", level: rc.Level, to: rc.ReferrerAddress, amount: rc.CommissionAmount})
	}

	var (
		transfers []domain.UnsignedTransfer
		records   []domain.TransferRecord
	)
	for _, l := range legs {
		if l.amount <= 0 {
			continue
		}
		t, err := p.chainClient.PrepareTransferTransaction(ctx, p.payCurrency, trade.TraderAddress, l.to, l.amount)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to prepare %s transfer: %w", l.kind, err)
		}
		transfers = append(transfers, *t)
		records = append(records, domain.TransferRecord{
			Kind:   l.kind,
			Level:  l.level,
			From:   trade.TraderAddress,
			To:     l.to,
			Amount: l.amount,
		})
	}
	return transfers, records, nil
}

func (p *paymentProcessor) ConfirmAssetPurchasePayment(ctx context.Context, tradeID int64, txHash string) (*ConfirmResult, error) {
	if !validation.IsPlausibleTxHash(txHash) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidTxHash, txHash)
	}

	tx, err := p.tradeRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	trade, err := p.tradeRepo.GetByIDForUpdate(ctx, tx, tradeID)
	if err != nil {
		return nil, err
	}
	if trade == nil {
		return nil, fmt.Errorf("%w: %d", domain.ErrTradeNotFound, tradeID)
	}

	if trade.Status == domain.TradeStatusCompleted {
		if trade.TxHash == txHash {
			details, _ := trade.DecodePaymentDetails()
			p.logger.Info().Int64("trade_id", tradeID).Str("tx_hash", txHash).Msg("Trade already confirmed with this hash")
			return &ConfirmResult{
				TradeID:          tradeID,
				Status:           domain.TradeStatusCompleted,
				TxHash:           txHash,
				Breakdown:        details.Breakdown,
				AlreadyConfirmed: true,
			}, nil
		}
		return nil, fmt.Errorf("%w: trade %d already completed with a different hash", domain.ErrTradeNotPending, tradeID)
	}

	switch trade.Status {
	case domain.TradeStatusPendingPayment, domain.TradeStatusPendingConfirmation, domain.TradeStatusProcessing:
	default:
		return nil, fmt.Errorf("%w: trade %d is %s", domain.ErrTradeNotPending, tradeID, trade.Status)
	}

	details, err := trade.DecodePaymentDetails()
	if err != nil {
		p.logger.Warn().Err(err).Int64("trade_id", tradeID).Msg("Unreadable payment details, starting fresh history")
		details = domain.PaymentDetails{}
	}

	now := time.Now().UTC()
	if trade.Status == domain.TradeStatusPendingPayment {
		details.StatusHistory = append(details.StatusHistory, domain.StatusChange{
			FromStatus: domain.TradeStatusPendingPayment,
			ToStatus:   domain.TradeStatusPendingConfirmation,
			ChangedAt:  now,
			Reason:     "payment submitted",
			TxHash:     txHash,
		})
		trade.Status = domain.TradeStatusPendingConfirmation
	}
	if err := domain.ValidateTransition(trade.Status, domain.TradeStatusCompleted); err != nil {
		return nil, err
	}
	details.StatusHistory = append(details.StatusHistory, domain.StatusChange{
		FromStatus: trade.Status,
		ToStatus:   domain.TradeStatusCompleted,
		ChangedAt:  now,
		Reason:     "payment confirmed",
		TxHash:     txHash,
	})
	details.CurrentStatus = domain.TradeStatusCompleted
	details.LastUpdated = now

	if err := p.consistency.ApplyTradeTx(ctx, tx, trade); err != nil {
		return nil, err
	}
	if trade.AssetID != nil && trade.Type == domain.TradeTypeBuy {
		if err := p.tradeRepo.UpsertHoldingTx(ctx, tx, trade.TraderAddress, *trade.AssetID, trade.Amount); err != nil {
			return nil, err
		}
	}

	encoded, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payment details: %w", err)
	}
	if err := p.tradeRepo.UpdateStatusTx(ctx, tx, tradeID, traderepo.StatusUpdate{
		Status:         domain.TradeStatusCompleted,
		TxHash:         &txHash,
		PaymentDetails: encoded,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit confirmation: %w", err)
	}

	if trade.AssetID != nil {
		p.consistency.InvalidateAssetCache(ctx, *trade.AssetID)
	}

	// Commission records and their payout queue entries never fail the
	// already-committed confirmation.
	if details.Breakdown != nil {
		p.settleCommissions(ctx, trade, details.Breakdown)
	}

	p.logger.Info().
		Int64("trade_id", tradeID).
		Str("tx_hash", txHash).
		Msg("Trade confirmed and completed")

	return &ConfirmResult{
		TradeID:   tradeID,
		Status:    domain.TradeStatusCompleted,
		TxHash:    txHash,
		Breakdown: details.Breakdown,
	}, nil
}

// settleCommissions is the best-effort post-commit step: persist the payout
// lines and enqueue referral commissions for admin settlement.
func (p *paymentProcessor) settleCommissions(ctx context.Context, trade *domain.Trade, breakdown *domain.CommissionBreakdown) {
	records := commissionRecords(trade, breakdown, p.platformAddress, p.payCurrency)
	if err := p.commissionRepo.CreateBatch(ctx, records); err != nil {
		p.logger.Error().Err(err).Int64("trade_id", trade.ID).Msg("Failed to create commission records")
		return
	}

	for _, rc := range breakdown.ReferralCommissions {
		payment := &domain.PendingPayment{
			PaymentType:      domain.PaymentTypeCommission,
			Title:            fmt.Sprintf("Referral commission L%d for trade %d", rc.Level, trade.ID),
			Amount:           rc.CommissionAmount,
			TokenSymbol:      p.payCurrency,
			RecipientAddress: rc.ReferrerAddress,
			AssetID:          trade.AssetID,
			TradeID:          &trade.ID,
			ReferenceID:      uuid.New().String(),
			Status:           domain.PaymentStatusPending,
			Priority:         domain.PaymentPriorityNormal,
		}
		if _, err := p.paymentRepo.Create(ctx, payment); err != nil {
			p.logger.Error().Err(err).
				Int64("trade_id", trade.ID).
				Int("level", rc.Level).
				Msg("Failed to enqueue referral commission payout")
		}
	}
}

func (p *paymentProcessor) ProcessAssetPublicationPayment(ctx context.Context, assetID int64, payerAddress string, amount float64, txHash string) (*PublicationPayment, error) {
	if !validation.IsValidSolanaAddress(payerAddress) {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidAddress, payerAddress)
	}
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	asset, err := p.assetRepo.GetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, fmt.Errorf("%w: %d", domain.ErrAssetNotFound, assetID)
	}
	if asset.PaymentConfirmed {
		return &PublicationPayment{AssetID: assetID, Status: asset.Status, Confirmed: true}, nil
	}

	if txHash == "" {
		transfer, err := p.chainClient.PrepareTransferTransaction(ctx, p.payCurrency, payerAddress, p.platformAddress, p.currency.RoundAmount(amount))
		if err != nil {
			return nil, fmt.Errorf("failed to prepare publication payment: %w", err)
		}
		return &PublicationPayment{AssetID: assetID, Status: asset.Status, Transfer: transfer}, nil
	}

	if !validation.IsPlausibleTxHash(txHash) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidTxHash, txHash)
	}
	status, err := p.chainClient.CheckTransaction(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("failed to check publication payment: %w", err)
	}
	if status.Error != "" {
		if err := p.assetRepo.UpdateStatus(ctx, assetID, domain.AssetStatusPaymentFailed); err != nil {
			p.logger.Error().Err(err).Int64("asset_id", assetID).Msg("Failed to mark publication payment failed")
		}
		return nil, fmt.Errorf("publication payment failed on chain: %s", status.Error)
	}
	if !status.Confirmed {
		return &PublicationPayment{AssetID: assetID, Status: asset.Status, Confirmed: false}, nil
	}

	details, _ := json.Marshal(map[string]interface{}{
		"payer":        payerAddress,
		"amount":       amount,
		"currency":     p.payCurrency,
		"confirmed_at": time.Now().UTC(),
	})
	if err := p.assetRepo.ConfirmPayment(ctx, assetID, txHash, details); err != nil {
		return nil, err
	}
	if err := p.assetRepo.UpdateStatus(ctx, assetID, domain.AssetStatusApproved); err != nil {
		return nil, err
	}

	p.logger.Info().
		Int64("asset_id", assetID).
		Str("payer", payerAddress).
		Str("tx_hash", txHash).
		Msg("Publication payment confirmed, asset approved")

	return &PublicationPayment{AssetID: assetID, Status: domain.AssetStatusApproved, Confirmed: true}, nil
}
