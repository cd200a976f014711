package payments

import (
	"context"
	"fmt"

	"github.com/brickmint/rws/internal/domain"
)

// calculateCommissionBreakdown splits a trade total. The platform fee is
// total * fee rate; each referral level carves its slice out of that fee, so
// the seller always receives total * (1 - fee rate) regardless of chain depth.
//
// The chain is walked from the buyer upwards, at most MaxReferralDepth levels,
// with a revisit set so cyclic referral data terminates instead of looping.
func (p *paymentProcessor) calculateCommissionBreakdown(ctx context.Context, buyerAddress string, total float64) (*domain.CommissionBreakdown, error) {
	grossFee := p.currency.RoundAmount(total * p.feeRate)
	breakdown := &domain.CommissionBreakdown{
		SellerAmount: p.currency.RoundAmount(total - grossFee),
		PlatformFee:  grossFee,
	}

	visited := map[string]bool{buyerAddress: true}
	current := buyerAddress
	for level := 1; level <= domain.MaxReferralDepth; level++ {
		edge, err := p.referralRepo.GetReferrer(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve referrer at level %d: %w", level, err)
		}
		if edge == nil {
			break
		}
		if visited[edge.ReferrerAddress] {
			p.logger.Warn().
				Str("buyer", buyerAddress).
				Str("referrer", edge.ReferrerAddress).
				Int("level", level).
				Msg("Referral cycle detected, truncating chain")
			break
		}
		visited[edge.ReferrerAddress] = true

		slice := p.currency.RoundAmount(grossFee * p.referralRate)
		if slice <= 0 {
			break
		}
		breakdown.ReferralCommissions = append(breakdown.ReferralCommissions, domain.ReferralCommission{
			Level:            level,
			ReferrerAddress:  edge.ReferrerAddress,
			CommissionAmount: slice,
			Rate:             p.referralRate,
		})
		breakdown.TotalReferralAmount = p.currency.RoundAmount(breakdown.TotalReferralAmount + slice)
		current = edge.ReferrerAddress
	}

	// Referral payouts come out of the platform's cut.
	breakdown.PlatformFee = p.currency.RoundAmount(grossFee - breakdown.TotalReferralAmount)
	return breakdown, nil
}

// commissionRecords materializes a breakdown into pending payout rows.
func commissionRecords(trade *domain.Trade, breakdown *domain.CommissionBreakdown, platformAddress, currency string) []domain.CommissionRecord {
	records := []domain.CommissionRecord{{
		TradeID:          trade.ID,
		AssetID:          trade.AssetID,
		RecipientAddress: platformAddress,
		Amount:           breakdown.PlatformFee,
		Currency:         currency,
		CommissionType:   domain.CommissionTypePlatform,
		Status:           domain.CommissionStatusPending,
	}}
	for _, rc := range breakdown.ReferralCommissions {
		records = append(records, domain.CommissionRecord{
			TradeID:          trade.ID,
			AssetID:          trade.AssetID,
			RecipientAddress: rc.ReferrerAddress,
			Amount:           rc.CommissionAmount,
			Currency:         currency,
			CommissionType:   domain.CommissionTypeReferral,
			ReferralLevel:    rc.Level,
			Status:           domain.CommissionStatusPending,
		})
	}
	return records
}
