package domain

import "time"

type CommissionStatus string

const (
	CommissionStatusPending CommissionStatus = "pending"
	CommissionStatusPaid    CommissionStatus = "paid"
	CommissionStatusFailed  CommissionStatus = "failed"
)

const (
	CommissionTypePlatform = "platform"
	CommissionTypeReferral = "referral"
)

// CommissionRecord is one payout line (platform cut or referral level N) tied
// to a trade. Records are created pending and settled through the
// pending-payment queue, never auto-transferred.
type CommissionRecord struct {
	ID               int64            `json:"id"`
	TradeID          int64            `json:"trade_id"`
	AssetID          *int64           `json:"asset_id,omitempty"`
	RecipientAddress string           `json:"recipient_address"`
	Amount           float64          `json:"amount"`
	Currency         string           `json:"currency"`
	CommissionType   string           `json:"commission_type"`
	ReferralLevel    int              `json:"referral_level,omitempty"`
	Status           CommissionStatus `json:"status"`
	TxHash           string           `json:"tx_hash,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// ReferralCommission is one computed slice of a trade going to a referrer.
type ReferralCommission struct {
	Level            int     `json:"level"`
	ReferrerAddress  string  `json:"referrer_address"`
	CommissionAmount float64 `json:"commission_amount"`
	Rate             float64 `json:"rate"`
}

// CommissionBreakdown is the full split of a trade's total between seller,
// platform and the referral chain.
type CommissionBreakdown struct {
	SellerAmount        float64              `json:"seller_amount"`
	PlatformFee         float64              `json:"platform_fee"`
	ReferralCommissions []ReferralCommission `json:"referral_commissions,omitempty"`
	TotalReferralAmount float64              `json:"total_referral_amount"`
}
