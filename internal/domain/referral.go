package domain

import "time"

// MaxReferralDepth caps referral chain walks. The chain is followed
// iteratively with a revisit check, so a cycle in the data cannot loop forever.
const MaxReferralDepth = 10

// UserReferral is a single-parent referral edge: user_address was referred by
// referrer_address.
type UserReferral struct {
	ID              int64     `json:"id"`
	UserAddress     string    `json:"user_address"`
	ReferrerAddress string    `json:"referrer_address"`
	ReferralCode    string    `json:"referral_code,omitempty"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}
