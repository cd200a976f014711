package referralrepo

import (
	"context"

	"github.com/brickmint/rws/internal/domain"
)

type IReferralRepository interface {
	// GetReferrer returns the active referral edge for the given user address,
	// or nil when the user has no referrer.
	GetReferrer(ctx context.Context, userAddress string) (*domain.UserReferral, error)
}
