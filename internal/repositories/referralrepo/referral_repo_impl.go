package referralrepo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/brickmint/rws/internal/domain"
	"github.com/brickmint/rws/internal/infrastructure/database"
)

type referralRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func New(db *database.DBManager, logger zerolog.Logger) IReferralRepository {
	return &referralRepository{
		db:     db.Db,
		logger: logger,
	}
}

func (r *referralRepository) GetReferrer(ctx context.Context, userAddress string) (*domain.UserReferral, error) {
	var ref domain.UserReferral
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_address, referrer_address, COALESCE(referral_code, ''), status, created_at
		FROM user_referrals
		WHERE user_address = $1 AND status = 'active'`,
		userAddress,
	).Scan(&ref.ID, &ref.UserAddress, &ref.ReferrerAddress, &ref.ReferralCode, &ref.Status, &ref.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("user_address", userAddress).Msg("Failed to get referrer")
		return nil, fmt.Errorf("failed to get referrer: %w", err)
	}
	return &ref, nil
}
