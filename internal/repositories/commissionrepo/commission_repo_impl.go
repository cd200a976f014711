package commissionrepo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/brickmint/rws/internal/domain"
	"github.com/brickmint/rws/internal/infrastructure/database"
)

type commissionRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func New(db *database.DBManager, logger zerolog.Logger) ICommissionRepository {
	return &commissionRepository{
		db:     db.Db,
		logger: logger,
	}
}

func (r *commissionRepository) CreateBatch(ctx context.Context, records []domain.CommissionRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range records {
		var assetID sql.NullInt64
		if rec.AssetID != nil {
			assetID = sql.NullInt64{Int64: *rec.AssetID, Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO commission_records
				(trade_id, asset_id, recipient_address, amount, currency, commission_type, referral_level, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			rec.TradeID, assetID, rec.RecipientAddress, rec.Amount, rec.Currency,
			rec.CommissionType, rec.ReferralLevel, rec.Status)
		if err != nil {
			r.logger.Error().Err(err).Int64("trade_id", rec.TradeID).Msg("Failed to insert commission record")
			return fmt.Errorf("failed to insert commission record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit commission records: %w", err)
	}
	return nil
}

func (r *commissionRepository) ListByTradeID(ctx context.Context, tradeID int64) ([]domain.CommissionRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, trade_id, asset_id, recipient_address, amount, currency,
			commission_type, referral_level, status, COALESCE(tx_hash, ''), created_at, updated_at
		FROM commission_records
		WHERE trade_id = $1
		ORDER BY referral_level, id`, tradeID)
	if err != nil {
		r.logger.Error().Err(err).Int64("trade_id", tradeID).Msg("Failed to list commission records")
		return nil, fmt.Errorf("failed to list commission records: %w", err)
	}
	defer rows.Close()

	var records []domain.CommissionRecord
	for rows.Next() {
		var rec domain.CommissionRecord
		var assetID sql.NullInt64
		err := rows.Scan(&rec.ID, &rec.TradeID, &assetID, &rec.RecipientAddress, &rec.Amount,
			&rec.Currency, &rec.CommissionType, &rec.ReferralLevel, &rec.Status, &rec.TxHash,
			&rec.CreatedAt, &rec.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan commission record: %w", err)
		}
		if assetID.Valid {
			rec.AssetID = &assetID.Int64
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *commissionRepository) DeleteByTradeID(ctx context.Context, tradeID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM commission_records WHERE trade_id = $1`, tradeID)
	if err != nil {
		r.logger.Error().Err(err).Int64("trade_id", tradeID).Msg("Failed to delete commission records")
		return 0, fmt.Errorf("failed to delete commission records: %w", err)
	}
	deleted, _ := res.RowsAffected()
	return deleted, nil
}
