package paymentrepo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/brickmint/rws/internal/domain"
	"github.com/brickmint/rws/internal/infrastructure/database"
)

type paymentRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func New(db *database.DBManager, logger zerolog.Logger) IPaymentRepository {
	return &paymentRepository{
		db:     db.Db,
		logger: logger,
	}
}

const paymentColumns = `id, payment_type, title, COALESCE(description, ''), amount, token_symbol,
	recipient_address, COALESCE(recipient_name, ''), asset_id, trade_id, COALESCE(reference_id, ''),
	status, priority, COALESCE(tx_hash, ''), COALESCE(processed_by, ''), processed_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPayment(row rowScanner) (*domain.PendingPayment, error) {
	var p domain.PendingPayment
	var assetID, tradeID sql.NullInt64
	var processedAt sql.NullTime

	err := row.Scan(
		&p.ID, &p.PaymentType, &p.Title, &p.Description, &p.Amount, &p.TokenSymbol,
		&p.RecipientAddress, &p.RecipientName, &assetID, &tradeID, &p.ReferenceID,
		&p.Status, &p.Priority, &p.TxHash, &p.ProcessedBy, &processedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if assetID.Valid {
		p.AssetID = &assetID.Int64
	}
	if tradeID.Valid {
		p.TradeID = &tradeID.Int64
	}
	if processedAt.Valid {
		p.ProcessedAt = &processedAt.Time
	}
	return &p, nil
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.PendingPayment) (int64, error) {
	var assetID, tradeID sql.NullInt64
	if payment.AssetID != nil {
		assetID = sql.NullInt64{Int64: *payment.AssetID, Valid: true}
	}
	if payment.TradeID != nil {
		tradeID = sql.NullInt64{Int64: *payment.TradeID, Valid: true}
	}

	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO pending_payments
			(payment_type, title, description, amount, token_symbol, recipient_address,
			 recipient_name, asset_id, trade_id, reference_id, status, priority)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11, $12)
		RETURNING id`,
		payment.PaymentType, payment.Title, payment.Description, payment.Amount,
		payment.TokenSymbol, payment.RecipientAddress, payment.RecipientName,
		assetID, tradeID, payment.ReferenceID, payment.Status, payment.Priority,
	).Scan(&id)
	if err != nil {
		r.logger.Error().Err(err).Str("recipient", payment.RecipientAddress).Msg("Failed to create pending payment")
		return 0, fmt.Errorf("failed to create pending payment: %w", err)
	}
	return id, nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id int64) (*domain.PendingPayment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM pending_payments WHERE id = $1`, id)
	payment, err := scanPayment(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("payment_id", id).Msg("Failed to get pending payment")
		return nil, fmt.Errorf("failed to get pending payment: %w", err)
	}
	return payment, nil
}

func (r *paymentRepository) List(ctx context.Context, status domain.PaymentStatus, limit, offset int) ([]domain.PendingPayment, error) {
	query := `SELECT ` + paymentColumns + ` FROM pending_payments`
	args := []interface{}{}
	if status != "" {
		args = append(args, status)
		query += ` WHERE status = $1`
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(`
		ORDER BY
			CASE priority WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'normal' THEN 2 ELSE 3 END,
			created_at
		LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to list pending payments")
		return nil, fmt.Errorf("failed to list pending payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.PendingPayment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending payment: %w", err)
		}
		payments = append(payments, *payment)
	}
	return payments, rows.Err()
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, id int64, status domain.PaymentStatus, processedBy, txHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE pending_payments
		SET status = $1, processed_by = NULLIF($2, ''), tx_hash = NULLIF($3, ''),
			processed_at = $4, updated_at = $4
		WHERE id = $5`,
		status, processedBy, txHash, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error().Err(err).Int64("payment_id", id).Msg("Failed to update pending payment")
		return fmt.Errorf("failed to update pending payment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}
