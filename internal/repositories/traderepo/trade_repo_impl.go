package traderepo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/brickmint/rws/internal/domain"
	"github.com/brickmint/rws/internal/infrastructure/database"
)

type tradeRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func New(db *database.DBManager, logger zerolog.Logger) ITradeRepository {
	return &tradeRepository{
		db:     db.Db,
		logger: logger,
	}
}

const tradeColumns = `id, asset_id, trader_address, type, amount, price, total, fee, status,
	COALESCE(tx_hash, ''), COALESCE(error_message, ''), payment_details, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(row rowScanner) (*domain.Trade, error) {
	var t domain.Trade
	var assetID sql.NullInt64
	var details []byte

	err := row.Scan(
		&t.ID, &assetID, &t.TraderAddress, &t.Type, &t.Amount, &t.Price, &t.Total, &t.Fee,
		&t.Status, &t.TxHash, &t.ErrorMessage, &details, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if assetID.Valid {
		t.AssetID = &assetID.Int64
	}
	t.PaymentDetails = details
	return &t, nil
}

func (r *tradeRepository) Create(ctx context.Context, trade *domain.Trade) (int64, error) {
	var assetID sql.NullInt64
	if trade.AssetID != nil {
		assetID = sql.NullInt64{Int64: *trade.AssetID, Valid: true}
	}

	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO trades (asset_id, trader_address, type, amount, price, total, fee, status, payment_details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		assetID, trade.TraderAddress, trade.Type, trade.Amount, trade.Price,
		trade.Total, trade.Fee, trade.Status, trade.PaymentDetails,
	).Scan(&id)
	if err != nil {
		r.logger.Error().Err(err).Str("trader", trade.TraderAddress).Msg("Failed to create trade")
		return 0, fmt.Errorf("failed to create trade: %w", err)
	}
	return id, nil
}

func (r *tradeRepository) GetByID(ctx context.Context, id int64) (*domain.Trade, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+tradeColumns+` FROM trades WHERE id = $1`, id)
	trade, err := scanTrade(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("trade_id", id).Msg("Failed to get trade")
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}
	return trade, nil
}

func buildStatusUpdate(update StatusUpdate) (string, []interface{}) {
	query := `UPDATE trades SET status = $1, updated_at = $2`
	args := []interface{}{update.Status, time.Now().UTC()}

	if update.TxHash != nil {
		args = append(args, *update.TxHash)
		query += fmt.Sprintf(`, tx_hash = NULLIF($%d, '')`, len(args))
	}
	if update.ErrorMessage != nil {
		args = append(args, *update.ErrorMessage)
		query += fmt.Sprintf(`, error_message = NULLIF($%d, '')`, len(args))
	}
	if update.PaymentDetails != nil {
		args = append(args, update.PaymentDetails)
		query += fmt.Sprintf(`, payment_details = $%d`, len(args))
	}
	return query, args
}

func (r *tradeRepository) UpdateStatus(ctx context.Context, id int64, update StatusUpdate) error {
	query, args := buildStatusUpdate(update)
	args = append(args, id)
	query += fmt.Sprintf(` WHERE id = $%d`, len(args))

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.Error().Err(err).Int64("trade_id", id).Msg("Failed to update trade status")
		return fmt.Errorf("failed to update trade status: %w", err)
	}
	return nil
}

func (r *tradeRepository) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id int64, update StatusUpdate) error {
	query, args := buildStatusUpdate(update)
	args = append(args, id)
	query += fmt.Sprintf(` WHERE id = $%d`, len(args))

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update trade status: %w", err)
	}
	return nil
}

func (r *tradeRepository) ListByStatusWithHash(ctx context.Context, statuses []domain.TradeStatus, limit int, afterID int64) ([]domain.Trade, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+tradeColumns+` FROM trades
		WHERE status = ANY($1) AND tx_hash IS NOT NULL AND id > $2
		ORDER BY id
		LIMIT $3`,
		pq.Array(statusStrings(statuses)), afterID, limit)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to list trades by status")
		return nil, fmt.Errorf("failed to list trades by status: %w", err)
	}
	defer rows.Close()
	return collectTrades(rows)
}

func (r *tradeRepository) ListStuck(ctx context.Context, statuses []domain.TradeStatus, cutoff time.Time) ([]domain.Trade, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+tradeColumns+` FROM trades
		WHERE status = ANY($1) AND created_at < $2 AND tx_hash IS NOT NULL
		ORDER BY created_at`,
		pq.Array(statusStrings(statuses)), cutoff)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to list stuck trades")
		return nil, fmt.Errorf("failed to list stuck trades: %w", err)
	}
	defer rows.Close()
	return collectTrades(rows)
}

func statusStrings(statuses []domain.TradeStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func collectTrades(rows *sql.Rows) ([]domain.Trade, error) {
	var trades []domain.Trade
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, *trade)
	}
	return trades, rows.Err()
}

const completedAmountsQuery = `
	SELECT
		COALESCE(SUM(amount) FILTER (WHERE type = 'buy'), 0),
		COALESCE(SUM(amount) FILTER (WHERE type = 'sell'), 0)
	FROM trades
	WHERE asset_id = $1 AND status = $2`

func (r *tradeRepository) CompletedAmounts(ctx context.Context, assetID int64) (int64, int64, error) {
	var bought, sold int64
	err := r.db.QueryRowContext(ctx, completedAmountsQuery, assetID, domain.TradeStatusCompleted).
		Scan(&bought, &sold)
	if err != nil {
		r.logger.Error().Err(err).Int64("asset_id", assetID).Msg("Failed to sum completed amounts")
		return 0, 0, fmt.Errorf("failed to sum completed amounts: %w", err)
	}
	return bought, sold, nil
}

func (r *tradeRepository) CompletedAmountsTx(ctx context.Context, tx *sql.Tx, assetID int64) (int64, int64, error) {
	var bought, sold int64
	err := tx.QueryRowContext(ctx, completedAmountsQuery, assetID, domain.TradeStatusCompleted).
		Scan(&bought, &sold)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to sum completed amounts: %w", err)
	}
	return bought, sold, nil
}

func (r *tradeRepository) Stats(ctx context.Context, assetID int64) (*domain.AssetStats, error) {
	var stats domain.AssetStats
	var volume sql.NullFloat64
	var lastTrade sql.NullTime

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), SUM(total), MAX(created_at)
		FROM trades
		WHERE asset_id = $1 AND status = $2`,
		assetID, domain.TradeStatusCompleted,
	).Scan(&stats.TotalTrades, &volume, &lastTrade)
	if err != nil {
		r.logger.Error().Err(err).Int64("asset_id", assetID).Msg("Failed to compute trade stats")
		return nil, fmt.Errorf("failed to compute trade stats: %w", err)
	}

	stats.TotalVolume = volume.Float64
	if lastTrade.Valid {
		stats.LastTradeAt = &lastTrade.Time
	}
	return &stats, nil
}

func (r *tradeRepository) CountByStatus(ctx context.Context, status domain.TradeStatus) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM trades WHERE status = $1 AND tx_hash IS NOT NULL`, status).
		Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count trades: %w", err)
	}
	return count, nil
}

func (r *tradeRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return r.db.BeginTx(ctx, nil)
}

func (r *tradeRepository) GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*domain.Trade, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+tradeColumns+` FROM trades WHERE id = $1 FOR UPDATE`, id)
	trade, err := scanTrade(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock trade: %w", err)
	}
	return trade, nil
}

func (r *tradeRepository) UpsertHoldingTx(ctx context.Context, tx *sql.Tx, userAddress string, assetID, delta int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO holdings (user_address, asset_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_address, asset_id)
		DO UPDATE SET quantity = holdings.quantity + $3, updated_at = now()`,
		userAddress, assetID, delta)
	if err != nil {
		return fmt.Errorf("failed to upsert holding: %w", err)
	}
	return nil
}

func (r *tradeRepository) SubtractHolding(ctx context.Context, userAddress string, assetID, amount int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE holdings SET quantity = quantity - $1, updated_at = now()
		WHERE user_address = $2 AND asset_id = $3`,
		amount, userAddress, assetID)
	if err != nil {
		r.logger.Error().Err(err).Str("user", userAddress).Msg("Failed to subtract holding")
		return fmt.Errorf("failed to subtract holding: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		// Rows that went non-positive are dropped, matching the ledger's view.
		_, err = r.db.ExecContext(ctx,
			`DELETE FROM holdings WHERE user_address = $1 AND asset_id = $2 AND quantity <= 0`,
			userAddress, assetID)
		if err != nil {
			return fmt.Errorf("failed to prune empty holding: %w", err)
		}
	}
	return nil
}
