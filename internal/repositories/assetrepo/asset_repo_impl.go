package assetrepo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/brickmint/rws/internal/domain"
	"github.com/brickmint/rws/internal/infrastructure/database"
)

type assetRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func New(db *database.DBManager, logger zerolog.Logger) IAssetRepository {
	return &assetRepository{
		db:     db.Db,
		logger: logger,
	}
}

const assetColumns = `id, name, COALESCE(description, ''), COALESCE(location, ''), token_symbol,
	token_price, token_supply, remaining_supply, COALESCE(token_address, ''), annual_revenue,
	status, creator_address, owner_address, payment_confirmed, COALESCE(payment_tx_hash, ''),
	payment_confirmed_at, payment_details, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAsset(row rowScanner) (*domain.Asset, error) {
	var a domain.Asset
	var confirmedAt sql.NullTime
	var details []byte

	err := row.Scan(
		&a.ID, &a.Name, &a.Description, &a.Location, &a.TokenSymbol,
		&a.TokenPrice, &a.TokenSupply, &a.RemainingSupply, &a.TokenAddress, &a.AnnualRevenue,
		&a.Status, &a.CreatorAddress, &a.OwnerAddress, &a.PaymentConfirmed, &a.PaymentTxHash,
		&confirmedAt, &details, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if confirmedAt.Valid {
		a.PaymentConfirmedAt = &confirmedAt.Time
	}
	a.PaymentDetails = details
	return &a, nil
}

func (r *assetRepository) Create(ctx context.Context, asset *domain.Asset) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO assets (name, description, location, token_symbol, token_price,
			token_supply, remaining_supply, token_address, annual_revenue, status,
			creator_address, owner_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10, $11, $12)
		RETURNING id`,
		asset.Name, asset.Description, asset.Location, asset.TokenSymbol, asset.TokenPrice,
		asset.TokenSupply, asset.RemainingSupply, asset.TokenAddress, asset.AnnualRevenue,
		asset.Status, asset.CreatorAddress, asset.OwnerAddress,
	).Scan(&id)
	if err != nil {
		r.logger.Error().Err(err).Str("token_symbol", asset.TokenSymbol).Msg("Failed to create asset")
		return 0, fmt.Errorf("failed to create asset: %w", err)
	}
	return id, nil
}

func (r *assetRepository) GetByID(ctx context.Context, id int64) (*domain.Asset, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = $1`, id)
	asset, err := scanAsset(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("asset_id", id).Msg("Failed to get asset")
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	return asset, nil
}

func (r *assetRepository) ListDeployed(ctx context.Context) ([]domain.Asset, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+assetColumns+` FROM assets
		WHERE status = $1 AND token_address IS NOT NULL
		ORDER BY id`, domain.AssetStatusApproved)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to list deployed assets")
		return nil, fmt.Errorf("failed to list deployed assets: %w", err)
	}
	defer rows.Close()

	var assets []domain.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, *asset)
	}
	return assets, rows.Err()
}

func (r *assetRepository) UpdateStatus(ctx context.Context, id int64, status domain.AssetStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE assets SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error().Err(err).Int64("asset_id", id).Msg("Failed to update asset status")
		return fmt.Errorf("failed to update asset status: %w", err)
	}
	return nil
}

func (r *assetRepository) UpdateRemainingSupply(ctx context.Context, id int64, remaining int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE assets SET remaining_supply = $1, updated_at = $2 WHERE id = $3`,
		remaining, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error().Err(err).Int64("asset_id", id).Msg("Failed to update remaining supply")
		return fmt.Errorf("failed to update remaining supply: %w", err)
	}
	return nil
}

func (r *assetRepository) ConfirmPayment(ctx context.Context, id int64, txHash string, details []byte) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE assets
		SET payment_confirmed = TRUE, payment_tx_hash = $1, payment_confirmed_at = $2,
			payment_details = $3, status = $4, updated_at = $2
		WHERE id = $5`,
		txHash, time.Now().UTC(), details, domain.AssetStatusApproved, id)
	if err != nil {
		r.logger.Error().Err(err).Int64("asset_id", id).Msg("Failed to confirm asset payment")
		return fmt.Errorf("failed to confirm asset payment: %w", err)
	}
	return nil
}

func (r *assetRepository) SumConfirmedDividends(ctx context.Context, assetID int64) (float64, error) {
	var total sql.NullFloat64
	err := r.db.QueryRowContext(ctx,
		`SELECT SUM(amount) FROM dividends WHERE asset_id = $1 AND status = 'confirmed'`,
		assetID).Scan(&total)
	if err != nil {
		r.logger.Error().Err(err).Int64("asset_id", assetID).Msg("Failed to sum dividends")
		return 0, fmt.Errorf("failed to sum dividends: %w", err)
	}
	return total.Float64, nil
}

func (r *assetRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return r.db.BeginTx(ctx, nil)
}

func (r *assetRepository) GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*domain.Asset, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = $1 FOR UPDATE`, id)
	asset, err := scanAsset(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock asset: %w", err)
	}
	return asset, nil
}

func (r *assetRepository) UpdateRemainingSupplyTx(ctx context.Context, tx *sql.Tx, id int64, remaining int64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE assets SET remaining_supply = $1, updated_at = $2 WHERE id = $3`,
		remaining, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update remaining supply: %w", err)
	}
	return nil
}
