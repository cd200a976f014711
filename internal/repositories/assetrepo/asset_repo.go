package assetrepo

import (
	"context"
	"database/sql"

	"github.com/brickmint/rws/internal/domain"
)

type IAssetRepository interface {
	Create(ctx context.Context, asset *domain.Asset) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Asset, error)
	ListDeployed(ctx context.Context) ([]domain.Asset, error)
	UpdateStatus(ctx context.Context, id int64, status domain.AssetStatus) error
	UpdateRemainingSupply(ctx context.Context, id int64, remaining int64) error
	ConfirmPayment(ctx context.Context, id int64, txHash string, details []byte) error
	SumConfirmedDividends(ctx context.Context, assetID int64) (float64, error)

	BeginTx(ctx context.Context) (*sql.Tx, error)
	GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*domain.Asset, error)
	UpdateRemainingSupplyTx(ctx context.Context, tx *sql.Tx, id int64, remaining int64) error
}
