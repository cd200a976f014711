package traderepo

import (
	"context"
	"database/sql"
	"time"

	"github.com/brickmint/rws/internal/domain"
)

// StatusUpdate carries the mutable fields written alongside a status change.
// Nil pointers leave the current column value untouched.
type StatusUpdate struct {
	Status         domain.TradeStatus
	TxHash         *string
	ErrorMessage   *string
	PaymentDetails []byte
}

type ITradeRepository interface {
	Create(ctx context.Context, trade *domain.Trade) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Trade, error)
	UpdateStatus(ctx context.Context, id int64, update StatusUpdate) error
	// ListByStatusWithHash pages by id cursor: rows with id > afterID, in id
	// order. Offset paging would skip rows here, because callers move trades
	// out of the filtered statuses while paging.
	ListByStatusWithHash(ctx context.Context, statuses []domain.TradeStatus, limit int, afterID int64) ([]domain.Trade, error)
	ListStuck(ctx context.Context, statuses []domain.TradeStatus, cutoff time.Time) ([]domain.Trade, error)
	CompletedAmounts(ctx context.Context, assetID int64) (bought, sold int64, err error)
	Stats(ctx context.Context, assetID int64) (*domain.AssetStats, error)
	CountByStatus(ctx context.Context, status domain.TradeStatus) (int64, error)

	BeginTx(ctx context.Context) (*sql.Tx, error)
	GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*domain.Trade, error)
	UpdateStatusTx(ctx context.Context, tx *sql.Tx, id int64, update StatusUpdate) error
	CompletedAmountsTx(ctx context.Context, tx *sql.Tx, assetID int64) (bought, sold int64, err error)

	UpsertHoldingTx(ctx context.Context, tx *sql.Tx, userAddress string, assetID, delta int64) error
	SubtractHolding(ctx context.Context, userAddress string, assetID, amount int64) error
}
