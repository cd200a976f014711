package commissionrepo

import (
	"context"

	"github.com/brickmint/rws/internal/domain"
)

type ICommissionRepository interface {
	CreateBatch(ctx context.Context, records []domain.CommissionRecord) error
	ListByTradeID(ctx context.Context, tradeID int64) ([]domain.CommissionRecord, error)
	DeleteByTradeID(ctx context.Context, tradeID int64) (int64, error)
}
