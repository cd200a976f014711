package paymentrepo

import (
	"context"

	"github.com/brickmint/rws/internal/domain"
)

type IPaymentRepository interface {
	Create(ctx context.Context, payment *domain.PendingPayment) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.PendingPayment, error)
	List(ctx context.Context, status domain.PaymentStatus, limit, offset int) ([]domain.PendingPayment, error)
	UpdateStatus(ctx context.Context, id int64, status domain.PaymentStatus, processedBy, txHash string) error
}
