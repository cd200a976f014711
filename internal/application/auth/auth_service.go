package authservice

import (
	"context"

	"github.com/brickmint/rws/internal/domain"
)

type IAuthService interface {
	VerifyToken(ctx context.Context, tokenString string) (*domain.AdminClaims, error)
	GenerateAdminToken(ctx context.Context, adminID, role string) (string, error)
}
