package authservice

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/brickmint/rws/internal/domain"
	"github.com/brickmint/rws/pkg/config"
)

const tokenIssuer = "rws"

type AuthService struct {
	config *config.Config
	logger zerolog.Logger
}

func NewAuthService(config *config.Config, logger zerolog.Logger) *AuthService {
	return &AuthService{
		config: config,
		logger: logger,
	}
}

func (s *AuthService) VerifyToken(ctx context.Context, tokenString string) (*domain.AdminClaims, error) {
	jwtSecret := s.config.JWT.Secret
	if jwtSecret == "" {
		s.logger.Error().Msg("JWT secret not configured")
		return nil, fmt.Errorf("JWT secret not configured")
	}

	token, err := jwt.ParseWithClaims(tokenString, &domain.AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to parse token")
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*domain.AdminClaims)
	if !ok || !token.Valid {
		s.logger.Error().Msg("Invalid token claims")
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}

func (s *AuthService) GenerateAdminToken(ctx context.Context, adminID, role string) (string, error) {
	jwtSecret := s.config.JWT.Secret
	if jwtSecret == "" {
		s.logger.Error().Msg("JWT secret not configured")
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims := &domain.AdminClaims{
		AdminID: adminID,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   adminID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		s.logger.Error().Err(err).Str("admin_id", adminID).Msg("Failed to sign token")
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}
