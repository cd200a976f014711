package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	authservice "github.com/brickmint/rws/internal/application/auth"
	"github.com/brickmint/rws/pkg/validation"
)

// WalletAddressKey is the context key holding the caller's verified wallet.
const WalletAddressKey = "wallet_address"

// AdminClaimsKey is the context key holding the verified admin claims.
const AdminClaimsKey = "admin_claims"

// WalletAuth requires a syntactically valid X-Wallet-Address header. Ownership
// of the address is proven later by the wallet signing the transfer.
func WalletAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		address := c.GetHeader("X-Wallet-Address")
		if address == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"message": "Missing X-Wallet-Address header",
			})
			c.Abort()
			return
		}
		if !validation.IsValidSolanaAddress(address) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Bad Request",
				"message": "Invalid wallet address",
			})
			c.Abort()
			return
		}
		c.Set(WalletAddressKey, address)
		c.Next()
	}
}

// AdminAuth validates the bearer token on admin routes.
func AdminAuth(authSvc authservice.IAuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"message": "Missing bearer token",
			})
			c.Abort()
			return
		}

		claims, err := authSvc.VerifyToken(c.Request.Context(), strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"message": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set(AdminClaimsKey, claims)
		c.Next()
	}
}
