package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/brickmint/rws/internal/domain"
)

// respondError maps domain errors to status codes: not-found sentinels to 404,
// other recoverable ones to 400, everything else to a logged 500.
func respondError(c *gin.Context, logger zerolog.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrAssetNotFound),
		errors.Is(err, domain.ErrTradeNotFound),
		errors.Is(err, domain.ErrPaymentNotFound),
		errors.Is(err, domain.ErrRollbackPlanMissing):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Not Found",
			"message": err.Error(),
		})
	case domain.Recoverable(err):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": err.Error(),
		})
	default:
		logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "An unexpected error occurred",
		})
	}
}

func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Bad Request",
		"message": err.Error(),
	})
}
