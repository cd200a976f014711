package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/brickmint/rws/internal/application/rollback"
	"github.com/brickmint/rws/internal/application/syncservice"
	"github.com/brickmint/rws/internal/domain"
	"github.com/brickmint/rws/internal/repositories/paymentrepo"
	"github.com/brickmint/rws/internal/server/middleware"
	"github.com/brickmint/rws/pkg/config"
	"github.com/brickmint/rws/pkg/validation"
)

type AdminHandler struct {
	paymentRepo paymentrepo.IPaymentRepository
	rollbackSvc rollback.IRollbackManager
	syncSvc     syncservice.ISyncService
	cfg         *config.Config
	logger      zerolog.Logger
}

func NewAdminHandler(
	paymentRepo paymentrepo.IPaymentRepository,
	rollbackSvc rollback.IRollbackManager,
	syncSvc syncservice.ISyncService,
	cfg *config.Config,
	logger zerolog.Logger,
) *AdminHandler {
	return &AdminHandler{
		paymentRepo: paymentRepo,
		rollbackSvc: rollbackSvc,
		syncSvc:     syncSvc,
		cfg:         cfg,
		logger:      logger,
	}
}

func (h *AdminHandler) ListPayments(c *gin.Context) {
	status := domain.PaymentStatus(c.DefaultQuery("status", string(domain.PaymentStatusPending)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	payments, err := h.paymentRepo.List(c.Request.Context(), status, limit, offset)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"payments": payments,
		"count":    len(payments),
	})
}

type updatePaymentRequest struct {
	Status domain.PaymentStatus `json:"status" binding:"required,oneof=processing completed failed cancelled"`
	TxHash string               `json:"tx_hash"`
}

func (h *AdminHandler) UpdatePaymentStatus(c *gin.Context) {
	paymentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	var req updatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if req.Status == domain.PaymentStatusCompleted && !validation.IsPlausibleTxHash(req.TxHash) {
		respondError(c, h.logger, domain.ErrInvalidTxHash)
		return
	}

	processedBy := ""
	if claims, ok := c.Get(middleware.AdminClaimsKey); ok {
		if ac, ok := claims.(*domain.AdminClaims); ok {
			processedBy = ac.AdminID
		}
	}

	if err := h.paymentRepo.UpdateStatus(c.Request.Context(), paymentID, req.Status, processedBy, req.TxHash); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info().
		Int64("payment_id", paymentID).
		Str("status", string(req.Status)).
		Str("processed_by", processedBy).
		Msg("Pending payment updated")
	c.JSON(http.StatusOK, gin.H{"payment_id": paymentID, "status": req.Status})
}

func (h *AdminHandler) RollbackHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	plans := h.rollbackSvc.History(limit)
	c.JSON(http.StatusOK, gin.H{
		"rollbacks": plans,
		"count":     len(plans),
	})
}

func (h *AdminHandler) TriggerSweep(c *gin.Context) {
	rolled, err := h.rollbackSvc.AutoRollbackStuckTrades(c.Request.Context(), h.cfg.Settlement.TransactionTimeout)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rolled_back": rolled})
}
