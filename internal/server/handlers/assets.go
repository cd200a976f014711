package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/brickmint/rws/internal/application/consistency"
	"github.com/brickmint/rws/internal/application/payments"
	"github.com/brickmint/rws/internal/server/middleware"
)

type AssetHandler struct {
	paymentSvc     payments.IPaymentProcessor
	consistencySvc consistency.IConsistencyManager
	logger         zerolog.Logger
}

func NewAssetHandler(paymentSvc payments.IPaymentProcessor, consistencySvc consistency.IConsistencyManager, logger zerolog.Logger) *AssetHandler {
	return &AssetHandler{
		paymentSvc:     paymentSvc,
		consistencySvc: consistencySvc,
		logger:         logger,
	}
}

func (h *AssetHandler) Get(c *gin.Context) {
	assetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	data, err := h.consistencySvc.GetRealTimeAssetData(c.Request.Context(), assetID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

func (h *AssetHandler) Consistency(c *gin.Context) {
	assetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	report, err := h.consistencySvc.ValidateAssetConsistency(c.Request.Context(), assetID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type publicationPaymentRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
	TxHash string  `json:"tx_hash"`
}

func (h *AssetHandler) PublicationPayment(c *gin.Context) {
	assetID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	var req publicationPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	wallet := c.GetString(middleware.WalletAddressKey)

	result, err := h.paymentSvc.ProcessAssetPublicationPayment(c.Request.Context(), assetID, wallet, req.Amount, req.TxHash)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
