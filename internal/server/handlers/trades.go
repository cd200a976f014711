package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/brickmint/rws/internal/application/payments"
	"github.com/brickmint/rws/internal/application/tradestatus"
	"github.com/brickmint/rws/internal/server/middleware"
)

type TradeHandler struct {
	paymentSvc payments.IPaymentProcessor
	statusSvc  tradestatus.IStatusManager
	logger     zerolog.Logger
}

func NewTradeHandler(paymentSvc payments.IPaymentProcessor, statusSvc tradestatus.IStatusManager, logger zerolog.Logger) *TradeHandler {
	return &TradeHandler{
		paymentSvc: paymentSvc,
		statusSvc:  statusSvc,
		logger:     logger,
	}
}

type createTradeRequest struct {
	AssetID int64 `json:"asset_id" binding:"required,gt=0"`
	Amount  int64 `json:"amount" binding:"required,gt=0"`
}

func (h *TradeHandler) Create(c *gin.Context) {
	var req createTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	wallet := c.GetString(middleware.WalletAddressKey)

	instructions, err := h.paymentSvc.CreatePurchase(c.Request.Context(), req.AssetID, wallet, req.Amount)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, instructions)
}

type confirmTradeRequest struct {
	TradeID int64  `json:"trade_id" binding:"required,gt=0"`
	TxHash  string `json:"tx_hash" binding:"required"`
}

func (h *TradeHandler) Confirm(c *gin.Context) {
	var req confirmTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	result, err := h.paymentSvc.ConfirmAssetPurchasePayment(c.Request.Context(), req.TradeID, req.TxHash)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *TradeHandler) Status(c *gin.Context) {
	tradeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	info, err := h.statusSvc.GetRealTimeTradeStatus(c.Request.Context(), tradeID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, info)
}
