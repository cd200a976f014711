package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	authservice "github.com/brickmint/rws/internal/application/auth"
	"github.com/brickmint/rws/internal/application/consistency"
	"github.com/brickmint/rws/internal/application/payments"
	"github.com/brickmint/rws/internal/application/rollback"
	"github.com/brickmint/rws/internal/application/syncservice"
	"github.com/brickmint/rws/internal/application/tradestatus"
	"github.com/brickmint/rws/internal/repositories/paymentrepo"
	"github.com/brickmint/rws/internal/server/middleware"
	"github.com/brickmint/rws/internal/server/websocket"
	"github.com/brickmint/rws/pkg/config"
	"github.com/brickmint/rws/pkg/validation"
)

type Handlers struct {
	PaymentSvc     payments.IPaymentProcessor
	StatusSvc      tradestatus.IStatusManager
	ConsistencySvc consistency.IConsistencyManager
	RollbackSvc    rollback.IRollbackManager
	SyncSvc        syncservice.ISyncService
	AuthSvc        authservice.IAuthService
	PaymentRepo    paymentrepo.IPaymentRepository
	WsHub          *websocket.WsHub
	Logger         zerolog.Logger
	Config         *config.Config
}

func New(
	paymentSvc payments.IPaymentProcessor,
	statusSvc tradestatus.IStatusManager,
	consistencySvc consistency.IConsistencyManager,
	rollbackSvc rollback.IRollbackManager,
	syncSvc syncservice.ISyncService,
	authSvc authservice.IAuthService,
	paymentRepo paymentrepo.IPaymentRepository,
	wsHub *websocket.WsHub,
	logger zerolog.Logger,
	cfg *config.Config,
) *Handlers {
	registerValidators()
	return &Handlers{
		PaymentSvc:     paymentSvc,
		StatusSvc:      statusSvc,
		ConsistencySvc: consistencySvc,
		RollbackSvc:    rollbackSvc,
		SyncSvc:        syncSvc,
		AuthSvc:        authSvc,
		PaymentRepo:    paymentRepo,
		WsHub:          wsHub,
		Logger:         logger,
		Config:         cfg,
	}
}

func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("solana_addr", func(fl validator.FieldLevel) bool {
			return validation.IsValidSolanaAddress(fl.Field().String())
		})
	}
}

func (h *Handlers) SetupHandlers(router *gin.Engine) {
	tradeHandler := NewTradeHandler(h.PaymentSvc, h.StatusSvc, h.Logger)
	assetHandler := NewAssetHandler(h.PaymentSvc, h.ConsistencySvc, h.Logger)
	adminHandler := NewAdminHandler(h.PaymentRepo, h.RollbackSvc, h.SyncSvc, h.Config, h.Logger)
	wsHandler := NewWebSocketHandler(h.WsHub, h.Config.WebSocket, h.Logger)
	healthHandler := NewHealthHandler()

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// WebSocket endpoint for live trade status updates
	router.GET("/status", wsHandler.HandleConnection)

	v2 := router.Group("/api/v2")
	{
		trades := v2.Group("/trades")
		{
			trades.POST("/create", middleware.WalletAuth(), tradeHandler.Create)
			trades.POST("/confirm", middleware.WalletAuth(), tradeHandler.Confirm)
			trades.GET("/:id/status", tradeHandler.Status)
		}

		assets := v2.Group("/assets")
		{
			assets.GET("/:id", assetHandler.Get)
			assets.GET("/:id/consistency", assetHandler.Consistency)
			assets.POST("/:id/publication-payment", middleware.WalletAuth(), assetHandler.PublicationPayment)
		}

		admin := v2.Group("/admin", middleware.AdminAuth(h.AuthSvc))
		{
			admin.GET("/payments", adminHandler.ListPayments)
			admin.PUT("/payments/:id/status", adminHandler.UpdatePaymentStatus)
			admin.GET("/rollbacks", adminHandler.RollbackHistory)
			admin.POST("/rollbacks/sweep", adminHandler.TriggerSweep)
		}
	}
}
