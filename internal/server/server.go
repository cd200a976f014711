package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	authservice "github.com/brickmint/rws/internal/application/auth"
	"github.com/brickmint/rws/internal/application/consistency"
	"github.com/brickmint/rws/internal/application/payments"
	"github.com/brickmint/rws/internal/application/rollback"
	"github.com/brickmint/rws/internal/application/syncservice"
	"github.com/brickmint/rws/internal/application/tradestatus"
	"github.com/brickmint/rws/internal/repositories/paymentrepo"
	"github.com/brickmint/rws/internal/server/handlers"
	"github.com/brickmint/rws/internal/server/middleware"
	"github.com/brickmint/rws/internal/server/websocket"
	"github.com/brickmint/rws/pkg/config"
)

type Server struct {
	PaymentSvc     payments.IPaymentProcessor
	StatusSvc      tradestatus.IStatusManager
	ConsistencySvc consistency.IConsistencyManager
	RollbackSvc    rollback.IRollbackManager
	SyncSvc        syncservice.ISyncService
	AuthSvc        authservice.IAuthService
	PaymentRepo    paymentrepo.IPaymentRepository
	Cfg            *config.Config
	Logger         zerolog.Logger
	Router         *gin.Engine
	httpServer     *http.Server
	WsHub          *websocket.WsHub
}

func New(
	cfg *config.Config,
	paymentSvc payments.IPaymentProcessor,
	statusSvc tradestatus.IStatusManager,
	consistencySvc consistency.IConsistencyManager,
	rollbackSvc rollback.IRollbackManager,
	syncSvc syncservice.ISyncService,
	authSvc authservice.IAuthService,
	paymentRepo paymentrepo.IPaymentRepository,
	logger zerolog.Logger,
	wsHub *websocket.WsHub,
) *Server {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	return &Server{
		Cfg:            cfg,
		PaymentSvc:     paymentSvc,
		StatusSvc:      statusSvc,
		ConsistencySvc: consistencySvc,
		RollbackSvc:    rollbackSvc,
		SyncSvc:        syncSvc,
		AuthSvc:        authSvc,
		PaymentRepo:    paymentRepo,
		Logger:         logger,
		Router:         gin.New(),
		WsHub:          wsHub,
	}
}

func (s *Server) SetupRouter() {
	s.Router.Use(gin.Recovery())
	s.Router.Use(middleware.RequestLogger(s.Logger))
	s.Router.Use(middleware.SecurityHeaders())
	s.Router.Use(middleware.CORS(s.Cfg.Server))

	handler := handlers.New(
		s.PaymentSvc,
		s.StatusSvc,
		s.ConsistencySvc,
		s.RollbackSvc,
		s.SyncSvc,
		s.AuthSvc,
		s.PaymentRepo,
		s.WsHub,
		s.Logger,
		s.Cfg,
	)
	handler.SetupHandlers(s.Router)
}

// Start serves until SIGINT/SIGTERM, then drains connections for up to ten
// seconds before exiting.
func (s *Server) Start() {
	s.SetupRouter()

	s.httpServer = &http.Server{
		Addr:         s.Cfg.Server.Host + ":" + s.Cfg.Server.Port,
		Handler:      s.Router,
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 20 * time.Second,
	}

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	s.Logger.Info().Msgf("Starting server on %s", s.httpServer.Addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-stopChan
	s.Logger.Info().Msg("Shutdown signal received, shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.Logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	s.Logger.Info().Msg("Server exited gracefully")
}
