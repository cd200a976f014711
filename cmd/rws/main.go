package main

import (
	"context"

	authservice "github.com/brickmint/rws/internal/application/auth"
	"github.com/brickmint/rws/internal/application/consistency"
	"github.com/brickmint/rws/internal/application/payments"
	"github.com/brickmint/rws/internal/application/rollback"
	"github.com/brickmint/rws/internal/application/syncservice"
	"github.com/brickmint/rws/internal/application/tradestatus"
	"github.com/brickmint/rws/internal/infrastructure/cache"
	"github.com/brickmint/rws/internal/infrastructure/database"
	"github.com/brickmint/rws/internal/infrastructure/rpc"
	"github.com/brickmint/rws/internal/repositories/assetrepo"
	"github.com/brickmint/rws/internal/repositories/commissionrepo"
	"github.com/brickmint/rws/internal/repositories/paymentrepo"
	"github.com/brickmint/rws/internal/repositories/referralrepo"
	"github.com/brickmint/rws/internal/repositories/traderepo"
	"github.com/brickmint/rws/internal/server"
	"github.com/brickmint/rws/internal/server/websocket"
	"github.com/brickmint/rws/pkg/config"
	"github.com/brickmint/rws/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logger.New()
		l.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.NewWithConfig(logger.Config{
		Level:      cfg.Logger.Level,
		TimeFormat: cfg.Logger.TimeFormat,
		Pretty:     cfg.Logger.Pretty,
	})

	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.ShutDown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply schema migrations")
	}

	assetRepo := assetrepo.New(db, log)
	tradeRepo := traderepo.New(db, log)
	commissionRepo := commissionrepo.New(db, log)
	referralRepo := referralrepo.New(db, log)
	paymentRepo := paymentrepo.New(db, log)

	chainClient := rpc.NewSolanaClient(&cfg.Solana, log)
	assetCache := cache.New(cfg.Cache, log)

	wsHub := websocket.NewWsHub(log)
	go wsHub.Run()

	consistencyMgr := consistency.New(assetRepo, tradeRepo, chainClient, assetCache, cfg.Cache.TTL, log)
	rollbackMgr := rollback.New(assetRepo, tradeRepo, commissionRepo, consistencyMgr, log)
	statusMgr := tradestatus.New(tradeRepo, assetRepo, commissionRepo, consistencyMgr, rollbackMgr, wsHub, log)
	paymentSvc := payments.New(
		assetRepo, tradeRepo, commissionRepo, referralRepo, paymentRepo,
		chainClient, consistencyMgr, cfg.Settlement, log,
	)
	syncSvc := syncservice.New(tradeRepo, assetRepo, chainClient, statusMgr, consistencyMgr, rollbackMgr, cfg.Settlement, log)
	authSvc := authservice.NewAuthService(cfg, log)

	go func() {
		if err := syncSvc.Start(ctx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("Blockchain sync service exited")
		}
	}()

	srv := server.New(cfg, paymentSvc, statusMgr, consistencyMgr, rollbackMgr, syncSvc, authSvc, paymentRepo, log, wsHub)
	srv.Start()
}
