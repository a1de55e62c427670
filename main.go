package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"nftsalesgo/internal/access"
	"nftsalesgo/internal/clock"
	"nftsalesgo/internal/config"
	"nftsalesgo/internal/custody"
	"nftsalesgo/internal/database/db_client"
	"nftsalesgo/internal/database/pgstore"
	"nftsalesgo/internal/http/http_server"
	"nftsalesgo/internal/logging"
	"nftsalesgo/internal/redis/eventbus"
	"nftsalesgo/internal/redis/redis_client"
	"nftsalesgo/internal/redis/saletimer"
	"nftsalesgo/internal/redis/watcher/expirywatcher"
	"nftsalesgo/internal/sales"
	"nftsalesgo/internal/services/market"
	"nftsalesgo/internal/sweeper"
	"nftsalesgo/internal/treasury"
	"nftsalesgo/internal/ws"
)

func main() {
	// 1. Configuration; the bootstrap logger only covers config loading.
	boot, _ := zap.NewDevelopment()
	zap.ReplaceGlobals(boot)

	cfg, err := config.LoadConfig()
	if err != nil {
		boot.Fatal("Failed to load configuration", zap.Error(err))
	}

	Log, err := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer Log.Sync()
	zap.ReplaceGlobals(Log)
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg.Redacted()))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Redis: event fan-out, settlement timers, settle locks
	redisClient, err := redis_client.NewRedisClient(cfg.RedisHost, int(cfg.RedisPort))
	if err != nil {
		Log.Fatal("Failed to create Redis client", zap.Error(err))
	}
	defer redisClient.Close()

	// 4. Sale ledger
	var store sales.Store
	switch cfg.StoreBackend {
	case "memory":
		store = sales.NewMemoryStore()
		Log.Warn("using in-memory sale store; state is lost on restart")
	default:
		pgDb, err := db_client.Open(cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDb)
		if err != nil {
			Log.Fatal("pg-open", zap.Error(err))
		}
		defer pgDb.Close()
		if err := db_client.Migrate(ctx, pgDb); err != nil {
			Log.Fatal("pg-migrate", zap.Error(err))
		}
		if store, err = pgstore.New(pgDb, cfg.SaleCacheSize); err != nil {
			Log.Fatal("pg-store", zap.Error(err))
		}
	}

	// 5. Custody and treasury collaborators
	var custodian market.Custody
	if cfg.CustodyURL != "" {
		custodian = custody.NewClient(cfg.CustodyURL, cfg.CollaboratorTimeout)
	} else {
		registry := custody.NewRegistry()
		if err := registry.Seed(cfg.CustodySeed); err != nil {
			Log.Fatal("custody-seed", zap.Error(err))
		}
		custodian = registry
	}
	var vault market.Treasury = treasury.NewVault()
	if cfg.TreasuryURL != "" {
		vault = treasury.NewClient(cfg.TreasuryURL, cfg.CollaboratorTimeout)
	}

	// 6. Market service
	clk := clock.System()
	marketService, err := market.NewService(market.Deps{
		Store:         store,
		Custody:       custodian,
		Treasury:      vault,
		Admins:        access.NewStaticRegistry(cfg.AdminIDs...),
		Clock:         clk,
		Publisher:     eventbus.New(redisClient),
		Timers:        saletimer.New(redisClient, clk),
		MarketplaceID: cfg.MarketplaceID,
		Settings: market.Settings{
			Timing:          cfg.Timing(),
			Fees:            cfg.Fees(),
			MinBidIncrement: cfg.BidMinIncrement,
		},
	})
	if err != nil {
		Log.Fatal("market-service", zap.Error(err))
	}

	// 7. Background settlement: key-expiry watcher plus periodic sweep
	go expirywatcher.Run(ctx, redisClient, marketService)
	sweeper.Run(ctx, marketService, cfg.SweepInterval)

	// 8. WebSockets hub and server
	hub := ws.NewHub()
	wsSrv := ws.NewWsServer(hub, redisClient, marketService)

	// 9. HTTP + WS server
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, wsSrv, marketService)
	go func() {
		<-ctx.Done()
		_ = httpServer.Dispose()
	}()
	if err := httpServer.Start(); err != nil {
		Log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
}
