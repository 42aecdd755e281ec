package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/messengerflow/inbox-service/internal/api/http"
	"github.com/messengerflow/inbox-service/internal/api/http/handlers"
	"github.com/messengerflow/inbox-service/internal/auth"
	"github.com/messengerflow/inbox-service/internal/config"
	"github.com/messengerflow/inbox-service/internal/events"
	"github.com/messengerflow/inbox-service/internal/observability"
	"github.com/messengerflow/inbox-service/internal/persistence"
	"github.com/messengerflow/inbox-service/internal/platform"
	"github.com/messengerflow/inbox-service/internal/relay"
	"github.com/messengerflow/inbox-service/internal/service"
	"github.com/messengerflow/inbox-service/internal/session"
	"github.com/messengerflow/inbox-service/internal/store"
	syncengine "github.com/messengerflow/inbox-service/internal/sync"
	"github.com/messengerflow/inbox-service/internal/webhook"
	"github.com/messengerflow/inbox-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()

	// The relay serves /api/db against one of two backends: a local Postgres
	// when a DSN is configured (self-hosted mode), otherwise the hosted REST
	// upstream.
	var pg *persistence.Postgres
	var backend relay.Backend
	if cfg.Postgres.DSN != "" {
		pg, err = persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()

		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		backend = relay.NewPostgresBackend(pg.PoolHandle())
		logger.Info("relay backed by local postgres")
	} else {
		backend = relay.NewRESTBackend(cfg.Relay)
		logger.Info("relay backed by hosted upstream")
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()
	sessions := session.NewRedisStore(redis.Client)

	// The engine reads the store through its own relay endpoint so both
	// backends exercise the exact wire contract the portal client uses.
	relayURL := cfg.Relay.SelfURL
	if relayURL == "" {
		relayURL = fmt.Sprintf("http://127.0.0.1:%s/api/db", cfg.App.Port)
	}
	storeClient := store.NewClient(relayURL, cfg.Relay.Timeout())

	platformClient := platform.NewClient(cfg.Platform)

	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.RegisterEventLogging(dispatcher, logger)

	engine := syncengine.NewEngine(cfg.Sync, syncengine.Dependencies{
		Store:      storeClient,
		Platform:   platformClient,
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
		SeedAgents: service.SeedRoster(cfg.Auth),
	})

	authService := service.NewAuthService(cfg.Auth, engine, sessions)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), sessions)

	syncWorker := worker.NewSyncWorker(cfg.Sync, engine, func() bool {
		return authService.HasActiveSession(ctx)
	}, logger)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Inbox:          handlers.NewInboxHandler(engine),
		Admin:          handlers.NewAdminHandler(engine, authService),
		System:         handlers.NewSystemHandler(engine),
		Relay:          relay.NewHandler(backend, logger),
		Webhook:        webhook.NewHandler(cfg.Webhook.VerifyToken, engine, logger),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	// Initial load runs after the server is up because the engine reaches
	// the store through the relay this process serves.
	go func() {
		if err := engine.Load(ctx); err != nil {
			logger.Warn("initial load failed", zap.Error(err))
		}
	}()

	syncWorker.Start(ctx)

	waitForShutdown(logger)

	syncWorker.Stop()
	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
