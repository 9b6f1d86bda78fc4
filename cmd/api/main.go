package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/session-service/internal/api/http"
	"github.com/spec-kit/session-service/internal/api/http/handlers"
	"github.com/spec-kit/session-service/internal/auth"
	"github.com/spec-kit/session-service/internal/config"
	"github.com/spec-kit/session-service/internal/events"
	"github.com/spec-kit/session-service/internal/oauth"
	"github.com/spec-kit/session-service/internal/observability"
	"github.com/spec-kit/session-service/internal/persistence"
	"github.com/spec-kit/session-service/internal/repository"
	"github.com/spec-kit/session-service/internal/service"
	"github.com/spec-kit/session-service/internal/worker"
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

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	sessionRepo := repository.NewRefreshSessionRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	auditService := service.NewAuditService(dispatcher, logger, cfg.Audit)
	worker.StartAuditWorker(auditService)

	deps := service.AuthDependencies{
		UserRepo:    userRepo,
		SessionRepo: sessionRepo,
		Cache:       redis.SessionCache(),
		Dispatcher:  dispatcher,
		Logger:      logger,
	}
	if cfg.Google.Enabled() {
		deps.Google = oauth.NewGoogleProvider(cfg.Google)
	} else {
		logger.Info("google oauth disabled")
	}
	authService := service.NewAuthService(*cfg, deps)

	cookies := auth.NewCookiePolicy(cfg.Session)
	accessGuard := auth.NewAccessGuard(authService.TokenManager(), cookies)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		APIPrefix: cfg.Session.APIPath(),
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Auth: handlers.NewAuthHandler(authService, cookies, handlers.AuthHandlerDeps{
			Logger:     logger,
			Metrics:    metrics,
			Dispatcher: dispatcher,
		}),
		AccessGuard: accessGuard,
		Gatherer:    registry,
	})

	go worker.NewSessionSweeper(sessionRepo, cfg.App.SweepInterval(), logger).Run(ctx)

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
	auditService.Wait()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
