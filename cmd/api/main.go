package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/fieldkit/dispatch-service/internal/api/http"
	"github.com/fieldkit/dispatch-service/internal/api/http/handlers"
	"github.com/fieldkit/dispatch-service/internal/auth"
	"github.com/fieldkit/dispatch-service/internal/config"
	"github.com/fieldkit/dispatch-service/internal/events"
	"github.com/fieldkit/dispatch-service/internal/observability"
	"github.com/fieldkit/dispatch-service/internal/persistence"
	"github.com/fieldkit/dispatch-service/internal/repository"
	"github.com/fieldkit/dispatch-service/internal/service"
	"github.com/fieldkit/dispatch-service/internal/worker"
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
	ticketRepo := repository.NewTicketRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)
	escalationRepo := repository.NewEscalationRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	otpStore := repository.NewOTPStore(redis.Client, cfg.OTP.TTL())

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	escalationService := service.NewEscalationService(service.EscalationDependencies{
		TicketRepo:     ticketRepo,
		HistoryRepo:    historyRepo,
		EscalationRepo: escalationRepo,
		Dispatcher:     dispatcher,
		Logger:         logger,
		Metrics:        metrics,
		Config:         cfg.Escalation,
	})
	guards := service.NewGuardEvaluator(attachmentRepo, otpStore)
	transitionService := service.NewTransitionService(service.TransitionDependencies{
		TicketRepo:   ticketRepo,
		HistoryRepo:  historyRepo,
		Guards:       guards,
		Escalations:  escalationService,
		Dispatcher:   dispatcher,
		Logger:       logger,
		Metrics:      metrics,
		QueryTimeout: cfg.Postgres.QueryTimeout(),
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     ticketRepo,
		HistoryRepo:    historyRepo,
		AttachmentRepo: attachmentRepo,
		OTPStore:       otpStore,
		Dispatcher:     dispatcher,
	})
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	sweepWorker := worker.NewEscalationWorker(escalationService, cfg.Escalation.SweepInterval(), logger)
	go func() {
		if err := sweepWorker.Run(ctx); err != nil && err != context.Canceled {
			logger.Error("escalation worker exited", zap.Error(err))
		}
	}()

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret)
	authMiddleware := auth.NewAuthMiddleware(tokenManager)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:        handlers.NewTicketsHandler(ticketService, transitionService),
		Escalations:    handlers.NewEscalationsHandler(escalationService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
