package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/cache"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/mail"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/realtime"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/storage"
	"github.com/spec-kit/helpdesk/internal/upload"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	store := repository.NewStore(pg.PoolHandle())

	blobs, err := storage.NewLocalBlobStore(cfg.Storage.Root)
	if err != nil {
		logger.Fatal("failed to prepare attachment storage", zap.Error(err))
	}

	hub := realtime.NewHub(cfg.Realtime.SessionBuffer, logger, metrics)
	var dispatcher events.Dispatcher = hub
	if cfg.Realtime.RelayEnabled {
		relay := realtime.NewRedisRelay(redis.Client, cfg.Realtime.RelayChannel, hub, logger)
		dispatcher = events.Multi(hub, relay)
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("realtime relay stopped", zap.Error(err))
			}
		}()
	}

	mailer, closeMailer := mail.NewOutbound(cfg.Mail, cfg.Queue, logger)
	defer closeMailer()

	notifier := service.NewNotificationService(service.NotificationDependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Mailer:     mailer,
		BaseURL:    cfg.Mail.BaseURL,
		Logger:     logger,
	})
	ticketDeps := service.TicketDependencies{
		Store:       store,
		Notifier:    notifier,
		Attachments: service.NewAttachmentStager(upload.NewGuard(cfg.Storage.MaxUploadBytes), blobs, logger),
		Logger:      logger,
	}

	var dashboardCache service.DashboardCache
	if ttl := cfg.Dashboard.CacheTTL(); ttl > 0 {
		dashboardCache = cache.NewDashboardCache(redis.Client, ttl)
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens, store.Users(), logger)

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: cfg.App.BodyLimitBytes,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:        handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, hub, metrics),
		Tickets:       handlers.NewTicketsHandler(service.NewTicketService(ticketDeps)),
		Comments:      handlers.NewCommentsHandler(service.NewCommentService(ticketDeps)),
		Feedback:      handlers.NewFeedbackHandler(service.NewFeedbackService(ticketDeps)),
		Notifications: handlers.NewNotificationsHandler(notifier),
		Activity: handlers.NewActivityHandler(
			service.NewHistoryService(store),
			service.NewDashboardService(store, dashboardCache, logger, nil),
		),
		Reference:      handlers.NewReferenceHandler(service.NewReferenceService(store)),
		Media:          handlers.NewMediaHandler(blobs),
		Live:           handlers.NewLiveHandler(hub, authMiddleware, cfg.Realtime.PingInterval(), logger),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
