package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/atlas-catalog/atlas/internal/app"
	"github.com/atlas-catalog/atlas/internal/auth"
	"github.com/atlas-catalog/atlas/internal/authz"
	"github.com/atlas-catalog/atlas/internal/catalog"
	"github.com/atlas-catalog/atlas/internal/memberauth"
	"github.com/atlas-catalog/atlas/internal/observability"
	"github.com/atlas-catalog/atlas/internal/orgs"
	"github.com/atlas-catalog/atlas/internal/platform/cache"
	"github.com/atlas-catalog/atlas/internal/platform/db"
	"github.com/atlas-catalog/atlas/internal/shared"
	"github.com/atlas-catalog/atlas/internal/users"
	"github.com/atlas-catalog/atlas/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "atlas_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersService)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	auditLogger := shared.NewAuditLogger(dbpool)

	orgsRepo := orgs.NewRepository(dbpool)
	orgsService := orgs.NewService(orgsRepo)

	catalogRepo := catalog.NewRepository(dbpool)

	registry := authz.NewRegistry()
	catalog.RegisterDefaults(registry, &catalog.Defaults{Roles: orgsService, Store: catalogRepo})

	plugin := memberauth.New(orgsService, catalogRepo)
	if err := plugin.RegisterAuth(registry); err != nil {
		logger.Error("register auth overrides", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	registry.SetObserver(metrics.ObserveAuthzDecision)

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	catalogService := catalog.NewService(registry, catalogRepo, orgsService, jobsClient, auditLogger, logger)
	catalogService.AddSchemaHook(plugin.SchemaHook())
	catalogHandler := catalog.NewHandler(logger, catalogService)

	orgsHandler := orgs.NewHandler(logger, orgsService, plugin.OrganizationListForUser(orgsService))

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		SessionManager:  sessionManager,
		CSRFManager:     csrfManager,
		ActorMiddleware: auth.ActorMiddleware(logger, usersService),
		AuthHandler:     authHandler,
		UsersHandler:    usersHandler,
		OrgsHandler:     orgsHandler,
		CatalogHandler:  catalogHandler,
		JobsHandler:     jobsHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
