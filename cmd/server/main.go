package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/streamify-app/backend/internal/chat"
	"github.com/streamify-app/backend/internal/handlers"
	"github.com/streamify-app/backend/internal/metrics"
	"github.com/streamify-app/backend/internal/reconcile"
	"github.com/streamify-app/backend/internal/repositories"
	"github.com/streamify-app/backend/internal/router"
	"github.com/streamify-app/backend/internal/services"
	"github.com/streamify-app/backend/pkg/config"
	"github.com/streamify-app/backend/pkg/firebase"
	"github.com/streamify-app/backend/pkg/logger"
)

type indexer interface {
	EnsureIndexes(ctx context.Context) error
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logger.New(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connections
	db, err := config.InitDB(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize databases")
	}
	defer db.CloseDB()

	// Repositories
	userRepo := repositories.NewMongoUserRepository(db.Database)
	friendRepo := repositories.NewMongoFriendshipRepository(db.Database)
	groupRepo := repositories.NewMongoGroupRepository(db.Database)
	groupReqRepo := repositories.NewMongoGroupRequestRepository(db.Database)
	for _, idx := range []indexer{userRepo, friendRepo, groupRepo, groupReqRepo} {
		if err := idx.EnsureIndexes(ctx); err != nil {
			log.WithError(err).Fatal("failed to create indexes")
		}
	}

	health := map[string]handlers.Pinger{"mongo": handlers.PingFunc(db.PingMongo)}

	var ledger repositories.SyncEventRepository
	if db.Postgres != nil {
		if err := repositories.MigrateSyncEvents(db.Postgres); err != nil {
			log.WithError(err).Fatal("failed to migrate sync ledger")
		}
		ledger = repositories.NewPostgresSyncEventRepository(db.Postgres)
		health["postgres"] = handlers.PingFunc(db.PingPostgres)
	}

	// Chat platform
	platform, err := chat.NewStreamPlatform(cfg.StreamAPIKey, cfg.StreamAPISecret)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize chat platform")
	}
	var syncLedger chat.Ledger
	if ledger != nil {
		syncLedger = ledger
	}
	syncer := chat.NewSyncer(log, syncLedger)

	authOpts := services.AuthOptions{JWTSecret: cfg.JWTSecret, SessionTTL: cfg.SessionTTL}
	if cfg.FirebaseCredentialsPath != "" {
		fb, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath, log)
		if err != nil {
			log.WithError(err).Fatal("failed to initialize Firebase")
		}
		authOpts.Verifier = fb
	}

	policy, err := services.ParseRecipientPolicy(cfg.GroupRequestPolicy)
	if err != nil {
		log.WithError(err).Fatal("invalid group request policy")
	}

	svc := router.Services{
		Auth:    services.NewAuthService(userRepo, platform, syncer, log, authOpts),
		Friends: services.NewFriendService(userRepo, friendRepo, log),
		Groups:  services.NewGroupService(groupRepo, groupReqRepo, userRepo, platform, syncer, policy, log),
	}

	// Background reconciliation
	job := reconcile.NewJob(groupRepo, userRepo, ledger, platform, svc.Groups, log)
	scheduler, err := job.Schedule(cfg.ReconcileSchedule)
	if err != nil {
		log.WithError(err).Fatal("failed to schedule reconciliation")
	}
	scheduler.Start()

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	httpLog := logger.Component(log, "http")
	e.HTTPErrorHandler = handlers.ErrorHandler(httpLog)

	config.SetupMiddleware(e, cfg, httpLog)
	router.SetupRoutes(e, svc, router.Options{
		CookieSecure:  cfg.CookieSecure,
		AuthRateLimit: cfg.AuthRateLimit,
		AuthRateBurst: cfg.AuthRateBurst,
		HealthChecks:  health,
	}, httpLog)

	metricsSrv := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server stopped")
		}
	}()

	// Start server
	go func() {
		log.WithField("port", cfg.Port).Info("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	<-scheduler.Stop().Done()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown failed")
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("metrics server shutdown failed")
	}
}
