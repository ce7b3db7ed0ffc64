package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/salesops-erp/salesops-erp/internal/access"
	"github.com/salesops-erp/salesops-erp/internal/app"
	"github.com/salesops-erp/salesops-erp/internal/auth"
	"github.com/salesops-erp/salesops-erp/internal/balance"
	"github.com/salesops-erp/salesops-erp/internal/docnum"
	"github.com/salesops-erp/salesops-erp/internal/observability"
	"github.com/salesops-erp/salesops-erp/internal/platform/db"
	"github.com/salesops-erp/salesops-erp/internal/pricing"
	"github.com/salesops-erp/salesops-erp/internal/shared"
	"github.com/salesops-erp/salesops-erp/internal/workflow"
	"github.com/salesops-erp/salesops-erp/jobs"
)

// followUpMailer turns follow-up notifications into queued reminder mails.
type followUpMailer struct {
	client *jobs.Client
	to     string
}

func (m followUpMailer) NotifyFollowUp(ctx context.Context, q workflow.Quotation) error {
	if m.client == nil || m.to == "" {
		return nil
	}
	_, err := m.client.EnqueueSendEmail(ctx, jobs.SendEmailPayload{
		To:      m.to,
		Subject: "Follow-up penawaran " + q.Number,
		Body:    "Penawaran " + q.Number + " baru saja di-follow-up.",
	})
	return err
}

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

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "salesops_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	auditLogger := shared.NewAuditLogger(dbpool)
	policy := access.Middleware{Logger: logger}

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	docnums := docnum.NewGenerator(
		docnum.NewPgRegistry(dbpool),
		cfg.CompanyAbbrev,
		docnum.WithMaxAttempts(cfg.DocnumMaxAttempts),
	)

	pricingRepo := pricing.NewRepository(dbpool)
	resolver := pricing.NewResolver(pricingRepo, redisClient, cfg.PricingCacheTTL)
	pricingHandler := pricing.NewHandler(logger, pricingRepo, policy)

	balanceRepo := balance.NewRepository(dbpool)
	balanceService := balance.NewService(balanceRepo, resolver, docnums, auditLogger, logger)
	balanceHandler := balance.NewHandler(logger, balanceService, policy)

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

	notifier := followUpMailer{client: jobsClient, to: cfg.FollowUpNotifyAddr}
	workflowRepo := workflow.NewRepository(dbpool)
	workflowService := workflow.NewService(workflowRepo, balanceRepo, docnums, auditLogger, notifier, logger)
	workflowService.SetFollowUpWindow(cfg.FollowUpWindow)
	workflowHandler := workflow.NewHandler(logger, workflowService, policy)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		SessionManager:  sessionManager,
		AuthHandler:     authHandler,
		BalanceHandler:  balanceHandler,
		WorkflowHandler: workflowHandler,
		PricingHandler:  pricingHandler,
		JobHandler:      jobHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
