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
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/dairy-erp/ledger/internal/accounting"
	"github.com/dairy-erp/ledger/internal/accounting/ledgers"
	"github.com/dairy-erp/ledger/internal/accounting/memstore"
	"github.com/dairy-erp/ledger/internal/accounting/reports"
	"github.com/dairy-erp/ledger/internal/accounting/statements"
	"github.com/dairy-erp/ledger/internal/accounting/vouchers"
	"github.com/dairy-erp/ledger/internal/app"
	"github.com/dairy-erp/ledger/internal/observability"
	"github.com/dairy-erp/ledger/internal/platform/cache"
	"github.com/dairy-erp/ledger/internal/platform/db"
	"github.com/dairy-erp/ledger/internal/shared"
	"github.com/dairy-erp/ledger/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping ledger startup")
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

	var pool *pgxpool.Pool
	if cfg.UsesPostgres() {
		pool, err = db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
		if err != nil {
			logger.Error("connect database", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, running without report cache", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	rules := reports.DefaultRules()
	if cfg.BalanceSheetRules != "" {
		rules, err = reports.LoadRules(cfg.BalanceSheetRules)
		if err != nil {
			logger.Error("load balance sheet rules", slog.Any("error", err))
			os.Exit(1)
		}
	}

	metrics := observability.NewMetrics()
	services := buildServices(cfg, pool, redisClient, rules, metrics, logger)

	var idempotency accounting.IdempotencyPort
	if pool != nil || redisClient != nil {
		idempotency = shared.NewIdempotencyStore(pool, redisClient, cfg.IdempotencyRetention)
	}

	var inspector jobs.QueueInspector
	if redisClient != nil {
		opt, err := jobs.RedisOpt(cfg.RedisAddr)
		if err != nil {
			logger.Error("parse redis address", slog.Any("error", err))
			os.Exit(1)
		}
		asynqInspector := asynq.NewInspector(opt)
		defer func() {
			if err := asynqInspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		inspector = asynqInspector
	}

	checks := map[string]app.HealthCheck{}
	if pool != nil {
		checks["postgres"] = pool.Ping
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		AccountingHandler: accounting.NewHandler(logger, services, idempotency),
		JobHandler:        jobs.NewHandler(inspector, logger),
		Metrics:           metrics,
		HealthChecks:      checks,
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("ledger api listening", slog.String("addr", cfg.AppAddr), slog.String("store", cfg.LedgerStore))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

// buildServices wires the accounting services onto the configured store.
func buildServices(cfg *app.Config, pool *pgxpool.Pool, redisClient *redis.Client, rules reports.Rules, metrics *observability.Metrics, logger *slog.Logger) accounting.Services {
	var (
		ledgerRepo    ledgers.Repository
		voucherRepo   vouchers.Repository
		statementRepo statements.Repository
		reportRepo    reports.Repository
		ledgerAudit   ledgers.AuditPort
		voucherAudit  vouchers.AuditPort
	)
	if pool != nil {
		audit := shared.NewAuditLogger(pool)
		ledgerRepo, voucherRepo = ledgers.NewRepository(pool), vouchers.NewRepository(pool)
		statementRepo, reportRepo = statements.NewRepository(pool), reports.NewRepository(pool)
		ledgerAudit, voucherAudit = audit, audit
	} else {
		store := memstore.New()
		ledgerRepo, voucherRepo = store.Ledgers(), store.Vouchers()
		statementRepo, reportRepo = store.Statements(), store.Reports()
	}

	var reportCache reports.Cache
	ledgerService := ledgers.NewService(ledgerRepo, ledgerAudit, logger)
	voucherService := vouchers.NewService(voucherRepo, voucherAudit, logger)
	voucherService.SetRecorder(metrics)
	if redisClient != nil {
		versioned := cache.NewVersioned(redisClient, "ledger:reports", cfg.BalanceSheetCacheTTL)
		reportCache = versioned
		ledgerService.SetInvalidator(versioned)
		voucherService.SetInvalidator(versioned)
	}

	reportService := reports.NewService(reportRepo, reportCache, reports.Config{
		Rules:     rules,
		Tolerance: cfg.BalanceSheetTolerance,
	}, logger)
	reportService.SetRecorder(metrics)

	return accounting.Services{
		Ledgers:    ledgerService,
		Vouchers:   voucherService,
		Statements: statements.NewService(statementRepo, logger),
		Reports:    reportService,
	}
}
