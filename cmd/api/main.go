package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/mashael7430-ux/MPADCS/api/routes"
	"github.com/mashael7430-ux/MPADCS/internal/administration"
	"github.com/mashael7430-ux/MPADCS/internal/auth"
	"github.com/mashael7430-ux/MPADCS/internal/dashboard"
	"github.com/mashael7430-ux/MPADCS/internal/disposal"
	"github.com/mashael7430-ux/MPADCS/internal/ledger"
	"github.com/mashael7430-ux/MPADCS/internal/preferences"
	"github.com/mashael7430-ux/MPADCS/internal/reconciliation"
	"github.com/mashael7430-ux/MPADCS/internal/supply"
	"github.com/mashael7430-ux/MPADCS/pkg/auth/session"
	"github.com/mashael7430-ux/MPADCS/pkg/config"
	"github.com/mashael7430-ux/MPADCS/pkg/db"
	"github.com/mashael7430-ux/MPADCS/pkg/estimator"
	"github.com/mashael7430-ux/MPADCS/pkg/logger"
	"github.com/mashael7430-ux/MPADCS/pkg/metrics"
	"github.com/mashael7430-ux/MPADCS/pkg/migrate"
	"github.com/mashael7430-ux/MPADCS/pkg/outbox"
	"github.com/mashael7430-ux/MPADCS/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := multierr.Combine(redisClient.Close(), dbClient.Close()); err != nil {
			logg.Error(context.Background(), "error closing connections", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	stockMetrics := metrics.NewStockMetrics(registry)

	locker, err := ledger.NewLocker(cfg.Ledger, redisClient)
	if err != nil {
		logg.Error(ctx, "failed to create ledger locker", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	medicationRepo := ledger.NewRepository(dbClient.DB())
	logRepo := administration.NewRepository(dbClient.DB())

	ledgerService, err := ledger.NewService(medicationRepo, dbClient, locker, outboxService, logg)
	if err != nil {
		logg.Error(ctx, "failed to create ledger service", err)
		os.Exit(1)
	}

	if cfg.FeatureFlags.SeedDefaults {
		inserted, err := ledgerService.SeedDefaults(ctx)
		if err != nil {
			logg.Error(ctx, "failed to seed default medications", err)
			os.Exit(1)
		}
		if inserted > 0 {
			logg.Info(logg.WithField(ctx, "inserted", inserted), "seeded default medications")
		}
	}

	var est estimator.Estimator
	estimatorClient, err := estimator.NewFromConfig(ctx, cfg.Estimator)
	if err != nil {
		logg.Error(ctx, "failed to create estimator client", err)
		os.Exit(1)
	}
	if estimatorClient != nil {
		est = estimatorClient
	} else {
		logg.Warn(ctx, "optical estimator disabled; manual counts only")
	}

	auditor, err := reconciliation.NewAuditor(medicationRepo, logg)
	if err != nil {
		logg.Error(ctx, "failed to create auditor", err)
		os.Exit(1)
	}

	administrationService, err := administration.NewService(administration.ServiceParams{
		Repo:        logRepo,
		Medications: medicationRepo,
		Ledger:      ledgerService,
		Locker:      locker,
		Tx:          dbClient,
		Outbox:      outboxService,
		Metrics:     stockMetrics,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create administration service", err)
		os.Exit(1)
	}

	supplyService, err := supply.NewService(supply.ServiceParams{
		Repo:        supply.NewRepository(dbClient.DB()),
		Medications: medicationRepo,
		Ledger:      ledgerService,
		Locker:      locker,
		Tx:          dbClient,
		Outbox:      outboxService,
		Metrics:     stockMetrics,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create supply service", err)
		os.Exit(1)
	}

	disposalService, err := disposal.NewService(disposal.ServiceParams{
		Repo:        disposal.NewRepository(dbClient.DB()),
		Medications: medicationRepo,
		Ledger:      ledgerService,
		Locker:      locker,
		Tx:          dbClient,
		Outbox:      outboxService,
		Metrics:     stockMetrics,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create disposal service", err)
		os.Exit(1)
	}

	dashboardService, err := dashboard.NewService(medicationRepo, logRepo)
	if err != nil {
		logg.Error(ctx, "failed to create dashboard service", err)
		os.Exit(1)
	}

	preferencesService, err := preferences.NewService(preferences.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(ctx, "failed to create preferences service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		StaffRepo:      auth.NewStaffRepository(dbClient.DB()),
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		os.Exit(1)
	}

	if cfg.Bootstrap.Enabled() {
		created, err := authService.BootstrapAdmin(ctx, cfg.Bootstrap)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap administrator", err)
			os.Exit(1)
		}
		if created {
			logg.Info(ctx, "bootstrap administrator created")
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(serverCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, registry, routes.Services{
			Auth:           authService,
			Ledger:         ledgerService,
			Auditor:        auditor,
			Administration: administrationService,
			Supply:         supplyService,
			Disposal:       disposalService,
			Dashboard:      dashboardService,
			Preferences:    preferencesService,
			Estimator:      est,
		}),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(serverCtx, "api server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(serverCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(serverCtx, "api server stopped")
}
