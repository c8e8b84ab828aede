package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jwalitptl/access-policy/internal/config"
	auditHandler "github.com/jwalitptl/access-policy/internal/handler/audit"
	"github.com/jwalitptl/access-policy/internal/handler/health"
	policyHandler "github.com/jwalitptl/access-policy/internal/handler/policy"
	"github.com/jwalitptl/access-policy/internal/middleware"
	"github.com/jwalitptl/access-policy/internal/policy"
	"github.com/jwalitptl/access-policy/internal/repository/postgres"
	"github.com/jwalitptl/access-policy/internal/router"
	auditService "github.com/jwalitptl/access-policy/internal/service/audit"
	policyService "github.com/jwalitptl/access-policy/internal/service/policy"
	"github.com/jwalitptl/access-policy/internal/worker"
	"github.com/jwalitptl/access-policy/migrations"
	"github.com/jwalitptl/access-policy/pkg/auth"
	"github.com/jwalitptl/access-policy/pkg/i18n"
	"github.com/jwalitptl/access-policy/pkg/logger"
	"github.com/jwalitptl/access-policy/pkg/messaging"
	"github.com/jwalitptl/access-policy/pkg/messaging/redis"
	"github.com/jwalitptl/access-policy/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		JSON:       cfg.Log.JSON,
	})
	gin.SetMode(gin.ReleaseMode)

	if cfg.JWT.Secret == "" {
		log.Fatal(errors.New("jwt.secret is empty"), "Refusing to start without a JWT secret")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "Failed to connect to database")
	}
	defer db.Close()

	if cfg.Database.Migrate {
		if _, err := postgres.Migrate(context.Background(), db, migrations.FS, log); err != nil {
			log.Fatal(err, "Failed to apply migrations")
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics("access_policy", "", reg)

	// Events are best effort; the API keeps serving without Redis.
	var broker messaging.Broker = messaging.NopBroker{}
	redisLog := log.ZL.With().Str("component", "redis").Logger()
	if b, err := redis.NewRedisBroker(cfg.Redis.ToBrokerConfig(), &redisLog); err != nil {
		log.Error(err, "Redis unavailable, policy events are disabled")
	} else {
		broker = b
		defer broker.Close()
	}

	catalog := i18n.NewCatalog()
	if err := catalog.Load(policy.Translations); err != nil {
		log.Fatal(err, "Failed to load message catalog")
	}

	baseRepo := postgres.NewBaseRepository(db)
	userRepo := postgres.NewUserRepository(baseRepo)
	policyRepo := postgres.NewPolicyRepository(baseRepo)
	auditRepo := postgres.NewAuditRepository(baseRepo)

	mode, _ := policy.ParseMode(cfg.Policy.Mode)
	engine := policy.NewEngine(cfg.Policy.EngineConfig(), log, m)
	auditor := auditService.NewService(auditRepo)
	policySvc := policyService.NewService(
		policyService.Config{DefaultMode: mode},
		policyRepo,
		userRepo,
		engine,
		auditor,
		broker,
		log,
		m,
	)

	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)

	r := router.NewRouter(
		log,
		middleware.NewAuthMiddleware(jwtSvc),
		health.NewHandler(db),
		router.RouterConfig{
			RateEnabled: cfg.RateLimit.Enabled,
			RateLimit: middleware.RateLimiterConfig{
				RPS:       cfg.RateLimit.RequestsPerSecond,
				Burst:     cfg.RateLimit.Burst,
				ClientTTL: cfg.RateLimit.ClientTTL,
			},
			MetricsPrefix: "access_policy",
			Registry:      reg,
		},
		policyHandler.NewHandler(policySvc, catalog),
		auditHandler.NewHandler(auditor),
	)
	r.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cleanup := worker.NewAuditCleanupWorker(auditRepo, log, cfg.Audit.RetentionDays, cfg.Audit.CleanupInterval)
	go cleanup.Start(ctx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("Starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err, "Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "Server forced to shutdown")
	}

	log.Info("Server exited properly")
}
