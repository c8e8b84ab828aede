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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwalitptl/access-policy/internal/config"
	"github.com/jwalitptl/access-policy/internal/email"
	"github.com/jwalitptl/access-policy/internal/policy"
	"github.com/jwalitptl/access-policy/internal/worker"
	"github.com/jwalitptl/access-policy/pkg/i18n"
	"github.com/jwalitptl/access-policy/pkg/logger"
	"github.com/jwalitptl/access-policy/pkg/messaging/redis"
	"github.com/jwalitptl/access-policy/pkg/metrics"
)

const healthAddr = ":8081"

func setupHealthCheck(log *logger.Logger, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: healthAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err, "Health check server failed")
		}
	}()
	return srv
}

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
	}).WithFields(map[string]interface{}{"service": "notification-worker"})

	smtpCfg, err := email.LoadSMTPConfig()
	if err != nil {
		log.Fatal(err, "Failed to load SMTP config")
	}

	redisLog := log.ZL.With().Str("component", "redis").Logger()
	broker, err := redis.NewRedisBroker(cfg.Redis.ToBrokerConfig(), &redisLog)
	if err != nil {
		log.Fatal(err, "Failed to create Redis broker")
	}
	defer broker.Close()

	catalog := i18n.NewCatalog()
	for _, t := range []map[string]map[string]string{policy.Translations, worker.NotificationTranslations} {
		if err := catalog.Load(t); err != nil {
			log.Fatal(err, "Failed to load message catalog")
		}
	}

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics("access_policy", "worker", reg)

	notifier := worker.NewNotifier(broker, email.NewSMTPService(smtpCfg), catalog, log, m)
	health := setupHealthCheck(log, reg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Shutting down...")
		cancel()
	}()

	if err := notifier.Start(ctx); err != nil {
		log.Error(err, "Notifier stopped")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = health.Shutdown(shutdownCtx)
}
