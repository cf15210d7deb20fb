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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/rentalcrm-backend/internal/bootstrap"
	"github.com/angelmondragon/rentalcrm-backend/internal/tracking/worker"
	"github.com/angelmondragon/rentalcrm-backend/pkg/config"
	"github.com/angelmondragon/rentalcrm-backend/pkg/env"
	"github.com/angelmondragon/rentalcrm-backend/pkg/idempotency"
	"github.com/angelmondragon/rentalcrm-backend/pkg/logger"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "tracking-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "tracking-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
		FilePath:    cfg.App.LogFile,
	})
	defer logg.Close()

	if !cfg.Redis.Configured() {
		requireResource(ctx, logg, "redis", errors.New("the tracking worker needs redis for redelivery guards"))
	}

	core, err := bootstrap.Build(ctx, cfg, logg, bootstrap.Options{
		PubSub:        true,
		Subscriptions: []string{cfg.Tracking.Subscription},
	})
	requireResource(ctx, logg, "crm core", err)
	defer func() {
		if err := core.Close(); err != nil {
			logg.Error(ctx, "error closing crm core", err)
		}
	}()

	subscription := core.PubSub.Subscription(cfg.Tracking.Subscription)
	if subscription == nil {
		requireResource(ctx, logg, "tracking subscription", errors.New("subscription not configured"))
	}

	manager, err := idempotency.NewManager(core.Redis, cfg.Tracking.IdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	service, err := worker.NewService(subscription, core.Dispatcher, manager, logg, cfg.Tracking.ProcessingDeadline)
	requireResource(ctx, logg, "tracking worker service", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":          cfg.App.Env,
		"instance":     env.Instance(),
		"subscription": cfg.Tracking.Subscription,
		"kv_backend":   cfg.KV.Normalized(),
	})

	if core.Metrics != nil {
		serveMetrics(runCtx, logg, ":"+env.Get("METRICS_PORT", "9090"), promhttp.HandlerFor(core.Metrics, promhttp.HandlerOpts{}))
	}

	logg.Info(runCtx, "tracking worker ready")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "tracking worker failed", err)
		os.Exit(1)
	}
}

// serveMetrics exposes the worker's registry until ctx is canceled.
func serveMetrics(ctx context.Context, logg *logger.Logger, addr string, handler http.Handler) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
