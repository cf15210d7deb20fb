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

	"github.com/angelmondragon/rentalcrm-backend/api/middleware"
	trackingcontrollers "github.com/angelmondragon/rentalcrm-backend/api/controllers/tracking"
	"github.com/angelmondragon/rentalcrm-backend/api/routes"
	"github.com/angelmondragon/rentalcrm-backend/internal/bootstrap"
	"github.com/angelmondragon/rentalcrm-backend/internal/crmadmin"
	"github.com/angelmondragon/rentalcrm-backend/internal/tracking"
	"github.com/angelmondragon/rentalcrm-backend/pkg/config"
	"github.com/angelmondragon/rentalcrm-backend/pkg/env"
	"github.com/angelmondragon/rentalcrm-backend/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
		FilePath:    cfg.App.LogFile,
	})
	defer logg.Close()

	core, err := bootstrap.Build(ctx, cfg, logg, bootstrap.Options{PubSub: cfg.Tracking.Async()})
	requireResource(ctx, logg, "crm core", err)
	defer func() {
		if err := core.Close(); err != nil {
			logg.Error(ctx, "error closing crm core", err)
		}
	}()

	crmService, err := crmadmin.NewService(crmadmin.ServiceParams{
		Store:      core.Store,
		Contacts:   core.Contacts,
		Activities: core.Activities,
		Tasks:      core.Tasks,
		Logger:     logg,
	})
	requireResource(ctx, logg, "crm admin service", err)

	var publisher trackingcontrollers.EventPublisher
	if cfg.Tracking.Async() {
		queue, err := tracking.NewQueue(core.PubSub, cfg.Tracking.Topic)
		requireResource(ctx, logg, "tracking queue", err)
		publisher = queue
	}

	var limiter middleware.WindowLimiter
	if core.Redis != nil {
		limiter = core.Redis
	} else {
		logg.Warn(ctx, "redis not configured; tracking endpoint is not rate limited")
	}

	var metricsHandler http.Handler
	if core.Metrics != nil {
		metricsHandler = promhttp.HandlerFor(core.Metrics, promhttp.HandlerOpts{})
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx = logg.WithFields(ctx, map[string]any{
		"env":           cfg.App.Env,
		"addr":          addr,
		"instance":      env.Instance(),
		"kv_backend":    cfg.KV.Normalized(),
		"tracking_mode": cfg.Tracking.Mode,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, core.Pingers(), limiter, core.Dispatcher, publisher, crmService, metricsHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
