package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"salvadanaio/internal/cache"
	"salvadanaio/internal/cli"
	apphttp "salvadanaio/internal/http"
	"salvadanaio/internal/log"
	"salvadanaio/internal/middleware/ratelimit"
	"salvadanaio/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := cli.GracefulShutdown(logger)
	defer cancel()

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize budget service", log.FieldError, err)
		os.Exit(1)
	}
	defer app.Close()

	if err := app.Service.Start(ctx); err != nil {
		logger.Error("Failed to start budget service", log.FieldError, err)
		os.Exit(1)
	}

	rateCfg := ratelimit.DefaultConfig()
	rateCfg.RequestsPerMinute = cfg.RateLimitPerMinute
	rateCfg.Burst = cfg.RateLimitBurst

	srv := apphttp.NewServer(":"+cfg.Port, app.Service, app.Hub,
		apphttp.WithLogger(logger),
		apphttp.WithReadyCheck(app.Backend.Ready),
		apphttp.WithRateLimit(rateCfg),
	)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 0 // SSE streams stay open
	srv.MaxHeaderBytes = 1 << 16

	caches := cache.NewManager(logger)
	caches.Register(srv.ReplayCache())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting salvadanaio server",
			"port", cfg.Port,
			"backend", cfg.StorageBackend,
			"scheduler_interval", cfg.SchedulerInterval)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		return nil
	})

	g.Go(func() error {
		runScheduler(gctx, app.Service, cfg.SchedulerInterval, logger.WithComponent(log.ComponentScheduler))
		return nil
	})

	g.Go(func() error {
		return caches.Run(gctx, time.Minute)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := app.Service.Stop(stopCtx); err != nil {
		logger.Error("Budget service stop error", log.FieldError, err)
	}
	logger.Info("Server stopped gracefully")
}

// runScheduler ticks once at startup and then every interval until ctx is done.
func runScheduler(ctx context.Context, svc *services.BudgetService, interval time.Duration, logger *log.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	tick := func() {
		report, err := svc.Tick(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, services.ErrNotRunning) {
				logger.ErrorContext(ctx, "Scheduler tick failed", log.FieldError, err)
			}
			return
		}
		if report.Changed() || len(report.Warnings) > 0 {
			logger.InfoContext(ctx, "Scheduler tick complete",
				"fired", len(report.Fired),
				"warnings", len(report.Warnings))
		}
	}

	tick()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick()
		}
	}
}
