// Package main is the entry point for the RentRoll API server.
//
// It loads the configuration, opens the database pool, wires the domain
// repositories into the HTTP handlers and the billing task scheduler, and
// runs both the server and the scheduler until a shutdown signal arrives.
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"rentroll/internal/api/handlers"
	"rentroll/internal/config"
	"rentroll/internal/core"
	"rentroll/internal/db"
	"rentroll/internal/notify"
	"rentroll/internal/scheduler"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on
// error.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("rentroll API starting",
		"environment", cfg.Environment,
		"port", cfg.Server.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database pool: %w", err)
	}
	defer pool.Close()

	// Repositories and transactional stores.
	properties := db.NewPropertyRepository(pool)
	tenants := db.NewTenantRepository(pool)
	contracts := db.NewContractStore(pool)
	rents := db.NewRentRepository(pool)
	payments := db.NewPaymentRepository(pool)
	paymentStore := db.NewPaymentStore(pool)

	// Optional ops webhook for generation run summaries.
	var notifier scheduler.GenerationNotifier
	if cfg.Ops.WebhookURL != "" {
		notifier = notify.NewWebhookClient(cfg.Ops.WebhookURL, cfg.Ops.WebhookTimeout, logger)
		logger.Info("ops webhook enabled")
	}

	// Billing tasks and their scheduler.
	generator := scheduler.NewRentGenerator(db.NewGenerationStore(pool), notifier, logger)
	recalculator := scheduler.NewStatusRecalculator(db.NewRecalculationStore(pool), logger)
	sched := scheduler.New(scheduler.Config{
		Generator:      generator,
		Recalculator:   recalculator,
		Logger:         logger,
		TickInterval:   cfg.Scheduler.TickInterval,
		TaskInterval:   cfg.Scheduler.TaskInterval,
		FailureBackoff: cfg.Scheduler.FailureBackoff,
		GenerationHour: &cfg.Scheduler.RentGenerationHour,
		RecalcHour:     &cfg.Scheduler.RecalculationHour,
		Location:       cfg.Scheduler.Location(),
	})

	srv, err := core.NewServer(cfg, pool, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	propertyHandler := handlers.NewPropertyHandler(properties, srv.Validator, logger)
	tenantHandler := handlers.NewTenantHandler(tenants, srv.Validator, logger)
	contractHandler := handlers.NewContractHandler(contracts, tenants, srv.Validator, logger)
	rentHandler := handlers.NewRentHandler(rents, srv.Validator, logger)
	paymentHandler := handlers.NewPaymentHandler(paymentStore, payments, srv.Validator, logger)
	schedulerHandler := handlers.NewSchedulerHandler(sched, logger)

	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		propertyHandler.RegisterRoutes,
		tenantHandler.RegisterRoutes,
		contractHandler.RegisterRoutes,
		rentHandler.RegisterRoutes,
		paymentHandler.RegisterRoutes,
		schedulerHandler.RegisterRoutes,
	)
	srv.MountRoutes()

	sched.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.ListenAndServe)
	g.Go(func() error {
		<-gctx.Done()

		sched.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log
// level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
