package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/inboxrelay/relay-api/internal/config"
	"github.com/inboxrelay/relay-api/internal/platform/expo"
	"github.com/inboxrelay/relay-api/internal/platform/logger"
	"github.com/inboxrelay/relay-api/internal/platform/postgres"
	"github.com/inboxrelay/relay-api/internal/platform/reddit"
	"github.com/inboxrelay/relay-api/internal/platform/revenuecat"
	"github.com/inboxrelay/relay-api/internal/schedule"
	"github.com/inboxrelay/relay-api/internal/service/auth"
	"github.com/inboxrelay/relay-api/internal/task"
)

// application holds the wired components of the server. Everything is
// constructed once in newApplication and shut down in run.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	taskStore     *postgres.TaskStore
	customerStore *postgres.CustomerStore
	accountStore  *postgres.AccountStore

	registry      *task.Registry
	runner        *task.Runner
	producers     []schedule.Producer
	authService   *auth.Service
	tokens        auth.TokenService
	subscriptions *revenuecat.Client
}

// newApplication builds the full dependency graph: config, logger, database,
// migrations, stores, external clients, handler registry, worker pool,
// producers and auth. Startup-time recovery runs later in run, after the
// graph exists but before any worker starts.
func newApplication() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Info("configuration loaded", "port", cfg.Server.Port, "log_level", cfg.Server.LogLevel)

	db, err := setupDatabase(cfg, log)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(db, log); err != nil {
		return nil, err
	}

	app := &application{
		config:        cfg,
		logger:        log,
		db:            db,
		taskStore:     postgres.NewTaskStore(db),
		customerStore: postgres.NewCustomerStore(db),
		accountStore:  postgres.NewAccountStore(db),
		registry:      task.NewRegistry(),
	}

	redditClient := reddit.NewClient()
	expoClient := expo.NewClient()
	app.subscriptions = revenuecat.NewClient(cfg.Subscription.APIKey, cfg.Subscription.ProjectID)

	if err := app.registry.Register(task.NewDemoHandler(log)); err != nil {
		return nil, fmt.Errorf("failed to register demo handler: %w", err)
	}
	checkInbox := task.NewCheckInboxHandler(
		app.accountStore, app.customerStore, redditClient, expoClient, log)
	if err := app.registry.Register(checkInbox); err != nil {
		return nil, fmt.Errorf("failed to register check-inbox handler: %w", err)
	}

	app.runner = task.NewRunner(app.taskStore, app.registry, task.RunnerConfig{
		WorkerCount:    cfg.Worker.Count,
		FetchBatchSize: cfg.Worker.FetchBatchSize,
		PollInterval:   cfg.Worker.PollInterval,
	}, log)

	app.producers = []schedule.Producer{
		schedule.NewInboxCheckProducer(
			app.accountStore, app.taskStore,
			cfg.Scheduler.InboxCheckInterval, cfg.Scheduler.InboxCheckCooldown, log),
		schedule.NewSubscriptionRefreshProducer(
			app.customerStore, app.subscriptions,
			cfg.Scheduler.SubscriptionRefreshInterval, cfg.Scheduler.SubscriptionRefreshPause, log),
		schedule.NewRetentionSweeper(
			app.taskStore,
			cfg.Retention.SweepInterval, cfg.Retention.MaxFinishedTasks,
			cfg.Retention.DeleteBatchSize, log),
	}
	if cfg.Scheduler.DemoInterval > 0 {
		app.producers = append(app.producers,
			schedule.NewDemoProducer(app.taskStore, cfg.Scheduler.DemoInterval, log))
	}

	app.tokens, err = auth.NewTokenService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to set up token service: %w", err)
	}
	app.authService = auth.NewService(cfg.Auth, auth.NewBcryptVerifier(), app.tokens, log)

	return app, nil
}

// run starts the engine and blocks until shutdown. Recovery must succeed
// before any worker or producer starts: a task left "in progress" by a
// previous process instance would otherwise be invisible forever.
func (app *application) run() error {
	defer func() {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database", "error", err)
		}
	}()

	recoveryCtx := logger.WithLogger(context.Background(), app.logger)
	if err := task.RecoverInterrupted(recoveryCtx, app.taskStore, app.logger); err != nil {
		return fmt.Errorf("startup recovery failed: %w", err)
	}

	app.runner.Start()
	app.logger.Info("worker pool started",
		"workers", app.config.Worker.Count,
		"registered_types", app.registry.Types())

	producerCtx, cancelProducers := context.WithCancel(
		logger.WithLogger(context.Background(), app.logger))
	var producerWG sync.WaitGroup
	for _, p := range app.producers {
		producerWG.Add(1)
		go func(p schedule.Producer) {
			defer producerWG.Done()
			schedule.Loop(producerCtx, p, app.logger)
		}(p)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", app.config.Server.Port),
		Handler: app.setupRouter(),
	}

	serverErr := make(chan error, 1)
	go func() {
		app.logger.Info("starting server", "port", app.config.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdownCh:
		app.logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		app.logger.Error("server failed", "error", err)
		cancelProducers()
		producerWG.Wait()
		app.runner.Stop()
		return err
	}

	// Stop taking requests first, then stop producing and executing work.
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("server shutdown failed", "error", err)
	}

	cancelProducers()
	producerWG.Wait()
	app.runner.Stop()

	app.logger.Info("shutdown complete")
	return nil
}
