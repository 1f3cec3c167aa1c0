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

	"telecall_backend/internal/adapters"
	"telecall_backend/internal/events"
	apphttp "telecall_backend/internal/http"
	"telecall_backend/internal/http/router"
	"telecall_backend/internal/rawleads"
	userrepo "telecall_backend/internal/users/repository"
	"telecall_backend/platform/config"
	"telecall_backend/platform/db"
	"telecall_backend/platform/logger"
	"telecall_backend/platform/metrics"
	"telecall_backend/platform/queue"
	"telecall_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	startupAttempts  = 5
	startupBaseDelay = 2 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	pool, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	var appMetrics *metrics.Metrics
	if cfg.IsMetricsEnabled() {
		appMetrics = metrics.New()
	}

	// Raw leads only see their own UserDirectory port, never the users schema.
	userDirectory := adapters.NewUserDirectoryAdapter(userrepo.New(pool))

	rawLeadsModule := rawleads.NewModule(pool, userDirectory, eventBus, validator.New(), cfg, appMetrics, log)
	rawLeadsModule.RegisterHandlers(eventBus)

	broker, err := openBroker(ctx, cfg, log)
	if err != nil {
		return err
	}
	if broker != nil {
		events.NewRelay(broker, log).Register(eventBus)
		// Drain in-flight relays before the channel goes away.
		defer func() {
			eventBus.Wait()
			_ = broker.Close()
		}()
	}

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Metrics:  appMetrics,
		Modules:  []apphttp.Module{rawLeadsModule},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return serve(ctx, srv, cfg.GetShutdownTimeout(), log)
}

// openDatabase connects with retries, then applies the embedded migrations.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", startupAttempts, startupBaseDelay, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	log.Info("database connection established")

	if err := withRetry(ctx, log, "database migrations", startupAttempts, startupBaseDelay, func() error {
		return db.RunMigrations(ctx, pool)
	}); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	log.Info("database migrations complete")

	return pool, nil
}

// openBroker dials RabbitMQ when AMQP_URL is set; a nil broker disables the relay.
func openBroker(ctx context.Context, cfg config.BrokerConfig, log *logger.Logger) (*queue.RabbitMQ, error) {
	if cfg.GetAMQPURL() == "" {
		log.Info("event relay disabled")
		return nil, nil
	}

	var broker *queue.RabbitMQ
	if err := withRetry(ctx, log, "rabbitmq connection", startupAttempts, startupBaseDelay, func() error {
		b, err := queue.Dial(cfg.GetAMQPURL(), cfg.GetAMQPExchange())
		if err != nil {
			return err
		}
		broker = b
		return nil
	}); err != nil {
		return nil, fmt.Errorf("connect broker: %w", err)
	}
	log.Info("event relay connected", "exchange", cfg.GetAMQPExchange())
	return broker, nil
}

// serve blocks until ctx is cancelled or the listener fails.
func serve(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration, log *logger.Logger) error {
	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-srvErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutdown signal received, draining connections")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// withRetry runs fn up to attempts times with quadratic backoff.
func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", lastErr)
		if attempt == attempts {
			break
		}

		timer := time.NewTimer(time.Duration(attempt*attempt) * baseDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("%s: %w", name, lastErr)
}
