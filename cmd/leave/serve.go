/*
serve.go - HTTP server command

STARTUP SEQUENCE:
  1. Load configuration from the environment
  2. Open the configured store (memory, sqlite or postgres)
  3. Build the request manager with its change feed and metrics
  4. Configure the HTTP router and start the shortage monitor
  5. Serve until SIGINT/SIGTERM, then shut down gracefully

GRACEFUL SHUTDOWN:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the monitor, close the change feed and the store
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/warp/leave-engine/api"
	"github.com/warp/leave-engine/config"
	"github.com/warp/leave-engine/events"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/leave/store"
	"github.com/warp/leave-engine/metrics"
	"github.com/warp/leave-engine/store/postgres"
	"github.com/warp/leave-engine/store/sqlite"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	backend, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var sink leave.ChangeSink = events.Noop{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer publisher.Close()
		sink = publisher
		logger.Info("publishing request changes", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	mgr := leave.NewManager(backend,
		leave.WithChangeSink(sink),
		leave.WithObserver(metrics.NewRecorder()),
		leave.WithLogger(logger),
		leave.WithTransactionalValidation(cfg.App.TransactionalValidation),
	)
	handler := api.NewHandler(backend, mgr, logger)

	router := api.NewRouter(handler, api.RouterConfig{
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		RateLimit:      rate.Limit(cfg.HTTP.RateLimit),
		RateBurst:      cfg.HTTP.RateBurst,
		Logger:         logger,
	})

	monitor := api.NewShortageMonitor(handler.Aggregator, backend, logger)
	monitor.CheckInterval = cfg.Monitor.Interval
	monitor.Enabled = cfg.Monitor.Interval > 0
	monitor.Start()
	defer monitor.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", server.Addr, "store", cfg.Store.Backend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-quit:
		logger.Info("shutting down server", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// openStore opens the configured backend. The returned func releases it.
func openStore(ctx context.Context, cfg *config.Config) (api.Backend, func(), error) {
	switch cfg.Store.Backend {
	case config.StoreMemory:
		return store.NewMemory(), func() {}, nil
	case config.StorePostgres:
		s, err := postgres.New(ctx, cfg.Store.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize postgres: %w", err)
		}
		return s, func() { s.Close() }, nil
	default:
		s, err := sqlite.New(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return s, func() { s.Close() }, nil
	}
}
