package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Togather-Foundation/gatherings/internal/api"
	"github.com/Togather-Foundation/gatherings/internal/config"
	"github.com/Togather-Foundation/gatherings/internal/metrics"
	"github.com/Togather-Foundation/gatherings/internal/storage"
	"github.com/Togather-Foundation/gatherings/internal/storage/memory"
	"github.com/Togather-Foundation/gatherings/internal/storage/postgres"
	"github.com/Togather-Foundation/gatherings/internal/telemetry"
)

// memoryDatabaseURL selects the in-process store instead of PostgreSQL.
const memoryDatabaseURL = "memory"

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	host    string
	port    int
	migrate bool
}

func newServeCommand(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server and begin accepting API requests.

The server will:
- Load configuration from environment variables (or --config file if provided)
- Connect to PostgreSQL (or keep data in memory when DATABASE_URL=memory)
- Serve the /api/v1 endpoints plus /healthz, /readyz, /version and /metrics
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with default configuration (from env vars)
  server serve

  # Start on a specific host and port
  server serve --host 127.0.0.1 --port 9090

  # Apply pending migrations first
  server serve --migrate

  # Throwaway in-memory instance
  DATABASE_URL=memory JWT_SECRET=dev server serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), root, opts)
		},
	}
	cmd.Flags().StringVar(&opts.host, "host", "", "server host address (default: 0.0.0.0)")
	cmd.Flags().IntVar(&opts.port, "port", 0, "server port (default: 8080)")
	cmd.Flags().BoolVar(&opts.migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func runServer(ctx context.Context, root *rootOptions, opts *serveOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if opts.host != "" {
		cfg.Server.Host = opts.host
	}
	if opts.port != 0 {
		cfg.Server.Port = opts.port
	}

	logger := config.NewLogger(cfg.Logging, os.Stdout)
	logger.Info().Str("environment", cfg.Environment).Msg("starting gatherings server")

	metrics.Init(Version, GitCommit)

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing, Version, nil)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error().Err(err).Msg("tracing shutdown error")
		}
	}()

	if opts.migrate && cfg.Database.URL != memoryDatabaseURL {
		if err := postgres.MigrateUp(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
			return err
		}
		logger.Info().Msg("migrations applied")
	}

	repo, closeRepo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	router := api.NewRouter(cfg, logger, repo, api.BuildInfo{Version: Version, Commit: GitCommit})
	defer router.Close()

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       10 * time.Second, // Total time to read request
		WriteTimeout:      30 * time.Second, // Total time to write response
		ReadHeaderTimeout: 5 * time.Second,  // Time to read headers
		MaxHeaderBytes:    1 << 20,          // 1 MB max header size
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	return gracefulShutdown(ctx, server, serveErr, logger)
}

// openRepository returns the configured store and a function releasing it.
func openRepository(ctx context.Context, cfg config.Config, logger zerolog.Logger) (storage.Repository, func(), error) {
	if cfg.Database.URL == memoryDatabaseURL {
		if cfg.Environment == "production" {
			return nil, nil, fmt.Errorf("the in-memory store cannot be used in production")
		}
		logger.Warn().Msg("using in-memory store; data is lost on exit")
		return memory.New(), func() {}, nil
	}

	poolCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := postgres.NewPool(poolCtx, cfg.Database.URL, cfg.Database.MaxConnections)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	repo, err := postgres.NewRepository(pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	// Pool statistics every 15 seconds
	collector := metrics.NewDBCollector(pool)
	go collector.Start(context.Background(), 15*time.Second)
	logger.Info().Msg("database metrics collector started")

	return repo, func() {
		collector.Stop()
		pool.Close()
	}, nil
}

func gracefulShutdown(ctx context.Context, server *http.Server, serveErr <-chan error, logger zerolog.Logger) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err, ok := <-serveErr:
		if ok && err != nil {
			logger.Error().Err(err).Msg("http server error")
			return err
		}
		return nil
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}
