package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"badgekit/internal/config"
	"badgekit/internal/database"
	"badgekit/internal/response"
	"badgekit/internal/router"
	"badgekit/internal/services"
	"badgekit/internal/utils/appinfo"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// readinessTimeout bounds how long startup waits for the draft store
const readinessTimeout = 30 * time.Second

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "badgekit",
		Short:        "Badge lifecycle service",
		SilenceUsage: true,
	}

	root.AddCommand(newServeCommand(), newMigrateCommand(), newVersionCommand())
	return root
}

// ===============================
// COMMANDS
// ===============================

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply draft store migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := initLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			dbManager, err := database.NewManager(&cfg.Database, logger)
			if err != nil {
				return err
			}
			defer dbManager.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), readinessTimeout)
			defer cancel()
			if err := dbManager.WaitReady(ctx); err != nil {
				return err
			}

			return dbManager.Migrate(cfg.Database.MigrationsPath)
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, args []string) {
			info := appinfo.Get()
			fmt.Fprintf(cmd.OutOrStdout(), "badgekit %s (commit %s, %s)\n", info.Version, info.Commit, info.GoVersion)
		},
	}
}

// ===============================
// SERVER
// ===============================

func runServer() error {
	logger, err := initLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()
	logger.Info("Starting badgekit", zap.String("version", appinfo.GetVersion()))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", zap.Error(err))
		return err
	}

	dbManager, err := database.NewManager(&cfg.Database, logger.Named("database"))
	if err != nil {
		logger.Error("Failed to initialize database", zap.Error(err))
		return err
	}

	readyCtx, cancel := context.WithTimeout(context.Background(), readinessTimeout)
	err = dbManager.WaitReady(readyCtx)
	cancel()
	if err != nil {
		logger.Error("Database not ready", zap.Error(err))
		dbManager.Close()
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	dbManager.EnableMetrics(registry)

	serviceCollection, err := services.NewServiceCollection(dbManager, cfg, registry, logger)
	if err != nil {
		logger.Error("Failed to initialize services", zap.Error(err))
		dbManager.Close()
		return err
	}

	responseConfig := response.DefaultConfig()
	responseConfig.PrettyJSON = cfg.IsDevelopment()
	responseBuilder := response.NewBuilder(responseConfig, logger.Named("response"))

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupRouter(serviceCollection, registry, responseBuilder, logger),
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		MaxHeaderBytes:    1 << 20,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown setup
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server",
			zap.String("address", server.Addr),
			zap.String("environment", cfg.Server.Environment),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case sig := <-quit:
		logger.Info("Shutting down server", zap.String("signal", sig.String()))
	case err := <-serverErr:
		logger.Error("HTTP server failed", zap.Error(err))
		serviceCollection.Shutdown(context.Background())
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := serviceCollection.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("Server exited")
	return nil
}

// initLogger initializes the structured logger based on environment
func initLogger() (*zap.Logger, error) {
	var cfg zap.Config

	switch appinfo.GetEnvironment() {
	case "production", "staging":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		atomicLevel, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
		}
		cfg.Level = atomicLevel
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}
