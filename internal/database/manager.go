package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"badgekit/internal/config"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Manager owns the draft store connection pool
type Manager struct {
	db     *sql.DB
	logger *zap.Logger
	config *config.DatabaseConfig
	mu     sync.RWMutex

	metrics *Metrics
}

// NewManager opens the connection pool. It does not wait for the server;
// call WaitReady before serving traffic.
func NewManager(cfg *config.DatabaseConfig, logger *zap.Logger) (*Manager, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	configureConnectionPool(db, cfg)

	logger.Info("Database manager created",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
		zap.Duration("conn_max_lifetime", cfg.ConnMaxLifetime),
	)

	return &Manager{
		db:     db,
		logger: logger,
		config: cfg,
	}, nil
}

func configureConnectionPool(db *sql.DB, cfg *config.DatabaseConfig) {
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
}

// WaitReady pings the database with exponential backoff until it answers or
// the configured connect timeout elapses.
func (m *Manager) WaitReady(ctx context.Context) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = m.config.ConnectTimeout

	attempt := 0
	operation := func() error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return m.db.PingContext(pingCtx)
	}

	notify := func(err error, wait time.Duration) {
		m.logger.Warn("Database not ready, retrying",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", wait),
		)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), notify); err != nil {
		return fmt.Errorf("database did not become ready: %w", err)
	}

	m.logger.Info("Database is ready", zap.Int("attempts", attempt))
	return nil
}

// Migrate applies the SQL migrations found under migrationsPath. A separate
// connection is used so closing the migrator leaves the pool intact.
func (m *Manager) Migrate(migrationsPath string) error {
	m.logger.Info("Starting database migrations", zap.String("path", migrationsPath))

	migrationDB, err := sql.Open("postgres", m.config.URL)
	if err != nil {
		return fmt.Errorf("failed to create migration connection: %w", err)
	}
	defer migrationDB.Close()

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer migrator.Close()

	currentVersion, dirty, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		m.logger.Warn("Database is in dirty state", zap.Uint("version", currentVersion))
		return fmt.Errorf("database is in dirty state at version %d", currentVersion)
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	newVersion, _, err := migrator.Version()
	if err != nil {
		return fmt.Errorf("failed to get new migration version: %w", err)
	}

	m.logger.Info("Migrations completed successfully",
		zap.Uint("from_version", currentVersion),
		zap.Uint("to_version", newVersion),
	)

	return nil
}

// ===============================
// QUERY PASSTHROUGH
// ===============================

// ExecContext executes a statement
func (m *Manager) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return m.db.ExecContext(ctx, query, args...)
}

// QueryContext executes a query that returns rows
func (m *Manager) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return m.db.QueryContext(ctx, query, args...)
}

// QueryRowContext executes a single-row query
func (m *Manager) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return m.db.QueryRowContext(ctx, query, args...)
}

// BeginTx starts a new transaction
func (m *Manager) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	tx, err := m.db.BeginTx(ctx, opts)
	if err != nil {
		m.logger.Error("Failed to begin transaction", zap.Error(err))
	}
	return tx, err
}

// SlowQueryThreshold returns the duration above which queries are logged
func (m *Manager) SlowQueryThreshold() time.Duration {
	if m.config.SlowQueryThreshold <= 0 {
		return 100 * time.Millisecond
	}
	return m.config.SlowQueryThreshold
}

// EnableMetrics registers query and pool metrics with registry
func (m *Manager) EnableMetrics(registry prometheus.Registerer) {
	m.metrics = NewMetrics(registry, m.db, m.SlowQueryThreshold())
}

// RecordQuery feeds a finished query into the metrics, if enabled
func (m *Manager) RecordQuery(kind string, duration time.Duration, err error) {
	m.metrics.RecordQuery(kind, duration, err)
}

// Ping checks connectivity, used by the health endpoint
func (m *Manager) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db.PingContext(ctx)
}

// Stats returns connection pool statistics
func (m *Manager) Stats() sql.DBStats {
	return m.db.Stats()
}

// Close closes the connection pool
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db != nil {
		m.logger.Info("Closing database connection")
		return m.db.Close()
	}

	return nil
}
