package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"badgekit/internal/database"

	"go.uber.org/zap"
)

// BaseRepository provides common database operations with query logging
type BaseRepository struct {
	db     *database.Manager
	logger *zap.Logger
}

// NewBaseRepository creates a new base repository
func NewBaseRepository(db *database.Manager, logger *zap.Logger) *BaseRepository {
	return &BaseRepository{
		db:     db,
		logger: logger,
	}
}

// ===============================
// CORE DATABASE OPERATIONS
// ===============================

// ExecContext executes a statement, logging slow or failing queries
func (r *BaseRepository) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	result, err := r.db.ExecContext(ctx, query, args...)
	r.observe(database.QueryKindExec, query, time.Since(start), err)
	return result, err
}

// QueryContext executes a query that returns rows
func (r *BaseRepository) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query, args...)
	r.observe(database.QueryKindQuery, query, time.Since(start), err)
	return rows, err
}

// QueryRowContext executes a query that returns a single row
func (r *BaseRepository) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	start := time.Now()
	row := r.db.QueryRowContext(ctx, query, args...)
	r.observe(database.QueryKindQueryRow, query, time.Since(start), nil)
	return row
}

func (r *BaseRepository) observe(kind, query string, duration time.Duration, err error) {
	r.db.RecordQuery(kind, duration, err)

	if duration > r.db.SlowQueryThreshold() {
		r.logger.Warn("Slow query detected",
			zap.String("query", r.truncateQuery(query)),
			zap.Duration("duration", duration),
		)
	}

	if err != nil {
		r.logger.Error("Query execution failed",
			zap.String("query", r.truncateQuery(query)),
			zap.Error(err),
		)
	}
}

// ===============================
// TRANSACTION HELPERS
// ===============================

// WithTransaction executes fn within a database transaction. The transaction
// is rolled back when fn returns an error or panics.
func (r *BaseRepository) WithTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.Error("Failed to rollback transaction",
				zap.Error(rbErr),
				zap.NamedError("cause", err),
			)
		}
		return err
	}

	return tx.Commit()
}

// ===============================
// UTILITY METHODS
// ===============================

// truncateQuery truncates long queries for logging
func (r *BaseRepository) truncateQuery(query string) string {
	const maxLength = 200
	if len(query) <= maxLength {
		return query
	}
	return query[:maxLength] + "..."
}

// IsNotFound checks if error is a "not found" error
func (r *BaseRepository) IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// GetLogger returns the logger instance
func (r *BaseRepository) GetLogger() *zap.Logger {
	return r.logger
}
