package postgres

import (
	"context"
	"fmt"
	"time"

	apperrors "library/pkg/errors"

	"github.com/jackc/pgx/v5"
)

type TransactionFunc func(ctx context.Context, tx DBTX) error

type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}

// Beginner is satisfied by *pgxpool.Pool.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type pgTransactionManager struct {
	db          Beginner
	lockTimeout time.Duration
}

// NewTransactionManager returns a manager whose transactions bound every
// row lock wait by lockTimeout. Zero disables the bound.
func NewTransactionManager(db Beginner, lockTimeout time.Duration) TransactionManager {
	return &pgTransactionManager{
		db:          db,
		lockTimeout: lockTimeout,
	}
}

// ExecuteTransaction commits when fn returns nil and rolls back on error or
// panic. The connection goes back to the pool on every path.
func (m *pgTransactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	tx, err := m.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", Classify(err))
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		// rollback must run even when ctx is already cancelled
		_ = tx.Rollback(context.WithoutCancel(ctx))
		if p := recover(); p != nil {
			panic(p)
		}
	}()

	if m.lockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", m.lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to set lock timeout: %w", Classify(err))
		}
	}

	if err := fn(ctx, tx); err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		return fmt.Errorf("transaction failed: %w", Classify(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", Classify(err))
	}
	committed = true
	return nil
}
