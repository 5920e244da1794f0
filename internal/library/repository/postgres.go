package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	libraryerrors "library/internal/library/errors"
	"library/pkg/config"
	"library/pkg/db/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

const constraintMemberPhone = "members_phone_lower_key"

type postgresStore struct {
	pool      *pgxpool.Pool
	txManager postgres.TransactionManager
	*pgQueries
}

func NewPostgresStore(cfg *config.Config) Store {
	pool := cfg.Client.Postgres
	return &postgresStore{
		pool:      pool,
		txManager: postgres.NewTransactionManager(pool, cfg.DBLockTimeout),
		pgQueries: newPgQueries(pool, false, cfg.ReadTimeout, cfg.WriteTimeout),
	}
}

// EnsureSchema creates the tables and indexes when missing. Safe to run on
// every start.
func EnsureSchema(ctx context.Context, db postgres.DBTX) error {
	if _, err := db.Exec(ctx, schemaSQL, pgx.QueryExecModeSimpleProtocol); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (s *postgresStore) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	return s.txManager.ExecuteTransaction(ctx, func(ctx context.Context, tx postgres.DBTX) error {
		return fn(ctx, newPgQueries(tx, true, s.readTimeout, s.writeTimeout))
	})
}

func (s *postgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// pgQueries binds the repositories to either the pool or an open transaction.
type pgQueries struct {
	db           postgres.DBTX
	inTx         bool
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func newPgQueries(db postgres.DBTX, inTx bool, readTimeout, writeTimeout time.Duration) *pgQueries {
	return &pgQueries{
		db:           db,
		inTx:         inTx,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

func (q *pgQueries) Books() BookRepository {
	return &pgBookRepository{q: q}
}

func (q *pgQueries) Members() MemberRepository {
	return &pgMemberRepository{q: q}
}

func (q *pgQueries) Borrowings() BorrowingRepository {
	return &pgBorrowingRepository{q: q}
}

// withTimeout bounds single statements issued outside a transaction. Inside a
// transaction the caller's context and the lock timeout already apply.
func (q *pgQueries) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if q.inTx || timeout <= 0 {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline && time.Until(deadline) < timeout {
		return context.WithDeadline(ctx, deadline)
	}
	return context.WithTimeout(ctx, timeout)
}

func (q *pgQueries) checkLock(lock LockMode) error {
	if lock == LockExclusive && !q.inTx {
		return libraryerrors.ErrLockOutsideTx
	}
	return nil
}

// exec runs a write and reports ErrNotFound when no row was touched.
func (q *pgQueries) exec(ctx context.Context, op string, query sqlQuery, buildErr error) error {
	if buildErr != nil {
		return fmt.Errorf("failed to build %s query: %w", op, buildErr)
	}

	ctx, cancel := q.withTimeout(ctx, q.writeTimeout)
	defer cancel()

	tag, err := q.db.Exec(ctx, query.sql, query.args...)
	if err != nil {
		return translate(op, err)
	}
	if tag.RowsAffected() == 0 {
		return libraryerrors.ErrNotFound
	}
	return nil
}

// insert runs an INSERT ... RETURNING id.
func (q *pgQueries) insert(ctx context.Context, op string, query sqlQuery, buildErr error) (int64, error) {
	if buildErr != nil {
		return 0, fmt.Errorf("failed to build %s query: %w", op, buildErr)
	}

	ctx, cancel := q.withTimeout(ctx, q.writeTimeout)
	defer cancel()

	var id int64
	if err := q.db.QueryRow(ctx, query.sql, query.args...).Scan(&id); err != nil {
		return 0, translate(op, err)
	}
	return id, nil
}

func (q *pgQueries) exists(ctx context.Context, op string, query sqlQuery, buildErr error) (bool, error) {
	if buildErr != nil {
		return false, fmt.Errorf("failed to build %s query: %w", op, buildErr)
	}

	ctx, cancel := q.withTimeout(ctx, q.readTimeout)
	defer cancel()

	var one int
	err := q.db.QueryRow(ctx, query.sql, query.args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, translate(op, err)
	}
	return true, nil
}

func queryOne[T any](ctx context.Context, q *pgQueries, op string, query sqlQuery, buildErr error, scan func(pgx.Row) (*T, error)) (*T, error) {
	if buildErr != nil {
		return nil, fmt.Errorf("failed to build %s query: %w", op, buildErr)
	}

	ctx, cancel := q.withTimeout(ctx, q.readTimeout)
	defer cancel()

	v, err := scan(q.db.QueryRow(ctx, query.sql, query.args...))
	if err != nil {
		return nil, translate(op, err)
	}
	return v, nil
}

func queryAll[T any](ctx context.Context, q *pgQueries, op string, query sqlQuery, buildErr error, scan func(pgx.Row) (*T, error)) ([]*T, error) {
	if buildErr != nil {
		return nil, fmt.Errorf("failed to build %s query: %w", op, buildErr)
	}

	ctx, cancel := q.withTimeout(ctx, q.readTimeout)
	defer cancel()

	rows, err := q.db.Query(ctx, query.sql, query.args...)
	if err != nil {
		return nil, translate(op, err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*T, error) {
		return scan(row)
	})
	if err != nil {
		return nil, translate(op, err)
	}
	return items, nil
}

// translate maps driver errors onto the repository sentinels, keeping
// ErrBusy in the chain so callers can report a retryable failure.
func translate(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return libraryerrors.ErrNotFound
	}
	err = postgres.Classify(err)
	if postgres.IsUniqueViolation(err) {
		if postgres.ConstraintName(err) == constraintMemberPhone {
			return fmt.Errorf("%w: %w", libraryerrors.ErrDuplicatePhone, err)
		}
		return fmt.Errorf("%w: %w", libraryerrors.ErrDuplicate, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
