package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	apperrors "library/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ────────────────────────────────────────────────
// Fake pgx transaction
// ────────────────────────────────────────────────

type fakeTx struct {
	pgx.Tx

	execs      []string
	execErr    error
	commitErr  error
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	return pgconn.CommandTag{}, f.execErr
}

func (f *fakeTx) Commit(ctx context.Context) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(ctx context.Context) error {
	f.rolledBack = true
	return nil
}

type fakeBeginner struct {
	tx       *fakeTx
	beginErr error
}

func (f *fakeBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	return f.tx, nil
}

// ────────────────────────────────────────────────
// Classify
// ────────────────────────────────────────────────

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantBusy   bool
		wantUnique bool
	}{
		{"nil", nil, false, false},
		{"lock timeout", &pgconn.PgError{Code: "55P03"}, true, false},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true, false},
		{"serialization", &pgconn.PgError{Code: "40001"}, true, false},
		{"statement timeout", &pgconn.PgError{Code: "57014"}, true, false},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false, true},
		{"other pg error", &pgconn.PgError{Code: "23503"}, false, false},
		{"deadline", context.DeadlineExceeded, true, false},
		{"plain", errors.New("boom"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			assert.Equal(t, tt.wantBusy, IsBusy(got))
			assert.Equal(t, tt.wantUnique, IsUniqueViolation(got))
			if tt.err != nil {
				assert.ErrorIs(t, got, tt.err)
			}
		})
	}
}

func TestConstraintName(t *testing.T) {
	err := Classify(&pgconn.PgError{Code: "23505", ConstraintName: "members_phone_lower_key"})
	assert.Equal(t, "members_phone_lower_key", ConstraintName(err))
	assert.Empty(t, ConstraintName(errors.New("boom")))
}

func TestClassify_Idempotent(t *testing.T) {
	once := Classify(&pgconn.PgError{Code: "55P03"})
	twice := Classify(once)
	assert.Equal(t, once, twice)
}

// ────────────────────────────────────────────────
// ExecuteTransaction
// ────────────────────────────────────────────────

func TestExecuteTransaction_CommitsOnSuccess(t *testing.T) {
	tx := &fakeTx{}
	tm := NewTransactionManager(&fakeBeginner{tx: tx}, 1500*time.Millisecond)

	var seen DBTX
	err := tm.ExecuteTransaction(context.Background(), func(ctx context.Context, q DBTX) error {
		seen = q
		return nil
	})

	require.NoError(t, err)
	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
	assert.Same(t, tx, seen)
	require.Len(t, tx.execs, 1)
	assert.Equal(t, "SET LOCAL lock_timeout = '1500ms'", tx.execs[0])
}

func TestExecuteTransaction_NoLockTimeout(t *testing.T) {
	tx := &fakeTx{}
	tm := NewTransactionManager(&fakeBeginner{tx: tx}, 0)

	require.NoError(t, tm.ExecuteTransaction(context.Background(), func(ctx context.Context, q DBTX) error { return nil }))
	assert.Empty(t, tx.execs)
}

func TestExecuteTransaction_AppErrorPassesThroughAndRollsBack(t *testing.T) {
	tx := &fakeTx{}
	tm := NewTransactionManager(&fakeBeginner{tx: tx}, time.Second)
	want := apperrors.ActionForbidden("Book not available")

	err := tm.ExecuteTransaction(context.Background(), func(ctx context.Context, q DBTX) error {
		return want
	})

	assert.Same(t, want, err)
	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
}

func TestExecuteTransaction_LockTimeoutBecomesBusy(t *testing.T) {
	tx := &fakeTx{}
	tm := NewTransactionManager(&fakeBeginner{tx: tx}, time.Second)

	err := tm.ExecuteTransaction(context.Background(), func(ctx context.Context, q DBTX) error {
		return &pgconn.PgError{Code: "55P03", Message: "canceling statement due to lock timeout"}
	})

	require.Error(t, err)
	assert.True(t, IsBusy(err))
	assert.True(t, tx.rolledBack)
}

func TestExecuteTransaction_CommitFailure(t *testing.T) {
	tx := &fakeTx{commitErr: &pgconn.PgError{Code: "40001"}}
	tm := NewTransactionManager(&fakeBeginner{tx: tx}, time.Second)

	err := tm.ExecuteTransaction(context.Background(), func(ctx context.Context, q DBTX) error { return nil })

	require.Error(t, err)
	assert.True(t, IsBusy(err))
	assert.True(t, strings.HasPrefix(err.Error(), "failed to commit transaction"))
}

func TestExecuteTransaction_BeginFailure(t *testing.T) {
	tm := NewTransactionManager(&fakeBeginner{beginErr: errors.New("pool closed")}, time.Second)

	err := tm.ExecuteTransaction(context.Background(), func(ctx context.Context, q DBTX) error {
		t.Fatal("fn must not run when begin fails")
		return nil
	})
	require.Error(t, err)
}

func TestExecuteTransaction_RollsBackOnPanic(t *testing.T) {
	tx := &fakeTx{}
	tm := NewTransactionManager(&fakeBeginner{tx: tx}, time.Second)

	assert.Panics(t, func() {
		_ = tm.ExecuteTransaction(context.Background(), func(ctx context.Context, q DBTX) error {
			panic("boom")
		})
	})
	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
}

func TestExecuteTransaction_SetLockTimeoutFailure(t *testing.T) {
	tx := &fakeTx{execErr: errors.New("conn reset")}
	tm := NewTransactionManager(&fakeBeginner{tx: tx}, time.Second)

	err := tm.ExecuteTransaction(context.Background(), func(ctx context.Context, q DBTX) error {
		t.Fatal("fn must not run when the session cannot be configured")
		return nil
	})
	require.Error(t, err)
	assert.True(t, tx.rolledBack)
}
