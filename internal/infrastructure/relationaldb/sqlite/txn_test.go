package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/lingo-core/internal/domain/entities"
)

func countUnits(t *testing.T, repo *Repository) int {
	t.Helper()
	var n int
	err := repo.DB().QueryRow("SELECT COUNT(*) FROM units").Scan(&n)
	require.NoError(t, err)
	return n
}

func insertUnit(ctx context.Context, tx DBTX, id, key string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO units (id, project_id, key, source_text, created_at) VALUES (?, 'proj', ?, 'text', ?)`,
		id, key, timeNow().UTC())
	return err
}

func TestCoordinator_RunTransaction_Commits(t *testing.T) {
	repo := newTestRepo(t)
	co := NewCoordinator(repo.DB())
	ctx := context.Background()

	err := co.RunTransaction(ctx, func(ctx context.Context, tx DBTX) error {
		return insertUnit(ctx, tx, "u1", "k1")
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countUnits(t, repo))
}

func TestCoordinator_RunTransaction_RollsBackOnError(t *testing.T) {
	repo := newTestRepo(t)
	co := NewCoordinator(repo.DB())
	ctx := context.Background()

	boom := errors.New("boom")
	err := co.RunTransaction(ctx, func(ctx context.Context, tx DBTX) error {
		if err := insertUnit(ctx, tx, "u1", "k1"); err != nil {
			return err
		}
		return boom
	})
	// The action's own error is returned as-is, not wrapped.
	assert.Equal(t, boom, err)
	assert.Equal(t, 0, countUnits(t, repo))
}

func TestCoordinator_RunTransactionRetry_RetriesContention(t *testing.T) {
	repo := newTestRepo(t)
	co := NewCoordinator(repo.DB())
	ctx := context.Background()

	attempts := 0
	err := co.RunTransactionRetry(ctx, func(ctx context.Context, tx DBTX) error {
		attempts++
		if attempts < 3 {
			return errors.New("database is locked")
		}
		return insertUnit(ctx, tx, "u1", "k1")
	}, 3, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 1, countUnits(t, repo))
}

func TestCoordinator_RunTransactionRetry_ExhaustsRetries(t *testing.T) {
	repo := newTestRepo(t)
	co := NewCoordinator(repo.DB())
	ctx := context.Background()

	attempts := 0
	err := co.RunTransactionRetry(ctx, func(ctx context.Context, tx DBTX) error {
		attempts++
		return errors.New("database is locked")
	}, 2, time.Millisecond)

	var txErr *entities.TransactionError
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, 3, txErr.Attempts)
	assert.Equal(t, 3, attempts)
}

func TestCoordinator_RunWithSavepoint_RollsBackPartialWork(t *testing.T) {
	repo := newTestRepo(t)
	co := NewCoordinator(repo.DB())
	ctx := context.Background()

	err := co.RunTransaction(ctx, func(ctx context.Context, tx DBTX) error {
		if err := insertUnit(ctx, tx, "u1", "k1"); err != nil {
			return err
		}
		spErr := co.RunWithSavepoint(ctx, tx, "inner", func(ctx context.Context, tx DBTX) error {
			if err := insertUnit(ctx, tx, "u2", "k2"); err != nil {
				return err
			}
			return errors.New("inner failure")
		})
		assert.EqualError(t, spErr, "inner failure")
		// The enclosing transaction is still viable.
		return insertUnit(ctx, tx, "u3", "k3")
	})
	require.NoError(t, err)
	assert.Equal(t, 2, countUnits(t, repo))
}

func TestCoordinator_RunWithSavepoint_RejectsBadName(t *testing.T) {
	repo := newTestRepo(t)
	co := NewCoordinator(repo.DB())
	ctx := context.Background()

	err := co.RunTransaction(ctx, func(ctx context.Context, tx DBTX) error {
		return co.RunWithSavepoint(ctx, tx, "bad name; DROP", func(ctx context.Context, tx DBTX) error {
			return nil
		})
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid savepoint name")
}

func TestCoordinator_RunBatch_AbortsOnFirstFailure(t *testing.T) {
	repo := newTestRepo(t)
	co := NewCoordinator(repo.DB())
	ctx := context.Background()

	ops := []BatchOp{
		{Name: "first", Fn: func(ctx context.Context, tx DBTX) error {
			return insertUnit(ctx, tx, "u1", "k1")
		}},
		{Name: "second", Fn: func(ctx context.Context, tx DBTX) error {
			return errors.New("bad op")
		}},
		{Name: "third", Fn: func(ctx context.Context, tx DBTX) error {
			return insertUnit(ctx, tx, "u3", "k3")
		}},
	}

	_, err := co.RunBatch(ctx, ops, false)
	require.Error(t, err)
	// All-or-nothing: the first op's insert rolled back with the batch.
	assert.Equal(t, 0, countUnits(t, repo))
}

func TestCoordinator_RunBatch_ContinueOnError(t *testing.T) {
	repo := newTestRepo(t)
	co := NewCoordinator(repo.DB())
	ctx := context.Background()

	ops := []BatchOp{
		{Name: "first", Fn: func(ctx context.Context, tx DBTX) error {
			return insertUnit(ctx, tx, "u1", "k1")
		}},
		{Name: "second", Fn: func(ctx context.Context, tx DBTX) error {
			return errors.New("bad op")
		}},
		{Name: "third", Fn: func(ctx context.Context, tx DBTX) error {
			return insertUnit(ctx, tx, "u3", "k3")
		}},
	}

	results, err := co.RunBatch(ctx, ops, true)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
	// The failed op rolled back alone; the others committed.
	assert.Equal(t, 2, countUnits(t, repo))
}

func TestCoordinator_RunExclusive_Commits(t *testing.T) {
	repo := newTestRepo(t)
	co := NewCoordinator(repo.DB())
	ctx := context.Background()

	err := co.RunExclusive(ctx, func(ctx context.Context, tx DBTX) error {
		return insertUnit(ctx, tx, "u1", "k1")
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countUnits(t, repo))
}

func TestCoordinator_RunWithTimeout_AbandonsSlowWork(t *testing.T) {
	repo := newTestRepo(t)
	co := NewCoordinator(repo.DB())
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	err := co.RunWithTimeout(ctx, func(ctx context.Context, tx DBTX) error {
		close(started)
		<-release
		return nil
	}, 20*time.Millisecond)

	<-started
	var timeout *entities.TxnTimeoutError
	require.ErrorAs(t, err, &timeout)
}

func TestCoordinator_RunWithTimeout_FastWorkSucceeds(t *testing.T) {
	repo := newTestRepo(t)
	co := NewCoordinator(repo.DB())
	ctx := context.Background()

	err := co.RunWithTimeout(ctx, func(ctx context.Context, tx DBTX) error {
		return insertUnit(ctx, tx, "u1", "k1")
	}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, countUnits(t, repo))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(errors.New("database is locked")))
	assert.True(t, IsRetryable(errors.New("SQLITE_BUSY")))
	assert.True(t, IsRetryable(errors.New("cannot start a transaction within a transaction")))
	assert.False(t, IsRetryable(errors.New("constraint failed")))
	assert.False(t, IsRetryable(nil))
}
