package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ersonp/lingo-core/internal/domain/entities"
)

const (
	// DefaultMaxRetries is how many times a contended transaction is retried.
	DefaultMaxRetries = 3
	// DefaultRetryDelay is the base backoff; attempt N waits N times this.
	DefaultRetryDelay = 50 * time.Millisecond
)

// retryableSignatures identify storage contention errors worth retrying.
// Everything else is surfaced immediately.
var retryableSignatures = []string{
	"locked",
	"busy",
	"cannot start a transaction",
}

// validSavepointName restricts savepoint identifiers to plain SQL names.
var validSavepointName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// DBTX is the subset of database/sql operations shared by *sql.DB, *sql.Tx
// and *sql.Conn, so transactional helpers can run in any of them.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxnFunc is the unit of work executed inside a transaction. It may be
// invoked more than once when the transaction is retried on contention, so it
// must reset any state it accumulates outside the database.
type TxnFunc func(ctx context.Context, tx DBTX) error

// BatchOp is one operation of a RunBatch call.
type BatchOp struct {
	Name string
	Fn   TxnFunc
}

// BatchResult records the outcome of one batch operation. In continue-on-error
// mode a failed operation keeps its slot with Err set while later operations
// still run.
type BatchResult struct {
	Name string
	Err  error
}

// Coordinator wraps the storage engine's transaction primitive with
// retry-on-contention, savepoints, exclusive locking and a best-effort
// timeout. All multi-step writes in the concurrency core route through it.
type Coordinator struct {
	db *sql.DB
}

// NewCoordinator creates a Coordinator on the given handle.
func NewCoordinator(db *sql.DB) *Coordinator {
	return &Coordinator{db: db}
}

// RunTransaction executes fn inside a transaction with default retry settings.
func (c *Coordinator) RunTransaction(ctx context.Context, fn TxnFunc) error {
	return c.RunTransactionRetry(ctx, fn, DefaultMaxRetries, DefaultRetryDelay)
}

// RunTransactionRetry executes fn inside a transaction, retrying contention
// failures up to maxRetries times with linearly increasing backoff
// (retryDelay x attempt number). Non-retryable errors from fn are returned
// as-is so callers can match typed outcomes; retry exhaustion and storage
// begin/commit failures are wrapped in *entities.TransactionError carrying
// the attempt count.
func (c *Coordinator) RunTransactionRetry(ctx context.Context, fn TxnFunc, maxRetries int, retryDelay time.Duration) error {
	if maxRetries < 0 {
		maxRetries = 0
	}

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, retryDelay*time.Duration(attempt)); err != nil {
				return &entities.TransactionError{Attempts: attempts, Err: err}
			}
		}
		attempts++

		err := c.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			if isStorageError(err) {
				return &entities.TransactionError{Attempts: attempts, Err: err}
			}
			return err
		}
		lastErr = err
	}

	return &entities.TransactionError{Attempts: attempts, Err: lastErr}
}

// runOnce executes fn in a single transaction attempt.
func (c *Coordinator) runOnce(ctx context.Context, fn TxnFunc) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return &storageError{err: fmt.Errorf("beginning transaction: %w", err)}
	}

	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return &storageError{err: fmt.Errorf("committing transaction: %w", err)}
	}
	return nil
}

// RunWithSavepoint opens a named rollback point, runs fn, and releases the
// savepoint on success. On failure it rolls back to the savepoint and
// re-raises fn's error, leaving the enclosing transaction viable. An empty
// name gets a generated one.
func (c *Coordinator) RunWithSavepoint(ctx context.Context, tx DBTX, name string, fn TxnFunc) error {
	if name == "" {
		name = "sp_" + strings.ReplaceAll(generateUUID(), "-", "")
	}
	if !validSavepointName.MatchString(name) {
		return fmt.Errorf("invalid savepoint name: %q", name)
	}

	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("creating savepoint %s: %w", name, err)
	}

	if err := fn(ctx, tx); err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return fmt.Errorf("rolling back to savepoint %s after %v: %w", name, err, rbErr)
		}
		// Release the now-rolled-back savepoint so names can be reused.
		_, _ = tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name)
		return err
	}

	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("releasing savepoint %s: %w", name, err)
	}
	return nil
}

// RunBatch runs the operations in one transaction, each inside its own
// savepoint. Without continueOnError the first failure aborts the whole
// transaction. With it, a failed operation is rolled back to its savepoint
// and recorded in the returned results while subsequent operations still run.
func (c *Coordinator) RunBatch(ctx context.Context, ops []BatchOp, continueOnError bool) ([]BatchResult, error) {
	results := make([]BatchResult, len(ops))

	err := c.RunTransaction(ctx, func(ctx context.Context, tx DBTX) error {
		for i := range results {
			results[i] = BatchResult{}
		}
		for i, op := range ops {
			name := op.Name
			if name == "" || !validSavepointName.MatchString(name) {
				name = fmt.Sprintf("batch_op_%d", i)
			}
			results[i].Name = op.Name

			opErr := c.RunWithSavepoint(ctx, tx, name, op.Fn)
			if opErr == nil {
				continue
			}
			if !continueOnError {
				return opErr
			}
			results[i].Err = opErr
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// RunExclusive executes fn inside a transaction that takes the write lock
// immediately (BEGIN IMMEDIATE) rather than on first write, for critical
// sections that must not interleave with other writers.
func (c *Coordinator) RunExclusive(ctx context.Context, fn TxnFunc) error {
	run := func() error {
		conn, err := c.db.Conn(ctx)
		if err != nil {
			return &storageError{err: fmt.Errorf("acquiring connection: %w", err)}
		}
		defer conn.Close()

		if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
			return &storageError{err: fmt.Errorf("beginning immediate transaction: %w", err)}
		}

		if err := fn(ctx, conn); err != nil {
			_, _ = conn.ExecContext(ctx, "ROLLBACK")
			return err
		}

		if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
			_, _ = conn.ExecContext(ctx, "ROLLBACK")
			return &storageError{err: fmt.Errorf("committing transaction: %w", err)}
		}
		return nil
	}

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= DefaultMaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, DefaultRetryDelay*time.Duration(attempt)); err != nil {
				return &entities.TransactionError{Attempts: attempts, Err: err}
			}
		}
		attempts++

		err := run()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			if isStorageError(err) {
				return &entities.TransactionError{Attempts: attempts, Err: err}
			}
			return err
		}
		lastErr = err
	}
	return &entities.TransactionError{Attempts: attempts, Err: lastErr}
}

// RunWithTimeout races the transaction against a timer. When the timer fires
// first, the caller gets *entities.TxnTimeoutError and stops waiting, but the
// underlying transaction is NOT cancelled: it keeps the connection and may
// still commit in the storage engine. Callers must not assume cleanup occurred.
func (c *Coordinator) RunWithTimeout(ctx context.Context, fn TxnFunc, d time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- c.RunTransaction(ctx, fn)
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return &entities.TxnTimeoutError{Elapsed: d.String()}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRetryable reports whether err looks like storage contention worth
// retrying, by matching known SQLite signatures in the error text.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range retryableSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// storageError marks begin/commit level failures so the retry loop can tell
// them apart from errors raised by the action itself.
type storageError struct {
	err error
}

func (e *storageError) Error() string { return e.err.Error() }
func (e *storageError) Unwrap() error { return e.err }

func isStorageError(err error) bool {
	_, ok := err.(*storageError)
	return ok
}

// sleepContext waits for d or until the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
