package entities

import "fmt"

// The concurrency core reports expected outcomes (missing rows, stale
// versions, refused resolutions) as typed errors so callers can branch with
// errors.As instead of parsing messages.

// RecordNotFoundError indicates the id has no row in the given table.
type RecordNotFoundError struct {
	Table string
	ID    string
}

func (e *RecordNotFoundError) Error() string {
	return fmt.Sprintf("record not found: %s/%s", e.Table, e.ID)
}

// VersionConflictError indicates a conditional update or version check found
// a version other than the one the caller last observed.
type VersionConflictError struct {
	Table    string
	ID       string
	Expected int64
	Actual   int64
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict on %s/%s: expected %d, actual %d",
		e.Table, e.ID, e.Expected, e.Actual)
}

// TransactionError wraps a storage-level failure, recording how many attempts
// were made before giving up. Retryable contention errors are retried inside
// the coordinator; this error surfaces only on exhaustion or a non-retryable
// failure.
type TransactionError struct {
	Attempts int
	Err      error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

// TxnTimeoutError indicates RunWithTimeout stopped waiting. The underlying
// transaction was not cancelled and may still commit in the storage engine.
type TxnTimeoutError struct {
	Elapsed string
}

func (e *TxnTimeoutError) Error() string {
	return fmt.Sprintf("transaction wait abandoned after %s (underlying work may still commit)", e.Elapsed)
}

// ResolutionError indicates a conflict could not be resolved as requested:
// the strategy is illegal for the conflict type, auto-resolution was attempted
// on a non-auto-resolvable conflict, the conflict was already resolved, or the
// merge heuristics refused to combine the values.
type ResolutionError struct {
	ConflictID string
	Reason     string
}

func (e *ResolutionError) Error() string {
	if e.ConflictID == "" {
		return "cannot resolve conflict: " + e.Reason
	}
	return fmt.Sprintf("cannot resolve conflict %s: %s", e.ConflictID, e.Reason)
}
