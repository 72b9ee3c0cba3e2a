package store

import (
	"errors"
	"fmt"
)

// ConflictError reports a uniqueness violation on the cached-result business
// key that the operation could not absorb, e.g. a racing insert inside a
// batch create. The whole enclosing transaction has been rolled back; the
// caller may retry the batch.
type ConflictError struct {
	Key AnalysisKey
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("cached result conflict for key %s: a concurrent writer committed first", e.Key)
}

// ConsistencyError reports a broken invariant: after the single allowed
// conflict recovery the fallback read still found no live row for the key.
// This is fatal and must not be retried by the cache itself.
type ConsistencyError struct {
	Key AnalysisKey
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("cache consistency violation for key %s: no live row visible after conflict recovery", e.Key)
}

// ValidationError reports a malformed write or patch request. Nothing was
// written.
type ValidationError struct {
	Entity string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s request: %v", e.Entity, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// TxError wraps any other store-level fault. The enclosing transaction was
// rolled back in full; no partial state persists. The raw driver error stays
// inside the wrap and never crosses the boundary on its own.
type TxError struct {
	Entity string
	Op     string
	Err    error
}

func (e *TxError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Err)
}

func (e *TxError) Unwrap() error { return e.Err }

// IsConflict reports whether err carries a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsConsistencyViolation reports whether err carries a ConsistencyError.
func IsConsistencyViolation(err error) bool {
	var ce *ConsistencyError
	return errors.As(err, &ce)
}
