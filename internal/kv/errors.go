package kv

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Sentinel errors for the KV store adapter's error taxonomy.
var (
	ErrStoreUnavailable = errors.New("kv: store unavailable")
	ErrConflictRetryable = errors.New("kv: conflict, retryable")
	ErrIoFailure         = errors.New("kv: io failure")
	ErrNotFound          = errors.New("kv: not found")
)

// wrap translates a badger error into the adapter's error taxonomy, wrapping
// it with an operation label so callers get a precise call site in errors.Is
// chains and log output.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, badger.ErrConflict):
		return fmt.Errorf("%s: %w", op, ErrConflictRetryable)
	case errors.Is(err, badger.ErrDBClosed):
		return fmt.Errorf("%s: %w", op, ErrStoreUnavailable)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrIoFailure, err)
	}
}

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err is (or wraps) ErrConflictRetryable.
func IsConflict(err error) bool { return errors.Is(err, ErrConflictRetryable) }
