package txn

import (
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/themis-db/themis/internal/kv"
)

// conflictRetryMaxElapsed bounds how long RunWithConflictRetry keeps
// retrying a ConflictRetryable commit before giving up.
const conflictRetryMaxElapsed = 2 * time.Second

// RunWithConflictRetry runs op, retrying with exponential backoff only when
// op's error is kv.ErrConflictRetryable (badger's SSI conflict signal).
// Any other error is permanent and returned immediately; the caller is
// expected to retry with fresh reads.
func RunWithConflictRetry(op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = conflictRetryMaxElapsed

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if kv.IsConflict(err) {
			return err
		}
		return backoff.Permanent(err)
	}, bo)
}
