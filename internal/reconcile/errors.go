package reconcile

import (
	"errors"
	"fmt"
)

var (
	ErrInvariantViolation = errors.New("history invariant violated")
	ErrStaleSnapshot      = errors.New("snapshot is not newer than the last applied one")
	ErrHalted             = errors.New("reconciliation halted pending manual correction")
	ErrInvalidEvent       = errors.New("event does not apply to persisted state")
	ErrInvalidSnapshot    = errors.New("invalid snapshot")
	ErrForeignStore       = errors.New("store keeps the history of another clan")
)

// AmbiguousInputError rejects a snapshot that lists the same id twice.
type AmbiguousInputError struct {
	Kind string
	ID   int32
}

func (e *AmbiguousInputError) Error() string {
	return fmt.Sprintf("ambiguous input: %s %d appears more than once", e.Kind, e.ID)
}

type StorageError struct {
	Clan int32
	Op   string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("clan %d: %s: %v", e.Clan, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Fatal reports whether the clan's history can no longer be written to
// automatically, anything else is worth retrying.
func (e *StorageError) Fatal() bool {
	return errors.Is(e.Err, ErrInvariantViolation) || errors.Is(e.Err, ErrHalted) || errors.Is(e.Err, ErrForeignStore)
}

func IsFatal(err error) bool {
	var storageErr *StorageError
	if errors.As(err, &storageErr) {
		return storageErr.Fatal()
	}
	return errors.Is(err, ErrInvariantViolation) || errors.Is(err, ErrHalted) || errors.Is(err, ErrForeignStore)
}
