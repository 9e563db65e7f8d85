package matching

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrVersionConflict means the sync-state version moved since it was read.
	ErrVersionConflict = errors.New("requirement sync version conflict")
	ErrDuplicate       = errors.New("duplicate row")
	// ErrRetryableTx covers serialization failures and deadlocks.
	ErrRetryableTx = errors.New("retryable transaction failure")
)

type classifiedError struct {
	kind error
	err  error
}

func (e *classifiedError) Error() string { return e.kind.Error() + ": " + e.err.Error() }
func (e *classifiedError) Unwrap() []error {
	return []error{e.kind, e.err}
}

// classify maps driver errors onto the repo sentinels, keeping the cause.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrVersionConflict) {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &classifiedError{kind: ErrDuplicate, err: err}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return &classifiedError{kind: ErrDuplicate, err: err}
		case "40001", "40P01":
			return &classifiedError{kind: ErrRetryableTx, err: err}
		}
	}
	return err
}
