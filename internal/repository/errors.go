package repository

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrVersionConflict indicates an optimistic update lost the race
	// against a concurrent writer of the same row.
	ErrVersionConflict = errors.New("repository: version conflict")
)

// DuplicateFieldError reports a unique-constraint violation naming the
// offending column. It is the only storage failure surfaced with detail;
// everything else collapses to a generic internal error at the boundary.
type DuplicateFieldError struct {
	Field string
}

func (e *DuplicateFieldError) Error() string {
	return fmt.Sprintf("repository: duplicate value for %s", e.Field)
}

var constraintFieldPattern = regexp.MustCompile(`Key \((.+?)\)=`)

// MapError converts driver errors into the repository taxonomy. Postgres
// unique violations (23505) are parsed to recover the column name from the
// constraint detail, falling back to the constraint name itself.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		if m := constraintFieldPattern.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
			return &DuplicateFieldError{Field: m[1]}
		}
		return &DuplicateFieldError{Field: pgErr.ConstraintName}
	}

	return err
}
