package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"service-dispatch-go/internal/apperr"
)

// upstream tags a driver failure with apperr.ErrUpstream so callers can
// tell infrastructure faults from domain rejections.
func upstream(err error, format string, args ...any) error {
	args = append(args, apperr.ErrUpstream, err)
	return fmt.Errorf(format+": %w: %w", args...)
}

// IsDuplicate - signals that the error is a duplicate key violation.
func IsDuplicate(err error) bool {
	var pgerr *pgconn.PgError
	return errors.As(err, &pgerr) && pgerr.Code == "23505"
}

// IsNotFound - signals that the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
