package postgres

import (
	"errors"
	"fmt"
	"strings"

	"gavelogy/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// IsPgDuplicateError checks if error is a unique constraint violation
func IsPgDuplicateError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23505 = unique_violation
		return pgErr.Code == "23505"
	}
	return false
}

// IsPgNoRowsError checks if error is a "no rows" error
func IsPgNoRowsError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsPgForeignKeyError checks if error is a foreign key violation
func IsPgForeignKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23503 = foreign_key_violation
		return pgErr.Code == "23503"
	}
	return false
}

// translateError maps driver errors onto domain errors so callers can
// branch with errors.Is regardless of backend.
func translateError(err error, op, table string, ids []string) error {
	switch {
	case err == nil:
		return nil
	case IsPgDuplicateError(err):
		return &domain.ConflictError{
			Message:      fmt.Sprintf("%s: row already exists in %s", op, table),
			ResourceType: table,
			ResourceID:   strings.Join(ids, ","),
		}
	case IsPgForeignKeyError(err):
		return &domain.ValidationError{
			Message: fmt.Sprintf("%s on %s violates a reference: %v", op, table, err),
		}
	case IsPgNoRowsError(err):
		return fmt.Errorf("%s %s: %w", op, table, domain.ErrNotFound)
	default:
		return fmt.Errorf("%s %s: %w", op, table, err)
	}
}
