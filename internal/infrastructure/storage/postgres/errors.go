package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"stockflow/internal/core/apperror"
)

// PostgreSQL error codes the repositories translate.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgStringTooLong       = "22001"
)

// AsPgError returns the PostgreSQL error wrapped in err, if any.
func AsPgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	pgErr, ok := AsPgError(err)
	return ok && pgErr.Code == pgUniqueViolation
}

// IsForeignKeyViolation reports whether err is a foreign key violation.
func IsForeignKeyViolation(err error) bool {
	pgErr, ok := AsPgError(err)
	return ok && pgErr.Code == pgForeignKeyViolation
}

// TranslateWriteError maps constraint violations of an INSERT/UPDATE to API errors.
// field/value describe the unique key for DUPLICATE_ENTRY. Other errors pass through.
func TranslateWriteError(err error, entity, field, value string) error {
	pgErr, ok := AsPgError(err)
	if !ok {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return apperror.NewDuplicate(entity, field, value).
			WithDetail("constraint", pgErr.ConstraintName).
			WithCause(err)
	case pgForeignKeyViolation:
		return apperror.NewValidation("referenced record does not exist").
			WithDetail("entity", entity).
			WithDetail("constraint", pgErr.ConstraintName).
			WithCause(err)
	case pgCheckViolation:
		return apperror.NewValidation("value violates a constraint").
			WithDetail("entity", entity).
			WithDetail("constraint", pgErr.ConstraintName).
			WithCause(err)
	case pgStringTooLong:
		return apperror.NewValidation("value is too long").
			WithDetail("entity", entity).
			WithCause(err)
	}
	return err
}

// TranslateDeleteError maps a foreign key violation on DELETE to CONFLICT.
func TranslateDeleteError(err error, entity, entityID string) error {
	if IsForeignKeyViolation(err) {
		pgErr, _ := AsPgError(err)
		return apperror.NewConflict("cannot delete: the record is still referenced").
			WithDetail("entity", entity).
			WithDetail("id", entityID).
			WithDetail("constraint", pgErr.ConstraintName).
			WithCause(err)
	}
	return err
}
