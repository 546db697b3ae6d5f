package database

import (
	"errors"

	"branch-pos/internal/apperr"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
	mysqlErrDuplicateEntry   = 1062
	mysqlErrNoReferencedRow  = 1452
)

// IsUniqueViolation reports whether err came from a unique index.
func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgErrUniqueViolation
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlErrDuplicateEntry
	}
	return false
}

// IsForeignKeyViolation reports whether err came from a dangling reference.
func IsForeignKeyViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgErrForeignKeyViolation
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlErrNoReferencedRow
	}
	return false
}

// Translate turns a storage error into an apperr. what names the entity, e.g. "product".
// Errors that already carry a kind pass through.
func Translate(err error, what string) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound("%s not found", what)
	case IsUniqueViolation(err):
		return apperr.Conflict("%s already exists", what)
	case IsForeignKeyViolation(err):
		return apperr.Reference("%s references a record that does not exist", what)
	}
	return apperr.Internal(err, "failed to access %s", what)
}
