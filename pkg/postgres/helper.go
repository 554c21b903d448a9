package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeForeignKeyViolation = "23503"
	codeUniqueViolation     = "23505"
	codeCheckViolation      = "23514"
)

// IsForeignKeyViolation reports whether err is a PostgreSQL foreign key violation (SQLSTATE 23503).
func IsForeignKeyViolation(err error) bool {
	return hasCode(err, codeForeignKeyViolation)
}

// IsUniqueViolation reports whether err is a PostgreSQL unique violation (SQLSTATE 23505).
func IsUniqueViolation(err error) bool {
	return hasCode(err, codeUniqueViolation)
}

// IsCheckViolation reports whether err is a PostgreSQL check constraint violation (SQLSTATE 23514).
func IsCheckViolation(err error) bool {
	return hasCode(err, codeCheckViolation)
}

func hasCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == code
	}
	return false
}
