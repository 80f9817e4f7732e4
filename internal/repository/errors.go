package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrHasDependencies is returned when a delete is blocked by a foreign key.
var ErrHasDependencies = errors.New("record is referenced by other data")

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// ErrDuplicateRole is returned when a role name is already taken.
var ErrDuplicateRole = errors.New("role with this name already exists")
