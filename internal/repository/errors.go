// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// scheduling services to distinguish between different failure
// scenarios without inspecting driver errors.
package repository

import (
	"database/sql"
	"errors"
	"strings"
)

// ErrNotFound is returned when a lookup by key matches no row.
var ErrNotFound = errors.New("not found")

// ErrNoChange is returned by conditional updates whose WHERE clause no
// longer matches, e.g. a proposal that is not pending any more or a
// reservation marker that is already set.
var ErrNoChange = errors.New("no change")

// ErrDuplicate is returned when an insert violates a unique key.
var ErrDuplicate = errors.New("duplicate")

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// isUniqueViolation recognises unique key errors from mysql (1062),
// postgres (23505) and sqlite.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "1062") ||
		strings.Contains(msg, "23505") ||
		strings.Contains(msg, "unique constraint")
}
