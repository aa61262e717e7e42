// Package id provides the identifiers of stockflow records.
// New ids are UUIDv7, so they sort by creation time.
package id

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ID is the primary key type of every record.
type ID = uuid.UUID

// ErrNil is returned by Parse for the all-zero UUID.
var ErrNil = errors.New("nil uuid is not a valid id")

// New generates a new UUIDv7.
func New() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// only fails when the random source does
		return uuid.New()
	}
	return id
}

// Parse reads an id from user input. Surrounding spaces are ignored and the
// nil UUID is rejected.
func Parse(s string) (ID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, err
	}
	if parsed == uuid.Nil {
		return uuid.Nil, ErrNil
	}
	return parsed, nil
}

// MustParse is Parse that panics. For tests and constants.
func MustParse(s string) ID {
	parsed, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return parsed
}

// Nil returns the zero id.
func Nil() ID {
	return uuid.Nil
}

// IsNil reports whether id is the zero id.
func IsNil(id ID) bool {
	return id == uuid.Nil
}
