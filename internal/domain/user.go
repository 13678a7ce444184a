// Package domain contains entity types without logic, just meta-data
package domain

import "errors"

const MaxDisplayNameLen = 64

var (
	ErrDisplayNameTooLong = errors.New("display name too long")
	ErrDisplayNameEmpty   = errors.New("display name empty")
)

// Identity is the user identifier produced by the token verifier.
// Immutable for the lifetime of a connection.
type Identity string

// ValidateDisplayName checks a client-supplied display name. Names are not
// checked against any directory, only bounded.
func ValidateDisplayName(name string) error {
	if len(name) == 0 {
		return ErrDisplayNameEmpty
	}
	if len(name) > MaxDisplayNameLen {
		return ErrDisplayNameTooLong
	}
	return nil
}
