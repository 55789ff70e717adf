// Package id issues the opaque handles returned by registration APIs.
package id

import (
	"github.com/oklog/ulid/v2"
)

// Handle identifies one registration (a middleware, reducer, or
// subscription) for the lifetime of its store. Handles are ULIDs, so they
// are unique per process and sort by creation time.
type Handle string

// New returns a fresh Handle.
func New() Handle {
	return Handle(ulid.Make().String())
}

// Parse validates that s is a well-formed Handle.
func Parse(s string) (Handle, error) {
	id, err := ulid.ParseStrict(s)
	if err != nil {
		return "", err
	}
	return Handle(id.String()), nil
}

// IsValid reports whether s parses as a Handle.
func IsValid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

func (h Handle) String() string {
	return string(h)
}
