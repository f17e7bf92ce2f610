package storage

import (
	"github.com/JaimeStill/warden/pkg/faults"
)

var (
	// ErrNotFound indicates no evidence object exists under the key.
	ErrNotFound = faults.New(faults.ErrNotFound, "evidence object not found")
	// ErrExists indicates the key already holds an object.
	ErrExists = faults.New(faults.ErrDuplicate, "evidence object already archived")
	// ErrEmptyKey indicates an empty storage key was provided.
	ErrEmptyKey = faults.New(faults.ErrValidation, "storage key must not be empty")
	// ErrInvalidKey indicates the storage key contains a path traversal segment.
	ErrInvalidKey = faults.New(faults.ErrValidation, "storage key contains invalid path segment")
)

// MapHTTPStatus maps storage errors to HTTP status codes by fault kind.
func MapHTTPStatus(err error) int {
	return faults.HTTPStatus(err)
}
