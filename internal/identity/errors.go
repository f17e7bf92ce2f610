package identity

import (
	"github.com/JaimeStill/warden/pkg/faults"
)

var (
	ErrForbidden   = faults.ErrUnauthorized
	ErrInvalidRole = faults.New(faults.ErrValidation, "invalid role")
	ErrSelfChange  = faults.New(faults.ErrValidation, "admins cannot change their own role")
)

// MapHTTPStatus maps identity domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	return faults.HTTPStatus(err)
}
