package audit

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/warden/pkg/faults"
)

var (
	ErrNotFound      = faults.New(faults.ErrNotFound, "audit event not found")
	ErrActionMissing = faults.New(faults.ErrValidation, "audit action required")
	ErrQueueFull     = errors.New("audit queue full")
)

// MapHTTPStatus maps audit domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrQueueFull) {
		return http.StatusServiceUnavailable
	}
	return faults.HTTPStatus(err)
}
