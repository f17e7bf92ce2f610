package trust

import (
	"github.com/JaimeStill/warden/pkg/faults"
)

var (
	ErrNotFound      = faults.New(faults.ErrNotFound, "trust profile not found")
	ErrInvalidRef    = faults.Validation("content_type must be post or comment and content_id is required")
	ErrBatchTooLarge = faults.Validation("batch exceeds the configured maximum")
)

// MapHTTPStatus maps trust domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	return faults.HTTPStatus(err)
}
