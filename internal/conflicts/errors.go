package conflicts

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/warden/pkg/faults"
)

var (
	ErrNotFound        = faults.New(faults.ErrNotFound, "conflict record not found")
	ErrSubjectRequired = faults.Validation("subject required")
	ErrSourceRequired  = faults.Validation("external_source_id required")
	ErrInvalidRef      = faults.Validation("content_type must be post or comment when content_id is set")
	ErrActionTaken     = faults.New(faults.ErrInvalidTransition, "action already taken")
	ErrTooManyClaims   = faults.Validation("too many external claims")
	ErrTrustRange      = faults.Validation("field_trust and external_trust must be between 0 and 100")
)

// MapHTTPStatus maps conflict domain errors to HTTP status codes.
// Identical claims are unprocessable rather than malformed.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNoConflict) {
		return http.StatusUnprocessableEntity
	}
	return faults.HTTPStatus(err)
}
