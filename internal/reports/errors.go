package reports

import (
	"github.com/JaimeStill/warden/pkg/faults"
)

var (
	ErrNotFound              = faults.New(faults.ErrNotFound, "report not found")
	ErrDuplicate             = faults.New(faults.ErrDuplicate, "a pending report for this content already exists")
	ErrInvalidTransition     = faults.New(faults.ErrInvalidTransition, "invalid status transition")
	ErrAppealPending         = faults.New(faults.ErrInvalidTransition, "report has an undecided appeal")
	ErrSelfReport            = faults.Validation("cannot report your own content")
	ErrReasonRequired        = faults.Validation("reason required")
	ErrReasonTooLong         = faults.Validation("reason exceeds %d characters", maxReasonLength)
	ErrInvalidContent        = faults.Validation("content_type must be post or comment and content_id is required")
	ErrInvalidStatus         = faults.Validation("unknown status")
	ErrInvalidAction         = faults.Validation("action must be none, delete_content, or warn_user")
	ErrActionRequiresResolve = faults.Validation("actions other than none require status resolved")
	ErrInvalidOutcome        = faults.Validation("unknown appeal outcome")
	ErrEvidenceUnavailable   = faults.New(faults.ErrNotFound, "archived evidence not available")
)

// MapHTTPStatus maps report domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	return faults.HTTPStatus(err)
}
