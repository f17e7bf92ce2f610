package jury

import (
	"github.com/JaimeStill/warden/pkg/faults"
)

var (
	ErrNotFound         = faults.New(faults.ErrNotFound, "deliberation not found")
	ErrDuplicate        = faults.New(faults.ErrDuplicate, "an appeal for this report already exists")
	ErrDuplicateVote    = faults.New(faults.ErrDuplicate, "juror has already voted")
	ErrClosed           = faults.New(faults.ErrClosed, "deliberation is not accepting votes")
	ErrNotAppealable    = faults.New(faults.ErrInvalidTransition, "only resolved or dismissed reports can be appealed")
	ErrNotEscalated     = faults.New(faults.ErrInvalidTransition, "deliberation is not escalated")
	ErrDeadlineOpen     = faults.New(faults.ErrInvalidTransition, "voting window has not ended")
	ErrNotParty         = faults.New(faults.ErrUnauthorized, "only the content author or reporter may appeal")
	ErrIneligibleJuror  = faults.New(faults.ErrUnauthorized, "parties to the report may not serve as jurors")
	ErrReportRequired   = faults.Validation("report_id required")
	ErrStatementTooLong = faults.Validation("statement exceeds %d characters", maxStatementLength)
	ErrInvalidVerdict   = faults.Validation("verdict must be uphold or overturn")
)

// MapHTTPStatus maps jury domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	return faults.HTTPStatus(err)
}
