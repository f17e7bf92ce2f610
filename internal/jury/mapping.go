package jury

import (
	"net/url"

	"github.com/google/uuid"

	"github.com/JaimeStill/warden/pkg/query"
	"github.com/JaimeStill/warden/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "jury_deliberations", "d").
	Project("id", "ID").
	Project("report_id", "ReportID").
	Project("appellant_id", "AppellantID").
	Project("statement", "Statement").
	Project("quorum", "Quorum").
	Project("deadline", "Deadline").
	Project("status", "Status").
	Project("outcome", "Outcome").
	Project("resolved_by", "ResolvedBy").
	Project("decided_at", "DecidedAt").
	Project("created_at", "CreatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for deliberation queries.
type Filters struct {
	Status      *Status    `json:"status,omitempty"`
	ReportID    *uuid.UUID `json:"report_id,omitempty"`
	AppellantID *uuid.UUID `json:"appellant_id,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Status", f.Status).
		WhereEquals("ReportID", f.ReportID).
		WhereEquals("AppellantID", f.AppellantID)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		status := Status(s)
		f.Status = &status
	}

	if r := values.Get("report_id"); r != "" {
		if id, err := uuid.Parse(r); err == nil {
			f.ReportID = &id
		}
	}

	if a := values.Get("appellant_id"); a != "" {
		if id, err := uuid.Parse(a); err == nil {
			f.AppellantID = &id
		}
	}

	return f
}

const votesQuery = `
	SELECT juror_id, verdict, cast_at
	FROM jury_votes
	WHERE deliberation_id = $1
	ORDER BY cast_at, juror_id`

func scanDeliberation(s repository.Scanner) (Deliberation, error) {
	var d Deliberation
	err := s.Scan(
		&d.ID,
		&d.ReportID,
		&d.AppellantID,
		&d.Statement,
		&d.Quorum,
		&d.Deadline,
		&d.Status,
		&d.Outcome,
		&d.ResolvedBy,
		&d.DecidedAt,
		&d.CreatedAt,
	)
	return d, err
}

func scanVote(s repository.Scanner) (Vote, error) {
	var v Vote
	err := s.Scan(&v.JurorID, &v.Verdict, &v.CastAt)
	return v, err
}
