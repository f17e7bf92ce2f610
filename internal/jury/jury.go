// Package jury adjudicates appeals against closed reports by quorum voting.
// Votes are serialized per deliberation so the outcome is decided exactly once.
package jury

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/warden/internal/reports"
)

// Verdict is a single juror's decision.
type Verdict string

const (
	Uphold   Verdict = "uphold"
	Overturn Verdict = "overturn"
)

// Valid reports whether v is a known verdict.
func (v Verdict) Valid() bool {
	return v == Uphold || v == Overturn
}

// Outcome maps the verdict onto the report's appeal outcome.
func (v Verdict) Outcome() reports.Outcome {
	if v == Overturn {
		return reports.Overturn
	}
	return reports.Uphold
}

// Status is a deliberation's lifecycle state.
type Status string

const (
	Open      Status = "open"
	Escalated Status = "escalated"
	Closed    Status = "closed"
)

// Vote is one juror's recorded verdict.
type Vote struct {
	JurorID uuid.UUID `json:"juror_id"`
	Verdict Verdict   `json:"verdict"`
	CastAt  time.Time `json:"cast_at"`
}

// Deliberation is the appeal of a single report.
type Deliberation struct {
	ID          uuid.UUID        `json:"id"`
	ReportID    uuid.UUID        `json:"report_id"`
	AppellantID uuid.UUID        `json:"appellant_id"`
	Statement   string           `json:"statement"`
	Quorum      int              `json:"quorum"`
	Deadline    time.Time        `json:"deadline"`
	Status      Status           `json:"status"`
	Outcome     *reports.Outcome `json:"outcome,omitempty"`
	ResolvedBy  *uuid.UUID       `json:"resolved_by,omitempty"`
	DecidedAt   *time.Time       `json:"decided_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	Votes       []Vote           `json:"votes,omitempty"`
}

// Accepting reports whether votes may still be cast at t.
func (d Deliberation) Accepting(t time.Time) bool {
	return d.Status == Open && t.Before(d.Deadline)
}

// Count tallies verdicts.
type Count struct {
	Uphold   int `json:"uphold"`
	Overturn int `json:"overturn"`
}

// Total returns the number of votes counted.
func (c Count) Total() int {
	return c.Uphold + c.Overturn
}

// CountVotes tallies verdicts without deciding.
func CountVotes(votes []Vote) Count {
	var c Count
	for _, v := range votes {
		switch v.Verdict {
		case Uphold:
			c.Uphold++
		case Overturn:
			c.Overturn++
		}
	}
	return c
}

// Tally decides an outcome once quorum votes are in. A strict majority wins;
// an exact tie escalates to an administrator. decided is false below quorum.
func Tally(votes []Vote, quorum int) (outcome reports.Outcome, decided bool) {
	c := CountVotes(votes)
	if c.Total() < quorum {
		return "", false
	}

	switch {
	case c.Uphold > c.Overturn:
		return reports.Uphold, true
	case c.Overturn > c.Uphold:
		return reports.Overturn, true
	default:
		return reports.Escalated, true
	}
}

const maxStatementLength = 4000

// OpenCommand starts an appeal. AppellantID is the caller.
type OpenCommand struct {
	ReportID    uuid.UUID `json:"report_id"`
	AppellantID uuid.UUID `json:"-"`
	Statement   string    `json:"statement"`
}

func (c OpenCommand) validate() error {
	if c.ReportID == uuid.Nil {
		return ErrReportRequired
	}
	if len(strings.TrimSpace(c.Statement)) > maxStatementLength {
		return ErrStatementTooLong
	}
	return nil
}

// VoteCommand carries a juror's verdict.
type VoteCommand struct {
	Verdict Verdict `json:"verdict"`
}

// ResolveCommand carries an administrator's verdict on an escalated appeal.
type ResolveCommand struct {
	Verdict Verdict `json:"verdict"`
	Note    string  `json:"note,omitempty"`
}
