// Package conflicts detects contradictions between field reports and external
// sources and labels how each one should be settled. Contradictions are surfaced
// with both claims intact; values are never blended.
package conflicts

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/warden/internal/content"
)

// Type classifies the shape of a contradiction.
type Type string

const (
	Existence Type = "existence"
	State     Type = "state"
	Attribute Type = "attribute"
	Temporal  Type = "temporal"
)

// Resolution labels how a contradiction is settled.
type Resolution string

const (
	FieldWins    Resolution = "field_wins"
	ExternalWins Resolution = "external_wins"
	NeedsReview  Resolution = "needs_review"
	Unresolved   Resolution = "unresolved"
)

// ErrNoConflict is returned when two claims agree.
var ErrNoConflict = errors.New("claims do not conflict")

// Claim is one side's assertion about a subject.
// A claim without Exists implicitly asserts that the subject exists.
type Claim struct {
	Exists     *bool      `json:"exists,omitempty"`
	State      string     `json:"state,omitempty"`
	Attribute  string     `json:"attribute,omitempty"`
	Value      *float64   `json:"value,omitempty"`
	Unit       string     `json:"unit,omitempty"`
	ValidFrom  *time.Time `json:"valid_from,omitempty"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
}

func (c Claim) exists() bool {
	return c.Exists == nil || *c.Exists
}

// Input is everything Resolve considers. Trust scores are 0-100; nil means unknown.
type Input struct {
	Subject           string     `json:"subject"`
	FieldClaim        Claim      `json:"field_claim"`
	FieldTimestamp    *time.Time `json:"field_timestamp,omitempty"`
	FieldTrust        *int       `json:"field_trust,omitempty"`
	ExternalSourceID  string     `json:"external_source_id"`
	ExternalClaim     Claim      `json:"external_claim"`
	ExternalTimestamp *time.Time `json:"external_timestamp,omitempty"`
	ExternalTrust     *int       `json:"external_trust,omitempty"`
}

// Record is a detected contradiction and its resolution.
type Record struct {
	ID                uuid.UUID     `json:"id"`
	Subject           string        `json:"subject"`
	ContentType       *content.Type `json:"content_type,omitempty"`
	ContentID         *uuid.UUID    `json:"content_id,omitempty"`
	ConflictType      Type          `json:"conflict_type"`
	ExternalSourceID  string        `json:"external_source_id"`
	ExternalClaim     Claim         `json:"external_claim"`
	ExternalTimestamp *time.Time    `json:"external_timestamp,omitempty"`
	ExternalTrust     *int          `json:"external_trust,omitempty"`
	FieldClaim        Claim         `json:"field_claim"`
	FieldTimestamp    *time.Time    `json:"field_timestamp,omitempty"`
	FieldTrust        *int          `json:"field_trust,omitempty"`
	Resolution        Resolution    `json:"resolution"`
	SuggestedAction   *string       `json:"suggested_action,omitempty"`
	ActionTaken       bool          `json:"action_taken"`
	ActionTakenBy     *uuid.UUID    `json:"action_taken_by,omitempty"`
	ActionTakenAt     *time.Time    `json:"action_taken_at,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
}

// Ref returns the attached content reference, if any.
func (r Record) Ref() (content.Ref, bool) {
	if r.ContentType == nil || r.ContentID == nil {
		return content.Ref{}, false
	}
	return content.Ref{Type: *r.ContentType, ID: *r.ContentID}, true
}

// Policy holds the margins used to settle contradictions.
type Policy struct {
	TrustMargin int
	Staleness   time.Duration
}

// Classify determines the contradiction type, checking existence, state,
// attribute, and validity window in that order.
func Classify(field, external Claim) (Type, error) {
	if field.exists() != external.exists() {
		return Existence, nil
	}

	fs, es := strings.TrimSpace(field.State), strings.TrimSpace(external.State)
	if fs != "" && es != "" && !strings.EqualFold(fs, es) {
		return State, nil
	}

	if field.Value != nil && external.Value != nil &&
		(*field.Value != *external.Value || !strings.EqualFold(field.Unit, external.Unit)) {
		return Attribute, nil
	}

	if !sameTime(field.ValidFrom, external.ValidFrom) || !sameTime(field.ValidUntil, external.ValidUntil) {
		return Temporal, nil
	}

	return "", ErrNoConflict
}

func inTrustRange(v *int) bool {
	return v == nil || (*v >= 0 && *v <= 100)
}

func (in Input) validate() error {
	if !inTrustRange(in.FieldTrust) || !inTrustRange(in.ExternalTrust) {
		return ErrTrustRange
	}
	return nil
}

// Resolve classifies and settles a contradiction. It is a pure function of in.
func (p Policy) Resolve(in Input) (Record, error) {
	if err := in.validate(); err != nil {
		return Record{}, err
	}

	kind, err := Classify(in.FieldClaim, in.ExternalClaim)
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		Subject:           in.Subject,
		ConflictType:      kind,
		ExternalSourceID:  in.ExternalSourceID,
		ExternalClaim:     in.ExternalClaim,
		ExternalTimestamp: in.ExternalTimestamp,
		ExternalTrust:     in.ExternalTrust,
		FieldClaim:        in.FieldClaim,
		FieldTimestamp:    in.FieldTimestamp,
		FieldTrust:        in.FieldTrust,
		Resolution:        p.settle(in),
	}

	switch rec.Resolution {
	case NeedsReview:
		action := fmt.Sprintf(
			"Review the %s conflict on %q: source trust and recency are within margins, a moderator must choose a claim.",
			kind, in.Subject,
		)
		rec.SuggestedAction = &action
	case Unresolved:
		action := fmt.Sprintf(
			"Collect timestamps or source trust for %q before adjudicating the %s conflict.",
			in.Subject, kind,
		)
		rec.SuggestedAction = &action
	}

	return rec, nil
}

func (p Policy) settle(in Input) Resolution {
	compared := false

	if in.FieldTrust != nil && in.ExternalTrust != nil {
		compared = true
		diff := *in.FieldTrust - *in.ExternalTrust
		switch {
		case diff > p.TrustMargin:
			return FieldWins
		case -diff > p.TrustMargin:
			return ExternalWins
		}
	}

	if in.FieldTimestamp != nil && in.ExternalTimestamp != nil {
		compared = true
		gap := in.FieldTimestamp.Sub(*in.ExternalTimestamp)
		switch {
		case gap > p.Staleness:
			return FieldWins
		case -gap > p.Staleness:
			return ExternalWins
		}
	}

	if compared {
		return NeedsReview
	}
	return Unresolved
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
