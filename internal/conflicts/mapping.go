package conflicts

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/JaimeStill/warden/internal/content"
	"github.com/JaimeStill/warden/pkg/query"
	"github.com/JaimeStill/warden/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "conflict_records", "c").
	Project("id", "ID").
	Project("subject", "Subject").
	Project("content_type", "ContentType").
	Project("content_id", "ContentID").
	Project("conflict_type", "ConflictType").
	Project("external_source_id", "ExternalSourceID").
	Project("external_claim", "ExternalClaim").
	Project("external_timestamp", "ExternalTimestamp").
	Project("external_trust", "ExternalTrust").
	Project("field_claim", "FieldClaim").
	Project("field_timestamp", "FieldTimestamp").
	Project("field_trust", "FieldTrust").
	Project("resolution", "Resolution").
	Project("suggested_action", "SuggestedAction").
	Project("action_taken", "ActionTaken").
	Project("action_taken_by", "ActionTakenBy").
	Project("action_taken_at", "ActionTakenAt").
	Project("created_at", "CreatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for conflict queries.
type Filters struct {
	Subject      *string       `json:"subject,omitempty"`
	ConflictType *Type         `json:"conflict_type,omitempty"`
	Resolution   *Resolution   `json:"resolution,omitempty"`
	ActionTaken  *bool         `json:"action_taken,omitempty"`
	ContentType  *content.Type `json:"content_type,omitempty"`
	ContentID    *uuid.UUID    `json:"content_id,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Subject", f.Subject).
		WhereEquals("ConflictType", f.ConflictType).
		WhereEquals("Resolution", f.Resolution).
		WhereEquals("ActionTaken", f.ActionTaken).
		WhereEquals("ContentType", f.ContentType).
		WhereEquals("ContentID", f.ContentID)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("subject"); s != "" {
		f.Subject = &s
	}

	if t := values.Get("conflict_type"); t != "" {
		ct := Type(t)
		f.ConflictType = &ct
	}

	if r := values.Get("resolution"); r != "" {
		res := Resolution(r)
		f.Resolution = &res
	}

	if a := values.Get("action_taken"); a != "" {
		if v, err := strconv.ParseBool(a); err == nil {
			f.ActionTaken = &v
		}
	}

	if t := values.Get("content_type"); t != "" {
		ct := content.Type(t)
		f.ContentType = &ct
	}

	if c := values.Get("content_id"); c != "" {
		if id, err := uuid.Parse(c); err == nil {
			f.ContentID = &id
		}
	}

	return f
}

func scanRecord(s repository.Scanner) (Record, error) {
	var r Record
	var externalRaw, fieldRaw []byte

	err := s.Scan(
		&r.ID,
		&r.Subject,
		&r.ContentType,
		&r.ContentID,
		&r.ConflictType,
		&r.ExternalSourceID,
		&externalRaw,
		&r.ExternalTimestamp,
		&r.ExternalTrust,
		&fieldRaw,
		&r.FieldTimestamp,
		&r.FieldTrust,
		&r.Resolution,
		&r.SuggestedAction,
		&r.ActionTaken,
		&r.ActionTakenBy,
		&r.ActionTakenAt,
		&r.CreatedAt,
	)
	if err != nil {
		return r, err
	}

	if err := json.Unmarshal(externalRaw, &r.ExternalClaim); err != nil {
		return r, fmt.Errorf("unmarshal external claim: %w", err)
	}
	if err := json.Unmarshal(fieldRaw, &r.FieldClaim); err != nil {
		return r, fmt.Errorf("unmarshal field claim: %w", err)
	}

	return r, nil
}
