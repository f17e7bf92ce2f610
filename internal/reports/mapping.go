package reports

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
	NewProjectionMap("public", "reports", "r").
	Project("id", "ID").
	Project("content_type", "ContentType").
	Project("content_id", "ContentID").
	Project("content_author_id", "ContentAuthorID").
	Project("reporter_id", "ReporterID").
	Project("reason", "Reason").
	Project("status", "Status").
	Project("content_snapshot", "ContentSnapshot").
	Project("moderation_data", "ModerationData").
	Project("action", "Action").
	Project("reviewed_by", "ReviewedBy").
	Project("reviewed_at", "ReviewedAt").
	Project("appeal_outcome", "AppealOutcome").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for report queries.
type Filters struct {
	Status      *Status       `json:"status,omitempty"`
	ContentType *content.Type `json:"content_type,omitempty"`
	ContentID   *uuid.UUID    `json:"content_id,omitempty"`
	ReporterID  *uuid.UUID    `json:"reporter_id,omitempty"`
	SystemFiled *bool         `json:"system_filed,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	b.
		WhereEquals("Status", f.Status).
		WhereEquals("ContentType", f.ContentType).
		WhereEquals("ContentID", f.ContentID).
		WhereEquals("ReporterID", f.ReporterID)

	if f.SystemFiled != nil && *f.SystemFiled {
		b.WhereNullable("ReporterID", nil)
	}

	return b
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		status := Status(s)
		f.Status = &status
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

	if r := values.Get("reporter_id"); r != "" {
		if id, err := uuid.Parse(r); err == nil {
			f.ReporterID = &id
		}
	}

	if s := values.Get("system_filed"); s != "" {
		if v, err := strconv.ParseBool(s); err == nil {
			f.SystemFiled = &v
		}
	}

	return f
}

func scanReport(s repository.Scanner) (Report, error) {
	var r Report
	var snapshotRaw, moderationRaw []byte

	err := s.Scan(
		&r.ID,
		&r.ContentType,
		&r.ContentID,
		&r.ContentAuthorID,
		&r.ReporterID,
		&r.Reason,
		&r.Status,
		&snapshotRaw,
		&moderationRaw,
		&r.Action,
		&r.ReviewedBy,
		&r.ReviewedAt,
		&r.AppealOutcome,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return r, err
	}

	if err := json.Unmarshal(snapshotRaw, &r.ContentSnapshot); err != nil {
		return r, fmt.Errorf("unmarshal content snapshot: %w", err)
	}

	if len(moderationRaw) > 0 {
		r.ModerationData = json.RawMessage(moderationRaw)
	}

	return r, nil
}
