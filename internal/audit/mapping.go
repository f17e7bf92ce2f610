package audit

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/warden/pkg/query"
	"github.com/JaimeStill/warden/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "audit_events", "a").
	Project("id", "ID").
	Project("action", "Action").
	Project("category", "Category").
	Project("actor_id", "ActorID").
	Project("source_ip", "SourceIP").
	Project("user_agent", "UserAgent").
	Project("metadata", "Metadata").
	Project("created_at", "CreatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for audit queries.
type Filters struct {
	Action   *string    `json:"action,omitempty"`
	Category *Category  `json:"category,omitempty"`
	ActorID  *uuid.UUID `json:"actor_id,omitempty"`
	Since    *time.Time `json:"since,omitempty"`
	Until    *time.Time `json:"until,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Action", f.Action).
		WhereEquals("Category", f.Category).
		WhereEquals("ActorID", f.ActorID).
		WhereOnOrAfter("CreatedAt", f.Since).
		WhereBefore("CreatedAt", f.Until)
}

// FiltersFromQuery extracts filter values from URL query parameters.
// since and until are RFC 3339 timestamps.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if a := values.Get("action"); a != "" {
		f.Action = &a
	}

	if c := values.Get("category"); c != "" {
		cat := Category(c)
		f.Category = &cat
	}

	if a := values.Get("actor_id"); a != "" {
		if id, err := uuid.Parse(a); err == nil {
			f.ActorID = &id
		}
	}

	if s := values.Get("since"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			f.Since = &t
		}
	}

	if u := values.Get("until"); u != "" {
		if t, err := time.Parse(time.RFC3339, u); err == nil {
			f.Until = &t
		}
	}

	return f
}

func scanEvent(s repository.Scanner) (Event, error) {
	var e Event
	var metadataRaw []byte

	err := s.Scan(
		&e.ID,
		&e.Action,
		&e.Category,
		&e.ActorID,
		&e.SourceIP,
		&e.UserAgent,
		&metadataRaw,
		&e.CreatedAt,
	)
	if err != nil {
		return e, err
	}

	if len(metadataRaw) > 0 {
		if err := json.Unmarshal(metadataRaw, &e.Metadata); err != nil {
			return e, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}

	if e.Metadata == nil {
		e.Metadata = map[string]any{}
	}

	return e, nil
}
