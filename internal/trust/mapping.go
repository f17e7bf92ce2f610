package trust

import (
	"net/url"
	"strconv"

	"github.com/JaimeStill/warden/internal/content"
	"github.com/JaimeStill/warden/pkg/query"
	"github.com/JaimeStill/warden/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "trust_profiles", "t").
	Project("content_type", "ContentType").
	Project("content_id", "ContentID").
	Project("source_score", "Source").
	Project("methodology_score", "Methodology").
	Project("proximity", "Proximity").
	Project("proximity_score", "ProximityScore").
	Project("temporal_score", "Temporal").
	Project("conflict_phase", "ConflictPhase").
	Project("time_sensitive", "TimeSensitive").
	Project("validation_score", "Validation").
	Project("scored_at", "ScoredAt")

var defaultSort = query.SortField{
	Field:      "ScoredAt",
	Descending: true,
}

// Filters contains optional filtering criteria for profile queries.
type Filters struct {
	ContentType   *content.Type `json:"content_type,omitempty"`
	Proximity     *Proximity    `json:"proximity,omitempty"`
	ConflictPhase *Phase        `json:"conflict_phase,omitempty"`
	TimeSensitive *bool         `json:"time_sensitive,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("ContentType", f.ContentType).
		WhereEquals("Proximity", f.Proximity).
		WhereEquals("ConflictPhase", f.ConflictPhase).
		WhereEquals("TimeSensitive", f.TimeSensitive)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if t := values.Get("content_type"); t != "" {
		ct := content.Type(t)
		f.ContentType = &ct
	}

	if p := values.Get("proximity"); p != "" {
		prox := Proximity(p)
		f.Proximity = &prox
	}

	if p := values.Get("conflict_phase"); p != "" {
		phase := Phase(p)
		f.ConflictPhase = &phase
	}

	if s := values.Get("time_sensitive"); s != "" {
		if v, err := strconv.ParseBool(s); err == nil {
			f.TimeSensitive = &v
		}
	}

	return f
}

func scanProfile(s repository.Scanner) (Profile, error) {
	var p Profile
	err := s.Scan(
		&p.ContentType,
		&p.ContentID,
		&p.Source,
		&p.Methodology,
		&p.Proximity,
		&p.ProximityScore,
		&p.Temporal,
		&p.ConflictPhase,
		&p.TimeSensitive,
		&p.Validation,
		&p.ScoredAt,
	)
	return p, err
}
