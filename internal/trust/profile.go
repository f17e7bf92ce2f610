// Package trust scores content provenance on five independent dimensions.
// Each dimension is computed from its own signal subset; no composite is produced.
package trust

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/warden/internal/content"
	"github.com/JaimeStill/warden/internal/identity"
)

// Proximity is how close the author was to what they report.
type Proximity string

const (
	OnSite   Proximity = "on_site"
	Remote   Proximity = "remote"
	Inferred Proximity = "inferred"
)

// Phase places an observation relative to the subject's event window.
type Phase string

const (
	PreEvent  Phase = "pre_event"
	Active    Phase = "active"
	PostEvent Phase = "post_event"
	Unknown   Phase = "unknown"
)

// Volatility is how quickly the subject matter goes stale.
type Volatility string

const (
	High   Volatility = "high"
	Medium Volatility = "medium"
	Low    Volatility = "low"
)

// HalfLife returns the decay half-life for v. Unknown values decay as Medium.
func (v Volatility) HalfLife() time.Duration {
	switch v {
	case High:
		return 7 * 24 * time.Hour
	case Low:
		return 365 * 24 * time.Hour
	}
	return 30 * 24 * time.Hour
}

// Profile is the stored trust assessment of one content item.
type Profile struct {
	ContentType    content.Type `json:"content_type"`
	ContentID      uuid.UUID    `json:"content_id"`
	Source         int          `json:"source_score"`
	Methodology    int          `json:"methodology_score"`
	Proximity      Proximity    `json:"proximity"`
	ProximityScore int          `json:"proximity_score"`
	Temporal       int          `json:"temporal_score"`
	ConflictPhase  Phase        `json:"conflict_phase"`
	TimeSensitive  bool         `json:"time_sensitive"`
	Validation     int          `json:"validation_score"`
	ScoredAt       time.Time    `json:"scored_at"`
}

// Ref returns the scored content's reference.
func (p Profile) Ref() content.Ref {
	return content.Ref{Type: p.ContentType, ID: p.ContentID}
}

// LowProvenance reports whether both source and validation fall below floor.
func (p Profile) LowProvenance(floor int) bool {
	return p.Source < floor && p.Validation < floor
}

// Author carries the signals used for the source dimension.
type Author struct {
	Role                identity.Role `json:"-"`
	VerifiedInstitution bool          `json:"verified_institution"`
	ORCID               bool          `json:"orcid"`
	AcceptedPosts       int           `json:"accepted_posts"`
	UpheldReports       int           `json:"upheld_reports"`
}

// Methodology carries the signals used for the methodology dimension.
type Methodology struct {
	Description   string `json:"description"`
	Reproducible  bool   `json:"reproducible"`
	DataAvailable bool   `json:"data_available"`
	Limitations   bool   `json:"limitations"`
}

// Observation carries the signals used for the proximity dimension.
type Observation struct {
	Mode                Proximity `json:"mode"`
	VerifiedGeotag      bool      `json:"verified_geotag"`
	CitesPrimarySources bool      `json:"cites_primary_sources"`
}

// Timing carries the signals used for the temporal dimension.
type Timing struct {
	ObservedAt *time.Time `json:"observed_at,omitempty"`
	Volatility Volatility `json:"volatility"`
	EventStart *time.Time `json:"event_start,omitempty"`
	EventEnd   *time.Time `json:"event_end,omitempty"`
}

// Corroboration carries the signals used for the validation dimension.
type Corroboration struct {
	PeerReviews    int `json:"peer_reviews"`
	CrossCitations int `json:"cross_citations"`
	Endorsements   int `json:"endorsements"`
	Disputes       int `json:"disputes"`
}

// Signals is the full input to Score. AsOf fixes the evaluation time.
type Signals struct {
	AsOf          time.Time     `json:"as_of"`
	Author        Author        `json:"author"`
	Methodology   Methodology   `json:"methodology"`
	Observation   Observation   `json:"observation"`
	Timing        Timing        `json:"timing"`
	Corroboration Corroboration `json:"corroboration"`
}

// Score computes a profile. It is pure: identical inputs yield identical profiles.
func Score(ref content.Ref, s Signals) Profile {
	mode, proximity := ScoreProximity(s.Observation)
	temporal, phase, sensitive := ScoreTemporal(s.Timing, s.AsOf)

	return Profile{
		ContentType:    ref.Type,
		ContentID:      ref.ID,
		Source:         ScoreSource(s.Author),
		Methodology:    ScoreMethodology(s.Methodology),
		Proximity:      mode,
		ProximityScore: proximity,
		Temporal:       temporal,
		ConflictPhase:  phase,
		TimeSensitive:  sensitive,
		Validation:     ScoreValidation(s.Corroboration),
		ScoredAt:       s.AsOf,
	}
}

// ScoreSource computes T1.
func ScoreSource(a Author) int {
	score := 30
	switch a.Role {
	case identity.Researcher:
		score = 50
	case identity.Moderator, identity.Admin:
		score = 55
	}
	if a.VerifiedInstitution {
		score += 20
	}
	if a.ORCID {
		score += 10
	}
	score += clamp(a.AcceptedPosts, 0, 20)
	score -= 10 * clamp(a.UpheldReports, 0, 4)
	return clamp(score, 0, 100)
}

// ScoreMethodology computes T2.
func ScoreMethodology(m Methodology) int {
	score := 0
	n := len([]rune(strings.TrimSpace(m.Description)))
	if n >= 50 {
		score += 30
	}
	if n >= 300 {
		score += 15
	}
	if m.Reproducible {
		score += 25
	}
	if m.DataAvailable {
		score += 20
	}
	if m.Limitations {
		score += 10
	}
	return clamp(score, 0, 100)
}

// ScoreProximity computes T3. Unknown modes are treated as inferred.
func ScoreProximity(o Observation) (Proximity, int) {
	switch o.Mode {
	case OnSite:
		score := 85
		if o.VerifiedGeotag {
			score += 15
		}
		return OnSite, score
	case Remote:
		score := 55
		if o.CitesPrimarySources {
			score += 10
		}
		return Remote, score
	}
	return Inferred, 25
}

// ScoreTemporal computes T4 with its phase tag and time-sensitivity flag.
// Without an observation time the score is zero and the phase unknown.
func ScoreTemporal(t Timing, asOf time.Time) (int, Phase, bool) {
	phase := PhaseOf(t)
	sensitive := t.Volatility == High || phase == Active

	if t.ObservedAt == nil {
		return 0, phase, sensitive
	}

	age := max(asOf.Sub(*t.ObservedAt), 0)
	decay := math.Pow(0.5, age.Hours()/t.Volatility.HalfLife().Hours())
	return clamp(int(math.Round(100*decay)), 0, 100), phase, sensitive
}

// PhaseOf places the observation inside the event window. An open-ended window is ongoing.
func PhaseOf(t Timing) Phase {
	if t.ObservedAt == nil || t.EventStart == nil {
		return Unknown
	}
	at := *t.ObservedAt
	switch {
	case at.Before(*t.EventStart):
		return PreEvent
	case t.EventEnd == nil || !at.After(*t.EventEnd):
		return Active
	}
	return PostEvent
}

// ScoreValidation computes T5.
func ScoreValidation(c Corroboration) int {
	score := 25*clamp(c.PeerReviews, 0, 2) +
		5*clamp(c.CrossCitations, 0, 6) +
		2*clamp(c.Endorsements, 0, 10) -
		15*max(c.Disputes, 0)
	return clamp(score, 0, 100)
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
