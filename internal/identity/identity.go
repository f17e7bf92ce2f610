// Package identity resolves actor roles and decides which roles may perform which operations.
// Roles are read from the user_roles table, never from client-supplied claims.
package identity

import (
	"time"

	"github.com/google/uuid"
)

// Role is a user's platform role. Users without an assignment are members.
type Role string

const (
	Member     Role = "member"
	Researcher Role = "researcher"
	Moderator  Role = "moderator"
	Admin      Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case Member, Researcher, Moderator, Admin:
		return true
	}
	return false
}

// Operation names an action subject to authorization.
type Operation string

const (
	OpSubmitContent     Operation = "content.submit"
	OpEvaluateContent   Operation = "moderation.evaluate"
	OpFileReport        Operation = "report.file"
	OpReviewReport      Operation = "report.review"
	OpReopenReport      Operation = "report.reopen"
	OpOpenAppeal        Operation = "appeal.open"
	OpCastVote          Operation = "jury.vote"
	OpCloseDeliberation Operation = "jury.close"
	OpResolveEscalation Operation = "jury.resolve"
	OpScoreTrust        Operation = "trust.score"
	OpRecordConflict    Operation = "conflict.record"
	OpActOnConflict     Operation = "conflict.act"
	OpReadAudit         Operation = "audit.read"
	OpManageRoles       Operation = "roles.manage"
)

var everyone = []Role{Member, Researcher, Moderator, Admin}

var permissions = map[Operation][]Role{
	OpSubmitContent:     everyone,
	OpEvaluateContent:   everyone,
	OpFileReport:        everyone,
	OpOpenAppeal:        everyone,
	OpReviewReport:      {Moderator, Admin},
	OpActOnConflict:     {Moderator, Admin},
	OpCastVote:          {Researcher, Moderator, Admin},
	OpScoreTrust:        {Researcher, Moderator, Admin},
	OpRecordConflict:    {Researcher, Moderator, Admin},
	OpReopenReport:      {Admin},
	OpCloseDeliberation: {Admin},
	OpResolveEscalation: {Admin},
	OpReadAudit:         {Admin},
	OpManageRoles:       {Admin},
}

// Allowed reports whether role may perform op. Unknown operations are denied.
func Allowed(role Role, op Operation) bool {
	for _, r := range permissions[op] {
		if r == role {
			return true
		}
	}
	return false
}

// Assignment is a stored role for a user.
type Assignment struct {
	UserID    uuid.UUID `json:"user_id"`
	Role      Role      `json:"role"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SetRoleCommand carries a role change.
type SetRoleCommand struct {
	Role Role `json:"role"`
}
