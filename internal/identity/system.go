package identity

import (
	"context"

	"github.com/google/uuid"
)

// System defines the public contract for role lookup and authorization.
type System interface {
	Handler() *Handler

	RoleOf(ctx context.Context, userID uuid.UUID) (Role, error)
	// Authorize returns ErrForbidden when the actor's role does not permit op.
	// Denials are recorded to the audit trail.
	Authorize(ctx context.Context, actorID uuid.UUID, op Operation) error
	SetRole(ctx context.Context, actorID, userID uuid.UUID, cmd SetRoleCommand) (*Assignment, error)
}
