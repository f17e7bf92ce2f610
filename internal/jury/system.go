package jury

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/warden/internal/identity"
	"github.com/JaimeStill/warden/pkg/pagination"
)

// Authorizer checks that an actor may perform an operation.
type Authorizer func(ctx context.Context, actorID uuid.UUID, op identity.Operation) error

// System defines the public contract for appeal deliberations.
type System interface {
	Handler() *Handler

	// Open starts the single deliberation allowed for a closed report.
	Open(ctx context.Context, cmd OpenCommand) (*Deliberation, error)
	// CastVote records a juror's verdict. The vote that reaches quorum decides the outcome
	// and applies it to the report in the same transaction.
	CastVote(ctx context.Context, id, jurorID uuid.UUID, cmd VoteCommand) (*Deliberation, error)
	// ResolveEscalation closes an escalated deliberation with an administrator's verdict.
	ResolveEscalation(ctx context.Context, id, adminID uuid.UUID, cmd ResolveCommand) (*Deliberation, error)
	// Close escalates an open deliberation whose voting window ended without quorum.
	Close(ctx context.Context, id, actorID uuid.UUID) (*Deliberation, error)
	Find(ctx context.Context, id uuid.UUID) (*Deliberation, error)
	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Deliberation], error)
}
