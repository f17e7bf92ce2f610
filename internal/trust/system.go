package trust

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/warden/internal/content"
	"github.com/JaimeStill/warden/internal/identity"
	"github.com/JaimeStill/warden/pkg/pagination"
)

// Authorizer gates scoring operations.
type Authorizer func(ctx context.Context, actorID uuid.UUID) error

// RoleLookup resolves a user's platform role. Source trust is scored from
// the author's looked-up role, never from a role supplied with the request.
type RoleLookup func(ctx context.Context, userID uuid.UUID) (identity.Role, error)

// Flagger files a system report against content. Trust uses it for low-provenance items.
type Flagger func(ctx context.Context, ref content.Ref, reason string, data map[string]any) error

// RescoreCommand identifies the content to score and carries its signals.
type RescoreCommand struct {
	ContentType content.Type `json:"content_type"`
	ContentID   uuid.UUID    `json:"content_id"`
	Signals     Signals      `json:"signals"`
}

// Ref returns the command's content reference.
func (c RescoreCommand) Ref() content.Ref {
	return content.Ref{Type: c.ContentType, ID: c.ContentID}
}

// System defines the public contract for trust scoring.
type System interface {
	Handler() *Handler

	// Rescore computes the profile and replaces any stored profile for the same content.
	Rescore(ctx context.Context, cmd RescoreCommand) (*Profile, error)
	// ScoreBatch rescores many items concurrently. It stops at the first failure.
	ScoreBatch(ctx context.Context, cmds []RescoreCommand) ([]Profile, error)
	Find(ctx context.Context, ref content.Ref) (*Profile, error)
	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Profile], error)
}
