package audit

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/warden/pkg/lifecycle"
	"github.com/JaimeStill/warden/pkg/pagination"
)

// Authorizer gates read access to the trail.
type Authorizer func(ctx context.Context, actorID uuid.UUID) error

// System defines the public contract for the audit trail.
// There are intentionally no update or delete operations.
type System interface {
	Recorder

	Handler() *Handler
	Start(lc *lifecycle.Coordinator) error

	Record(ctx context.Context, e Entry) (*Event, error)

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Event], error)

	Find(ctx context.Context, id uuid.UUID) (*Event, error)
}
