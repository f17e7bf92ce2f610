package reports

import (
	"context"
	"database/sql"
	"io"

	"github.com/google/uuid"

	"github.com/JaimeStill/warden/internal/content"
	"github.com/JaimeStill/warden/internal/identity"
	"github.com/JaimeStill/warden/pkg/pagination"
)

// Authorizer checks that an actor may perform an operation.
type Authorizer func(ctx context.Context, actorID uuid.UUID, op identity.Operation) error

// System defines the public contract for the report workflow.
type System interface {
	Handler() *Handler

	// File opens a pending report. A reporter may hold one pending report per content item.
	File(ctx context.Context, cmd FileCommand) (*Report, error)
	// Flag files a system report. An identical pending system report is not an error.
	Flag(ctx context.Context, ref content.Ref, reason string, data map[string]any) error
	// Update applies a review transition. Content deletion and the status change commit together.
	Update(ctx context.Context, id, actorID uuid.UUID, cmd UpdateCommand) (*Report, error)
	// Reopen returns a closed report to review. Admin only.
	Reopen(ctx context.Context, id, actorID uuid.UUID, cmd ReopenCommand) (*Report, error)
	// ApplyAppealOutcome records an appeal result inside the caller's transaction.
	// Overturn restores removed content and returns the report to review.
	ApplyAppealOutcome(ctx context.Context, tx *sql.Tx, id uuid.UUID, outcome Outcome) (*Report, error)
	Find(ctx context.Context, id uuid.UUID) (*Report, error)
	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Report], error)
	// Evidence streams the archived snapshot. The caller must close the reader.
	Evidence(ctx context.Context, id uuid.UUID) (io.ReadCloser, error)
}
