package conflicts

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/warden/internal/content"
	"github.com/JaimeStill/warden/internal/identity"
	"github.com/JaimeStill/warden/pkg/pagination"
)

// Authorizer checks that an actor may perform an operation.
type Authorizer func(ctx context.Context, actorID uuid.UUID, op identity.Operation) error

// Flagger files a system report against content.
type Flagger func(ctx context.Context, ref content.Ref, reason string, data map[string]any) error

// RecordCommand is one contradiction to resolve and persist, optionally tied to content.
type RecordCommand struct {
	Input
	ContentType *content.Type `json:"content_type,omitempty"`
	ContentID   *uuid.UUID    `json:"content_id,omitempty"`
}

// ExternalClaim is one external source's assertion in a Check.
type ExternalClaim struct {
	SourceID  string     `json:"source_id"`
	Claim     Claim      `json:"claim"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Trust     *int       `json:"trust,omitempty"`
}

// CheckCommand compares one field claim against many external claims.
type CheckCommand struct {
	Subject        string          `json:"subject"`
	ContentType    *content.Type   `json:"content_type,omitempty"`
	ContentID      *uuid.UUID      `json:"content_id,omitempty"`
	FieldClaim     Claim           `json:"field_claim"`
	FieldTimestamp *time.Time      `json:"field_timestamp,omitempty"`
	FieldTrust     *int            `json:"field_trust,omitempty"`
	External       []ExternalClaim `json:"external"`
}

// System defines the public contract for conflict resolution.
type System interface {
	Handler() *Handler

	// Record resolves and persists a contradiction. Agreeing claims return ErrNoConflict.
	Record(ctx context.Context, cmd RecordCommand) (*Record, error)
	// Check records every external claim that contradicts the field claim.
	// Agreeing claims are skipped.
	Check(ctx context.Context, cmd CheckCommand) ([]Record, error)
	Find(ctx context.Context, id uuid.UUID) (*Record, error)
	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Record], error)
	MarkActionTaken(ctx context.Context, id, actorID uuid.UUID) (*Record, error)
}
