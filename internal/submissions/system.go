package submissions

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/warden/internal/moderation"
	"github.com/JaimeStill/warden/internal/reports"
)

// Authorizer checks that an actor may submit content.
type Authorizer func(ctx context.Context, actorID uuid.UUID) error

// Evaluator is the moderation gate as seen by submissions.
type Evaluator interface {
	Evaluate(ctx context.Context, req moderation.Request) (moderation.Decision, error)
}

// Filer opens reports. Quarantine uses it to file system reports.
type Filer interface {
	File(ctx context.Context, cmd reports.FileCommand) (*reports.Report, error)
}

// System defines the public contract for content submission.
type System interface {
	Handler() *Handler

	// Submit moderates and then stores or quarantines the content.
	// A blocked submission returns a *BlockedError.
	Submit(ctx context.Context, cmd SubmitCommand) (*Result, error)
}
