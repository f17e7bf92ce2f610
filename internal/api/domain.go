package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/warden/internal/audit"
	"github.com/JaimeStill/warden/internal/config"
	"github.com/JaimeStill/warden/internal/conflicts"
	"github.com/JaimeStill/warden/internal/content"
	"github.com/JaimeStill/warden/internal/identity"
	"github.com/JaimeStill/warden/internal/jury"
	"github.com/JaimeStill/warden/internal/moderation"
	"github.com/JaimeStill/warden/internal/notifications"
	"github.com/JaimeStill/warden/internal/reports"
	"github.com/JaimeStill/warden/internal/submissions"
	"github.com/JaimeStill/warden/internal/trust"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Audit       audit.System
	Identity    identity.System
	Content     content.System
	Moderation  moderation.System
	Reports     reports.System
	Trust       trust.System
	Conflicts   conflicts.System
	Jury        jury.System
	Submissions submissions.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(cfg *config.Config, runtime *Runtime) *Domain {
	db := runtime.Database.Connection()

	// audit reads are authorized by identity, which in turn records to audit
	var identitySystem identity.System

	auditSystem := audit.New(
		db,
		&cfg.Audit,
		func(ctx context.Context, actorID uuid.UUID) error {
			return identitySystem.Authorize(ctx, actorID, identity.OpReadAudit)
		},
		runtime.Logger,
		runtime.Pagination,
	)

	identitySystem = identity.New(db, &cfg.Identity, auditSystem, runtime.Logger)

	contentSystem := content.New(db, runtime.Logger)
	notifier := notifications.New(&cfg.Notifications, runtime.Logger)

	moderationSystem := moderation.New(
		newAnalyzer(cfg, runtime.Logger),
		&cfg.Moderation,
		authorizeOp(identitySystem, identity.OpEvaluateContent),
		auditSystem,
		runtime.Logger,
	)

	reportsSystem := reports.New(
		db,
		contentSystem,
		runtime.Storage,
		&cfg.Reports,
		identitySystem.Authorize,
		notifier,
		auditSystem,
		runtime.Logger,
		runtime.Pagination,
	)

	trustSystem := trust.New(
		db,
		contentSystem,
		identitySystem.RoleOf,
		&cfg.Trust,
		authorizeOp(identitySystem, identity.OpScoreTrust),
		reportsSystem.Flag,
		auditSystem,
		runtime.Logger,
		runtime.Pagination,
	)

	conflictsSystem := conflicts.New(
		db,
		&cfg.Conflicts,
		identitySystem.Authorize,
		reportsSystem.Flag,
		auditSystem,
		runtime.Logger,
		runtime.Pagination,
	)

	jurySystem := jury.New(
		db,
		reportsSystem,
		&cfg.Jury,
		identitySystem.Authorize,
		notifier,
		auditSystem,
		runtime.Logger,
		runtime.Pagination,
	)

	submissionsSystem := submissions.New(
		contentSystem,
		moderationSystem,
		reportsSystem,
		authorizeOp(identitySystem, identity.OpSubmitContent),
		auditSystem,
		runtime.Logger,
	)

	return &Domain{
		Audit:       auditSystem,
		Identity:    identitySystem,
		Content:     contentSystem,
		Moderation:  moderationSystem,
		Reports:     reportsSystem,
		Trust:       trustSystem,
		Conflicts:   conflictsSystem,
		Jury:        jurySystem,
		Submissions: submissionsSystem,
	}
}

func authorizeOp(sys identity.System, op identity.Operation) func(context.Context, uuid.UUID) error {
	return func(ctx context.Context, actorID uuid.UUID) error {
		return sys.Authorize(ctx, actorID, op)
	}
}

func newAnalyzer(cfg *config.Config, logger *slog.Logger) moderation.Analyzer {
	if cfg.Moderation.Analyzer == moderation.AnalyzerAgent {
		return moderation.NewAgentAnalyzer(cfg.Agent)
	}
	return moderation.NewHTTPAnalyzer(
		cfg.Moderation.Endpoint,
		cfg.Moderation.Token,
		cfg.Moderation.RetryMax,
		logger,
	)
}
