package jury

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/JaimeStill/warden/internal/audit"
	"github.com/JaimeStill/warden/internal/identity"
	"github.com/JaimeStill/warden/internal/notifications"
	"github.com/JaimeStill/warden/internal/reports"
	"github.com/JaimeStill/warden/pkg/pagination"
	"github.com/JaimeStill/warden/pkg/query"
	"github.com/JaimeStill/warden/pkg/repository"
)

var outcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_jury_outcomes_total",
	Help: "Appeal deliberations decided, by outcome and how they were decided.",
}, []string{"outcome", "via"})

type repo struct {
	db         *sql.DB
	reports    reports.System
	cfg        Config
	authorize  Authorizer
	notifier   notifications.Notifier
	audit      audit.Recorder
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates the jury system.
func New(
	db *sql.DB,
	reportSys reports.System,
	cfg *Config,
	authorize Authorizer,
	notifier notifications.Notifier,
	recorder audit.Recorder,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		reports:    reportSys,
		cfg:        *cfg,
		authorize:  authorize,
		notifier:   notifier,
		audit:      recorder,
		logger:     logger.With("system", "jury"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.authorize, r.logger, r.pagination)
}

const lockReportQuery = `SELECT status FROM reports WHERE id = $1 FOR UPDATE`

func (r *repo) Open(ctx context.Context, cmd OpenCommand) (*Deliberation, error) {
	if err := r.authorize(ctx, cmd.AppellantID, identity.OpOpenAppeal); err != nil {
		return nil, err
	}
	if err := cmd.validate(); err != nil {
		return nil, err
	}

	rep, err := r.reports.Find(ctx, cmd.ReportID)
	if err != nil {
		return nil, err
	}

	if !rep.Status.Closed() {
		return nil, ErrNotAppealable
	}

	if !isParty(rep, cmd.AppellantID) {
		r.denied(ctx, "appeal_rejected", cmd.AppellantID, map[string]any{
			"report_id": rep.ID.String(),
		})
		return nil, ErrNotParty
	}

	q := `
		INSERT INTO jury_deliberations AS d(report_id, appellant_id, statement, quorum, deadline)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + projection.Columns()

	deadline := time.Now().UTC().Add(r.cfg.VotingWindowDuration())
	args := []any{rep.ID, cmd.AppellantID, strings.TrimSpace(cmd.Statement), r.cfg.Quorum, deadline}

	// the report row lock orders this against an admin reopen
	d, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Deliberation, error) {
		var status reports.Status
		if err := tx.QueryRowContext(ctx, lockReportQuery, rep.ID).Scan(&status); err != nil {
			return Deliberation{}, repository.MapError(err, reports.ErrNotFound, err)
		}
		if !status.Closed() {
			return Deliberation{}, ErrNotAppealable
		}

		d, err := repository.QueryOne(ctx, tx, q, args, scanDeliberation)
		if err != nil {
			return Deliberation{}, repository.MapError(err, ErrNotFound, ErrDuplicate)
		}
		return d, nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("appeal opened", "id", d.ID, "report_id", d.ReportID, "quorum", d.Quorum, "deadline", d.Deadline)
	r.audit.Log(ctx, audit.Entry{
		Action:  "appeal_opened",
		ActorID: audit.Actor(cmd.AppellantID),
		Metadata: map[string]any{
			"deliberation_id": d.ID.String(),
			"report_id":       d.ReportID.String(),
			"quorum":          d.Quorum,
			"deadline":        d.Deadline,
		},
	})

	return &d, nil
}

// decision carries what a committed transaction decided, for post-commit side effects.
type decision struct {
	deliberation Deliberation
	report       *reports.Report
	prior        reports.Status
	count        Count
}

func (r *repo) CastVote(ctx context.Context, id, jurorID uuid.UUID, cmd VoteCommand) (*Deliberation, error) {
	if err := r.authorize(ctx, jurorID, identity.OpCastVote); err != nil {
		return nil, err
	}
	if !cmd.Verdict.Valid() {
		return nil, ErrInvalidVerdict
	}

	result, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (decision, error) {
		d, err := r.lock(ctx, tx, id)
		if err != nil {
			return decision{}, err
		}

		if !d.Accepting(time.Now()) {
			return decision{}, ErrClosed
		}

		rep, err := r.reports.Find(ctx, d.ReportID)
		if err != nil {
			return decision{}, fmt.Errorf("load appealed report: %w", err)
		}
		if !eligible(d, rep, jurorID) {
			return decision{}, ErrIneligibleJuror
		}

		q := `INSERT INTO jury_votes(deliberation_id, juror_id, verdict) VALUES ($1, $2, $3)`
		if _, err := tx.ExecContext(ctx, q, id, jurorID, cmd.Verdict); err != nil {
			return decision{}, repository.MapError(err, ErrNotFound, ErrDuplicateVote)
		}

		votes, err := repository.QueryMany(ctx, tx, votesQuery, []any{id}, scanVote)
		if err != nil {
			return decision{}, fmt.Errorf("load votes: %w", err)
		}

		res := decision{deliberation: d, prior: rep.Status, count: CountVotes(votes)}

		outcome, decided := Tally(votes, d.Quorum)
		if decided {
			status := Closed
			if outcome == reports.Escalated {
				status = Escalated
			}

			res.deliberation, err = r.decide(ctx, tx, id, status, outcome, nil)
			if err != nil {
				return decision{}, err
			}

			res.report, err = r.reports.ApplyAppealOutcome(ctx, tx, d.ReportID, outcome)
			if err != nil {
				return decision{}, fmt.Errorf("apply appeal outcome: %w", err)
			}
		}

		res.deliberation.Votes = votes
		return res, nil
	})

	if err != nil {
		if errors.Is(err, ErrIneligibleJuror) {
			r.denied(ctx, "jury_vote_rejected", jurorID, map[string]any{
				"deliberation_id": id.String(),
			})
		}
		return nil, err
	}

	d := result.deliberation

	r.logger.Info("vote cast", "deliberation_id", id, "juror_id", jurorID, "verdict", cmd.Verdict, "votes", result.count.Total())
	r.audit.Log(ctx, audit.Entry{
		Action:  "jury_vote_cast",
		ActorID: audit.Actor(jurorID),
		Metadata: map[string]any{
			"deliberation_id": id.String(),
			"report_id":       d.ReportID.String(),
			"verdict":         string(cmd.Verdict),
			"votes":           result.count.Total(),
			"quorum":          d.Quorum,
		},
	})

	if d.Outcome != nil {
		r.decided(ctx, result, "jury_decided", jurorID, "quorum")
	}

	return &d, nil
}

func (r *repo) ResolveEscalation(ctx context.Context, id, adminID uuid.UUID, cmd ResolveCommand) (*Deliberation, error) {
	if err := r.authorize(ctx, adminID, identity.OpResolveEscalation); err != nil {
		return nil, err
	}
	if !cmd.Verdict.Valid() {
		return nil, ErrInvalidVerdict
	}

	result, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (decision, error) {
		d, err := r.lock(ctx, tx, id)
		if err != nil {
			return decision{}, err
		}
		if d.Status != Escalated {
			return decision{}, ErrNotEscalated
		}

		rep, err := r.reports.Find(ctx, d.ReportID)
		if err != nil {
			return decision{}, fmt.Errorf("load appealed report: %w", err)
		}

		votes, err := repository.QueryMany(ctx, tx, votesQuery, []any{id}, scanVote)
		if err != nil {
			return decision{}, fmt.Errorf("load votes: %w", err)
		}

		res := decision{prior: rep.Status, count: CountVotes(votes)}

		outcome := cmd.Verdict.Outcome()
		res.deliberation, err = r.decide(ctx, tx, id, Closed, outcome, &adminID)
		if err != nil {
			return decision{}, err
		}

		res.report, err = r.reports.ApplyAppealOutcome(ctx, tx, d.ReportID, outcome)
		if err != nil {
			return decision{}, fmt.Errorf("apply appeal outcome: %w", err)
		}

		res.deliberation.Votes = votes
		return res, nil
	})

	if err != nil {
		return nil, err
	}

	r.decided(ctx, result, "admin_escalation_resolved", adminID, "admin")
	return &result.deliberation, nil
}

func (r *repo) Close(ctx context.Context, id, actorID uuid.UUID) (*Deliberation, error) {
	if err := r.authorize(ctx, actorID, identity.OpCloseDeliberation); err != nil {
		return nil, err
	}

	result, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (decision, error) {
		d, err := r.lock(ctx, tx, id)
		if err != nil {
			return decision{}, err
		}
		if d.Status != Open {
			return decision{}, ErrClosed
		}
		if time.Now().Before(d.Deadline) {
			return decision{}, ErrDeadlineOpen
		}

		votes, err := repository.QueryMany(ctx, tx, votesQuery, []any{id}, scanVote)
		if err != nil {
			return decision{}, fmt.Errorf("load votes: %w", err)
		}

		res := decision{count: CountVotes(votes)}

		res.deliberation, err = r.decide(ctx, tx, id, Escalated, reports.Escalated, nil)
		if err != nil {
			return decision{}, err
		}

		res.report, err = r.reports.ApplyAppealOutcome(ctx, tx, d.ReportID, reports.Escalated)
		if err != nil {
			return decision{}, fmt.Errorf("apply appeal outcome: %w", err)
		}
		res.prior = res.report.Status

		res.deliberation.Votes = votes
		return res, nil
	})

	if err != nil {
		return nil, err
	}

	r.decided(ctx, result, "jury_closed", actorID, "deadline")
	return &result.deliberation, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Deliberation, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	d, err := repository.QueryOne(ctx, r.db, q, args, scanDeliberation)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, err)
	}

	d.Votes, err = repository.QueryMany(ctx, r.db, votesQuery, []any{id}, scanVote)
	if err != nil {
		return nil, fmt.Errorf("load votes: %w", err)
	}

	return &d, nil
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Deliberation], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Statement")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count deliberations: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanDeliberation)
	if err != nil {
		return nil, fmt.Errorf("query deliberations: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) lock(ctx context.Context, tx *sql.Tx, id uuid.UUID) (Deliberation, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	d, err := repository.QueryOne(ctx, tx, q+" FOR UPDATE", args, scanDeliberation)
	if err != nil {
		return Deliberation{}, repository.MapError(err, ErrNotFound, err)
	}
	return d, nil
}

func (r *repo) decide(
	ctx context.Context,
	tx *sql.Tx,
	id uuid.UUID,
	status Status,
	outcome reports.Outcome,
	resolvedBy *uuid.UUID,
) (Deliberation, error) {
	q := `
		UPDATE jury_deliberations AS d
		SET status = $2, outcome = $3, resolved_by = $4, decided_at = NOW()
		WHERE d.id = $1
		RETURNING ` + projection.Columns()

	d, err := repository.QueryOne(ctx, tx, q, []any{id, status, outcome, resolvedBy}, scanDeliberation)
	if err != nil {
		return Deliberation{}, fmt.Errorf("record deliberation outcome: %w", err)
	}
	return d, nil
}

func (r *repo) decided(ctx context.Context, res decision, action string, actorID uuid.UUID, via string) {
	d := res.deliberation
	outcome := *d.Outcome

	outcomes.WithLabelValues(string(outcome), via).Inc()

	r.logger.Info(
		"appeal decided",
		"deliberation_id", d.ID,
		"report_id", d.ReportID,
		"outcome", outcome,
		"via", via,
		"uphold", res.count.Uphold,
		"overturn", res.count.Overturn,
	)

	r.audit.Log(ctx, audit.Entry{
		Action:  action,
		ActorID: audit.Actor(actorID),
		Metadata: map[string]any{
			"deliberation_id": d.ID.String(),
			"report_id":       d.ReportID.String(),
			"outcome":         string(outcome),
			"uphold":          res.count.Uphold,
			"overturn":        res.count.Overturn,
			"quorum":          d.Quorum,
		},
	})

	if outcome == reports.Overturn && res.report != nil {
		r.audit.Log(ctx, audit.Entry{
			Action:  "report_reopened",
			ActorID: audit.Actor(actorID),
			Metadata: map[string]any{
				"report_id":       d.ReportID.String(),
				"deliberation_id": d.ID.String(),
				"from":            string(res.prior),
				"to":              string(res.report.Status),
				"reason":          "appeal overturned",
			},
		})
	}

	kind := notifications.AppealDecided
	msg := fmt.Sprintf("Your appeal was decided: %s.", outcome)
	if outcome == reports.Escalated {
		kind = notifications.AppealEscalated
		msg = "Your appeal was escalated to an administrator."
	}

	r.notifier.Notify(ctx, notifications.Notification{
		Kind:        kind,
		RecipientID: d.AppellantID,
		SubjectID:   d.ID,
		Message:     msg,
		Metadata: map[string]any{
			"report_id": d.ReportID.String(),
			"outcome":   string(outcome),
		},
		CreatedAt: time.Now().UTC(),
	})
}

func (r *repo) denied(ctx context.Context, action string, actorID uuid.UUID, metadata map[string]any) {
	r.logger.Warn("appeal action denied", "action", action, "actor_id", actorID)
	r.audit.Log(ctx, audit.Entry{
		Action:   action,
		ActorID:  audit.Actor(actorID),
		Metadata: metadata,
	})
}

func isParty(rep *reports.Report, actorID uuid.UUID) bool {
	if rep.ContentAuthorID == actorID {
		return true
	}
	return rep.ReporterID != nil && *rep.ReporterID == actorID
}

// eligible excludes the appellant and every party to the original decision.
func eligible(d Deliberation, rep *reports.Report, jurorID uuid.UUID) bool {
	if jurorID == d.AppellantID || isParty(rep, jurorID) {
		return false
	}
	return rep.ReviewedBy == nil || *rep.ReviewedBy != jurorID
}
