package reports

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/warden/internal/audit"
	"github.com/JaimeStill/warden/internal/content"
	"github.com/JaimeStill/warden/internal/identity"
	"github.com/JaimeStill/warden/internal/notifications"
	"github.com/JaimeStill/warden/pkg/pagination"
	"github.com/JaimeStill/warden/pkg/query"
	"github.com/JaimeStill/warden/pkg/repository"
	"github.com/JaimeStill/warden/pkg/storage"
)

type repo struct {
	db         *sql.DB
	content    content.System
	storage    storage.System
	cfg        Config
	authorize  Authorizer
	notifier   notifications.Notifier
	audit      audit.Recorder
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates the report system. store may be nil, which disables the evidence archive.
func New(
	db *sql.DB,
	contentSys content.System,
	store storage.System,
	cfg *Config,
	authorize Authorizer,
	notifier notifications.Notifier,
	recorder audit.Recorder,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		content:    contentSys,
		storage:    store,
		cfg:        *cfg,
		authorize:  authorize,
		notifier:   notifier,
		audit:      recorder,
		logger:     logger.With("system", "reports"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.authorize, r.logger, r.pagination)
}

func (r *repo) File(ctx context.Context, cmd FileCommand) (*Report, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}

	snap, err := r.snapshot(ctx, cmd)
	if err != nil {
		return nil, err
	}

	if cmd.ReporterID != nil && *cmd.ReporterID == snap.AuthorID {
		return nil, ErrSelfReport
	}

	snapJSON, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}

	var moderation any
	if cmd.ModerationData != nil {
		raw, err := json.Marshal(cmd.ModerationData)
		if err != nil {
			return nil, fmt.Errorf("marshal moderation data: %w", err)
		}
		moderation = raw
	}

	q := `
		INSERT INTO reports AS r(
			content_type, content_id, content_author_id, reporter_id,
			reason, content_snapshot, moderation_data
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + projection.Columns()

	args := []any{
		cmd.ContentType, cmd.ContentID, snap.AuthorID, cmd.ReporterID,
		strings.TrimSpace(cmd.Reason), snapJSON, moderation,
	}

	rep, err := repository.QueryOne(ctx, r.db, q, args, scanReport)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info(
		"report filed",
		"id", rep.ID,
		"content_type", rep.ContentType,
		"content_id", rep.ContentID,
		"system_filed", rep.SystemFiled(),
	)

	r.audit.Log(ctx, audit.Entry{
		Action:  "content_flagged",
		ActorID: cmd.ReporterID,
		Metadata: map[string]any{
			"report_id":    rep.ID.String(),
			"content_type": string(rep.ContentType),
			"content_id":   rep.ContentID.String(),
			"reason":       rep.Reason,
			"system_filed": rep.SystemFiled(),
		},
	})

	r.archive(ctx, rep)
	return &rep, nil
}

func (r *repo) Flag(ctx context.Context, ref content.Ref, reason string, data map[string]any) error {
	_, err := r.File(ctx, FileCommand{
		ContentType:    ref.Type,
		ContentID:      ref.ID,
		Reason:         reason,
		ModerationData: data,
	})
	if errors.Is(err, ErrDuplicate) {
		return nil
	}
	return err
}

func (r *repo) Update(ctx context.Context, id, actorID uuid.UUID, cmd UpdateCommand) (*Report, error) {
	if err := r.authorize(ctx, actorID, identity.OpReviewReport); err != nil {
		return nil, err
	}
	if err := cmd.Normalize(); err != nil {
		return nil, err
	}

	var prior Status

	updated, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Report, error) {
		current, err := r.lock(ctx, tx, id)
		if err != nil {
			return Report{}, err
		}
		prior = current.Status

		if err := Review.Check(current.Status, cmd.Status); err != nil {
			return Report{}, err
		}

		if cmd.Action == ActionDeleteContent {
			err := r.content.Remove(ctx, tx, current.Ref())
			if errors.Is(err, content.ErrNotFound) {
				r.logger.Warn("reported content already removed", "report_id", id, "content_id", current.ContentID)
			} else if err != nil {
				return Report{}, fmt.Errorf("remove content: %w", err)
			}
		}

		q := `
			UPDATE reports AS r
			SET status = $2, action = $3, reviewed_by = $4, reviewed_at = NOW(), updated_at = NOW()
			WHERE r.id = $1 AND r.status = $5
			RETURNING ` + projection.Columns()

		args := []any{id, cmd.Status, cmd.Action, actorID, current.Status}
		return r.swap(ctx, tx, q, args, current.Status, cmd.Status)
	})

	if err != nil {
		r.rejected(ctx, id, actorID, err)
		return nil, err
	}

	r.logger.Info(
		"report updated",
		"id", id,
		"from", prior,
		"to", updated.Status,
		"action", cmd.Action,
		"actor_id", actorID,
	)

	r.recordUpdate(ctx, actorID, prior, updated)
	r.notifyUpdate(ctx, updated)

	return &updated, nil
}

const pendingAppealQuery = `
	SELECT EXISTS (
		SELECT 1 FROM jury_deliberations
		WHERE report_id = $1 AND status IN ('open', 'escalated')
	)`

func (r *repo) Reopen(ctx context.Context, id, actorID uuid.UUID, cmd ReopenCommand) (*Report, error) {
	if err := r.authorize(ctx, actorID, identity.OpReopenReport); err != nil {
		return nil, err
	}

	var prior Status

	reopened, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Report, error) {
		current, err := r.lock(ctx, tx, id)
		if err != nil {
			return Report{}, err
		}
		prior = current.Status

		if err := Reopening.Check(current.Status, Reviewing); err != nil {
			return Report{}, err
		}

		// an open or escalated deliberation still has to apply its outcome to a closed report
		var pending bool
		if err := tx.QueryRowContext(ctx, pendingAppealQuery, id).Scan(&pending); err != nil {
			return Report{}, fmt.Errorf("check pending appeal: %w", err)
		}
		if pending {
			return Report{}, ErrAppealPending
		}

		return r.reopen(ctx, tx, current, nil)
	})

	if err != nil {
		r.rejected(ctx, id, actorID, err)
		return nil, err
	}

	r.logger.Info("report reopened", "id", id, "from", prior, "actor_id", actorID)
	r.audit.Log(ctx, audit.Entry{
		Action:  "report_reopened",
		ActorID: audit.Actor(actorID),
		Metadata: map[string]any{
			"report_id": id.String(),
			"from":      string(prior),
			"to":        string(reopened.Status),
			"reason":    strings.TrimSpace(cmd.Reason),
		},
	})

	return &reopened, nil
}

func (r *repo) ApplyAppealOutcome(ctx context.Context, tx *sql.Tx, id uuid.UUID, outcome Outcome) (*Report, error) {
	current, err := r.lock(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if !current.Status.Closed() {
		return nil, fmt.Errorf("%w: report is %s", ErrInvalidTransition, current.Status)
	}

	var rep Report

	switch outcome {
	case Uphold, Escalated:
		q := `
			UPDATE reports AS r
			SET appeal_outcome = $2, updated_at = NOW()
			WHERE r.id = $1
			RETURNING ` + projection.Columns()

		rep, err = repository.QueryOne(ctx, tx, q, []any{id, outcome}, scanReport)
		if err != nil {
			return nil, fmt.Errorf("record appeal outcome: %w", err)
		}
	case Overturn:
		if current.TakenAction() == ActionDeleteContent {
			restored, err := r.content.Restore(ctx, tx, current.Ref())
			if err != nil {
				return nil, fmt.Errorf("restore content: %w", err)
			}
			if !restored {
				r.logger.Warn("overturned content was not removed", "report_id", id, "content_id", current.ContentID)
			}
		}

		o := Overturn
		rep, err = r.reopen(ctx, tx, current, &o)
		if err != nil {
			return nil, err
		}
	default:
		return nil, ErrInvalidOutcome
	}

	r.logger.Info("appeal outcome applied", "report_id", id, "outcome", outcome, "status", rep.Status)
	return &rep, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Report, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	rep, err := repository.QueryOne(ctx, r.db, q, args, scanReport)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, err)
	}
	return &rep, nil
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Report], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Reason")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count reports: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanReport)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Evidence(ctx context.Context, id uuid.UUID) (io.ReadCloser, error) {
	if _, err := r.Find(ctx, id); err != nil {
		return nil, err
	}
	if r.storage == nil {
		return nil, ErrEvidenceUnavailable
	}

	rc, err := r.storage.Get(ctx, evidenceKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrEvidenceUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("download evidence: %w", err)
	}
	return rc, nil
}

func (r *repo) lock(ctx context.Context, tx *sql.Tx, id uuid.UUID) (Report, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	rep, err := repository.QueryOne(ctx, tx, q+" FOR UPDATE", args, scanReport)
	if err != nil {
		return Report{}, repository.MapError(err, ErrNotFound, err)
	}
	return rep, nil
}

// swap runs a status compare-and-swap. Zero rows means the status moved underneath us.
func (r *repo) swap(ctx context.Context, tx *sql.Tx, q string, args []any, from, to Status) (Report, error) {
	rep, err := repository.QueryOne(ctx, tx, q, args, scanReport)
	if errors.Is(err, sql.ErrNoRows) {
		return Report{}, &TransitionError{From: from, To: to}
	}
	if err != nil {
		return Report{}, fmt.Errorf("update report status: %w", err)
	}
	return rep, nil
}

func (r *repo) reopen(ctx context.Context, tx *sql.Tx, current Report, outcome *Outcome) (Report, error) {
	q := `
		UPDATE reports AS r
		SET status = $2, appeal_outcome = COALESCE($4, r.appeal_outcome), updated_at = NOW()
		WHERE r.id = $1 AND r.status = $3
		RETURNING ` + projection.Columns()

	args := []any{current.ID, Reviewing, current.Status, outcome}
	return r.swap(ctx, tx, q, args, current.Status, Reviewing)
}

func (r *repo) rejected(ctx context.Context, id, actorID uuid.UUID, err error) {
	var te *TransitionError
	if !errors.As(err, &te) {
		return
	}

	r.logger.Warn("report transition rejected", "id", id, "from", te.From, "to", te.To, "actor_id", actorID)
	r.audit.Log(ctx, audit.Entry{
		Action:  "report_invalid_transition",
		ActorID: audit.Actor(actorID),
		Metadata: map[string]any{
			"report_id": id.String(),
			"from":      string(te.From),
			"to":        string(te.To),
		},
	})
}

func (r *repo) recordUpdate(ctx context.Context, actorID uuid.UUID, from Status, rep Report) {
	base := map[string]any{
		"report_id":    rep.ID.String(),
		"content_type": string(rep.ContentType),
		"content_id":   rep.ContentID.String(),
		"from":         string(from),
		"to":           string(rep.Status),
	}

	entry := func(action string, extra map[string]any) audit.Entry {
		metadata := make(map[string]any, len(base)+len(extra))
		for k, v := range base {
			metadata[k] = v
		}
		for k, v := range extra {
			metadata[k] = v
		}
		return audit.Entry{Action: action, ActorID: audit.Actor(actorID), Metadata: metadata}
	}

	// an action event carries the transition, so it replaces the generic status event
	switch rep.TakenAction() {
	case ActionDeleteContent:
		r.audit.Log(ctx, entry("content_rejected", map[string]any{
			"author_id": rep.ContentAuthorID.String(),
		}))
	case ActionWarnUser:
		r.audit.Log(ctx, entry("user_warned", map[string]any{
			"user_id": rep.ContentAuthorID.String(),
		}))
	default:
		r.audit.Log(ctx, entry("report_"+string(rep.Status), map[string]any{
			"action": string(rep.TakenAction()),
		}))
	}
}

func (r *repo) notifyUpdate(ctx context.Context, rep Report) {
	var batch []notifications.Notification
	now := time.Now().UTC()

	note := func(kind notifications.Kind, recipient uuid.UUID, msg string) notifications.Notification {
		return notifications.Notification{
			Kind:        kind,
			RecipientID: recipient,
			SubjectID:   rep.ID,
			Message:     msg,
			Metadata: map[string]any{
				"content_type": string(rep.ContentType),
				"content_id":   rep.ContentID.String(),
			},
			CreatedAt: now,
		}
	}

	switch rep.Status {
	case Resolved:
		if rep.ReporterID != nil {
			batch = append(batch, note(notifications.ReportResolved, *rep.ReporterID, "Your report was reviewed and action was taken."))
		}
		switch rep.TakenAction() {
		case ActionDeleteContent:
			batch = append(batch, note(notifications.ContentRemoved, rep.ContentAuthorID, "Your content was removed after moderator review."))
		case ActionWarnUser:
			batch = append(batch, note(notifications.UserWarned, rep.ContentAuthorID, "You received a warning after moderator review."))
		}
	case Dismissed:
		if rep.ReporterID != nil {
			batch = append(batch, note(notifications.ReportDismissed, *rep.ReporterID, "Your report was reviewed and dismissed."))
		}
	}

	notifications.NotifyAll(ctx, r.notifier, batch...)
}

func (r *repo) snapshot(ctx context.Context, cmd FileCommand) (content.Snapshot, error) {
	if cmd.Snapshot != nil {
		snap := *cmd.Snapshot
		if snap.Type != cmd.ContentType || snap.ID != cmd.ContentID {
			return content.Snapshot{}, ErrInvalidContent
		}
		return snap, nil
	}

	item, err := r.content.Find(ctx, content.Ref{Type: cmd.ContentType, ID: cmd.ContentID})
	if err != nil {
		return content.Snapshot{}, err
	}
	return item.Snapshot(time.Now().UTC()), nil
}

type evidence struct {
	ReportID       uuid.UUID        `json:"report_id"`
	Reason         string           `json:"reason"`
	ReporterID     *uuid.UUID       `json:"reporter_id"`
	Snapshot       content.Snapshot `json:"content_snapshot"`
	ModerationData json.RawMessage  `json:"moderation_data,omitempty"`
	FiledAt        time.Time        `json:"filed_at"`
}

func evidenceKey(id uuid.UUID) string {
	return fmt.Sprintf("reports/%s/snapshot.json", id)
}

func (r *repo) archive(ctx context.Context, rep Report) {
	if r.storage == nil || !r.cfg.ArchiveEvidence {
		return
	}

	body, err := json.Marshal(evidence{
		ReportID:       rep.ID,
		Reason:         rep.Reason,
		ReporterID:     rep.ReporterID,
		Snapshot:       rep.ContentSnapshot,
		ModerationData: rep.ModerationData,
		FiledAt:        rep.CreatedAt,
	})
	if err != nil {
		r.logger.Warn("evidence archive skipped", "report_id", rep.ID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.ArchiveTimeoutDuration())
	defer cancel()

	if err := r.storage.Put(ctx, evidenceKey(rep.ID), bytes.NewReader(body), "application/json"); err != nil {
		r.logger.Warn("evidence archive failed", "report_id", rep.ID, "error", err)
	}
}
