package conflicts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/warden/internal/audit"
	"github.com/JaimeStill/warden/pkg/pagination"
	"github.com/JaimeStill/warden/pkg/query"
	"github.com/JaimeStill/warden/pkg/repository"
)

type repo struct {
	db         *sql.DB
	cfg        Config
	policy     Policy
	authorize  Authorizer
	flag       Flagger
	audit      audit.Recorder
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates the conflict system. flag may be nil to disable review reports.
func New(
	db *sql.DB,
	cfg *Config,
	authorize Authorizer,
	flag Flagger,
	recorder audit.Recorder,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		cfg:        *cfg,
		policy:     cfg.Policy(),
		authorize:  authorize,
		flag:       flag,
		audit:      recorder,
		logger:     logger.With("system", "conflicts"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.authorize, r.logger, r.pagination)
}

func (cmd RecordCommand) validate() error {
	if strings.TrimSpace(cmd.Subject) == "" {
		return ErrSubjectRequired
	}
	if strings.TrimSpace(cmd.ExternalSourceID) == "" {
		return ErrSourceRequired
	}
	if cmd.ContentID != nil && (cmd.ContentType == nil || !cmd.ContentType.Valid()) {
		return ErrInvalidRef
	}
	return cmd.Input.validate()
}

func (r *repo) Record(ctx context.Context, cmd RecordCommand) (*Record, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}

	rec, err := r.policy.Resolve(cmd.Input)
	if err != nil {
		return nil, err
	}
	rec.ContentType = cmd.ContentType
	rec.ContentID = cmd.ContentID

	externalJSON, err := json.Marshal(rec.ExternalClaim)
	if err != nil {
		return nil, fmt.Errorf("marshal external claim: %w", err)
	}
	fieldJSON, err := json.Marshal(rec.FieldClaim)
	if err != nil {
		return nil, fmt.Errorf("marshal field claim: %w", err)
	}

	q := `
		INSERT INTO conflict_records AS c(
			subject, content_type, content_id, conflict_type, external_source_id,
			external_claim, external_timestamp, external_trust, field_claim,
			field_timestamp, field_trust, resolution, suggested_action
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + projection.Columns()

	args := []any{
		rec.Subject, rec.ContentType, rec.ContentID, rec.ConflictType, rec.ExternalSourceID,
		externalJSON, rec.ExternalTimestamp, rec.ExternalTrust, fieldJSON,
		rec.FieldTimestamp, rec.FieldTrust, rec.Resolution, rec.SuggestedAction,
	}

	stored, err := repository.QueryOne(ctx, r.db, q, args, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("insert conflict record: %w", err)
	}

	r.logger.Info(
		"conflict recorded",
		"id", stored.ID,
		"subject", stored.Subject,
		"type", stored.ConflictType,
		"resolution", stored.Resolution,
	)

	r.audit.Log(ctx, audit.Entry{
		Action: "conflict_recorded",
		Metadata: map[string]any{
			"conflict_id":        stored.ID.String(),
			"subject":            stored.Subject,
			"conflict_type":      string(stored.ConflictType),
			"resolution":         string(stored.Resolution),
			"external_source_id": stored.ExternalSourceID,
		},
	})

	if stored.Resolution == ExternalWins || stored.Resolution == NeedsReview {
		r.flagContent(ctx, stored)
	}

	return &stored, nil
}

func (r *repo) Check(ctx context.Context, cmd CheckCommand) ([]Record, error) {
	if len(cmd.External) > r.cfg.MaxClaims {
		return nil, ErrTooManyClaims
	}

	results := make([]*Record, len(cmd.External))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.CheckConcurrency)

	for i, ext := range cmd.External {
		g.Go(func() error {
			rec, err := r.Record(gctx, RecordCommand{
				Input: Input{
					Subject:           cmd.Subject,
					FieldClaim:        cmd.FieldClaim,
					FieldTimestamp:    cmd.FieldTimestamp,
					FieldTrust:        cmd.FieldTrust,
					ExternalSourceID:  ext.SourceID,
					ExternalClaim:     ext.Claim,
					ExternalTimestamp: ext.Timestamp,
					ExternalTrust:     ext.Trust,
				},
				ContentType: cmd.ContentType,
				ContentID:   cmd.ContentID,
			})
			if errors.Is(err, ErrNoConflict) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("check source %s: %w", ext.SourceID, err)
			}
			results[i] = rec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(results))
	for _, rec := range results {
		if rec != nil {
			records = append(records, *rec)
		}
	}
	return records, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Record, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	rec, err := repository.QueryOne(ctx, r.db, q, args, scanRecord)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, err)
	}
	return &rec, nil
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Record], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Subject", "ExternalSourceID")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count conflict records: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("query conflict records: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) MarkActionTaken(ctx context.Context, id, actorID uuid.UUID) (*Record, error) {
	q := `
		UPDATE conflict_records AS c
		SET action_taken = TRUE, action_taken_by = $2, action_taken_at = NOW()
		WHERE c.id = $1 AND c.action_taken = FALSE
		RETURNING ` + projection.Columns()

	rec, err := repository.QueryOne(ctx, r.db, q, []any{id, actorID}, scanRecord)
	if errors.Is(err, sql.ErrNoRows) {
		if _, findErr := r.Find(ctx, id); findErr != nil {
			return nil, findErr
		}
		return nil, ErrActionTaken
	}
	if err != nil {
		return nil, fmt.Errorf("mark conflict action: %w", err)
	}

	r.logger.Info("conflict action taken", "id", rec.ID, "actor_id", actorID)
	r.audit.Log(ctx, audit.Entry{
		Action:  "conflict_action_taken",
		ActorID: audit.Actor(actorID),
		Metadata: map[string]any{
			"conflict_id": rec.ID.String(),
			"resolution":  string(rec.Resolution),
		},
	})

	return &rec, nil
}

func (r *repo) flagContent(ctx context.Context, rec Record) {
	ref, ok := rec.Ref()
	if !ok || r.flag == nil {
		return
	}

	reason := fmt.Sprintf("conflict %s: %s", rec.Resolution, rec.ConflictType)
	err := r.flag(ctx, ref, reason, map[string]any{
		"conflict_id":        rec.ID.String(),
		"subject":            rec.Subject,
		"external_source_id": rec.ExternalSourceID,
	})
	if err != nil {
		r.logger.Warn("conflict report not filed", "conflict_id", rec.ID, "error", err)
	}
}
