package trust

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/warden/internal/audit"
	"github.com/JaimeStill/warden/internal/content"
	"github.com/JaimeStill/warden/pkg/pagination"
	"github.com/JaimeStill/warden/pkg/query"
	"github.com/JaimeStill/warden/pkg/repository"
)

const lowProvenanceReason = "low provenance"

type repo struct {
	db         *sql.DB
	content    content.System
	roleOf     RoleLookup
	cfg        Config
	authorize  Authorizer
	flag       Flagger
	audit      audit.Recorder
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates the trust system. flag may be nil to disable low-provenance reports.
func New(
	db *sql.DB,
	contentSys content.System,
	roleOf RoleLookup,
	cfg *Config,
	authorize Authorizer,
	flag Flagger,
	recorder audit.Recorder,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		content:    contentSys,
		roleOf:     roleOf,
		cfg:        *cfg,
		authorize:  authorize,
		flag:       flag,
		audit:      recorder,
		logger:     logger.With("system", "trust"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.authorize, r.logger, r.pagination)
}

func (r *repo) Rescore(ctx context.Context, cmd RescoreCommand) (*Profile, error) {
	ref := cmd.Ref()
	if !ref.Type.Valid() || ref.ID == uuid.Nil {
		return nil, ErrInvalidRef
	}

	item, err := r.content.Find(ctx, ref)
	if err != nil {
		return nil, err
	}

	role, err := r.roleOf(ctx, item.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("resolve author role: %w", err)
	}
	cmd.Signals.Author.Role = role

	if cmd.Signals.AsOf.IsZero() {
		cmd.Signals.AsOf = time.Now().UTC()
	}

	p := Score(ref, cmd.Signals)

	q := `
		INSERT INTO trust_profiles AS t(
			content_type, content_id, source_score, methodology_score, proximity,
			proximity_score, temporal_score, conflict_phase, time_sensitive,
			validation_score, scored_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (content_type, content_id) DO UPDATE SET
			source_score = EXCLUDED.source_score,
			methodology_score = EXCLUDED.methodology_score,
			proximity = EXCLUDED.proximity,
			proximity_score = EXCLUDED.proximity_score,
			temporal_score = EXCLUDED.temporal_score,
			conflict_phase = EXCLUDED.conflict_phase,
			time_sensitive = EXCLUDED.time_sensitive,
			validation_score = EXCLUDED.validation_score,
			scored_at = EXCLUDED.scored_at
		RETURNING ` + projection.Columns()

	args := []any{
		p.ContentType, p.ContentID, p.Source, p.Methodology, p.Proximity,
		p.ProximityScore, p.Temporal, p.ConflictPhase, p.TimeSensitive,
		p.Validation, p.ScoredAt,
	}

	stored, err := repository.QueryOne(ctx, r.db, q, args, scanProfile)
	if err != nil {
		return nil, fmt.Errorf("upsert trust profile: %w", err)
	}

	r.logger.Info(
		"trust profile scored",
		"content_type", stored.ContentType,
		"content_id", stored.ContentID,
		"source", stored.Source,
		"validation", stored.Validation,
	)

	r.audit.Log(ctx, audit.Entry{
		Action: "trust_profile_scored",
		Metadata: map[string]any{
			"content_type": string(stored.ContentType),
			"content_id":   stored.ContentID.String(),
			"source":       stored.Source,
			"methodology":  stored.Methodology,
			"proximity":    stored.ProximityScore,
			"temporal":     stored.Temporal,
			"validation":   stored.Validation,
		},
	})

	if stored.LowProvenance(r.cfg.ReviewFloor) {
		r.flagLowProvenance(ctx, stored)
	}

	return &stored, nil
}

func (r *repo) ScoreBatch(ctx context.Context, cmds []RescoreCommand) ([]Profile, error) {
	if len(cmds) > r.cfg.MaxBatch {
		return nil, ErrBatchTooLarge
	}

	profiles := make([]Profile, len(cmds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.BatchConcurrency)

	for i, cmd := range cmds {
		g.Go(func() error {
			p, err := r.Rescore(gctx, cmd)
			if err != nil {
				return fmt.Errorf("score %s %s: %w", cmd.ContentType, cmd.ContentID, err)
			}
			profiles[i] = *p
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *repo) Find(ctx context.Context, ref content.Ref) (*Profile, error) {
	q, args := query.
		NewBuilder(projection).
		WhereEquals("ContentType", ref.Type).
		WhereEquals("ContentID", ref.ID).
		BuildSingleOrNull()

	p, err := repository.QueryOne(ctx, r.db, q, args, scanProfile)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, err)
	}
	return &p, nil
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Profile], error) {
	page.Normalize(r.pagination)

	qb := query.NewBuilder(projection, defaultSort)
	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count trust profiles: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanProfile)
	if err != nil {
		return nil, fmt.Errorf("query trust profiles: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) flagLowProvenance(ctx context.Context, p Profile) {
	if r.flag == nil {
		return
	}

	err := r.flag(ctx, p.Ref(), lowProvenanceReason, map[string]any{
		"source":       p.Source,
		"validation":   p.Validation,
		"review_floor": r.cfg.ReviewFloor,
	})
	if err != nil {
		r.logger.Warn("low provenance report not filed", "content_id", p.ContentID, "error", err)
	}
}
