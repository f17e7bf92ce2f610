package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/warden/pkg/lifecycle"
	"github.com/JaimeStill/warden/pkg/pagination"
	"github.com/JaimeStill/warden/pkg/query"
	"github.com/JaimeStill/warden/pkg/repository"
)

type repo struct {
	db         *sql.DB
	writer     *Writer
	authorize  Authorizer
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates the audit system. authorize gates the read endpoints.
func New(
	db *sql.DB,
	cfg *Config,
	authorize Authorizer,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	r := &repo{
		db:         db,
		authorize:  authorize,
		logger:     logger.With("system", "audit"),
		pagination: pagination,
	}
	r.writer = NewWriter(r.write, cfg, r.logger)
	return r
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.authorize, r.logger, r.pagination)
}

func (r *repo) Start(lc *lifecycle.Coordinator) error {
	return r.writer.Start(lc)
}

func (r *repo) Log(ctx context.Context, e Entry) {
	r.writer.Log(ctx, e)
}

func (r *repo) Record(ctx context.Context, e Entry) (*Event, error) {
	if e.Action == "" {
		return nil, ErrActionMissing
	}
	e = enrich(ctx, e)

	metadata := e.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	q := `
		INSERT INTO audit_events(action, category, actor_id, source_ip, user_agent, metadata)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6)
		RETURNING id, action, category, actor_id, source_ip, user_agent, metadata, created_at`

	args := []any{e.Action, e.Category, e.ActorID, e.SourceIP, e.UserAgent, metadataJSON}

	ev, err := repository.QueryOne(ctx, r.db, q, args, scanEvent)
	if err != nil {
		return nil, fmt.Errorf("insert audit event: %w", err)
	}
	return &ev, nil
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Event], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Action")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count audit events: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanEvent)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Event, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	e, err := repository.QueryOne(ctx, r.db, q, args, scanEvent)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, err)
	}
	return &e, nil
}

func (r *repo) write(ctx context.Context, e Entry) error {
	_, err := r.Record(ctx, e)
	return err
}
