package content

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/warden/pkg/repository"
)

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates the content store adapter.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "content"),
	}
}

// Validate checks a CreateCommand without touching storage.
func (cmd CreateCommand) Validate() error {
	if !cmd.Type.Valid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(cmd.Body) == "" {
		return ErrEmptyBody
	}
	if cmd.Type == Post && strings.TrimSpace(cmd.Title) == "" {
		return ErrTitleRequired
	}
	if cmd.Type == Comment && cmd.PostID == nil {
		return ErrPostRequired
	}
	return nil
}

func (r *repo) Find(ctx context.Context, ref Ref) (*Item, error) {
	if !ref.Type.Valid() {
		return nil, ErrInvalidType
	}

	var q string
	if ref.Type == Post {
		q = `SELECT id, author_id, NULL::uuid, title, body, created_at, deleted_at
			FROM posts WHERE id = $1 AND deleted_at IS NULL`
	} else {
		q = `SELECT id, author_id, post_id, '', body, created_at, deleted_at
			FROM comments WHERE id = $1 AND deleted_at IS NULL`
	}

	item, err := repository.QueryOne(ctx, r.db, q, []any{ref.ID}, scanItem(ref.Type))
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &item, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Item, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if cmd.ID == uuid.Nil {
		cmd.ID = uuid.New()
	}

	var q string
	var args []any
	if cmd.Type == Post {
		q = `INSERT INTO posts(id, author_id, title, body)
			VALUES ($1, $2, $3, $4)
			RETURNING id, author_id, NULL::uuid, title, body, created_at, deleted_at`
		args = []any{cmd.ID, cmd.AuthorID, cmd.Title, cmd.Body}
	} else {
		q = `INSERT INTO comments(id, author_id, post_id, body)
			VALUES ($1, $2, $3, $4)
			RETURNING id, author_id, post_id, '', body, created_at, deleted_at`
		args = []any{cmd.ID, cmd.AuthorID, cmd.PostID, cmd.Body}
	}

	item, err := repository.QueryOne(ctx, r.db, q, args, scanItem(cmd.Type))
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("content created", "type", item.Type, "id", item.ID, "author_id", item.AuthorID)
	return &item, nil
}

func (r *repo) Remove(ctx context.Context, exec repository.Executor, ref Ref) error {
	if !ref.Type.Valid() {
		return ErrInvalidType
	}

	q := fmt.Sprintf(
		"UPDATE %s SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL",
		ref.Type.table(),
	)

	if err := repository.ExecExpectOne(ctx, exec, q, ref.ID); err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("content removed", "type", ref.Type, "id", ref.ID)
	return nil
}

func (r *repo) Restore(ctx context.Context, exec repository.Executor, ref Ref) (bool, error) {
	if !ref.Type.Valid() {
		return false, ErrInvalidType
	}

	q := fmt.Sprintf(
		"UPDATE %s SET deleted_at = NULL WHERE id = $1 AND deleted_at IS NOT NULL",
		ref.Type.table(),
	)

	result, err := exec.ExecContext(ctx, q, ref.ID)
	if err != nil {
		return false, fmt.Errorf("restore %s: %w", ref.Type, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	if n > 0 {
		r.logger.Info("content restored", "type", ref.Type, "id", ref.ID)
	}
	return n > 0, nil
}

func scanItem(t Type) repository.ScanFunc[Item] {
	return func(s repository.Scanner) (Item, error) {
		item := Item{Type: t}
		err := s.Scan(
			&item.ID,
			&item.AuthorID,
			&item.PostID,
			&item.Title,
			&item.Body,
			&item.CreatedAt,
			&item.DeletedAt,
		)
		return item, err
	}
}
