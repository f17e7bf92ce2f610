package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/JaimeStill/warden/internal/audit"
	"github.com/JaimeStill/warden/pkg/repository"
)

type repo struct {
	db     *sql.DB
	cache  *expirable.LRU[uuid.UUID, Role]
	audit  audit.Recorder
	logger *slog.Logger
}

// New creates the identity system backed by the user_roles table.
func New(db *sql.DB, cfg *Config, recorder audit.Recorder, logger *slog.Logger) System {
	return &repo{
		db:     db,
		cache:  expirable.NewLRU[uuid.UUID, Role](cfg.CacheSize, nil, cfg.CacheTTLDuration()),
		audit:  recorder,
		logger: logger.With("system", "identity"),
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger)
}

func (r *repo) RoleOf(ctx context.Context, userID uuid.UUID) (Role, error) {
	if role, ok := r.cache.Get(userID); ok {
		return role, nil
	}

	var role Role
	err := r.db.QueryRowContext(ctx,
		"SELECT role FROM user_roles WHERE user_id = $1",
		userID,
	).Scan(&role)

	if errors.Is(err, sql.ErrNoRows) {
		role = Member
	} else if err != nil {
		return "", fmt.Errorf("lookup role: %w", err)
	}

	r.cache.Add(userID, role)
	return role, nil
}

func (r *repo) Authorize(ctx context.Context, actorID uuid.UUID, op Operation) error {
	role, err := r.RoleOf(ctx, actorID)
	if err != nil {
		return err
	}

	if Allowed(role, op) {
		return nil
	}

	r.logger.Warn("permission denied", "actor_id", actorID, "role", role, "operation", op)
	r.audit.Log(ctx, audit.Entry{
		Action:  "auth_permission_denied",
		ActorID: audit.Actor(actorID),
		Metadata: map[string]any{
			"operation": string(op),
			"role":      string(role),
		},
	})

	return fmt.Errorf("%w: %s", ErrForbidden, op)
}

func (r *repo) SetRole(ctx context.Context, actorID, userID uuid.UUID, cmd SetRoleCommand) (*Assignment, error) {
	if err := r.Authorize(ctx, actorID, OpManageRoles); err != nil {
		return nil, err
	}
	if !cmd.Role.Valid() {
		return nil, ErrInvalidRole
	}
	if actorID == userID {
		return nil, ErrSelfChange
	}

	previous, err := r.RoleOf(ctx, userID)
	if err != nil {
		return nil, err
	}

	q := `
		INSERT INTO user_roles(user_id, role)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET
			role = EXCLUDED.role,
			updated_at = NOW()
		RETURNING user_id, role, updated_at`

	a, err := repository.QueryOne(ctx, r.db, q, []any{userID, cmd.Role}, scanAssignment)
	if err != nil {
		return nil, fmt.Errorf("set role: %w", err)
	}

	r.cache.Add(userID, a.Role)

	r.logger.Info("role changed", "user_id", userID, "from", previous, "to", a.Role, "by", actorID)
	r.audit.Log(ctx, audit.Entry{
		Action:  "admin_role_changed",
		ActorID: audit.Actor(actorID),
		Metadata: map[string]any{
			"user_id": userID.String(),
			"from":    string(previous),
			"to":      string(a.Role),
		},
	})

	return &a, nil
}

func scanAssignment(s repository.Scanner) (Assignment, error) {
	var a Assignment
	err := s.Scan(&a.UserID, &a.Role, &a.UpdatedAt)
	return a, err
}
