// Package auth resolves the acting user of a request from a verified OIDC ID token.
// Roles are never read from the token; they come from the identity store.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"

	"github.com/JaimeStill/warden/pkg/lifecycle"
)

// DevActorHeader carries the actor id when verification is disabled.
const DevActorHeader = "X-Actor-ID"

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrInvalidToken    = errors.New("invalid bearer token")
	ErrNotReady        = errors.New("token verifier not ready")
)

type actorKey struct{}

// WithActor returns a copy of ctx carrying the actor id.
func WithActor(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, actorKey{}, id)
}

// ActorFrom returns the actor id stored by the Authenticator, if any.
func ActorFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(actorKey{}).(uuid.UUID)
	return id, ok
}

// RequireActor returns the actor id or ErrUnauthenticated.
func RequireActor(ctx context.Context) (uuid.UUID, error) {
	id, ok := ActorFrom(ctx)
	if !ok {
		return uuid.Nil, ErrUnauthenticated
	}
	return id, nil
}

// Authenticator verifies bearer tokens and stores the resulting actor in the request context.
type Authenticator struct {
	cfg      *Config
	verifier atomic.Pointer[oidc.IDTokenVerifier]
	logger   *slog.Logger
}

// New creates an Authenticator. When a JWKS URL is configured the verifier is
// built immediately; otherwise it is discovered from the issuer during Start.
func New(cfg *Config, logger *slog.Logger) *Authenticator {
	a := &Authenticator{
		cfg:    cfg,
		logger: logger.With("system", "auth"),
	}

	if cfg.Enabled && cfg.JWKSURL != "" {
		keys := oidc.NewRemoteKeySet(context.Background(), cfg.JWKSURL)
		a.verifier.Store(oidc.NewVerifier(cfg.Issuer, keys, &oidc.Config{ClientID: cfg.ClientID}))
	}

	return a
}

// Start registers issuer discovery with the lifecycle coordinator.
func (a *Authenticator) Start(lc *lifecycle.Coordinator) error {
	if !a.cfg.Enabled {
		a.logger.Warn("token verification disabled, trusting " + DevActorHeader)
		return nil
	}
	lc.Register("auth", a)
	if a.verifier.Load() != nil {
		return nil
	}

	lc.OnStartup(func() {
		provider, err := oidc.NewProvider(lc.Context(), a.cfg.Issuer)
		if err != nil {
			a.logger.Error("oidc discovery failed", "issuer", a.cfg.Issuer, "error", err)
			return
		}
		a.verifier.Store(provider.Verifier(&oidc.Config{ClientID: a.cfg.ClientID}))
		a.logger.Info("oidc verifier ready", "issuer", a.cfg.Issuer)
	})

	return nil
}

// Ready reports whether tokens can be verified. Always true when verification is disabled.
func (a *Authenticator) Ready() bool {
	return !a.cfg.Enabled || a.verifier.Load() != nil
}

// Verify validates a raw ID token and returns the actor id derived from its subject.
func (a *Authenticator) Verify(ctx context.Context, raw string) (uuid.UUID, error) {
	v := a.verifier.Load()
	if v == nil {
		return uuid.Nil, ErrNotReady
	}

	token, err := v.Verify(ctx, raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	return SubjectID(token.Issuer, token.Subject), nil
}

// SubjectID maps a token subject to a stable actor id. Subjects that are
// already UUIDs are used as-is; others are hashed within the issuer namespace.
func SubjectID(issuer, subject string) uuid.UUID {
	if id, err := uuid.Parse(subject); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(issuer+"#"+subject))
}

// Middleware resolves the actor for each request. Requests without credentials
// continue anonymously; handlers decide whether an actor is required.
func (a *Authenticator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !a.cfg.Enabled {
				if h := r.Header.Get(DevActorHeader); h != "" {
					if id, err := uuid.Parse(h); err == nil {
						r = r.WithContext(WithActor(r.Context(), id))
					}
				}
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if header == "" || !ok {
				next.ServeHTTP(w, r)
				return
			}

			id, err := a.Verify(r.Context(), strings.TrimSpace(raw))
			if err != nil {
				a.logger.Warn("bearer token rejected", "error", err)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"invalid bearer token"}`))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), id)))
		})
	}
}
