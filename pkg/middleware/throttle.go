package middleware

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/JaimeStill/warden/pkg/auth"
	"github.com/JaimeStill/warden/pkg/handlers"
	"github.com/JaimeStill/warden/pkg/ratelimit"
)

// DenyHook observes throttled requests.
type DenyHook func(r *http.Request, class ratelimit.Class, d ratelimit.Decision)

// Throttler applies rate limit classes to individual routes.
type Throttler struct {
	limiter *ratelimit.Limiter
	logger  *slog.Logger
	onDeny  DenyHook
}

// NewThrottler creates a Throttler. onDeny may be nil.
func NewThrottler(limiter *ratelimit.Limiter, logger *slog.Logger, onDeny DenyHook) *Throttler {
	return &Throttler{
		limiter: limiter,
		logger:  logger.With("middleware", "throttle"),
		onDeny:  onDeny,
	}
}

// Wrap guards next with the rule for class. The bucket identity is the
// authenticated actor when present, otherwise the client IP.
func (t *Throttler) Wrap(class ratelimit.Class, next http.HandlerFunc) http.HandlerFunc {
	if t == nil {
		return next
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var actor *string
		if id, ok := auth.ActorFrom(r.Context()); ok {
			s := id.String()
			actor = &s
		}

		d, err := t.limiter.Allow(actor, ClientIP(r), class)
		if d.Limit > 0 {
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
		}

		if err != nil {
			if !d.Allowed && d.Limit > 0 {
				if t.onDeny != nil {
					t.onDeny(r, class, d)
				}
				handlers.RespondRetryAfter(w, t.logger, d.RetryAfter, err)
				return
			}
			handlers.RespondError(w, t.logger, http.StatusInternalServerError, err)
			return
		}

		next(w, r)
	}
}
