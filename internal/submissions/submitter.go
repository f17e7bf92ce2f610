package submissions

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/JaimeStill/warden/internal/audit"
	"github.com/JaimeStill/warden/internal/content"
)

var submitted = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_submissions_total",
	Help: "Content submissions by final status.",
}, []string{"status"})

type submitter struct {
	content   content.System
	gate      Evaluator
	reports   Filer
	authorize Authorizer
	audit     audit.Recorder
	logger    *slog.Logger
}

// New creates the submission system.
func New(
	contentSys content.System,
	gate Evaluator,
	filer Filer,
	authorize Authorizer,
	recorder audit.Recorder,
	logger *slog.Logger,
) System {
	return &submitter{
		content:   contentSys,
		gate:      gate,
		reports:   filer,
		authorize: authorize,
		audit:     recorder,
		logger:    logger.With("system", "submissions"),
	}
}

func (s *submitter) Handler() *Handler {
	return NewHandler(s, s.authorize, s.logger)
}

func (s *submitter) Submit(ctx context.Context, cmd SubmitCommand) (*Result, error) {
	if err := s.authorize(ctx, cmd.AuthorID); err != nil {
		return nil, err
	}

	id := uuid.New()
	if err := cmd.create(id).Validate(); err != nil {
		return nil, err
	}

	graph, err := s.buildGraph()
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}

	initial := state.New(nil)
	initial = initial.Set(KeyCommand, cmd)
	initial = initial.Set(KeyContentID, id)

	final, err := graph.Execute(ctx, initial)
	if err != nil {
		return nil, fmt.Errorf("execute graph: %w", err)
	}

	result, err := get[Result](final, KeyResult)
	if err != nil {
		return nil, err
	}

	if result.Status == Quarantined {
		return nil, &BlockedError{Warnings: result.Warnings, ReportID: result.ReportID}
	}

	return &result, nil
}
