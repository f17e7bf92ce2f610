package submissions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	gaoconfig "github.com/JaimeStill/go-agents-orchestration/pkg/config"
	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/JaimeStill/warden/internal/audit"
	"github.com/JaimeStill/warden/internal/content"
	"github.com/JaimeStill/warden/internal/moderation"
	"github.com/JaimeStill/warden/internal/reports"
)

const (
	KeyCommand   = "command"
	KeyContentID = "content_id"
	KeyDecision  = "decision"
	KeyResult    = "result"
)

// buildGraph wires moderate → publish | quarantine → finalize.
func (s *submitter) buildGraph() (state.StateGraph, error) {
	cfg := gaoconfig.DefaultGraphConfig("warden-submit")
	cfg.Observer = "noop"

	graph, err := state.NewGraph(cfg)
	if err != nil {
		return nil, err
	}

	nodes := map[string]state.StateNode{
		"moderate":   s.moderateNode(),
		"publish":    s.publishNode(),
		"quarantine": s.quarantineNode(),
		"finalize":   s.finalizeNode(),
	}
	for name, node := range nodes {
		if err := graph.AddNode(name, node); err != nil {
			return nil, err
		}
	}

	if err := graph.AddEdge("moderate", "publish", allowed); err != nil {
		return nil, err
	}
	if err := graph.AddEdge("moderate", "quarantine", state.Not(allowed)); err != nil {
		return nil, err
	}
	if err := graph.AddEdge("publish", "finalize", nil); err != nil {
		return nil, err
	}
	if err := graph.AddEdge("quarantine", "finalize", nil); err != nil {
		return nil, err
	}

	if err := graph.SetEntryPoint("moderate"); err != nil {
		return nil, err
	}
	if err := graph.SetExitPoint("finalize"); err != nil {
		return nil, err
	}

	return graph, nil
}

func (s *submitter) moderateNode() state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, st state.State) (state.State, error) {
		cmd, err := get[SubmitCommand](st, KeyCommand)
		if err != nil {
			return st, err
		}

		decision, err := s.gate.Evaluate(ctx, cmd.request())
		if err != nil {
			return st, fmt.Errorf("moderate: %w", err)
		}

		return st.Set(KeyDecision, decision), nil
	})
}

func (s *submitter) publishNode() state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, st state.State) (state.State, error) {
		cmd, id, decision, err := inputs(st)
		if err != nil {
			return st, err
		}

		item, err := s.content.Create(ctx, cmd.create(id))
		if err != nil {
			return st, fmt.Errorf("publish: %w", err)
		}

		return st.Set(KeyResult, Result{
			Status:   Published,
			Item:     item,
			Warnings: decision.Warnings,
			Decision: decision,
		}), nil
	})
}

func (s *submitter) quarantineNode() state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, st state.State) (state.State, error) {
		cmd, id, decision, err := inputs(st)
		if err != nil {
			return st, err
		}

		result := Result{
			Status:   Quarantined,
			Warnings: decision.Warnings,
			Decision: decision,
		}

		snap := content.Snapshot{
			Type:       cmd.ContentType,
			ID:         id,
			AuthorID:   cmd.AuthorID,
			PostID:     cmd.PostID,
			Title:      strings.TrimSpace(cmd.Title),
			Body:       strings.TrimSpace(cmd.Body),
			CapturedAt: time.Now().UTC(),
		}

		rep, err := s.reports.File(ctx, reports.FileCommand{
			ContentType:    cmd.ContentType,
			ContentID:      id,
			Reason:         quarantineReason(decision),
			ModerationData: moderationData(decision),
			Snapshot:       &snap,
		})
		if err != nil {
			return st, fmt.Errorf("quarantine: file report: %w", err)
		}
		result.ReportID = &rep.ID

		s.audit.Log(ctx, audit.Entry{
			Action:  "content_blocked",
			ActorID: audit.Actor(cmd.AuthorID),
			Metadata: map[string]any{
				"content_type": string(cmd.ContentType),
				"content_id":   id.String(),
				"report_id":    rep.ID.String(),
				"warnings":     decision.Warnings,
				"severity":     decision.Severity,
				"degraded":     decision.Degraded,
			},
		})

		return st.Set(KeyResult, result), nil
	})
}

func (s *submitter) finalizeNode() state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, st state.State) (state.State, error) {
		result, err := get[Result](st, KeyResult)
		if err != nil {
			return st, err
		}

		submitted.WithLabelValues(string(result.Status)).Inc()

		s.logger.InfoContext(
			ctx, "submission finalized",
			"status", result.Status,
			"warnings", len(result.Warnings),
			"degraded", result.Decision.Degraded,
		)
		return st, nil
	})
}

func allowed(st state.State) bool {
	decision, err := get[moderation.Decision](st, KeyDecision)
	return err == nil && decision.Allowed()
}

func inputs(st state.State) (SubmitCommand, uuid.UUID, moderation.Decision, error) {
	cmd, err := get[SubmitCommand](st, KeyCommand)
	if err != nil {
		return cmd, uuid.Nil, moderation.Decision{}, err
	}
	id, err := get[uuid.UUID](st, KeyContentID)
	if err != nil {
		return cmd, uuid.Nil, moderation.Decision{}, err
	}
	decision, err := get[moderation.Decision](st, KeyDecision)
	return cmd, id, decision, err
}

func get[T any](st state.State, key string) (T, error) {
	var zero T

	val, ok := st.Get(key)
	if !ok {
		return zero, fmt.Errorf("%w: missing %s", ErrGraphState, key)
	}

	v, ok := val.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T", ErrGraphState, key, val)
	}
	return v, nil
}

func quarantineReason(d moderation.Decision) string {
	if len(d.Warnings) == 0 {
		return "blocked by automated moderation"
	}
	return "blocked by automated moderation: " + strings.Join(d.Warnings, "; ")
}

// moderationData prefers the raw analyzer signal; fallback decisions have none.
func moderationData(d moderation.Decision) any {
	if d.Signal != nil {
		return d.Signal
	}
	return d
}
