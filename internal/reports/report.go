// Package reports implements the moderation case workflow: filing, review
// transitions guarded by an explicit state machine, explicit reopening, and
// application of appeal outcomes.
package reports

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/warden/internal/content"
)

// Status is a report's lifecycle state.
type Status string

const (
	Pending   Status = "pending"
	Reviewing Status = "reviewing"
	Resolved  Status = "resolved"
	Dismissed Status = "dismissed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case Pending, Reviewing, Resolved, Dismissed:
		return true
	}
	return false
}

// Closed reports whether s ends the review. Closed reports change only through Reopen
// or an appeal outcome.
func (s Status) Closed() bool {
	return s == Resolved || s == Dismissed
}

// Action is what a moderator does to the content or its author when resolving.
type Action string

const (
	ActionNone          Action = "none"
	ActionDeleteContent Action = "delete_content"
	ActionWarnUser      Action = "warn_user"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionNone, ActionDeleteContent, ActionWarnUser:
		return true
	}
	return false
}

// Outcome is the result of an appeal applied to a report.
type Outcome string

const (
	Uphold    Outcome = "uphold"
	Overturn  Outcome = "overturn"
	Escalated Outcome = "escalated"
)

// FSM is a transition table keyed by source status.
type FSM map[Status][]Status

// Review holds the transitions available through Update.
var Review = FSM{
	Pending:   {Reviewing, Resolved, Dismissed},
	Reviewing: {Resolved, Dismissed},
}

// Reopening holds the transitions available through Reopen and appeal overturns.
var Reopening = FSM{
	Resolved:  {Reviewing},
	Dismissed: {Reviewing},
}

// Allows reports whether the table permits from → to.
func (f FSM) Allows(from, to Status) bool {
	return slices.Contains(f[from], to)
}

// Check returns a TransitionError when the table does not permit from → to.
func (f FSM) Check(from, to Status) error {
	if f.Allows(from, to) {
		return nil
	}
	return &TransitionError{From: from, To: to}
}

// TransitionError describes a rejected status change.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s → %s", ErrInvalidTransition, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// Report is a moderation case.
type Report struct {
	ID              uuid.UUID        `json:"id"`
	ContentType     content.Type     `json:"content_type"`
	ContentID       uuid.UUID        `json:"content_id"`
	ContentAuthorID uuid.UUID        `json:"content_author_id"`
	ReporterID      *uuid.UUID       `json:"reporter_id"`
	Reason          string           `json:"reason"`
	Status          Status           `json:"status"`
	ContentSnapshot content.Snapshot `json:"content_snapshot"`
	ModerationData  json.RawMessage  `json:"moderation_data,omitempty"`
	Action          *Action          `json:"action,omitempty"`
	ReviewedBy      *uuid.UUID       `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time       `json:"reviewed_at,omitempty"`
	AppealOutcome   *Outcome         `json:"appeal_outcome,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Ref returns the reported content's reference.
func (r Report) Ref() content.Ref {
	return content.Ref{Type: r.ContentType, ID: r.ContentID}
}

// SystemFiled reports whether the report was filed without a human reporter.
func (r Report) SystemFiled() bool {
	return r.ReporterID == nil
}

// TakenAction returns the recorded action, or ActionNone.
func (r Report) TakenAction() Action {
	if r.Action == nil {
		return ActionNone
	}
	return *r.Action
}

// FileCommand opens a report. ReporterID is nil for system-filed reports.
// Snapshot replaces the content lookup for content that was never stored.
type FileCommand struct {
	ReporterID     *uuid.UUID        `json:"-"`
	ContentType    content.Type      `json:"content_type"`
	ContentID      uuid.UUID         `json:"content_id"`
	Reason         string            `json:"reason"`
	ModerationData any               `json:"-"`
	Snapshot       *content.Snapshot `json:"-"`
}

const maxReasonLength = 2000

func (c FileCommand) validate() error {
	reason := strings.TrimSpace(c.Reason)
	if reason == "" {
		return ErrReasonRequired
	}
	if len(reason) > maxReasonLength {
		return ErrReasonTooLong
	}
	if !c.ContentType.Valid() || c.ContentID == uuid.Nil {
		return ErrInvalidContent
	}
	return nil
}

// UpdateCommand moves a report through review.
type UpdateCommand struct {
	Status Status `json:"status"`
	Action Action `json:"action,omitempty"`
}

// Normalize defaults the action and validates the command.
func (c *UpdateCommand) Normalize() error {
	if !c.Status.Valid() {
		return ErrInvalidStatus
	}
	if c.Action == "" {
		c.Action = ActionNone
	}
	if !c.Action.Valid() {
		return ErrInvalidAction
	}
	if c.Action != ActionNone && c.Status != Resolved {
		return ErrActionRequiresResolve
	}
	return nil
}

// ReopenCommand carries the justification for reopening a closed report.
type ReopenCommand struct {
	Reason string `json:"reason"`
}
