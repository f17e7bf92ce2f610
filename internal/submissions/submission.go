// Package submissions runs new content through the moderation gate before it is stored.
// Allowed content is published with any warnings; blocked content is never stored and is
// quarantined as a system report carrying the would-be content and the analyzer signal.
package submissions

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/warden/internal/content"
	"github.com/JaimeStill/warden/internal/moderation"
)

// SubmitCommand is a new post or comment. AuthorID is the caller.
type SubmitCommand struct {
	AuthorID    uuid.UUID    `json:"-"`
	ContentType content.Type `json:"content_type"`
	PostID      *uuid.UUID   `json:"post_id,omitempty"`
	Title       string       `json:"title,omitempty"`
	Body        string       `json:"body"`
}

func (c SubmitCommand) create(id uuid.UUID) content.CreateCommand {
	return content.CreateCommand{
		ID:       id,
		Type:     c.ContentType,
		AuthorID: c.AuthorID,
		PostID:   c.PostID,
		Title:    strings.TrimSpace(c.Title),
		Body:     strings.TrimSpace(c.Body),
	}
}

func (c SubmitCommand) request() moderation.Request {
	return moderation.Request{Title: c.Title, Text: c.Body}
}

// Status is the path a submission took through the graph.
type Status string

const (
	Published   Status = "published"
	Quarantined Status = "quarantined"
)

// Result is the outcome of a submission.
type Result struct {
	Status   Status              `json:"status"`
	Item     *content.Item       `json:"item,omitempty"`
	ReportID *uuid.UUID          `json:"report_id,omitempty"`
	Warnings []string            `json:"warnings"`
	Decision moderation.Decision `json:"decision"`
}

// BlockedError is returned when the gate blocks a submission. It carries the warnings
// so callers can explain the rejection.
type BlockedError struct {
	Warnings []string
	ReportID *uuid.UUID
}

func (e *BlockedError) Error() string {
	if len(e.Warnings) == 0 {
		return ErrBlocked.Error()
	}
	return fmt.Sprintf("%s: %s", ErrBlocked, strings.Join(e.Warnings, ", "))
}

func (e *BlockedError) Unwrap() error {
	return ErrBlocked
}
