// Package audit implements the append-only audit trail.
// Every component records security-relevant transitions through Log, which
// never blocks and never fails the caller. Events are never updated or deleted.
package audit

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category groups audit events for review.
type Category string

const (
	CategoryAuth       Category = "auth"
	CategoryModeration Category = "moderation"
	CategoryAdmin      Category = "admin"
	CategoryGeneral    Category = "general"
)

// Event is a persisted audit record.
type Event struct {
	ID        uuid.UUID      `json:"id"`
	Action    string         `json:"action"`
	Category  Category       `json:"category"`
	ActorID   *uuid.UUID     `json:"actor_id"`
	SourceIP  *string        `json:"source_ip"`
	UserAgent *string        `json:"user_agent"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
}

// Entry is an event to be recorded. Category is inferred from Action when empty;
// SourceIP and UserAgent are filled from the request context when empty.
type Entry struct {
	Action    string
	Category  Category
	ActorID   *uuid.UUID
	SourceIP  string
	UserAgent string
	Metadata  map[string]any
}

// Actor is a convenience for populating Entry.ActorID.
func Actor(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

// InferCategory derives the category from the action family.
func InferCategory(action string) Category {
	family, _, _ := strings.Cut(action, "_")
	switch family {
	case "auth":
		return CategoryAuth
	case "content", "appeal", "jury", "report":
		return CategoryModeration
	case "admin":
		return CategoryAdmin
	}
	return CategoryGeneral
}

func (e Entry) category() Category {
	if e.Category != "" {
		return e.Category
	}
	return InferCategory(e.Action)
}
