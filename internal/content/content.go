// Package content is Warden's adapter over the platform's post and comment store.
// Moderation only needs to fetch, create, soft-delete, and restore items;
// deletion is soft so an overturned appeal can bring content back.
package content

import (
	"time"

	"github.com/google/uuid"
)

// Type distinguishes posts from comments.
type Type string

const (
	Post    Type = "post"
	Comment Type = "comment"
)

// Valid reports whether t is a known content type.
func (t Type) Valid() bool {
	return t == Post || t == Comment
}

func (t Type) table() string {
	if t == Comment {
		return "comments"
	}
	return "posts"
}

// Ref identifies a single content item.
type Ref struct {
	Type Type      `json:"content_type"`
	ID   uuid.UUID `json:"content_id"`
}

// Item is a post or comment.
type Item struct {
	Type      Type       `json:"content_type"`
	ID        uuid.UUID  `json:"id"`
	AuthorID  uuid.UUID  `json:"author_id"`
	PostID    *uuid.UUID `json:"post_id,omitempty"`
	Title     string     `json:"title,omitempty"`
	Body      string     `json:"body"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Ref returns the item's reference.
func (i Item) Ref() Ref {
	return Ref{Type: i.Type, ID: i.ID}
}

// Snapshot is the immutable copy of an item stored with a report.
type Snapshot struct {
	Type       Type       `json:"content_type"`
	ID         uuid.UUID  `json:"content_id"`
	AuthorID   uuid.UUID  `json:"author_id"`
	PostID     *uuid.UUID `json:"post_id,omitempty"`
	Title      string     `json:"title,omitempty"`
	Body       string     `json:"body"`
	CapturedAt time.Time  `json:"captured_at"`
}

// Snapshot captures the item as it is now.
func (i Item) Snapshot(at time.Time) Snapshot {
	return Snapshot{
		Type:       i.Type,
		ID:         i.ID,
		AuthorID:   i.AuthorID,
		PostID:     i.PostID,
		Title:      i.Title,
		Body:       i.Body,
		CapturedAt: at,
	}
}

// CreateCommand carries a new item. ID may be preset so moderation records
// can reference content before it is stored.
type CreateCommand struct {
	ID       uuid.UUID  `json:"id"`
	Type     Type       `json:"content_type"`
	AuthorID uuid.UUID  `json:"author_id"`
	PostID   *uuid.UUID `json:"post_id,omitempty"`
	Title    string     `json:"title,omitempty"`
	Body     string     `json:"body"`
}
