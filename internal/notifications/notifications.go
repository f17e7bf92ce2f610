// Package notifications delivers fire-and-forget notices about moderation outcomes.
// Delivery failures are logged and never reach the operation that triggered them.
package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind names the event a notification describes.
type Kind string

const (
	ReportResolved  Kind = "report_resolved"
	ReportDismissed Kind = "report_dismissed"
	ContentRemoved  Kind = "content_removed"
	UserWarned      Kind = "user_warned"
	AppealDecided   Kind = "appeal_decided"
	AppealEscalated Kind = "appeal_escalated"
)

// Notification is a message for a single recipient.
type Notification struct {
	Kind        Kind           `json:"kind"`
	RecipientID uuid.UUID      `json:"recipient_id"`
	SubjectID   uuid.UUID      `json:"subject_id"`
	Message     string         `json:"message"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Notifier sends notifications. Notify returns immediately.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifyAll sends each notification through n.
func NotifyAll(ctx context.Context, n Notifier, batch ...Notification) {
	for _, item := range batch {
		n.Notify(ctx, item)
	}
}
