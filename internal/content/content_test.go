package content_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/JaimeStill/warden/internal/content"
	"github.com/JaimeStill/warden/pkg/faults"
)

func TestCreateCommandValidate(t *testing.T) {
	post := uuid.New()

	tests := []struct {
		name string
		cmd  content.CreateCommand
		err  error
	}{
		{"valid post", content.CreateCommand{Type: content.Post, Title: "Survey", Body: "Findings"}, nil},
		{"valid comment", content.CreateCommand{Type: content.Comment, PostID: &post, Body: "Agreed"}, nil},
		{"unknown type", content.CreateCommand{Type: "video", Body: "x"}, content.ErrInvalidType},
		{"empty body", content.CreateCommand{Type: content.Post, Title: "t", Body: "  "}, content.ErrEmptyBody},
		{"post without title", content.CreateCommand{Type: content.Post, Body: "x"}, content.ErrTitleRequired},
		{"comment without post", content.CreateCommand{Type: content.Comment, Body: "x"}, content.ErrPostRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Validate()
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
			assert.ErrorIs(t, err, faults.ErrValidation)
		})
	}
}

func TestSnapshotCopiesItem(t *testing.T) {
	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	item := content.Item{
		Type:     content.Post,
		ID:       uuid.New(),
		AuthorID: uuid.New(),
		Title:    "Flood gauge readings",
		Body:     "Station 4 reads 3.2m",
	}

	snap := item.Snapshot(at)
	item.Body = "edited later"

	assert.Equal(t, "Station 4 reads 3.2m", snap.Body)
	assert.Equal(t, item.ID, snap.ID)
	assert.Equal(t, at, snap.CapturedAt)
	assert.Equal(t, content.Ref{Type: content.Post, ID: item.ID}, item.Ref())
}
