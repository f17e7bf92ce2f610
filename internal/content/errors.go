package content

import (
	"github.com/JaimeStill/warden/pkg/faults"
)

var (
	ErrNotFound      = faults.New(faults.ErrNotFound, "content not found")
	ErrDuplicate     = faults.New(faults.ErrDuplicate, "content already exists")
	ErrInvalidType   = faults.New(faults.ErrValidation, "content_type must be post or comment")
	ErrEmptyBody     = faults.New(faults.ErrValidation, "body required")
	ErrTitleRequired = faults.New(faults.ErrValidation, "title required for posts")
	ErrPostRequired  = faults.New(faults.ErrValidation, "post_id required for comments")
)
