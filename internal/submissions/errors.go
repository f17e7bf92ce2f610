package submissions

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/warden/pkg/faults"
)

var (
	ErrBlocked    = errors.New("content blocked by moderation")
	ErrGraphState = errors.New("submission graph state")
)

// MapHTTPStatus maps submission errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrBlocked) {
		return http.StatusUnprocessableEntity
	}
	return faults.HTTPStatus(err)
}
