package moderation

import (
	"github.com/JaimeStill/warden/pkg/faults"
)

var (
	ErrAnalyzerUnavailable = faults.New(faults.ErrExternalService, "content analyzer unavailable")
	ErrAnalyzerResponse    = faults.New(faults.ErrExternalService, "content analyzer returned an unusable response")
)

// MapHTTPStatus maps moderation domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	return faults.HTTPStatus(err)
}
