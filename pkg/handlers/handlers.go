// Package handlers provides JSON response helpers shared by HTTP handlers.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/JaimeStill/warden/pkg/faults"
)

// RespondJSON writes data as a JSON body with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError logs err and writes it as {"error": "..."} with the given status code.
// Authorization failures are reported with a generic message so the response
// never describes which permission was missing.
func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, err error) {
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request rejected", "status", status, "error", err)
	}

	msg := err.Error()
	if errors.Is(err, faults.ErrUnauthorized) {
		msg = faults.ErrUnauthorized.Error()
	}

	RespondJSON(w, status, map[string]string{"error": msg})
}

// RespondRetryAfter writes a 429 response with a Retry-After header rounded up to whole seconds.
func RespondRetryAfter(w http.ResponseWriter, logger *slog.Logger, retryAfter time.Duration, err error) {
	secs := int64((retryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	RespondError(w, logger, http.StatusTooManyRequests, err)
}
