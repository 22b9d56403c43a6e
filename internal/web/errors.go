package web

// errors.go provides unified error responses for the API.
//
// Every error is logged with its technical detail and the request id, then
// answered as {"error","message","action","code"} using core.MapError so the
// client can show the message and support can look up the code.

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JonMunkholm/attendance/internal/core"
	"github.com/JonMunkholm/attendance/internal/dbpool"
	"github.com/JonMunkholm/attendance/internal/logging"
)

// errInvalidBody is returned when a batch body is not a JSON array of rows.
var errInvalidBody = errors.New("invalid batch body")

// ErrorResponse represents the JSON structure for API error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for an error returned by the service.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrUnknownKind):
		return http.StatusNotFound
	case errors.Is(err, core.ErrBatchTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errInvalidBody), errors.Is(err, core.ErrInvalidSummaryFilter):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrTooManyUploads):
		return http.StatusTooManyRequests
	case errors.Is(err, dbpool.ErrClosed), errors.Is(err, dbpool.ErrUnsupportedDriver):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the mapped user message.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	msg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", msg.Code,
	}
	if statusCode >= 500 {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	if statusCode == http.StatusTooManyRequests && w.Header().Get("Retry-After") == "" {
		w.Header().Set("Retry-After", "5")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// fail answers with the status statusFor picks.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	respondError(w, r, err, statusFor(err))
}
