package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/JonMunkholm/attendance/internal/core"
	"github.com/JonMunkholm/attendance/internal/logging"
)

// healthTimeout bounds the health check ping.
const healthTimeout = 5 * time.Second

// writeJSON encodes v as JSON with a 200 status. Encoding errors are only
// logged since headers are already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}

// healthResponse is the /healthz body when the pool answers.
type healthResponse struct {
	Status string          `json:"status"`
	Pool   core.PoolStatus `json:"pool"`
}

// handleHealth reports whether the database pool is usable, with its
// connection counts.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := s.service.Ping(ctx); err != nil {
		respondError(w, r, err, http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, r, healthResponse{Status: "ok", Pool: s.service.PoolStatus()})
}

// handleListKinds lists the registered upload kinds and their columns.
func (s *Server) handleListKinds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, s.service.ListKinds())
}

// handleUploadQueueStatus returns the current state of the upload limiter.
// Used for monitoring and to check if the system can accept more batches.
func (s *Server) handleUploadQueueStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, s.service.UploadLimiterStatus())
}
