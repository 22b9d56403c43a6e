package web

import (
	"net/http"

	"github.com/JonMunkholm/attendance/internal/core"
)

// requestMetadata stores the client IP and upload id on the request context.
// SaveBatch logs both with every batch.
func requestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := core.ContextWithIPAddress(r.Context(), clientIP(r))
		if id := r.Header.Get(core.HeaderUploadID); id != "" {
			ctx = core.ContextWithUploadID(ctx, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
