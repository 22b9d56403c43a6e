package core

import "context"

// Request headers shared by the API server and attendctl.
const (
	HeaderAPIKey   = "X-API-Key"
	HeaderUploadID = "X-Upload-ID"
)

type contextKey string

const (
	ctxKeyUploadID  contextKey = "upload_id"
	ctxKeyIPAddress contextKey = "client_ip"
)

// ContextWithUploadID tags the context with the client's upload id, the
// value of the X-Upload-ID header shared by every batch of one file.
func ContextWithUploadID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyUploadID, id)
}

// ContextWithIPAddress adds the client IP for batch logging.
func ContextWithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyIPAddress, ip)
}

// UploadIDFromContext extracts the upload id from context.
func UploadIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUploadID).(string); ok {
		return v
	}
	return ""
}

// IPAddressFromContext extracts the client IP from context.
func IPAddressFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyIPAddress).(string); ok {
		return v
	}
	return ""
}
