package trace

import (
	"context"

	"github.com/google/uuid"
)

const RequestIDKey = "request_id"

// NewRequestID generates an id assigned to every inbound request and
// propagated through queue payloads so worker logs can be correlated.
func NewRequestID() string {
	return uuid.NewString()
}

// FromContext returns the request id stored in ctx, or "".
func FromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithContext stores the request id in ctx.
func WithContext(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// HeaderName is the HTTP header the id is read from and echoed back on.
func HeaderName() string {
	return "X-Request-ID"
}
