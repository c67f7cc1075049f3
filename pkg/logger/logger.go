package logger

import (
	"context"

	"go.uber.org/zap"

	"github.com/commentd/pkg/trace"
)

var Log *zap.Logger

// NewLogger builds the production logger shared by every binary.
func NewLogger() *zap.Logger {
	l, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	Log = l
	return l
}

// WithRequest attaches the request id carried by ctx, when one was assigned upstream.
func WithRequest(ctx context.Context, logger *zap.Logger) *zap.Logger {
	requestID := trace.FromContext(ctx)
	if requestID != "" {
		return logger.With(zap.String("request_id", requestID))
	}
	return logger
}
