package util

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rabbitmq/amqp091-go"
)

// retryableAware is implemented by domain errors that already carry their own
// verdict, like provider delivery errors classified from HTTP status codes.
type retryableAware interface {
	error
	Retryable() bool
}

// IsRetryableError determines if an error is retryable.
// Returns: (isRetryable, errorType)
func IsRetryableError(err error) (bool, string) {
	if err == nil {
		return false, ""
	}

	var ra retryableAware
	if errors.As(err, &ra) {
		return ra.Retryable(), "delivery_error"
	}

	errStr := err.Error()

	// Malformed data never fixes itself on redelivery.
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return false, "json_decode_error"
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return false, "json_decode_error"
	}
	if strings.Contains(errStr, "json:") {
		return false, "json_decode_error"
	}

	// Database errors
	if errors.Is(err, pgx.ErrNoRows) {
		return false, "not_found"
	}
	if strings.Contains(errStr, "duplicate key") || strings.Contains(errStr, "UNIQUE constraint") {
		return false, "duplicate_key"
	}
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "timeout") {
		return true, "db_connection_error"
	}

	// Broker errors surface when a handler republishes, e.g. to the DLQ.
	var amqpErr *amqp091.Error
	if errors.As(err, &amqpErr) {
		return true, "mq_error"
	}

	// Network errors
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true, "network_timeout"
		}
		return true, "network_error"
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true, "network_timeout"
		}
		return true, "network_error"
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true, "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return false, "context_canceled"
	}

	// Unknown errors are not retried, the redelivery loop would never end.
	return false, "unknown_error"
}
